package lpcnet

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	dataset "github.com/neurlang/vocoder/datasets/lpcnet"
	"github.com/neurlang/vocoder/trainer"
	"gonum.org/v1/gonum/mat"
)

func dataConfig() dataset.Config {
	return dataset.Config{
		FrameSize:        4,
		FeatureChunkSize: 5,
		NbFeatures:       8,
		NbUsedFeatures:   6,
		ZeroFrom:         2,
		ZeroTo:           4,
		PitchColumn:      5,
		ContextFrames:    2,
		PitchEmbeddings:  256,
	}
}

func netConfig() Config {
	return Config{
		FrameSize:      4,
		NbUsedFeatures: 6,
		Buckets:        64,
		CondFeatures:   2,
		Quantum:        0.5,
		Levels:         16,
		Smoothing:      8,
		Salt:           7,
		Threads:        2,
	}
}

// makeDataset builds chunks where the output excitation is a function of the
// signal byte and the other inputs are noise.
func makeDataset(t testing.TB, chunks int) *dataset.Dataset {
	cfg := dataConfig()
	rng := rand.New(rand.NewSource(5))
	n := chunks * cfg.PCMChunkSize()
	var c dataset.Channels
	for i := 0; i < n; i++ {
		sig := byte(rng.Intn(8))
		c.Sig = append(c.Sig, sig*30)
		c.Pred = append(c.Pred, byte(rng.Intn(8))*30)
		c.InExc = append(c.InExc, byte(rng.Intn(8))*30)
		c.OutExc = append(c.OutExc, sig*30+1)
	}
	rows := chunks * cfg.FeatureChunkSize
	raw := make([]float32, rows*cfg.NbFeatures)
	for r := 0; r < rows; r++ {
		for col := 0; col < cfg.NbFeatures; col++ {
			raw[r*cfg.NbFeatures+col] = float32(rng.NormFloat64())
		}
		raw[r*cfg.NbFeatures+cfg.PitchColumn] = float32(rng.Intn(3)) * 0.25
	}
	d, err := dataset.Prepare(dataset.Interleave(c), raw, cfg)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func compiled(t testing.TB, cfg Config) *Network {
	n, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	err = n.Compile(trainer.CompileOptions{
		Optimizer: trainer.Adam(0.001, true, 5e-5),
		Loss:      trainer.LossSparseCategoricalCrossentropy,
		Metrics:   []string{trainer.MetricSparseCategoricalAccuracy},
	})
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func all(d *dataset.Dataset) []int {
	out := make([]int, d.Chunks())
	for i := range out {
		out[i] = i
	}
	return out
}

func isPrime(n int) bool {
	if n < 2 {
		return false
	}
	for d := 2; d*d <= n; d++ {
		if n%d == 0 {
			return false
		}
	}
	return true
}

func TestBucketsPrime(t *testing.T) {
	for _, b := range []int{1, 2, 64, 100, 4096, 10007} {
		cfg := netConfig()
		cfg.Buckets = b
		n, err := New(cfg)
		if err != nil {
			t.Fatal(err)
		}
		if !isPrime(n.Buckets()) || n.Buckets() < b {
			t.Errorf("%d buckets for %d", n.Buckets(), b)
		}
	}
}

func TestQuantize(t *testing.T) {
	var tests = []struct {
		v    float32
		want int32
	}{
		{0, 0}, {0.49, 0}, {0.5, 1}, {-0.1, -1}, {-0.5, -1}, {100, 16}, {-100, -16},
	}
	for _, tc := range tests {
		if got := int32(quantize(tc.v, 0.5, 16)); got != tc.want {
			t.Errorf("quantize(%v) == %d, want %d", tc.v, got, tc.want)
		}
	}
}

func TestUntrainedIsUniform(t *testing.T) {
	d := makeDataset(t, 4)
	n := compiled(t, netConfig())
	_, probs := n.Predict(d.Sample(0, 0))
	for c, p := range probs {
		if math.Abs(p-1.0/Classes) > 1e-12 {
			t.Fatalf("class %d has probability %v", c, p)
		}
	}
	logs := n.Evaluate(d, all(d))
	if math.Abs(logs["loss"]-math.Log(Classes)) > 1e-9 {
		t.Errorf("untrained loss %v, want log(256)", logs["loss"])
	}
}

func TestFitLearns(t *testing.T) {
	d := makeDataset(t, 40)
	n := compiled(t, netConfig())
	h, err := n.Fit(context.Background(), d, trainer.FitOptions{
		BatchSize:       4,
		Epochs:          2,
		ValidationSplit: 0.25,
		Shuffle:         true,
		Seed:            1,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(h.Epoch) != 2 {
		t.Fatalf("history of %d epochs", len(h.Epoch))
	}
	if h.History["loss"][1] >= h.History["loss"][0] {
		t.Errorf("loss did not fall: %v", h.History["loss"])
	}
	last := h.Last()
	if last["val_loss"] >= math.Log(Classes) {
		t.Errorf("val_loss %v", last["val_loss"])
	}
	if acc := last["val_sparse_categorical_accuracy"]; acc < 0.9 {
		t.Errorf("val accuracy %v", acc)
	}
	if n.Iterations() != 2*8 {
		t.Errorf("iterations %d, want 16", n.Iterations())
	}
	class, _ := n.Predict(d.Sample(39, 3))
	if want := int(d.Sample(39, 3).OutExc); class != want {
		t.Errorf("predicted %d, want %d", class, want)
	}
}

func TestFitErrors(t *testing.T) {
	d := makeDataset(t, 4)
	opts := trainer.FitOptions{BatchSize: 2, Epochs: 1}

	n, err := New(netConfig())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := n.Fit(context.Background(), d, opts); !errors.Is(err, trainer.ErrNotCompiled) {
		t.Errorf("fit before compile: %v", err)
	}

	cfg := netConfig()
	cfg.NbUsedFeatures = 5
	if _, err := compiled(t, cfg).Fit(context.Background(), d, opts); !errors.Is(err, ErrShape) {
		t.Errorf("fit with wrong width: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := compiled(t, netConfig()).Fit(ctx, d, opts); !errors.Is(err, context.Canceled) {
		t.Errorf("fit after cancel: %v", err)
	}
}

type counter struct {
	trainer.BaseCallback
	batches, epochs, ends int
}

func (c *counter) OnBatchEnd(int, trainer.Logs) error {
	c.batches++
	return nil
}

func (c *counter) OnEpochEnd(int, trainer.Logs) error {
	c.epochs++
	return nil
}

func (c *counter) OnTrainEnd(trainer.Logs) error {
	c.ends++
	return nil
}

func TestFitCallbacks(t *testing.T) {
	d := makeDataset(t, 10)
	n := compiled(t, netConfig())
	prefix := filepath.Join(t.TempDir(), "lpcnet")
	c := &counter{}
	s := trainer.NewSparsify(1, 4, 1, 0.01, 0.01, 0.01)
	_, err := n.Fit(context.Background(), d, trainer.FitOptions{
		BatchSize:       3,
		Epochs:          2,
		ValidationSplit: 0.1,
		Callbacks:       []trainer.Callback{trainer.NewCheckpoint(prefix), s, c},
	})
	if err != nil {
		t.Fatal(err)
	}
	// 9 training chunks in batches of 3
	if c.batches != 6 || c.epochs != 2 || c.ends != 1 {
		t.Errorf("callbacks saw %d batches, %d epochs, %d ends", c.batches, c.epochs, c.ends)
	}
	if s.Batch() != 6 {
		t.Errorf("sparsify counted %d batches", s.Batch())
	}
	for _, p := range []string{prefix + "_01.h5", prefix + "_02.h5"} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("checkpoint: %v", err)
		}
	}

	// 8 input values reach every 16 wide segment of their row, 128 live
	// segments per block before pruning; density 0.01 keeps about 41
	w, err := n.LayerWeights(LayerGRUA)
	if err != nil {
		t.Fatal(err)
	}
	for k, live := range liveSegments(w, 16) {
		if live == 0 || live > 64 {
			t.Errorf("block %d has %d live segments after pruning", k, live)
		}
	}
}

// liveSegments counts per square block the width wide row segments holding a
// nonzero weight off the diagonal.
func liveSegments(w *mat.Dense, width int) []int {
	rows, cols := w.Dims()
	live := make([]int, cols/rows)
	for k := range live {
		for i := 0; i < rows; i++ {
			for g := 0; g < rows; g += width {
				for j := g; j < g+width; j++ {
					if j != i && w.At(i, k*rows+j) != 0 {
						live[k]++
						break
					}
				}
			}
		}
	}
	return live
}

func TestSaveLoad(t *testing.T) {
	d := makeDataset(t, 8)
	n := compiled(t, netConfig())
	if _, err := n.Fit(context.Background(), d, trainer.FitOptions{BatchSize: 2, Epochs: 1}); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "w_01.h5")
	if err := n.SaveWeights(path); err != nil {
		t.Fatal(err)
	}

	m, err := New(netConfig())
	if err != nil {
		t.Fatal(err)
	}
	if err := trainer.Resume(m, path); err != nil {
		t.Fatal(err)
	}
	if m.Iterations() != n.Iterations() {
		t.Errorf("iterations %d, want %d", m.Iterations(), n.Iterations())
	}
	for _, name := range []string{LayerPrior, LayerGRUA, LayerCond} {
		a, _ := n.LayerWeights(name)
		b, _ := m.LayerWeights(name)
		if !mat.Equal(a, b) {
			t.Errorf("layer %s differs after load", name)
		}
	}
	for _, ts := range []int{0, 5, 19} {
		s := d.Sample(3, ts)
		c1, p1 := n.Predict(s)
		c2, p2 := m.Predict(s)
		if c1 != c2 || p1[c1] != p2[c2] {
			t.Errorf("prediction differs after load at %d", ts)
		}
	}

	cfg := netConfig()
	cfg.Buckets = 128
	other, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := other.LoadWeights(path); !errors.Is(err, ErrShape) {
		t.Errorf("load into other shape: %v", err)
	}
	if err := m.LoadWeights(filepath.Join(t.TempDir(), "missing.h5")); err == nil {
		t.Errorf("missing file loaded")
	}
}

func TestLayerWeights(t *testing.T) {
	n := compiled(t, netConfig())
	if _, err := n.LayerWeights("gru_b"); !errors.Is(err, ErrUnknownLayer) {
		t.Errorf("unknown layer: %v", err)
	}
	if err := n.SetLayerWeights(LayerGRUA, mat.NewDense(2, 2, nil)); !errors.Is(err, ErrShape) {
		t.Errorf("bad shape: %v", err)
	}
	w := mat.NewDense(Classes, Inputs*Classes, nil)
	w.Set(3, 300, 1.5)
	if err := n.SetLayerWeights(LayerGRUA, w); err != nil {
		t.Fatal(err)
	}
	got, err := n.LayerWeights(LayerGRUA)
	if err != nil {
		t.Fatal(err)
	}
	if got.At(3, 300) != 1.5 {
		t.Errorf("weight not set")
	}
	got.Set(3, 300, 0)
	if again, _ := n.LayerWeights(LayerGRUA); again.At(3, 300) != 1.5 {
		t.Errorf("layer weights are not a copy")
	}
}

func TestSummary(t *testing.T) {
	n := compiled(t, netConfig())
	s := n.Summary()
	if len(s) != 3 || s[1].Name != LayerGRUA {
		t.Fatalf("summary %v", s)
	}
	if s[1].Params != Classes*Inputs*Classes || s[2].Rows != n.Buckets() {
		t.Errorf("summary %v", s)
	}
	if s[1].Nonzero != 0 {
		t.Errorf("untrained gru_a has %d nonzero weights", s[1].Nonzero)
	}
}

func TestBadConfig(t *testing.T) {
	cfg := netConfig()
	cfg.CondFeatures = 7
	if _, err := New(cfg); err == nil {
		t.Errorf("more conditioning features than used features accepted")
	}
	cfg = netConfig()
	cfg.Smoothing = 0
	if _, err := New(cfg); err == nil {
		t.Errorf("zero smoothing accepted")
	}
}

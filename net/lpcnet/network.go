package lpcnet

import (
	"errors"
	"fmt"
	"math"

	"github.com/neurlang/vocoder/datasets"
	dataset "github.com/neurlang/vocoder/datasets/lpcnet"
	"github.com/neurlang/vocoder/hash"
	"github.com/neurlang/vocoder/parallel"
	"github.com/neurlang/vocoder/trainer"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Layer names.
const (
	LayerPrior = "prior"
	LayerGRUA  = "gru_a"
	LayerCond  = "cond"
)

var (
	// ErrShape reports data or weights that do not fit the network.
	ErrShape = errors.New("shape mismatch")
	// ErrUnknownLayer reports a layer name the network does not have.
	ErrUnknownLayer = errors.New("unknown layer")
)

// Network is the excitation predictor. It is not safe for concurrent use.
type Network struct {
	cfg     Config
	buckets int

	compiled   bool
	opts       trainer.CompileOptions
	iterations int

	prior  *datasets.Tally         // 1 x Classes
	inputs [Inputs]*datasets.Tally // Classes x Classes per input channel
	cond   *datasets.Tally         // buckets x Classes

	p        []float64 // smoothed class prior
	logPrior []float64
	gruA     *mat.Dense // Classes x Inputs*Classes
	condW    *mat.Dense // buckets x Classes
}

// New builds an untrained network. It predicts the uniform distribution until
// it is fitted.
func New(cfg Config) (*Network, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	n := &Network{
		cfg:      cfg,
		buckets:  primeAtLeast(cfg.Buckets),
		prior:    datasets.NewTally(1, Classes),
		p:        make([]float64, Classes),
		logPrior: make([]float64, Classes),
		gruA:     mat.NewDense(Classes, Inputs*Classes, nil),
	}
	for k := range n.inputs {
		n.inputs[k] = datasets.NewTally(Classes, Classes)
	}
	n.cond = datasets.NewTally(n.buckets, Classes)
	n.condW = mat.NewDense(n.buckets, Classes, nil)
	n.rebuild()
	return n, nil
}

// FrameSize is the number of samples per conditioning frame.
func (n *Network) FrameSize() int {
	return n.cfg.FrameSize
}

// NbUsedFeatures is the width of a conditioning row.
func (n *Network) NbUsedFeatures() int {
	return n.cfg.NbUsedFeatures
}

// Buckets is the number of conditioning contexts actually allocated.
func (n *Network) Buckets() int {
	return n.buckets
}

// Iterations is the number of batches trained so far.
func (n *Network) Iterations() int {
	return n.iterations
}

// Compile sets the loss, metrics and optimizer used by Fit.
func (n *Network) Compile(opts trainer.CompileOptions) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	n.opts = opts
	n.compiled = true
	return nil
}

// rebuild derives every weight from the vote counts.
func (n *Network) rebuild() {
	beta := n.cfg.Smoothing
	pt := n.prior.Total(0)
	for c := 0; c < Classes; c++ {
		n.p[c] = (n.prior.Votes(0, c) + beta/Classes) / (pt + beta)
		n.logPrior[c] = math.Log(n.p[c])
	}
	for k, t := range n.inputs {
		for x := 0; x < Classes; x++ {
			n.pmi(n.gruA.RawRowView(x)[k*Classes:(k+1)*Classes], t.Row(x), t.Total(x))
		}
	}
	parallel.ForEachShard(n.buckets, n.cfg.threads(), func(_, from, to int) {
		for b := from; b < to; b++ {
			n.pmi(n.condW.RawRowView(b), n.cond.Row(b), n.cond.Total(b))
		}
	})
}

// pmi writes log(p(c|x)/p(c)) for every class c, with p(c|x) estimated from
// the votes of x smoothed towards the prior.
func (n *Network) pmi(dst, votes []float64, total float64) {
	if total == 0 {
		for c := range dst {
			dst[c] = 0
		}
		return
	}
	beta := n.cfg.Smoothing
	lt := math.Log(total + beta)
	for c := range dst {
		dst[c] = math.Log(votes[c]+beta*n.p[c]) - lt - n.logPrior[c]
	}
}

func quantize(v float32, quantum float64, levels int) uint32 {
	q := math.Floor(float64(v) / quantum)
	if q < -float64(levels) {
		q = -float64(levels)
	}
	if q > float64(levels) {
		q = float64(levels)
	}
	return uint32(int32(q))
}

// bucket selects the conditioning context of a sample from its frame, the
// neighbouring frames and the pitch index.
func (n *Network) bucket(s dataset.Sample) int {
	k := n.cfg.CondFeatures
	values := make([]uint32, 0, 3*k+1)
	for _, row := range [][]float32{s.Prev, s.Frame, s.Next} {
		for _, v := range row[:k] {
			values = append(values, quantize(v, n.cfg.Quantum, n.cfg.Levels))
		}
	}
	values = append(values, uint32(s.Period))
	return int(hash.Features(values, n.cfg.Salt, uint32(n.buckets)))
}

// logits writes the unnormalized log probability of every class into dst.
func (n *Network) logits(dst []float64, s dataset.Sample, bucket int) {
	copy(dst, n.logPrior)
	floats.Add(dst, n.gruA.RawRowView(int(s.Sig))[0:Classes])
	floats.Add(dst, n.gruA.RawRowView(int(s.Pred))[Classes:2*Classes])
	floats.Add(dst, n.gruA.RawRowView(int(s.InExc))[2*Classes:3*Classes])
	floats.Add(dst, n.condW.RawRowView(bucket))
}

// Predict returns the most likely output excitation byte of s and the
// probability of every class.
func (n *Network) Predict(s dataset.Sample) (int, []float64) {
	probs := make([]float64, Classes)
	n.logits(probs, s, n.bucket(s))
	lse := floats.LogSumExp(probs)
	for c := range probs {
		probs[c] = math.Exp(probs[c] - lse)
	}
	return floats.MaxIdx(probs), probs
}

// LayerWeights returns a copy of the weights of the named layer.
func (n *Network) LayerWeights(name string) (*mat.Dense, error) {
	switch name {
	case LayerPrior:
		return mat.NewDense(1, Classes, append([]float64(nil), n.logPrior...)), nil
	case LayerGRUA:
		return mat.DenseCopyOf(n.gruA), nil
	case LayerCond:
		return mat.DenseCopyOf(n.condW), nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownLayer, name)
}

// SetLayerWeights replaces the weights of the named layer. They stay in
// effect until the next batch is trained.
func (n *Network) SetLayerWeights(name string, w *mat.Dense) error {
	var dst *mat.Dense
	switch name {
	case LayerGRUA:
		dst = n.gruA
	case LayerCond:
		dst = n.condW
	case LayerPrior:
		if r, c := w.Dims(); r != 1 || c != Classes {
			return fmt.Errorf("%w: layer %s is 1x%d, got %dx%d", ErrShape, name, Classes, r, c)
		}
		mat.Row(n.logPrior, 0, w)
		return nil
	default:
		return fmt.Errorf("%w %q", ErrUnknownLayer, name)
	}
	r, c := w.Dims()
	if dr, dc := dst.Dims(); r != dr || c != dc {
		return fmt.Errorf("%w: layer %s is %dx%d, got %dx%d", ErrShape, name, dr, dc, r, c)
	}
	dst.Copy(w)
	return nil
}

// LayerSummary describes one layer for printing.
type LayerSummary struct {
	Name       string
	Rows, Cols int
	Params     int
	Nonzero    int
}

// Summary lists the layers of the network.
func (n *Network) Summary() []LayerSummary {
	layers := []struct {
		name string
		data []float64
		r, c int
	}{
		{LayerPrior, n.logPrior, 1, Classes},
		{LayerGRUA, n.gruA.RawMatrix().Data, Classes, Inputs * Classes},
		{LayerCond, n.condW.RawMatrix().Data, n.buckets, Classes},
	}
	out := make([]LayerSummary, 0, len(layers))
	for _, l := range layers {
		s := LayerSummary{Name: l.name, Rows: l.r, Cols: l.c, Params: l.r * l.c}
		for _, v := range l.data {
			if v != 0 {
				s.Nonzero++
			}
		}
		out = append(out, s)
	}
	return out
}

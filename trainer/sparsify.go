package trainer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/neurlang/quaternary"
	"gonum.org/v1/gonum/mat"
)

// LayerModel gives access to the weights of named layers.
type LayerModel interface {
	LayerWeights(name string) (*mat.Dense, error)
	SetLayerWeights(name string, w *mat.Dense) error
}

// Sparsify progressively prunes a recurrent weight matrix made of square
// blocks. It holds the global batch counter: pruning starts at batch TStart,
// repeats every Interval batches and runs after every batch from TEnd on.
// Before TEnd the density of block k ramps down cubically from 1 to
// Density[k].
type Sparsify struct {
	BaseCallback

	TStart, TEnd, Interval int
	Density                []float64

	Layer      string // layer to prune
	BlockWidth int    // columns pruned together within a row

	batch int
	model LayerModel
}

// NewSparsify creates the schedule for the recurrent layer gru_a with 16 wide
// column blocks.
func NewSparsify(tStart, tEnd, interval int, density ...float64) *Sparsify {
	return &Sparsify{
		TStart:     tStart,
		TEnd:       tEnd,
		Interval:   interval,
		Density:    density,
		Layer:      "gru_a",
		BlockWidth: 16,
	}
}

// Validate checks the schedule.
func (s *Sparsify) Validate() error {
	if s.TStart < 0 || s.TEnd <= s.TStart {
		return fmt.Errorf("bad sparsify window [%d, %d)", s.TStart, s.TEnd)
	}
	if s.Interval <= 0 {
		return fmt.Errorf("sparsify interval must be positive, got %d", s.Interval)
	}
	if s.BlockWidth <= 0 {
		return fmt.Errorf("sparsify block width must be positive, got %d", s.BlockWidth)
	}
	for _, d := range s.Density {
		if d < 0 || d > 1 {
			return fmt.Errorf("density %v not in [0, 1]", d)
		}
	}
	return nil
}

// Batch is the number of batches seen so far.
func (s *Sparsify) Batch() int {
	return s.batch
}

// Due reports whether pruning runs after global batch number batch.
func (s *Sparsify) Due(batch int) bool {
	if batch < s.TStart {
		return false
	}
	return (batch-s.TStart)%s.Interval == 0 || batch >= s.TEnd
}

// DensityAt is the density of block k after global batch number batch.
func (s *Sparsify) DensityAt(k, batch int) float64 {
	final := s.Density[k]
	if batch >= s.TEnd {
		return final
	}
	r := 1 - float64(batch-s.TStart)/float64(s.TEnd-s.TStart)
	return 1 - (1-final)*(1-r*r*r)
}

func (s *Sparsify) OnTrainBegin(model Model) error {
	lm, ok := model.(LayerModel)
	if !ok {
		return errors.New("sparsify needs a model with layer weights")
	}
	s.model = lm
	return s.Validate()
}

func (s *Sparsify) OnBatchEnd(_ int, _ Logs) error {
	s.batch++
	if !s.Due(s.batch) {
		return nil
	}
	if s.model == nil {
		return errors.New("sparsify has no model")
	}
	w, err := s.model.LayerWeights(s.Layer)
	if err != nil {
		return err
	}
	rows, cols := w.Dims()
	if rows == 0 || cols%rows != 0 {
		return fmt.Errorf("layer %s is %dx%d, not a row of square blocks", s.Layer, rows, cols)
	}
	nb := cols / rows
	if len(s.Density) < nb {
		return fmt.Errorf("layer %s has %d blocks, %d densities given", s.Layer, nb, len(s.Density))
	}
	densities := make([]float64, nb)
	for k := range densities {
		densities[k] = s.DensityAt(k, s.batch)
	}
	mask, err := Prune(w, densities, s.BlockWidth)
	if err != nil {
		return err
	}
	if err := s.model.SetLayerWeights(s.Layer, w); err != nil {
		return err
	}
	// the quaternary filter is only built for the debug log
	if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		slog.Debug("sparsified", "layer", s.Layer, "batch", s.batch,
			"density", densities, "kept_blocks", mask.Kept(), "mask_bytes", mask.FilterSize())
	}
	return nil
}

// Mask records which column blocks Prune kept. Keys are
// (block*rows + row)*groups + group.
type Mask struct {
	Keep map[uint32]bool
	kept int
}

// Kept is the number of column blocks kept.
func (m *Mask) Kept() int {
	return m.kept
}

// FilterSize is the size in bytes of the mask stored as a quaternary filter.
func (m *Mask) FilterSize() int {
	if len(m.Keep) == 0 {
		return 0
	}
	return len(quaternary.Make(m.Keep))
}

// Prune sparsifies w in place. w is a row of square N x N blocks; block k keeps
// the fraction densities[k] of its width-wide row segments with the largest
// energy. The diagonal of every block is always kept and does not count
// towards the energy.
func Prune(w *mat.Dense, densities []float64, width int) (*Mask, error) {
	n, cols := w.Dims()
	if n == 0 || cols%n != 0 {
		return nil, fmt.Errorf("%dx%d is not a row of square blocks", n, cols)
	}
	if n%width != 0 {
		return nil, fmt.Errorf("block size %d not divisible by %d", n, width)
	}
	nb := cols / n
	if len(densities) < nb {
		return nil, fmt.Errorf("%d blocks, %d densities", nb, len(densities))
	}
	groups := n / width
	mask := &Mask{Keep: make(map[uint32]bool, nb*n*groups)}
	energy := make([]float64, n*groups)
	sorted := make([]float64, n*groups)
	for k := 0; k < nb; k++ {
		block := w.Slice(0, n, k*n, (k+1)*n).(*mat.Dense)
		for i := 0; i < n; i++ {
			for g := 0; g < groups; g++ {
				var e float64
				for j := g * width; j < (g+1)*width; j++ {
					if i == j {
						continue
					}
					v := block.At(i, j)
					e += v * v
				}
				energy[i*groups+g] = e
			}
		}
		copy(sorted, energy)
		sort.Float64s(sorted)
		idx := int(math.RoundToEven(float64(n*groups) * (1 - densities[k])))
		thresh := math.Inf(1)
		if idx < len(sorted) {
			thresh = sorted[idx]
		}
		for i := 0; i < n; i++ {
			for g := 0; g < groups; g++ {
				keep := energy[i*groups+g] >= thresh
				mask.Keep[uint32((k*n+i)*groups+g)] = keep
				if keep {
					mask.kept++
					continue
				}
				for j := g * width; j < (g+1)*width; j++ {
					if i != j {
						block.Set(i, j, 0)
					}
				}
			}
		}
	}
	return mask, nil
}

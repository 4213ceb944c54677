package lpcnet

import (
	"errors"
	"fmt"
	"math"
)

// ErrPitchRange reports a pitch embedding index outside [0, PitchEmbeddings).
var ErrPitchRange = errors.New("pitch embedding index out of range")

// PitchRangeError locates the feature row that produced a bad index.
type PitchRangeError struct {
	Chunk, Row int
	Value      float32
	Index      int
	Limit      int
}

func (e *PitchRangeError) Error() string {
	return fmt.Sprintf("%s: chunk %d row %d pitch feature %v gives index %d, want [0, %d)",
		ErrPitchRange, e.Chunk, e.Row, e.Value, e.Index, e.Limit)
}

func (e *PitchRangeError) Unwrap() error {
	return ErrPitchRange
}

// Features is a flat (Chunks, Rows, Cols) tensor of feature values.
type Features struct {
	Data               []float32
	Chunks, Rows, Cols int
}

// Row returns the slice holding one feature row.
func (f *Features) Row(chunk, row int) []float32 {
	off := (chunk*f.Rows + row) * f.Cols
	return f.Data[off : off+f.Cols]
}

// At returns a single feature value.
func (f *Features) At(chunk, row, col int) float32 {
	return f.Data[(chunk*f.Rows+row)*f.Cols+col]
}

// SelectFeatures reshapes raw rows of cfg.NbFeatures columns into chunks of
// cfg.FeatureChunkSize rows, keeping the first cfg.NbUsedFeatures columns.
func SelectFeatures(raw []float32, chunks int, cfg Config) Features {
	f := Features{
		Data:   make([]float32, chunks*cfg.FeatureChunkSize*cfg.NbUsedFeatures),
		Chunks: chunks,
		Rows:   cfg.FeatureChunkSize,
		Cols:   cfg.NbUsedFeatures,
	}
	for r := 0; r < chunks*cfg.FeatureChunkSize; r++ {
		copy(f.Data[r*f.Cols:(r+1)*f.Cols], raw[r*cfg.NbFeatures:r*cfg.NbFeatures+f.Cols])
	}
	return f
}

// ZeroBand clears columns [from, to) in every row. The shape is unchanged.
func ZeroBand(f *Features, from, to int) {
	if to > f.Cols {
		to = f.Cols
	}
	if from >= to {
		return
	}
	for r := 0; r < f.Chunks*f.Rows; r++ {
		row := f.Data[r*f.Cols : (r+1)*f.Cols]
		for c := from; c < to; c++ {
			row[c] = 0
		}
	}
}

// PadContext surrounds every chunk with context rows. Chunk i is prefixed by
// the last context rows of chunk i-1 and suffixed by the first context rows of
// chunk i+1. The first chunk is its own predecessor. The stream wraps around
// at its end: the last chunk is suffixed by the last context rows of chunk 0.
func PadContext(f Features, context int) Features {
	out := Features{
		Chunks: f.Chunks,
		Rows:   f.Rows + 2*context,
		Cols:   f.Cols,
	}
	out.Data = make([]float32, out.Chunks*out.Rows*out.Cols)
	last := f.Chunks - 1
	for i := 0; i < f.Chunks; i++ {
		for r := 0; r < context; r++ {
			if i == 0 {
				copy(out.Row(i, r), f.Row(i, r))
			} else {
				copy(out.Row(i, r), f.Row(i-1, f.Rows-context+r))
			}
		}
		for r := 0; r < f.Rows; r++ {
			copy(out.Row(i, context+r), f.Row(i, r))
		}
		for r := 0; r < context; r++ {
			if i == last {
				copy(out.Row(i, context+f.Rows+r), f.Row(0, f.Rows-context+r))
			} else {
				copy(out.Row(i, context+f.Rows+r), f.Row(i+1, r))
			}
		}
	}
	return out
}

// PitchIndex maps the pitch feature to its embedding index.
func PitchIndex(p float32) int {
	scaled := float32(50 * p)
	return int(math.Floor(float64(float32(0.1) + scaled + 100)))
}

// Periods derives the pitch embedding index of every row of f from column col.
// The result has shape (Chunks, Rows). Any index outside [0, limit) fails.
func Periods(f Features, col, limit int) ([]int16, error) {
	out := make([]int16, f.Chunks*f.Rows)
	for i := 0; i < f.Chunks; i++ {
		for r := 0; r < f.Rows; r++ {
			v := f.At(i, r, col)
			idx := PitchIndex(v)
			if idx < 0 || idx >= limit {
				return nil, &PitchRangeError{Chunk: i, Row: r, Value: v, Index: idx, Limit: limit}
			}
			out[i*f.Rows+r] = int16(idx)
		}
	}
	return out, nil
}

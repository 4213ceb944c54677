package lpcnet

import (
	"math"

	"github.com/neurlang/vocoder/ulaw"
	"gonum.org/v1/gonum/stat"
)

// Dataset is the prepared training data held in memory.
type Dataset struct {
	Config   Config
	Channels Channels
	Features Features // padded, shape (chunks, PaddedChunkSize, NbUsedFeatures)
	Periods  []int16  // shape (chunks, PaddedChunkSize)

	chunks int
}

// Chunks is the number of training chunks.
func (d *Dataset) Chunks() int {
	return d.chunks
}

// ChunkSamples is the number of samples in one chunk.
func (d *Dataset) ChunkSamples() int {
	return d.Config.PCMChunkSize()
}

// Sample is a single training example: the sample-rate inputs, the frame-rate
// conditioning and the target excitation byte.
type Sample struct {
	Sig, Pred, InExc uint8
	OutExc           uint8

	Prev, Frame, Next []float32
	Period            int16
}

// Sample returns the example for sample t of chunk. The conditioning frame is
// the padded row of the frame containing t, with one row of context on
// either side.
func (d *Dataset) Sample(chunk, t int) Sample {
	n := chunk*d.ChunkSamples() + t
	row := t/d.Config.FrameSize + d.Config.ContextFrames
	return Sample{
		Sig:    d.Channels.Sig[n],
		Pred:   d.Channels.Pred[n],
		InExc:  d.Channels.InExc[n],
		OutExc: d.Channels.OutExc[n],
		Prev:   d.Features.Row(chunk, row-1),
		Frame:  d.Features.Row(chunk, row),
		Next:   d.Features.Row(chunk, row+1),
		Period: d.Periods[chunk*d.Features.Rows+row],
	}
}

// Split returns the training and validation chunk indices. The validation
// chunks are the trailing fraction of the data, taken before any shuffling.
func (d *Dataset) Split(validation float64) (train, val []int) {
	at := int(float64(d.chunks) * (1 - validation))
	if at < 0 {
		at = 0
	}
	if at > d.chunks {
		at = d.chunks
	}
	for i := 0; i < d.chunks; i++ {
		if i < at {
			train = append(train, i)
		} else {
			val = append(val, i)
		}
	}
	return
}

// OutExcStd is the population standard deviation of the target bytes.
func (d *Dataset) OutExcStd() float64 {
	if d.Channels.Len() == 0 {
		return 0
	}
	x := make([]float64, d.Channels.Len())
	for i, v := range d.Channels.OutExc {
		x[i] = float64(v)
	}
	_, std := stat.PopMeanStdDev(x, nil)
	return std
}

// OutExcLinearStd is the population standard deviation of the target
// excitation expanded to the linear 16-bit domain.
func (d *Dataset) OutExcLinearStd() float64 {
	if d.Channels.Len() == 0 {
		return 0
	}
	_, std := stat.PopMeanStdDev(ulaw.Ulaw2LinSlice(d.Channels.OutExc), nil)
	return std
}

// ClippedFraction is the share of target bytes at either end of the mu-law
// range, where the 16-bit signal saturates.
func (d *Dataset) ClippedFraction() float64 {
	if d.Channels.Len() == 0 {
		return 0
	}
	ends := ulaw.Lin2UlawSlice([]int16{math.MinInt16, math.MaxInt16})
	var n int
	for _, v := range d.Channels.OutExc {
		if v == ends[0] || v == ends[1] {
			n++
		}
	}
	return float64(n) / float64(d.Channels.Len())
}

package lpcnet

import (
	"compress/lzw"
	"fmt"
	"io"
	"os"

	"github.com/neurlang/vocoder/datasets"
	"github.com/vmihailenco/msgpack/v5"
	"gonum.org/v1/gonum/mat"
)

const snapshotVersion = 1

// snapshot is the stored form of a network: its shape, the vote counts and
// the current weights, which may differ from the counts after pruning.
type snapshot struct {
	Version        int         `msgpack:"version"`
	FrameSize      int         `msgpack:"frame_size"`
	NbUsedFeatures int         `msgpack:"nb_used_features"`
	Buckets        int         `msgpack:"buckets"`
	Salt           uint32      `msgpack:"salt"`
	Iterations     int         `msgpack:"iterations"`
	Prior          []float64   `msgpack:"prior"`
	Inputs         [][]float64 `msgpack:"inputs"`
	Cond           []float64   `msgpack:"cond"`
	GRUA           []float64   `msgpack:"gru_a"`
	CondW          []float64   `msgpack:"cond_w"`
}

// SaveWeights writes the network to a lzw compressed file
func (n *Network) SaveWeights(name string) error {
	file, err := os.Create(name)
	if err != nil {
		return err
	}
	err = n.WriteWeights(file)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	return err
}

// WriteWeights writes the network to a writer
func (n *Network) WriteWeights(w io.Writer) error {
	snap := snapshot{
		Version:        snapshotVersion,
		FrameSize:      n.cfg.FrameSize,
		NbUsedFeatures: n.cfg.NbUsedFeatures,
		Buckets:        n.buckets,
		Salt:           n.cfg.Salt,
		Iterations:     n.iterations,
		Prior:          n.prior.Dump(),
		Cond:           n.cond.Dump(),
		GRUA:           n.gruA.RawMatrix().Data,
		CondW:          n.condW.RawMatrix().Data,
	}
	for _, t := range n.inputs {
		snap.Inputs = append(snap.Inputs, t.Dump())
	}

	lw := lzw.NewWriter(w, lzw.LSB, 8)
	if err := msgpack.NewEncoder(lw).Encode(&snap); err != nil {
		lw.Close()
		return err
	}
	return lw.Close()
}

// LoadWeights reads the network from a lzw compressed file
func (n *Network) LoadWeights(name string) error {
	file, err := os.Open(name)
	if err != nil {
		return err
	}
	defer file.Close()
	if err := n.ReadWeights(file); err != nil {
		return fmt.Errorf("load %s: %w", name, err)
	}
	return nil
}

// ReadWeights reads the network from a reader. The stored network must have
// the same shape. Nothing is changed on error.
func (n *Network) ReadWeights(r io.Reader) error {
	lr := lzw.NewReader(r, lzw.LSB, 8)
	defer lr.Close()

	var snap snapshot
	if err := msgpack.NewDecoder(lr).Decode(&snap); err != nil {
		return err
	}
	if snap.Version != snapshotVersion {
		return fmt.Errorf("unsupported weights version %d", snap.Version)
	}
	switch {
	case snap.FrameSize != n.cfg.FrameSize,
		snap.NbUsedFeatures != n.cfg.NbUsedFeatures,
		snap.Buckets != n.buckets,
		snap.Salt != n.cfg.Salt:
		return fmt.Errorf("%w: stored network has frame size %d, %d features, %d buckets and salt %#x",
			ErrShape, snap.FrameSize, snap.NbUsedFeatures, snap.Buckets, snap.Salt)
	case len(snap.Inputs) != Inputs,
		len(snap.GRUA) != Classes*Inputs*Classes,
		len(snap.CondW) != n.buckets*Classes:
		return fmt.Errorf("%w: stored weights are truncated", ErrShape)
	}

	prior, cond := datasets.NewTally(1, Classes), datasets.NewTally(n.buckets, Classes)
	if err := prior.Restore(snap.Prior); err != nil {
		return fmt.Errorf("%w: %v", ErrShape, err)
	}
	if err := cond.Restore(snap.Cond); err != nil {
		return fmt.Errorf("%w: %v", ErrShape, err)
	}
	var inputs [Inputs]*datasets.Tally
	for k := range inputs {
		inputs[k] = datasets.NewTally(Classes, Classes)
		if err := inputs[k].Restore(snap.Inputs[k]); err != nil {
			return fmt.Errorf("%w: %v", ErrShape, err)
		}
	}

	n.prior, n.inputs, n.cond = prior, inputs, cond
	n.iterations = snap.Iterations
	n.rebuild()
	n.gruA = mat.NewDense(Classes, Inputs*Classes, snap.GRUA)
	n.condW = mat.NewDense(n.buckets, Classes, snap.CondW)
	return nil
}

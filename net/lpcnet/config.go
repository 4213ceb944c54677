package lpcnet

import (
	"fmt"
	"runtime"

	"github.com/jbarham/primegen"
)

// Classes is the number of mu-law levels predicted.
const Classes = 256

// Inputs is the number of sample-rate input channels feeding gru_a.
const Inputs = 3

// Config describes the shape of the network.
type Config struct {
	FrameSize      int `yaml:"frame_size"`
	NbUsedFeatures int `yaml:"nb_used_features"`

	// Buckets is the number of conditioning contexts. It is rounded up
	// to a prime.
	Buckets int `yaml:"buckets"`
	// CondFeatures is the number of leading feature columns of each
	// conditioning row that select the bucket.
	CondFeatures int `yaml:"cond_features"`
	// Quantum is the quantization step of the conditioning features and
	// Levels clips the quantized value to [-Levels, Levels].
	Quantum float64 `yaml:"quantum"`
	Levels  int     `yaml:"levels"`

	// Smoothing is the pseudo count pulling sparse counts towards the
	// class prior.
	Smoothing float64 `yaml:"smoothing"`
	Salt      uint32  `yaml:"salt"`

	Threads int `yaml:"-"`
}

// DefaultConfig returns the network used by train_lpcnet.
func DefaultConfig() Config {
	return Config{
		FrameSize:      160,
		NbUsedFeatures: 38,
		Buckets:        4096,
		CondFeatures:   4,
		Quantum:        0.5,
		Levels:         16,
		Smoothing:      8,
		Salt:           0x4c50434e,
	}
}

// Validate checks the network shape.
func (c Config) Validate() error {
	switch {
	case c.FrameSize <= 0:
		return fmt.Errorf("frame size must be positive, got %d", c.FrameSize)
	case c.NbUsedFeatures <= 0:
		return fmt.Errorf("used feature count must be positive, got %d", c.NbUsedFeatures)
	case c.Buckets <= 0:
		return fmt.Errorf("bucket count must be positive, got %d", c.Buckets)
	case c.CondFeatures < 0 || c.CondFeatures > c.NbUsedFeatures:
		return fmt.Errorf("conditioning features %d not in [0, %d]", c.CondFeatures, c.NbUsedFeatures)
	case c.Quantum <= 0:
		return fmt.Errorf("quantum must be positive, got %v", c.Quantum)
	case c.Levels <= 0:
		return fmt.Errorf("levels must be positive, got %d", c.Levels)
	case c.Smoothing <= 0:
		return fmt.Errorf("smoothing must be positive, got %v", c.Smoothing)
	}
	return nil
}

func (c Config) threads() int {
	if c.Threads > 0 {
		return c.Threads
	}
	return runtime.NumCPU()
}

// primeAtLeast returns the smallest prime not below n.
func primeAtLeast(n int) int {
	pg := primegen.New()
	pg.SkipTo(uint64(n))
	return int(pg.Next())
}

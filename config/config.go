// Package config holds the settings of a training run. Defaults reproduce the
// reference LPCNet training setup; a YAML file overrides any subset of them.
package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	dataset "github.com/neurlang/vocoder/datasets/lpcnet"
	network "github.com/neurlang/vocoder/net/lpcnet"
	"github.com/neurlang/vocoder/session"
	"github.com/neurlang/vocoder/trainer"
)

// Sparsify configures the pruning schedule of gru_a.
type Sparsify struct {
	TStart   int       `yaml:"t_start"`
	TEnd     int       `yaml:"t_end"`
	Interval int       `yaml:"interval"`
	Density  []float64 `yaml:"density"` // final density per block
}

// Config is the full run configuration.
type Config struct {
	Data      dataset.Config    `yaml:"data"`
	Network   network.Config    `yaml:"network"`
	Optimizer trainer.Optimizer `yaml:"optimizer"`
	Sparsify  Sparsify          `yaml:"sparsify"`
	Session   session.Config    `yaml:"session"`

	BatchSize       int     `yaml:"batch_size"`
	Epochs          int     `yaml:"epochs"`
	ValidationSplit float64 `yaml:"validation_split"`
	// ValidationSignificance evaluates a sufficient sample of the validation
	// chunks at this confidence level. 0 evaluates all of them.
	ValidationSignificance byte  `yaml:"validation_significance"`
	Shuffle                bool  `yaml:"shuffle"`
	Seed                   int64 `yaml:"seed"`
}

// Default returns the reference configuration.
func Default() Config {
	return Config{
		Data:      dataset.DefaultConfig(),
		Network:   network.DefaultConfig(),
		Optimizer: trainer.Adam(0.001, true, 5e-5),
		Sparsify: Sparsify{
			TStart:   2000,
			TEnd:     40000,
			Interval: 400,
			Density:  []float64{0.05, 0.05, 0.2},
		},
		BatchSize:       32,
		Epochs:          20,
		ValidationSplit: 0.1,
		Shuffle:         true,
	}
}

// Load reads the YAML file at path over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Resolve copies the settings shared between sections from the data layout
// and the session into the network.
func (c *Config) Resolve(s *session.Session) {
	c.Network.FrameSize = c.Data.FrameSize
	c.Network.NbUsedFeatures = c.Data.NbUsedFeatures
	if s != nil {
		c.Network.Threads = s.Threads
	}
}

// FitOptions returns the options of the training loop.
func (c Config) FitOptions(callbacks ...trainer.Callback) trainer.FitOptions {
	return trainer.FitOptions{
		BatchSize:              c.BatchSize,
		Epochs:                 c.Epochs,
		ValidationSplit:        c.ValidationSplit,
		ValidationSignificance: c.ValidationSignificance,
		Shuffle:                c.Shuffle,
		Seed:                   c.Seed,
		Callbacks:              callbacks,
	}
}

// NewSparsify returns the pruning callback.
func (c Config) NewSparsify() *trainer.Sparsify {
	return trainer.NewSparsify(c.Sparsify.TStart, c.Sparsify.TEnd, c.Sparsify.Interval, c.Sparsify.Density...)
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Data.Validate(); err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if err := c.Network.Validate(); err != nil {
		return fmt.Errorf("network: %w", err)
	}
	if c.Network.FrameSize != c.Data.FrameSize || c.Network.NbUsedFeatures != c.Data.NbUsedFeatures {
		return fmt.Errorf("network expects frame size %d and %d features, data has %d and %d",
			c.Network.FrameSize, c.Network.NbUsedFeatures, c.Data.FrameSize, c.Data.NbUsedFeatures)
	}
	if err := c.Optimizer.Validate(); err != nil {
		return fmt.Errorf("optimizer: %w", err)
	}
	if err := c.NewSparsify().Validate(); err != nil {
		return fmt.Errorf("sparsify: %w", err)
	}
	if len(c.Sparsify.Density) != network.Inputs {
		return fmt.Errorf("sparsify: %d densities for %d blocks", len(c.Sparsify.Density), network.Inputs)
	}
	return c.FitOptions().Validate()
}

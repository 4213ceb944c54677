package trainer

import (
	"context"
	"errors"
	"fmt"

	"github.com/neurlang/vocoder/datasets/lpcnet"
)

// Loss and metric names understood by Compile.
const (
	LossSparseCategoricalCrossentropy = "sparse_categorical_crossentropy"
	MetricSparseCategoricalAccuracy   = "sparse_categorical_accuracy"
)

// ErrNotCompiled is returned by Fit before Compile succeeded.
var ErrNotCompiled = errors.New("model is not compiled")

// Optimizer selects how strongly each batch updates the model.
type Optimizer struct {
	Name         string  `yaml:"name"`
	LearningRate float64 `yaml:"learning_rate"`
	AMSGrad      bool    `yaml:"amsgrad"`
	Decay        float64 `yaml:"decay"`
}

// Adam returns the adaptive-moment optimizer settings.
func Adam(lr float64, amsgrad bool, decay float64) Optimizer {
	return Optimizer{Name: "adam", LearningRate: lr, AMSGrad: amsgrad, Decay: decay}
}

// Rate is the time-decayed learning rate after iterations batches.
func (o Optimizer) Rate(iterations int) float64 {
	return o.LearningRate / (1 + o.Decay*float64(iterations))
}

// Validate checks the optimizer settings.
func (o Optimizer) Validate() error {
	if o.Name != "adam" {
		return fmt.Errorf("unknown optimizer %q", o.Name)
	}
	if o.LearningRate <= 0 {
		return fmt.Errorf("learning rate must be positive, got %v", o.LearningRate)
	}
	if o.Decay < 0 {
		return fmt.Errorf("decay must not be negative, got %v", o.Decay)
	}
	return nil
}

// CompileOptions configures the loss, metrics and optimizer of a model.
type CompileOptions struct {
	Optimizer Optimizer
	Loss      string
	Metrics   []string
}

// Validate checks that the loss and metrics are supported.
func (c CompileOptions) Validate() error {
	if c.Loss != LossSparseCategoricalCrossentropy {
		return fmt.Errorf("unknown loss %q", c.Loss)
	}
	for _, m := range c.Metrics {
		if m != MetricSparseCategoricalAccuracy {
			return fmt.Errorf("unknown metric %q", m)
		}
	}
	return c.Optimizer.Validate()
}

// FitOptions configures a training run.
type FitOptions struct {
	BatchSize       int     // chunks per batch
	Epochs          int     // index of the last epoch, exclusive
	InitialEpoch    int     // first epoch to run
	ValidationSplit float64 // trailing fraction of chunks held out
	// ValidationSignificance, when set, evaluates only a statistically
	// sufficient sample of the validation chunks.
	ValidationSignificance byte
	Shuffle                bool
	Seed                   int64
	Callbacks              []Callback
}

// Validate checks the run settings.
func (f FitOptions) Validate() error {
	switch {
	case f.BatchSize <= 0:
		return fmt.Errorf("batch size must be positive, got %d", f.BatchSize)
	case f.Epochs < 0 || f.InitialEpoch < 0 || f.InitialEpoch > f.Epochs:
		return fmt.Errorf("bad epoch range [%d, %d)", f.InitialEpoch, f.Epochs)
	case f.ValidationSplit < 0 || f.ValidationSplit >= 1:
		return fmt.Errorf("validation split %v not in [0, 1)", f.ValidationSplit)
	case f.ValidationSignificance >= 100:
		return fmt.Errorf("validation significance %d not below 100", f.ValidationSignificance)
	}
	return nil
}

// Model is the capability set the driver needs from a trainable network.
type Model interface {
	Compile(opts CompileOptions) error
	Fit(ctx context.Context, data *lpcnet.Dataset, opts FitOptions) (*History, error)
	LoadWeights(path string) error
	SaveWeights(path string) error
}

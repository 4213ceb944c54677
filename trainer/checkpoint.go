package trainer

import (
	"errors"
	"fmt"
	"log/slog"
)

// CheckpointPath names the checkpoint of a 1-based epoch.
func CheckpointPath(prefix string, epoch int) string {
	return fmt.Sprintf("%s_%02d.h5", prefix, epoch)
}

// Checkpoint saves the full model after every epoch as <prefix>_<epoch>.h5.
type Checkpoint struct {
	BaseCallback

	Prefix string

	model Model
}

// NewCheckpoint creates the checkpoint callback.
func NewCheckpoint(prefix string) *Checkpoint {
	return &Checkpoint{Prefix: prefix}
}

func (c *Checkpoint) OnTrainBegin(model Model) error {
	c.model = model
	return nil
}

func (c *Checkpoint) OnEpochEnd(epoch int, logs Logs) error {
	if c.model == nil {
		return errors.New("checkpoint has no model")
	}
	path := CheckpointPath(c.Prefix, epoch+1)
	if err := c.model.SaveWeights(path); err != nil {
		return fmt.Errorf("checkpoint epoch %d: %w", epoch+1, err)
	}
	slog.Info("checkpoint saved", "epoch", epoch+1, "path", path)
	return nil
}

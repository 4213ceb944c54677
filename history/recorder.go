package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neurlang/vocoder/trainer"
	"github.com/vmihailenco/msgpack/v5"
)

// Record is the stored form of one finished epoch.
type Record struct {
	Run   string             `msgpack:"run"`
	Epoch int                `msgpack:"epoch"` // 1-based
	Time  time.Time          `msgpack:"time"`
	Logs  map[string]float64 `msgpack:"logs"`
}

// EpochKey is the key of a record.
func EpochKey(run string, epoch int) Key {
	return Key{"run", run, "epoch", fmt.Sprintf("%04d", epoch)}
}

// Recorder is a training callback that stores the logs of every epoch under
// a fresh run id.
type Recorder struct {
	trainer.BaseCallback

	Run   string
	store Store
	ctx   context.Context
}

// NewRecorder creates a recorder writing to store.
func NewRecorder(ctx context.Context, store Store) *Recorder {
	return &Recorder{
		Run:   uuid.New().String(),
		store: store,
		ctx:   ctx,
	}
}

func (r *Recorder) OnEpochEnd(epoch int, logs trainer.Logs) error {
	data, err := msgpack.Marshal(&Record{
		Run:   r.Run,
		Epoch: epoch + 1,
		Time:  time.Now().UTC(),
		Logs:  logs.Clone(),
	})
	if err != nil {
		return err
	}
	if err := r.store.Set(r.ctx, EpochKey(r.Run, epoch+1), data); err != nil {
		return fmt.Errorf("record epoch %d: %w", epoch+1, err)
	}
	return nil
}

// Load reads the records of a run in epoch order.
func Load(ctx context.Context, store Store, run string) ([]Record, error) {
	var out []Record
	for entry, err := range store.List(ctx, Key{"run", run, "epoch"}) {
		if err != nil {
			return nil, err
		}
		var rec Record
		if err := msgpack.Unmarshal(entry.Value, &rec); err != nil {
			return nil, fmt.Errorf("decode %s: %w", entry.Key, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

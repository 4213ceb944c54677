package trainer

// Callback is invoked by Fit at fixed points of the training loop. Any error
// aborts training.
type Callback interface {
	// OnTrainBegin hands the model being trained to the callback.
	OnTrainBegin(model Model) error

	// OnBatchEnd is called after every batch. batch counts from 0 within
	// the epoch.
	OnBatchEnd(batch int, logs Logs) error

	// OnEpochEnd is called after every epoch. epoch counts from 0.
	OnEpochEnd(epoch int, logs Logs) error

	// OnTrainEnd is called once after the last epoch.
	OnTrainEnd(logs Logs) error
}

// BaseCallback implements Callback with no-ops, for embedding.
type BaseCallback struct{}

func (BaseCallback) OnTrainBegin(Model) error { return nil }

func (BaseCallback) OnBatchEnd(int, Logs) error { return nil }

func (BaseCallback) OnEpochEnd(int, Logs) error { return nil }

func (BaseCallback) OnTrainEnd(Logs) error { return nil }

// Callbacks fans every event out to a list of callbacks, stopping at the
// first error.
type Callbacks []Callback

func (cs Callbacks) OnTrainBegin(model Model) error {
	for _, c := range cs {
		if err := c.OnTrainBegin(model); err != nil {
			return err
		}
	}
	return nil
}

func (cs Callbacks) OnBatchEnd(batch int, logs Logs) error {
	for _, c := range cs {
		if err := c.OnBatchEnd(batch, logs); err != nil {
			return err
		}
	}
	return nil
}

func (cs Callbacks) OnEpochEnd(epoch int, logs Logs) error {
	for _, c := range cs {
		if err := c.OnEpochEnd(epoch, logs); err != nil {
			return err
		}
	}
	return nil
}

func (cs Callbacks) OnTrainEnd(logs Logs) error {
	for _, c := range cs {
		if err := c.OnTrainEnd(logs); err != nil {
			return err
		}
	}
	return nil
}

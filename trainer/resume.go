package trainer

import "log/slog"

// Resume reloads model weights from path when path is set, to continue a
// partially trained model.
func Resume(model Model, path string) error {
	if path == "" {
		return nil
	}
	if err := model.LoadWeights(path); err != nil {
		return err
	}
	slog.Info("resumed weights", "path", path)
	return nil
}

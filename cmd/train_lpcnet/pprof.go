package main

import (
	"log/slog"
	"os"
	"runtime/pprof"
)

// startProfile collects a CPU profile into path until stop is called. The
// profile can be used for profile guided optimization as default.pgo.
func startProfile(path string) (stop func(), err error) {
	if path == "" {
		return func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, err
	}
	return func() {
		pprof.StopCPUProfile()
		f.Close()
		slog.Info("cpu profile written", "path", path)
	}, nil
}

// Package session holds the process wide settings of a training run: how
// many threads the model may use and how much memory the runtime may take.
package session

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/cpuid/v2"
)

// Config selects the session resources.
type Config struct {
	Threads     int    `yaml:"threads"`      // 0 uses every logical core
	MemoryLimit string `yaml:"memory_limit"` // soft limit such as "8GiB", empty keeps the runtime default
}

// Session describes the resources in use.
type Session struct {
	Threads     int
	MemoryLimit int64 // bytes, 0 when unset

	CPU    string
	AVX2   bool
	AVX512 bool
}

// New detects the CPU and applies cfg.
func New(cfg Config) (*Session, error) {
	if cfg.Threads < 0 {
		return nil, fmt.Errorf("threads must not be negative, got %d", cfg.Threads)
	}
	s := &Session{
		Threads: cfg.Threads,
		CPU:     cpuid.CPU.BrandName,
		AVX2:    cpuid.CPU.Supports(cpuid.AVX2),
		AVX512:  cpuid.CPU.Supports(cpuid.AVX512F, cpuid.AVX512DQ),
	}
	if s.Threads == 0 {
		s.Threads = cpuid.CPU.LogicalCores
	}
	if s.Threads <= 0 {
		s.Threads = 1
	}
	if cfg.MemoryLimit != "" {
		limit, err := humanize.ParseBytes(cfg.MemoryLimit)
		if err != nil {
			return nil, fmt.Errorf("memory limit: %w", err)
		}
		s.MemoryLimit = int64(limit)
		debug.SetMemoryLimit(s.MemoryLimit)
	}
	slog.Info("session", "cpu", s.CPU, "threads", s.Threads,
		"avx2", s.AVX2, "avx512", s.AVX512, "memory_limit", cfg.MemoryLimit)
	return s, nil
}

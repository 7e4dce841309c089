// Package batch decodes EAN-13 barcodes from many files at once.
package batch

import (
	"context"
	"errors"
	"os"
	"runtime"
	"time"

	"github.com/MeKo-Tech/eanscan/internal/pipeline"
)

// ProcessBatch discovers the inputs named by paths and decodes them with pl.
// Per-file failures are reported in the result; the error return covers
// discovery problems and cancellation.
func ProcessBatch(ctx context.Context, pl *pipeline.Pipeline, paths []string, cfg *Config) (*Result, error) {
	if pl == nil {
		return nil, errors.New("nil pipeline")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}

	files, err := discoverImageFiles(paths, cfg.Recursive, cfg.IncludePatterns, cfg.ExcludePatterns)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.New("no image files found")
	}

	start := time.Now()
	items, err := decodeSources(ctx, pl, files, cfg, progressFor(cfg))
	if err != nil {
		return nil, err
	}
	return &Result{
		Items:       items,
		Duration:    time.Since(start),
		WorkerCount: cfg.Workers,
	}, nil
}

func progressFor(cfg *Config) pipeline.ProgressCallback {
	if !cfg.ShowProgress || cfg.Quiet {
		return nil
	}
	w := cfg.ProgressWriter
	if w == nil {
		w = os.Stderr
	}
	interval := cfg.ProgressInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return pipeline.NewConsoleProgressCallback(w, "Processing: ").WithUpdateInterval(interval)
}

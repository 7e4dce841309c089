package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"runtime"
	"sync"
	"time"
)

// ParallelConfig holds configuration for parallel processing.
type ParallelConfig struct {
	MaxWorkers       int                           // Number of parallel workers (0 = runtime.NumCPU())
	ProgressCallback ProgressCallback              // Optional progress reporting
	ErrorHandler     func(int, image.Image, error) // Optional per-image error handler
}

// DefaultParallelConfig returns sensible defaults for parallel processing.
func DefaultParallelConfig() ParallelConfig {
	return ParallelConfig{MaxWorkers: runtime.NumCPU()}
}

type imageJob struct {
	index int
	image image.Image
}

type imageResult struct {
	index  int
	result *Result
	err    error
}

// DecodeImages decodes images with a worker pool. The returned slices are
// in input order; a failed image has a nil result and its error at the same
// index. The error return is only set for cancellation or empty input.
func (p *Pipeline) DecodeImages(ctx context.Context, images []image.Image, config ParallelConfig) ([]*Result, []error, error) {
	if len(images) == 0 {
		return nil, nil, errors.New("no images provided")
	}
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = runtime.NumCPU()
	}
	workers := min(config.MaxWorkers, len(images))

	if config.ProgressCallback != nil {
		config.ProgressCallback.OnStart(len(images))
		defer config.ProgressCallback.OnComplete()
	}

	jobs := make(chan imageJob, len(images))
	results := make(chan imageResult, len(images))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go p.worker(ctx, jobs, results, &wg)
	}

	go func() {
		defer close(jobs)
		for i, img := range images {
			select {
			case jobs <- imageJob{index: i, image: img}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	ordered := make([]*Result, len(images))
	errs := make([]error, len(images))
	processed := 0
	for r := range results {
		ordered[r.index] = r.result
		errs[r.index] = r.err
		processed++
		if config.ProgressCallback != nil {
			if r.err != nil {
				config.ProgressCallback.OnError(r.index, r.err)
			}
			config.ProgressCallback.OnProgress(processed, len(images))
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	for i, err := range errs {
		if err != nil && config.ErrorHandler != nil {
			config.ErrorHandler(i, images[i], err)
		}
	}
	return ordered, errs, nil
}

func (p *Pipeline) worker(ctx context.Context, jobs <-chan imageJob, results chan<- imageResult, wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		select {
		case job, ok := <-jobs:
			if !ok {
				return
			}
			res, err := p.DecodeImage(ctx, job.image)
			if err != nil {
				err = fmt.Errorf("image %d: %w", job.index, err)
			}
			select {
			case results <- imageResult{index: job.index, result: res, err: err}:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// ParallelStats holds statistics about parallel processing performance.
type ParallelStats struct {
	TotalImages      int           `json:"total_images"`
	DecodedImages    int           `json:"decoded_images"`
	FailedImages     int           `json:"failed_images"`
	TotalAttempts    int           `json:"total_attempts"`
	WorkerCount      int           `json:"worker_count"`
	TotalDuration    time.Duration `json:"total_duration_ns"`
	AveragePerImage  time.Duration `json:"average_per_image_ns"`
	ThroughputPerSec float64       `json:"throughput_per_sec"`
}

// CalculateParallelStats summarizes a DecodeImages run. errs is indexed like
// results; attempts of exhausted images are counted from their NoDecodeError.
func CalculateParallelStats(results []*Result, errs []error, duration time.Duration, workerCount int) ParallelStats {
	st := ParallelStats{TotalImages: len(results), WorkerCount: workerCount, TotalDuration: duration}
	for i, r := range results {
		if r == nil {
			st.FailedImages++
			var nde *NoDecodeError
			if i < len(errs) && errors.As(errs[i], &nde) {
				st.TotalAttempts += len(nde.Attempts)
			}
			continue
		}
		st.DecodedImages++
		st.TotalAttempts += len(r.Attempts)
	}
	if st.TotalImages > 0 && duration > 0 {
		st.AveragePerImage = duration / time.Duration(st.TotalImages)
		st.ThroughputPerSec = float64(st.TotalImages) / duration.Seconds()
	}
	return st
}

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

// ProcessImages runs steps over each image in turn. Failed images leave a
// nil entry and the first error is returned alongside the results.
func (e *Executor) ProcessImages(ctx context.Context, images []image.Image, steps []string) ([]*Result, error) {
	if len(images) == 0 {
		return nil, errors.New("no images provided")
	}
	out := make([]*Result, len(images))
	var firstErr error
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := e.Process(ctx, img, steps)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("image %d: %w", i, err)
			}
			continue
		}
		out[i] = res
	}
	return out, firstErr
}

// ProcessImagesParallelContext runs steps over images on a worker pool.
// Results come back in input order; failed images leave a nil entry and
// the first error (by input index) is returned.
func (e *Executor) ProcessImagesParallelContext(
	ctx context.Context,
	images []image.Image,
	steps []string,
	config ParallelConfig,
) ([]*Result, error) {
	if len(images) == 0 {
		return nil, errors.New("no images provided")
	}
	if e == nil {
		return nil, errors.New("pipeline not initialized")
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
		go e.worker(ctx, jobs, results, steps, &wg)
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
		return nil, err
	}

	var firstError error
	for i, err := range errs {
		if err == nil {
			continue
		}
		ordered[i] = nil
		if firstError == nil {
			firstError = fmt.Errorf("image %d: %w", i, err)
		}
		if config.ErrorHandler != nil {
			config.ErrorHandler(i, images[i], err)
		}
	}
	return ordered, firstError
}

func (e *Executor) worker(
	ctx context.Context,
	jobs <-chan imageJob,
	results chan<- imageResult,
	steps []string,
	wg *sync.WaitGroup,
) {
	defer wg.Done()
	for {
		select {
		case job, ok := <-jobs:
			if !ok {
				return
			}
			res, err := e.Process(ctx, job.image, steps)
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

// ParallelStats holds statistics about a parallel run.
type ParallelStats struct {
	TotalImages      int           `json:"total_images"`
	ProcessedImages  int           `json:"processed_images"`
	FailedImages     int           `json:"failed_images"`
	WorkerCount      int           `json:"worker_count"`
	TotalDuration    time.Duration `json:"total_duration_ns"`
	AveragePerImage  time.Duration `json:"average_per_image_ns"`
	ThroughputPerSec float64       `json:"throughput_per_sec"`
}

// CalculateParallelStats summarizes results of a run that took duration.
func CalculateParallelStats(results []*Result, duration time.Duration, workerCount int) ParallelStats {
	s := ParallelStats{
		TotalImages:   len(results),
		WorkerCount:   workerCount,
		TotalDuration: duration,
	}
	for _, r := range results {
		if r != nil {
			s.ProcessedImages++
		} else {
			s.FailedImages++
		}
	}
	if s.ProcessedImages > 0 && duration > 0 {
		s.AveragePerImage = duration / time.Duration(s.ProcessedImages)
		s.ThroughputPerSec = float64(s.ProcessedImages) / duration.Seconds()
	}
	return s
}

// Package batch preprocesses many image and PDF files in one run and writes
// one PNG per page.
package batch

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/MeKo-Tech/scanprep/internal/pipeline"
)

// ProcessBatch discovers inputs under paths, runs exec over every page and
// saves the outputs. Without ContinueOnError the first failed file aborts
// the run once its chunk has finished.
func ProcessBatch(ctx context.Context, exec *pipeline.Executor, paths []string, config *Config) (*Result, error) {
	if exec == nil {
		return nil, errors.New("batch: no pipeline")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	files, err := discoverInputFiles(paths, config.Recursive, config.IncludePatterns, config.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover input files: %w", err)
	}
	if len(files) == 0 {
		return nil, errors.New("no input files found")
	}

	progress := progressFor(config)
	progress.OnStart(len(files))
	defer progress.OnComplete()

	start := time.Now()
	var items []Item
	size := chunkSize(config)
	for lo := 0; lo < len(files); lo += size {
		hi := min(lo+size, len(files))
		chunk, err := processChunk(ctx, exec, files[lo:hi], config)
		if err != nil {
			return nil, fmt.Errorf("batch processing failed: %w", err)
		}
		items = append(items, chunk...)

		for _, it := range chunk {
			if it.Failed() {
				progress.OnError(lo+slices.Index(files[lo:hi], it.Source), errors.New(it.Error))
			}
		}
		progress.OnProgress(hi, len(files))
		if failed := firstFailure(chunk); failed != nil && !config.ContinueOnError {
			return nil, fmt.Errorf("batch processing failed: %s: %s", failed.Source, failed.Error)
		}
	}

	return &Result{
		Items:       items,
		Files:       files,
		Duration:    time.Since(start),
		WorkerCount: config.Workers,
	}, nil
}

func firstFailure(items []Item) *Item {
	for i := range items {
		if items[i].Failed() {
			return &items[i]
		}
	}
	return nil
}

package pipeline

import (
	"context"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/MeKo-Tech/scanprep/internal/format"
	"github.com/MeKo-Tech/scanprep/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingProgress struct {
	mu       sync.Mutex
	started  int
	progress []int
	errors   []int
	done     bool
}

func (r *recordingProgress) OnStart(total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = total
}

func (r *recordingProgress) OnProgress(current, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, current)
}

func (r *recordingProgress) OnComplete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done = true
}

func (r *recordingProgress) OnError(index int, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, index)
}

func TestDefaultParallelConfig(t *testing.T) {
	cfg := DefaultParallelConfig()
	assert.Positive(t, cfg.MaxWorkers)
	assert.Nil(t, cfg.ProgressCallback)
	assert.Nil(t, cfg.ErrorHandler)
}

func TestProcessImagesParallel_EmptyInput(t *testing.T) {
	e := newExecutorT(t, NewBuilder())
	res, err := e.ProcessImagesParallelContext(context.Background(), nil, DefaultSteps(), DefaultParallelConfig())
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Contains(t, err.Error(), "no images provided")

	var nilExec *Executor
	_, err = nilExec.ProcessImagesParallelContext(context.Background(), []image.Image{testutil.UniformGray(2, 2, 0)}, nil, DefaultParallelConfig())
	assert.ErrorContains(t, err, "pipeline not initialized")
}

func TestProcessImagesParallel_KeepsInputOrder(t *testing.T) {
	e := newExecutorT(t, NewBuilder().WithTargetWidth(50))
	var images []image.Image
	for i := range 9 {
		images = append(images, testutil.GradientGray(40+i*10, 30))
	}
	steps := []string{"contrast", "sharpen"}

	progress := &recordingProgress{}
	cfg := ParallelConfig{MaxWorkers: 4, ProgressCallback: progress}
	results, err := e.ProcessImagesParallelContext(context.Background(), images, steps, cfg)
	require.NoError(t, err)
	require.Len(t, results, len(images))

	for i, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, 40+i*10, r.InputWidth)
		seq, err := e.Run(context.Background(), images[i], steps)
		require.NoError(t, err)
		assert.True(t, testutil.GrayEqual(seq, r.Image), "image %d differs from a sequential run", i)
	}

	assert.Equal(t, 9, progress.started)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9}, progress.progress)
	assert.True(t, progress.done)
}

func TestProcessImagesParallel_ReportsFailures(t *testing.T) {
	e := newExecutorT(t, NewBuilder().WithTargetWidth(10))
	images := []image.Image{
		testutil.UniformGray(20, 20, 10),
		nil,
		testutil.UniformGray(20, 20, 30),
	}

	var handled []int
	progress := &recordingProgress{}
	cfg := ParallelConfig{
		MaxWorkers:       2,
		ProgressCallback: progress,
		ErrorHandler:     func(i int, _ image.Image, _ error) { handled = append(handled, i) },
	}
	results, err := e.ProcessImagesParallelContext(context.Background(), images, []string{"threshold"}, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "image 1")
	var fe *format.FormatError
	assert.ErrorAs(t, err, &fe)

	require.Len(t, results, 3)
	assert.NotNil(t, results[0])
	assert.Nil(t, results[1])
	assert.NotNil(t, results[2])
	assert.Equal(t, []int{1}, handled)
	assert.Equal(t, []int{1}, progress.errors)

	stats := CalculateParallelStats(results, 2*time.Second, 2)
	assert.Equal(t, 3, stats.TotalImages)
	assert.Equal(t, 2, stats.ProcessedImages)
	assert.Equal(t, 1, stats.FailedImages)
	assert.Equal(t, time.Second, stats.AveragePerImage)
	assert.InDelta(t, 1.0, stats.ThroughputPerSec, 1e-9)
}

func TestProcessImagesParallel_Cancelled(t *testing.T) {
	e := newExecutorT(t, NewBuilder())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	images := []image.Image{testutil.UniformGray(8, 8, 1), testutil.UniformGray(8, 8, 2)}
	_, err := e.ProcessImagesParallelContext(ctx, images, []string{"contrast"}, ParallelConfig{MaxWorkers: 2})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcessImagesSequential(t *testing.T) {
	e := newExecutorT(t, NewBuilder().WithTargetWidth(8))
	results, err := e.ProcessImages(context.Background(), []image.Image{testutil.UniformGray(8, 8, 1), nil}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "image 1")
	assert.NotNil(t, results[0])
	assert.Nil(t, results[1])

	_, err = e.ProcessImages(context.Background(), nil, nil)
	assert.Error(t, err)
}

func TestCalculateParallelStats_NoSuccess(t *testing.T) {
	stats := CalculateParallelStats([]*Result{nil}, time.Second, 1)
	assert.Equal(t, 1, stats.FailedImages)
	assert.Zero(t, stats.AveragePerImage)
	assert.Zero(t, stats.ThroughputPerSec)
}

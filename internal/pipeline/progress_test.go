package pipeline

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNoOpProgressCallback(t *testing.T) {
	var cb ProgressCallback = NoOpProgressCallback{}
	cb.OnStart(3)
	cb.OnProgress(1, 3)
	cb.OnError(0, errors.New("x"))
	cb.OnComplete()
}

func TestConsoleProgressCallback(t *testing.T) {
	var buf bytes.Buffer
	cb := NewConsoleProgressCallback(&buf, "pages: ").WithWidth(10)

	cb.OnStart(4)
	assert.Contains(t, buf.String(), "pages: 0/4 pages")

	buf.Reset()
	cb.OnProgress(2, 4)
	out := buf.String()
	assert.Contains(t, out, "[#####.....]")
	assert.Contains(t, out, "2/4 (50.0%)")

	buf.Reset()
	cb.OnError(3, errors.New("bad page"))
	assert.Contains(t, buf.String(), "page 3 failed: bad page")

	buf.Reset()
	cb.OnComplete()
	assert.Contains(t, buf.String(), "pages: done in")
}

func TestConsoleProgressCallback_Throttles(t *testing.T) {
	var buf bytes.Buffer
	cb := NewConsoleProgressCallback(&buf, "").WithUpdateInterval(time.Hour)
	cb.OnStart(10)
	buf.Reset()

	cb.OnProgress(1, 10)
	first := buf.String()
	assert.NotEmpty(t, first)

	cb.OnProgress(2, 10)
	assert.Equal(t, first, buf.String(), "updates inside the interval are dropped")

	cb.OnProgress(10, 10)
	assert.Contains(t, buf.String(), "10/10")
}

func TestLogProgressCallback(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	cb := NewLogProgressCallback(logger, slog.LevelInfo).WithInterval(2)

	cb.OnStart(3)
	cb.OnProgress(1, 3)
	cb.OnProgress(2, 3)
	cb.OnProgress(3, 3)
	cb.OnError(1, errors.New("boom"))
	cb.OnComplete()

	out := buf.String()
	assert.Contains(t, out, "batch started")
	assert.Equal(t, 2, strings.Count(out, "batch progress"))
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "batch completed")
}

func TestMultiProgressCallback(t *testing.T) {
	a, b := &recordingProgress{}, &recordingProgress{}
	m := MultiProgressCallback{a, b}
	m.OnStart(2)
	m.OnProgress(1, 2)
	m.OnError(0, errors.New("x"))
	m.OnComplete()
	for _, r := range []*recordingProgress{a, b} {
		assert.Equal(t, 2, r.started)
		assert.Equal(t, []int{1}, r.progress)
		assert.Equal(t, []int{0}, r.errors)
		assert.True(t, r.done)
	}
}

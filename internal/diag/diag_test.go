package diag

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlogSinkWritesStructuredRecord(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	SlogSink{Logger: logger}.Emit(context.Background(),
		Warn(EventStepUnknown, "unknown step skipped", slog.String("step", "blur")))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, "unknown step skipped", rec["msg"])
	assert.Equal(t, EventStepUnknown, rec["event"])
	assert.Equal(t, "blur", rec["step"])
}

func TestRecorderAndMulti(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	s := Multi(a, nil, b)
	ctx := context.Background()
	s.Emit(ctx, Info(EventCropApplied, "cropped", slog.Int("width", 10)))
	s.Emit(ctx, Debug(EventStepApplied, "applied"))

	for _, r := range []*Recorder{a, b} {
		evs := r.Events()
		require.Len(t, evs, 2)
		assert.Equal(t, EventCropApplied, evs[0].Name)
		v, ok := evs[0].Attr("width")
		require.True(t, ok)
		assert.Equal(t, int64(10), v.Int64())
		_, ok = evs[0].Attr("height")
		assert.False(t, ok)
	}
	assert.Len(t, a.Named(EventStepApplied), 1)
}

func TestMultiCollapses(t *testing.T) {
	assert.IsType(t, Nop{}, Multi())
	assert.IsType(t, Nop{}, Multi(nil))
	r := &Recorder{}
	assert.Same(t, r, Multi(r))
	assert.IsType(t, Nop{}, OrNop(nil))
}

func TestRecorderConcurrentEmit(t *testing.T) {
	r := &Recorder{}
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				r.Emit(context.Background(), Debug("x", "y"))
			}
		}()
	}
	wg.Wait()
	assert.Len(t, r.Events(), 400)
}

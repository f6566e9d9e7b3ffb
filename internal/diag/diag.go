// Package diag carries non-fatal diagnostics out of the preprocessing steps.
//
// Steps never fail on oracle trouble or unrecognised configuration; instead
// they describe what happened as an Event and hand it to a Sink. The CLI
// routes events to slog, the metrics package counts them and tests record
// them for assertions.
package diag

import (
	"context"
	"log/slog"
	"sync"
)

// Level mirrors the slog levels used for events.
type Level = slog.Level

// Event names emitted by the pipeline.
const (
	EventStepUnknown        = "step.unknown"
	EventStepApplied        = "step.applied"
	EventDeskewNoLines      = "deskew.no_lines"
	EventDeskewApplied      = "deskew.applied"
	EventOracleUnavailable  = "oracle.unavailable"
	EventTextFailed         = "oracle.text_failed"
	EventOrientationScore   = "orientation.candidate"
	EventOrientationChosen  = "orientation.decision"
	EventCropSkipped        = "crop.skipped"
	EventCropApplied        = "crop.applied"
	EventAcceleratorMissing = "accelerator.unavailable"
)

// Event is a single diagnostic.
type Event struct {
	Name    string
	Level   Level
	Message string
	Attrs   []slog.Attr
}

// Attr returns the value of the named attribute and whether it exists.
func (e Event) Attr(key string) (slog.Value, bool) {
	for _, a := range e.Attrs {
		if a.Key == key {
			return a.Value, true
		}
	}
	return slog.Value{}, false
}

// Sink receives events. Implementations must be safe for concurrent use.
type Sink interface {
	Emit(ctx context.Context, ev Event)
}

// Nop discards every event.
type Nop struct{}

// Emit implements Sink.
func (Nop) Emit(context.Context, Event) {}

// SlogSink writes events to a slog.Logger; a nil Logger uses slog.Default.
type SlogSink struct {
	Logger *slog.Logger
}

// NewSlogSink returns a Sink writing to logger.
func NewSlogSink(logger *slog.Logger) SlogSink {
	return SlogSink{Logger: logger}
}

// Emit implements Sink.
func (s SlogSink) Emit(ctx context.Context, ev Event) {
	l := s.Logger
	if l == nil {
		l = slog.Default()
	}
	attrs := make([]slog.Attr, 0, len(ev.Attrs)+1)
	attrs = append(attrs, slog.String("event", ev.Name))
	attrs = append(attrs, ev.Attrs...)
	l.LogAttrs(ctx, ev.Level, ev.Message, attrs...)
}

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit implements Sink.
func (r *Recorder) Emit(_ context.Context, ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events in emission order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Named returns the recorded events with the given name.
func (r *Recorder) Named(name string) []Event {
	var out []Event
	for _, ev := range r.Events() {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

// Multi fans events out to several sinks; nil entries are skipped.
func Multi(sinks ...Sink) Sink {
	var kept multi
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	switch len(kept) {
	case 0:
		return Nop{}
	case 1:
		return kept[0]
	}
	return kept
}

type multi []Sink

func (m multi) Emit(ctx context.Context, ev Event) {
	for _, s := range m {
		s.Emit(ctx, ev)
	}
}

// OrNop returns s, or Nop when s is nil.
func OrNop(s Sink) Sink {
	if s == nil {
		return Nop{}
	}
	return s
}

// Debug, Info and Warn build events at the matching level.
func Debug(name, msg string, attrs ...slog.Attr) Event {
	return Event{Name: name, Level: slog.LevelDebug, Message: msg, Attrs: attrs}
}

func Info(name, msg string, attrs ...slog.Attr) Event {
	return Event{Name: name, Level: slog.LevelInfo, Message: msg, Attrs: attrs}
}

func Warn(name, msg string, attrs ...slog.Attr) Event {
	return Event{Name: name, Level: slog.LevelWarn, Message: msg, Attrs: attrs}
}

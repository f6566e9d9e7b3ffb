// Package metrics counts pipeline activity with Prometheus collectors on a
// private registry. Scanprep is a command-line tool, so metrics are written
// in the node-exporter textfile format rather than served.
package metrics

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/MeKo-Tech/scanprep/internal/diag"
	"github.com/MeKo-Tech/scanprep/internal/oracle"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder owns a registry and the scanprep collectors. It implements
// diag.Sink so it can sit next to the slog sink in a diag.Multi.
type Recorder struct {
	reg *prometheus.Registry

	runsTotal        *prometheus.CounterVec
	runDuration      *prometheus.HistogramVec
	stepsTotal       *prometheus.CounterVec
	stepDuration     *prometheus.HistogramVec
	eventsTotal      *prometheus.CounterVec
	orientationTotal *prometheus.CounterVec
	deskewAngle      prometheus.Histogram
	oracleCalls      *prometheus.CounterVec
	oracleDuration   *prometheus.HistogramVec
}

// NewRecorder registers the collectors on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		reg: reg,
		runsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scanprep_runs_total",
				Help: "Total number of pipeline runs",
			},
			[]string{"type", "status"}, // type: image, pdf, batch
		),
		runDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scanprep_run_duration_seconds",
				Help:    "Pipeline run duration in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 25, 50},
			},
			[]string{"type"},
		),
		stepsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scanprep_steps_total",
				Help: "Total number of applied preprocessing steps",
			},
			[]string{"step"},
		),
		stepDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scanprep_step_duration_seconds",
				Help:    "Preprocessing step duration in seconds",
				Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"step"},
		),
		eventsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scanprep_events_total",
				Help: "Diagnostic events by name and level",
			},
			[]string{"event", "level"},
		),
		orientationTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scanprep_orientation_decisions_total",
				Help: "Chosen orientation candidates",
			},
			[]string{"angle"},
		),
		deskewAngle: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "scanprep_deskew_angle_degrees",
				Help:    "Deskew rotation applied to pages",
				Buckets: []float64{-45, -10, -5, -2, -1, 0, 1, 2, 5, 10, 45},
			},
		),
		oracleCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scanprep_oracle_calls_total",
				Help: "Recognition oracle calls by operation and outcome",
			},
			[]string{"op", "status"}, // status: ok, unavailable, error
		),
		oracleDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scanprep_oracle_call_duration_seconds",
				Help:    "Recognition oracle call duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
	}
}

// Registry exposes the registry for gathering.
func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

// Emit implements diag.Sink.
func (r *Recorder) Emit(_ context.Context, ev diag.Event) {
	r.eventsTotal.WithLabelValues(ev.Name, ev.Level.String()).Inc()
	switch ev.Name {
	case diag.EventStepApplied:
		step, ok := ev.Attr("step")
		if !ok {
			return
		}
		r.stepsTotal.WithLabelValues(step.String()).Inc()
		if d, ok := ev.Attr("duration"); ok {
			r.stepDuration.WithLabelValues(step.String()).Observe(d.Duration().Seconds())
		}
	case diag.EventOrientationChosen:
		if a, ok := ev.Attr("angle"); ok {
			r.orientationTotal.WithLabelValues(fmt.Sprint(a.Int64())).Inc()
		}
	case diag.EventDeskewApplied:
		if a, ok := ev.Attr("angle"); ok {
			r.deskewAngle.Observe(a.Float64())
		}
	}
}

// ObserveRun counts one run of the given type.
func (r *Recorder) ObserveRun(kind string, d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	r.runsTotal.WithLabelValues(kind, status).Inc()
	r.runDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// WriteToTextfile writes every metric to path in the Prometheus text format.
func (r *Recorder) WriteToTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

// InstrumentOracle wraps o so every call is counted and timed. A nil o is
// returned unchanged.
func (r *Recorder) InstrumentOracle(o oracle.Oracle) oracle.Oracle {
	if o == nil {
		return nil
	}
	return &instrumentedOracle{next: o, rec: r}
}

type instrumentedOracle struct {
	next oracle.Oracle
	rec  *Recorder
}

func (i *instrumentedOracle) observe(op, status string, start time.Time) {
	i.rec.oracleCalls.WithLabelValues(op, status).Inc()
	i.rec.oracleDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (i *instrumentedOracle) DetectOrientation(ctx context.Context, img *image.Gray) oracle.OrientationResult {
	start := time.Now()
	res := i.next.DetectOrientation(ctx, img)
	i.observe("orientation", availability(res.Available()), start)
	return res
}

func (i *instrumentedOracle) RecognizeText(ctx context.Context, img *image.Gray) (string, error) {
	start := time.Now()
	text, err := i.next.RecognizeText(ctx, img)
	status := "ok"
	if err != nil {
		status = "error"
	}
	i.observe("text", status, start)
	return text, err
}

func (i *instrumentedOracle) DetectWordBoxes(ctx context.Context, img *image.Gray, minConfidence float64) oracle.BoxQueryResult {
	start := time.Now()
	res := i.next.DetectWordBoxes(ctx, img, minConfidence)
	i.observe("boxes", availability(res.Available()), start)
	return res
}

// Close closes the wrapped oracle when it holds resources.
func (i *instrumentedOracle) Close() error { return oracle.Close(i.next) }

func availability(ok bool) string {
	if ok {
		return "ok"
	}
	return "unavailable"
}

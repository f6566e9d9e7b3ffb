package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/scanprep/internal/config"
	"github.com/MeKo-Tech/scanprep/internal/diag"
	"github.com/MeKo-Tech/scanprep/internal/metrics"
	"github.com/MeKo-Tech/scanprep/internal/oracle"
	"github.com/MeKo-Tech/scanprep/internal/pipeline"
)

// session is one preprocessing run: the executor, its oracle and the
// optional metrics recorder.
type session struct {
	cfg      *config.Config
	logger   *slog.Logger
	steps    []string
	exec     *pipeline.Executor
	oracle   oracle.Oracle
	recorder *metrics.Recorder
	start    time.Time
}

// newSession builds an executor for the configured steps. The oracle is
// opened only when a step needs it; if it cannot be opened the run goes on
// and those steps take their unavailable branches.
func (a *app) newSession() (*session, error) {
	cfg := a.cfg
	s := &session{cfg: cfg, logger: a.logger, steps: cfg.Steps(), start: time.Now()}

	sinks := []diag.Sink{diag.NewSlogSink(a.logger)}
	if cfg.Metrics.Enabled {
		s.recorder = metrics.NewRecorder()
		sinks = append(sinks, s.recorder)
	}

	plan := pipeline.ParseSteps(s.steps)
	if plan.Has(pipeline.StepOrientation) || plan.Has(pipeline.StepCrop) {
		o, err := s.openOracle(cfg.ToOracleOptions())
		if err != nil {
			a.logger.Warn("recognition oracle unavailable, orientation and crop will not change the page",
				"backend", cfg.Oracle.Backend, "error", err)
		}
		s.oracle = o
	}

	exec, err := pipeline.NewBuilder().
		WithConfig(cfg.ToPipelineConfig()).
		WithOracle(s.oracle).
		WithSink(diag.Multi(sinks...)).
		Build()
	if err != nil {
		_ = oracle.Close(s.oracle)
		return nil, err
	}
	s.exec = exec
	a.logger.Debug("pipeline ready", "steps", plan.String(), "width", cfg.Pipeline.TargetWidth, "oracle", s.oracle != nil)
	return s, nil
}

// openOracle builds a backend and wraps it for metrics when enabled.
func (s *session) openOracle(opts oracle.Options) (oracle.Oracle, error) {
	o, err := oracle.New(opts)
	if err != nil {
		return nil, err
	}
	if s.recorder != nil {
		o = s.recorder.InstrumentOracle(o)
	}
	return o, nil
}

// finish closes the oracle and writes metrics. runErr is the outcome of the
// run and is returned together with any cleanup failure.
func (s *session) finish(kind string, runErr error) error {
	errs := []error{runErr}
	if err := oracle.Close(s.oracle); err != nil {
		errs = append(errs, fmt.Errorf("closing oracle: %w", err))
	}
	if s.recorder != nil {
		s.recorder.ObserveRun(kind, time.Since(s.start), runErr)
		if err := s.recorder.WriteToTextfile(s.cfg.Metrics.File); err != nil {
			errs = append(errs, err)
		} else {
			s.logger.Info("metrics written", "file", s.cfg.Metrics.File)
		}
	}
	return errors.Join(errs...)
}

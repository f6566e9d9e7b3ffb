package pipeline

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/scanprep/internal/diag"
	"github.com/MeKo-Tech/scanprep/internal/format"
	"github.com/MeKo-Tech/scanprep/internal/oracle"
	"github.com/MeKo-Tech/scanprep/internal/orientation"
	"github.com/MeKo-Tech/scanprep/internal/transform"
)

// Config holds the parameters of every step and the exit width.
type Config struct {
	TargetWidth int
	Contrast    transform.ContrastParams
	Denoise     transform.DenoiseParams
	Sharpen     transform.SharpenParams
	Edge        transform.EdgeParams
	Threshold   transform.ThresholdParams
	Deskew      transform.DeskewParams
	Crop        transform.CropParams
	Orientation orientation.Config

	// Accelerate routes denoise and deskew through OpenCV when the binary
	// was built with it.
	Accelerate bool
}

// DefaultConfig returns a config with every step at its defaults.
func DefaultConfig() Config {
	return Config{
		TargetWidth: format.DefaultTargetWidth,
		Contrast:    transform.DefaultContrastParams(),
		Denoise:     transform.DefaultDenoiseParams(),
		Sharpen:     transform.DefaultSharpenParams(),
		Edge:        transform.DefaultEdgeParams(),
		Threshold:   transform.DefaultThresholdParams(),
		Deskew:      transform.DefaultDeskewParams(),
		Crop:        transform.DefaultCropParams(),
		Orientation: orientation.DefaultConfig(),
	}
}

// Validate checks values no step can work with.
func (c Config) Validate() error {
	var errs []error
	if c.TargetWidth <= 0 {
		errs = append(errs, fmt.Errorf("target width must be positive, got %d", c.TargetWidth))
	}
	if c.Contrast.UseGamma && c.Contrast.Gamma <= 0 {
		errs = append(errs, fmt.Errorf("gamma must be positive, got %g", c.Contrast.Gamma))
	}
	if c.Contrast.UseCLAHE && (c.Contrast.TilesX <= 0 || c.Contrast.TilesY <= 0) {
		errs = append(errs, fmt.Errorf("CLAHE tile grid must be positive, got %dx%d", c.Contrast.TilesX, c.Contrast.TilesY))
	}
	if c.Edge.KernelSize <= 0 {
		errs = append(errs, fmt.Errorf("edge kernel size must be positive, got %d", c.Edge.KernelSize))
	}
	if c.Crop.Margin < 0 {
		errs = append(errs, fmt.Errorf("crop margin must not be negative, got %d", c.Crop.Margin))
	}
	if c.Orientation.PenaltyWeight < 0 {
		errs = append(errs, fmt.Errorf("penalty weight must not be negative, got %g", c.Orientation.PenaltyWeight))
	}
	return errors.Join(errs...)
}

// Builder constructs an Executor with fluent configuration.
type Builder struct {
	cfg    Config
	oracle oracle.Oracle
	sink   diag.Sink
}

// NewBuilder creates a new builder with defaults.
func NewBuilder() *Builder { return &Builder{cfg: DefaultConfig()} }

// WithConfig replaces the whole step configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cfg
	return b
}

// WithTargetWidth sets the exit width.
func (b *Builder) WithTargetWidth(w int) *Builder {
	b.cfg.TargetWidth = w
	return b
}

// WithOracle sets the oracle consulted by orientation and crop.
func (b *Builder) WithOracle(o oracle.Oracle) *Builder {
	b.oracle = o
	return b
}

// WithSink sets the diagnostics sink.
func (b *Builder) WithSink(s diag.Sink) *Builder {
	b.sink = s
	return b
}

// WithPenaltyWeight sets the orientation residual penalty.
func (b *Builder) WithPenaltyWeight(w float64) *Builder {
	b.cfg.Orientation.PenaltyWeight = w
	return b
}

// WithCrop sets the crop confidence cutoff and margin.
func (b *Builder) WithCrop(minConfidence float64, margin int) *Builder {
	b.cfg.Crop = transform.CropParams{MinConfidence: minConfidence, Margin: margin}
	return b
}

// WithThreshold sets the binarisation cutoff and inversion.
func (b *Builder) WithThreshold(cutoff uint8, invert bool) *Builder {
	b.cfg.Threshold.Cutoff = cutoff
	b.cfg.Threshold.Invert = invert
	return b
}

// WithAcceleration toggles the OpenCV paths.
func (b *Builder) WithAcceleration(on bool) *Builder {
	b.cfg.Accelerate = on
	return b
}

// Config returns the current builder configuration.
func (b *Builder) Config() Config { return b.cfg }

// Build validates the configuration and returns an Executor.
func (b *Builder) Build() (*Executor, error) {
	if err := b.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}
	return newExecutor(b.cfg, b.oracle, b.sink), nil
}

// Executor runs step lists. It keeps no per-run state and is safe for
// concurrent use when its oracle and sink are.
type Executor struct {
	cfg       Config
	oracle    oracle.Oracle
	sink      diag.Sink
	corrector *orientation.Corrector
}

func newExecutor(cfg Config, o oracle.Oracle, sink diag.Sink) *Executor {
	sink = diag.OrNop(sink)
	cfg.Denoise.Accelerate = cfg.Accelerate
	cfg.Deskew.Accelerate = cfg.Accelerate
	return &Executor{
		cfg:       cfg,
		oracle:    o,
		sink:      sink,
		corrector: orientation.NewCorrector(o, orientation.WithConfig(cfg.Orientation), orientation.WithSink(sink)),
	}
}

// Config returns the executor configuration.
func (e *Executor) Config() Config { return e.cfg }

// Oracle returns the configured oracle, which may be nil.
func (e *Executor) Oracle() oracle.Oracle { return e.oracle }

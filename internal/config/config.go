package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/MeKo-Tech/scanprep/internal/oracle"
	"github.com/MeKo-Tech/scanprep/internal/pipeline"
	"github.com/MeKo-Tech/scanprep/internal/transform"
)

var (
	validLogLevels = []string{"debug", "info", "warn", "error"}
	validFormats   = []string{"text", "json", "csv"}
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	pc := pipeline.DefaultConfig()
	oc := oracle.DefaultOptions()
	return Config{
		LogLevel: "info",
		Verbose:  false,
		Pipeline: PipelineConfig{
			Steps:       pipeline.DefaultSteps(),
			TargetWidth: pc.TargetWidth,
			Accelerate:  pc.Accelerate,
			Contrast: ContrastConfig{
				UseGamma:  pc.Contrast.UseGamma,
				Gamma:     pc.Contrast.Gamma,
				UseCLAHE:  pc.Contrast.UseCLAHE,
				ClipLimit: pc.Contrast.ClipLimit,
				TilesX:    pc.Contrast.TilesX,
				TilesY:    pc.Contrast.TilesY,
			},
			Denoise: DenoiseConfig{
				Strength:   pc.Denoise.Strength,
				PatchSize:  pc.Denoise.PatchSize,
				SearchSize: pc.Denoise.SearchSize,
			},
			Sharpen: SharpenConfig{
				CenterWeight:   pc.Sharpen.CenterWeight,
				NeighborWeight: pc.Sharpen.NeighborWeight,
			},
			Edge: EdgeConfig{Alpha: pc.Edge.Alpha, KernelSize: pc.Edge.KernelSize},
			Threshold: ThresholdConfig{
				Cutoff: int(pc.Threshold.Cutoff),
				Max:    int(pc.Threshold.Max),
				Invert: pc.Threshold.Invert,
			},
			Deskew: DeskewConfig{
				BlurSize:      pc.Deskew.BlurSize,
				CannyLow:      pc.Deskew.CannyLow,
				CannyHigh:     pc.Deskew.CannyHigh,
				HoughVotes:    pc.Deskew.HoughVotes,
				MinLineLength: pc.Deskew.MinLineLength,
				MaxLineGap:    pc.Deskew.MaxLineGap,
			},
			Crop:        CropConfig{MinConfidence: pc.Crop.MinConfidence, Margin: pc.Crop.Margin},
			Orientation: OrientationConfig{PenaltyWeight: pc.Orientation.PenaltyWeight},
		},
		Oracle: OracleConfig{
			Backend:      oc.Backend,
			Binary:       oc.Binary,
			Language:     oc.Language,
			PSM:          oc.PSM,
			RecognizePSM: oracle.DefaultRecognizePSM,
			TimeoutSec:   0,
		},
		Output: OutputConfig{
			Dir:    ".",
			Suffix: "_processed",
			Format: "text",
		},
		Batch: BatchConfig{
			Workers:         4,
			ContinueOnError: false,
			Recursive:       false,
		},
		PDF: PDFConfig{},
		Metrics: MetricsConfig{
			Enabled: false,
			File:    "scanprep.prom",
		},
	}
}

// Validate validates the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	if c.Output.Format != "" && !slices.Contains(validFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join(validFormats, ", "))
	}

	backend := strings.ToLower(strings.TrimSpace(c.Oracle.Backend))
	if backend != "" && !slices.Contains(oracle.Backends(), backend) {
		return fmt.Errorf("invalid oracle backend: %s (must be one of: %s)", c.Oracle.Backend, strings.Join(oracle.Backends(), ", "))
	}
	if err := validatePSM(c.Oracle.PSM, "oracle.psm"); err != nil {
		return err
	}
	if err := validatePSM(c.Oracle.RecognizePSM, "oracle.recognize_psm"); err != nil {
		return err
	}
	if c.Oracle.TimeoutSec < 0 {
		return fmt.Errorf("invalid oracle timeout: %d (must not be negative)", c.Oracle.TimeoutSec)
	}

	if err := validateByte(c.Pipeline.Threshold.Cutoff, "pipeline.threshold.cutoff"); err != nil {
		return err
	}
	if err := validateByte(c.Pipeline.Threshold.Max, "pipeline.threshold.max"); err != nil {
		return err
	}
	if c.Pipeline.Crop.MinConfidence < 0 || c.Pipeline.Crop.MinConfidence > 100 {
		return fmt.Errorf("invalid pipeline.crop.min_confidence: %.2f (must be between 0 and 100)", c.Pipeline.Crop.MinConfidence)
	}

	if c.Batch.Workers <= 0 {
		return fmt.Errorf("invalid batch workers: %d (must be positive)", c.Batch.Workers)
	}

	if c.Metrics.Enabled && c.Metrics.File == "" {
		return fmt.Errorf("metrics.file must be set when metrics are enabled")
	}

	// Remaining step parameters are checked by the pipeline itself.
	if err := c.ToPipelineConfig().Validate(); err != nil {
		return fmt.Errorf("invalid pipeline settings: %w", err)
	}
	return nil
}

// ToPipelineConfig converts the config to the executor's step configuration.
func (c *Config) ToPipelineConfig() pipeline.Config {
	p := c.Pipeline
	deskew := transform.DefaultDeskewParams()
	deskew.BlurSize = p.Deskew.BlurSize
	deskew.CannyLow = p.Deskew.CannyLow
	deskew.CannyHigh = p.Deskew.CannyHigh
	deskew.HoughVotes = p.Deskew.HoughVotes
	deskew.MinLineLength = p.Deskew.MinLineLength
	deskew.MaxLineGap = p.Deskew.MaxLineGap

	cfg := pipeline.DefaultConfig()
	cfg.TargetWidth = p.TargetWidth
	cfg.Accelerate = p.Accelerate
	cfg.Contrast = transform.ContrastParams{
		UseGamma:  p.Contrast.UseGamma,
		Gamma:     p.Contrast.Gamma,
		UseCLAHE:  p.Contrast.UseCLAHE,
		ClipLimit: p.Contrast.ClipLimit,
		TilesX:    p.Contrast.TilesX,
		TilesY:    p.Contrast.TilesY,
	}
	cfg.Denoise = transform.DenoiseParams{
		Strength:   p.Denoise.Strength,
		PatchSize:  p.Denoise.PatchSize,
		SearchSize: p.Denoise.SearchSize,
	}
	cfg.Sharpen = transform.SharpenParams{CenterWeight: p.Sharpen.CenterWeight, NeighborWeight: p.Sharpen.NeighborWeight}
	cfg.Edge = transform.EdgeParams{Alpha: p.Edge.Alpha, KernelSize: p.Edge.KernelSize}
	cfg.Threshold = transform.ThresholdParams{
		Cutoff: clampByte(p.Threshold.Cutoff),
		Max:    clampByte(p.Threshold.Max),
		Invert: p.Threshold.Invert,
	}
	cfg.Deskew = deskew
	cfg.Crop = transform.CropParams{MinConfidence: p.Crop.MinConfidence, Margin: p.Crop.Margin}
	cfg.Orientation.PenaltyWeight = p.Orientation.PenaltyWeight
	return cfg
}

// ToOracleOptions converts the oracle section for the page-layout passes.
func (c *Config) ToOracleOptions() oracle.Options {
	return oracle.Options{
		Backend:  c.Oracle.Backend,
		Binary:   c.Oracle.Binary,
		Language: c.Oracle.Language,
		PSM:      c.Oracle.PSM,
		Timeout:  time.Duration(c.Oracle.TimeoutSec) * time.Second,
	}
}

// ToRecognizeOptions is ToOracleOptions with the text-extraction segmentation mode.
func (c *Config) ToRecognizeOptions() oracle.Options {
	opts := c.ToOracleOptions()
	opts.PSM = c.Oracle.RecognizePSM
	return opts
}

// Steps returns the configured step list, falling back to the default.
func (c *Config) Steps() []string {
	if len(c.Pipeline.Steps) == 0 {
		return pipeline.DefaultSteps()
	}
	return slices.Clone(c.Pipeline.Steps)
}

// validatePSM accepts the tesseract page segmentation modes 1..13. Mode 0 is
// orientation detection only and yields no layout or text.
func validatePSM(psm int, name string) error {
	if psm < 1 || psm > 13 {
		return fmt.Errorf("invalid %s: %d (must be between 1 and 13)", name, psm)
	}
	return nil
}

func validateByte(v int, name string) error {
	if v < 0 || v > 255 {
		return fmt.Errorf("invalid %s: %d (must be between 0 and 255)", name, v)
	}
	return nil
}

func clampByte(v int) uint8 {
	return uint8(min(max(v, 0), 255)) //nolint:gosec // clamped above
}

// Package cmd implements the scanprep command line.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/scanprep/internal/config"
	"github.com/MeKo-Tech/scanprep/internal/version"
)

// app is the state shared by the commands of one root command.
type app struct {
	v       *viper.Viper
	loader  *config.Loader
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
}

// NewRootCommand builds the scanprep command tree on a fresh viper instance.
func NewRootCommand() *cobra.Command {
	v := viper.New()
	a := &app{v: v, loader: config.NewLoaderWith(v), logger: slog.Default()}
	d := config.DefaultConfig()

	root := &cobra.Command{
		Use:   "scanprep",
		Short: "Preprocess scanned document images for text recognition",
		Long: `scanprep cleans up scanned pages before they are handed to a text
recognition engine. It applies an ordered list of steps to every page:

  contrast, denoise, edge_enhancement, sharpen, threshold,
  deskew, orientation, crop

and writes one grayscale PNG per page at a fixed output width. The
orientation and crop steps consult tesseract for page layout.

Examples:
  scanprep image scan.jpg
  scanprep image scan.jpg --steps contrast,threshold --width 1200
  scanprep batch scans/ --recursive --workers 8 --format json
  scanprep pdf contract.pdf --pages 1-3 --output-pdf clean.pdf`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.prepare(cmd, true)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.SetVersionTemplate(version.Get(false).String() + "\n")

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "",
		"config file (default is search in ., $HOME, $XDG_CONFIG_HOME/scanprep, /etc/scanprep)")
	pf.BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	pf.String("log-level", d.LogLevel, "log level (debug, info, warn, error)")

	pf.StringSlice("steps", d.Pipeline.Steps, "ordered preprocessing steps (see 'scanprep steps')")
	pf.Int("width", d.Pipeline.TargetWidth, "output width in pixels")
	pf.Bool("accelerate", d.Pipeline.Accelerate, "use OpenCV for denoise and deskew when built with -tags gocv")
	pf.Float64("penalty-weight", d.Pipeline.Orientation.PenaltyWeight, "orientation residual penalty weight")
	pf.Int("threshold-cutoff", d.Pipeline.Threshold.Cutoff, "binarisation cutoff (0-255)")
	pf.Bool("invert", d.Pipeline.Threshold.Invert, "invert the binarised output")
	pf.Float64("min-confidence", d.Pipeline.Crop.MinConfidence, "minimum word confidence for crop (0-100)")
	pf.Int("crop-margin", d.Pipeline.Crop.Margin, "margin kept around the text when cropping")

	pf.String("backend", d.Oracle.Backend, "recognition backend (tesseract, gosseract, heuristic)")
	pf.String("tesseract", d.Oracle.Binary, "tesseract executable")
	pf.StringP("language", "l", d.Oracle.Language, "recognition language (name such as 'german' or tesseract code)")
	pf.Int("psm", d.Oracle.PSM, "tesseract page segmentation mode for layout passes")
	pf.Int("oracle-timeout", d.Oracle.TimeoutSec, "per-call oracle timeout in seconds (0 = none)")

	pf.Bool("metrics", d.Metrics.Enabled, "write Prometheus metrics after the run")
	pf.String("metrics-file", d.Metrics.File, "Prometheus textfile path")

	root.AddCommand(
		newImageCommand(a),
		newBatchCommand(a),
		newPDFCommand(a),
		newStepsCommand(),
		newCheckCommand(a),
		newConfigCommand(a),
		newVersionCommand(),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure. It is called
// by main.main.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
		stop()
		os.Exit(1) //nolint:gocritic // stop already called
	}
}

// flagBindings maps flag names to configuration keys. A flag is bound only
// when the running command defines it.
var flagBindings = []struct {
	key  string
	flag string
}{
	{"log_level", "log-level"},
	{"verbose", "verbose"},
	{"pipeline.steps", "steps"},
	{"pipeline.target_width", "width"},
	{"pipeline.accelerate", "accelerate"},
	{"pipeline.orientation.penalty_weight", "penalty-weight"},
	{"pipeline.threshold.cutoff", "threshold-cutoff"},
	{"pipeline.threshold.invert", "invert"},
	{"pipeline.crop.min_confidence", "min-confidence"},
	{"pipeline.crop.margin", "crop-margin"},
	{"oracle.backend", "backend"},
	{"oracle.binary", "tesseract"},
	{"oracle.language", "language"},
	{"oracle.psm", "psm"},
	{"oracle.recognize_psm", "recognize-psm"},
	{"oracle.timeout_sec", "oracle-timeout"},
	{"output.dir", "output-dir"},
	{"output.suffix", "suffix"},
	{"output.format", "format"},
	{"output.file", "output"},
	{"batch.workers", "workers"},
	{"batch.continue_on_error", "continue-on-error"},
	{"batch.recursive", "recursive"},
	{"batch.include", "include"},
	{"batch.exclude", "exclude"},
	{"pdf.pages", "pages"},
	{"metrics.enabled", "metrics"},
	{"metrics.file", "metrics-file"},
}

func (a *app) bindFlags(cmd *cobra.Command) error {
	for _, b := range flagBindings {
		f := cmd.Flags().Lookup(b.flag)
		if f == nil {
			continue
		}
		if err := a.v.BindPFlag(b.key, f); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", b.flag, err)
		}
	}
	return nil
}

// prepare binds the running command's flags, loads the configuration and
// installs the logger.
func (a *app) prepare(cmd *cobra.Command, validate bool) error {
	if err := a.bindFlags(cmd); err != nil {
		return err
	}

	var (
		cfg *config.Config
		err error
	)
	if validate {
		cfg, err = a.loader.LoadWithFile(a.cfgFile)
	} else {
		cfg, err = a.loader.LoadWithFileWithoutValidation(a.cfgFile)
	}
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	a.cfg = cfg
	a.logger = newLogger(cmd.ErrOrStderr(), cfg)
	slog.SetDefault(a.logger)
	a.logger.Debug("configuration loaded", "file", a.loader.GetConfigFileUsed(), "steps", cfg.Steps())
	return nil
}

// newLogger returns a JSON logger at the configured level. Verbose forces debug.
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	} else {
		switch cfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

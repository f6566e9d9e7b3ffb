package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/scanprep/internal/batch"
	"github.com/MeKo-Tech/scanprep/internal/config"
)

func newBatchCommand(a *app) *cobra.Command {
	d := config.DefaultConfig()
	cmd := &cobra.Command{
		Use:   "batch [paths...]",
		Short: "Process many images and PDFs in parallel",
		Long: `Process image files, PDF files and directories in parallel. Every page is
written as <name>[_p<page>]<suffix>.png in the output directory and a
summary is printed at the end.

Supported formats: JPEG, PNG, BMP, TIFF, PDF

Examples:
  scanprep batch scans/ --recursive --workers 8
  scanprep batch a.jpg b.png report.pdf --format json --output summary.json
  scanprep batch scans/ --include '*.tif' --exclude 'draft_*' --progress`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBatch(cmd, args)
		},
	}
	addOutputFlags(cmd)
	f := cmd.Flags()
	f.IntP("workers", "w", d.Batch.Workers, "number of parallel workers")
	f.Bool("continue-on-error", d.Batch.ContinueOnError, "keep going when a file fails")
	f.BoolP("recursive", "r", d.Batch.Recursive, "recursively scan directories")
	f.StringSlice("include", nil, "file name patterns to include")
	f.StringSlice("exclude", nil, "file name patterns to exclude")
	f.String("pages", "", "page selection for PDF inputs, e.g. 1-3,7")
	f.String("password", "", "password for encrypted PDF inputs")
	f.Bool("progress", false, "show progress bar")
	f.Bool("quiet", false, "suppress progress and statistics")
	f.Duration("progress-interval", 100*time.Millisecond, "progress update interval")
	return cmd
}

// configToBatchConfig maps the resolved configuration and the batch-only
// flags to batch.Config.
func configToBatchConfig(cfg *config.Config, cmd *cobra.Command) *batch.Config {
	bc := &batch.Config{
		Steps:           cfg.Steps(),
		Workers:         cfg.Batch.Workers,
		ContinueOnError: cfg.Batch.ContinueOnError,
		Recursive:       cfg.Batch.Recursive,
		IncludePatterns: cfg.Batch.Include,
		ExcludePatterns: cfg.Batch.Exclude,
		OutputDir:       cfg.Output.Dir,
		Suffix:          cfg.Output.Suffix,
		Pages:           cfg.PDF.Pages,
		ProgressOutput:  cmd.ErrOrStderr(),
	}
	bc.Password, _ = cmd.Flags().GetString("password")
	bc.ShowProgress, _ = cmd.Flags().GetBool("progress")
	bc.Quiet, _ = cmd.Flags().GetBool("quiet")
	bc.ProgressInterval, _ = cmd.Flags().GetDuration("progress-interval")
	return bc
}

func (a *app) runBatch(cmd *cobra.Command, args []string) (err error) {
	s, err := a.newSession()
	if err != nil {
		return err
	}
	defer func() { err = s.finish("batch", err) }()

	bc := configToBatchConfig(a.cfg, cmd)
	bc.Logger = s.logger
	if !bc.Quiet {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Processing %d path(s)...\n", len(args))
	}

	result, err := batch.ProcessBatch(cmd.Context(), s.exec, args, bc)
	if err != nil {
		return err
	}
	for _, it := range result.Failed() {
		a.logger.Warn("page failed", "file", it.Source, "page", it.Page, "error", it.Error)
	}

	if err := result.SaveResults(cmd.OutOrStdout(), a.cfg.Output.Format, a.cfg.Output.File, bc.Quiet); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}
	result.PrintStats(cmd.ErrOrStderr(), bc.Quiet)
	return nil
}

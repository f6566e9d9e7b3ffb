package batch

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/MeKo-Tech/scanprep/internal/pipeline"
)

// Config holds all configuration for batch processing.
type Config struct {
	// Steps applied to every page
	Steps []string

	// Parallel processing settings
	Workers         int
	ContinueOnError bool

	// File discovery settings
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// Output images
	OutputDir string // empty writes next to each input
	Suffix    string

	// PDF inputs
	Pages    string
	Password string

	// Progress settings
	ShowProgress     bool
	Quiet            bool
	ProgressInterval time.Duration
	ProgressOutput   io.Writer

	// Logger receives debug progress; nil uses slog.Default.
	Logger *slog.Logger
}

// DefaultConfig returns the settings used when no flags are given.
func DefaultConfig() *Config {
	return &Config{
		Steps:            pipeline.DefaultSteps(),
		Workers:          4,
		Suffix:           "_processed",
		ProgressInterval: 100 * time.Millisecond,
	}
}

// Validate reports settings that cannot run.
func (c *Config) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("invalid batch workers: %d (must be positive)", c.Workers)
	}
	if len(c.Steps) == 0 {
		return errors.New("no steps configured")
	}
	return nil
}

// Item is the outcome for one output image: an image file or one PDF page.
type Item struct {
	Source string           `json:"source"`
	Page   int              `json:"page,omitempty"`
	Output string           `json:"output,omitempty"`
	Result *pipeline.Result `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// Failed reports whether the item produced no output.
func (it Item) Failed() bool { return it.Error != "" }

// Result holds the result of batch processing.
type Result struct {
	Items       []Item
	Files       []string
	Duration    time.Duration
	WorkerCount int
}

// Stats summarizes the run.
func (r *Result) Stats() pipeline.ParallelStats {
	results := make([]*pipeline.Result, len(r.Items))
	for i, it := range r.Items {
		results[i] = it.Result
	}
	return pipeline.CalculateParallelStats(results, r.Duration, r.WorkerCount)
}

// StepTimings returns the cumulative cost of each step kind over the run.
func (r *Result) StepTimings() map[string]pipeline.StepTiming {
	var prof pipeline.Profiler
	for _, it := range r.Items {
		prof.Record(it.Result)
	}
	return prof.Snapshot()
}

// Failed returns the items that produced no output.
func (r *Result) Failed() []Item {
	return slices.DeleteFunc(slices.Clone(r.Items), func(it Item) bool { return !it.Failed() })
}

// FormatResults formats the batch summary in the specified format.
func (r *Result) FormatResults(format string) (string, error) {
	return formatBatchResults(r, format)
}

// SaveResults writes the formatted summary to outputFile, or to w when
// outputFile is empty.
func (r *Result) SaveResults(w io.Writer, format, outputFile string, quiet bool) error {
	output, err := r.FormatResults(format)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(output), 0o600); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		if !quiet {
			_, _ = fmt.Fprintf(w, "Results written to %s\n", outputFile)
		}
		return nil
	}
	_, err = fmt.Fprint(w, output)
	return err
}

// PrintStats prints processing statistics.
func (r *Result) PrintStats(w io.Writer, quiet bool) {
	if quiet {
		return
	}
	stats := r.Stats()
	_, _ = fmt.Fprintf(w, "\nProcessing Statistics:\n")
	_, _ = fmt.Fprintf(w, "  Input files: %d\n", len(r.Files))
	_, _ = fmt.Fprintf(w, "  Pages: %d\n", stats.TotalImages)
	_, _ = fmt.Fprintf(w, "  Processed: %d\n", stats.ProcessedImages)
	_, _ = fmt.Fprintf(w, "  Failed: %d\n", stats.FailedImages)
	_, _ = fmt.Fprintf(w, "  Workers: %d\n", stats.WorkerCount)
	_, _ = fmt.Fprintf(w, "  Duration: %v\n", stats.TotalDuration.Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "  Avg per page: %v\n", stats.AveragePerImage.Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "  Throughput: %.1f pages/sec\n", stats.ThroughputPerSec)

	timings := r.StepTimings()
	if len(timings) == 0 {
		return
	}
	_, _ = fmt.Fprintf(w, "  Step timings:\n")
	for _, name := range pipeline.AvailableSteps() {
		if st, ok := timings[name]; ok {
			_, _ = fmt.Fprintf(w, "    %-16s %4d runs, %8.1f ms total, %6.1f ms mean\n", name, st.Count, st.TotalMs, st.MeanMs)
		}
	}
}

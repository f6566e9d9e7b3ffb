package batch

import (
	"log/slog"
	"os"

	"github.com/MeKo-Tech/scanprep/internal/pipeline"
)

// progressFor always logs progress at debug level and adds the console
// bar unless progress is off.
func progressFor(cfg *Config) pipeline.ProgressCallback {
	callbacks := pipeline.MultiProgressCallback{
		pipeline.NewLogProgressCallback(cfg.Logger, slog.LevelDebug).WithInterval(chunkSize(cfg)),
	}
	if !cfg.ShowProgress || cfg.Quiet {
		return callbacks
	}
	w := cfg.ProgressOutput
	if w == nil {
		w = os.Stderr
	}
	cb := pipeline.NewConsoleProgressCallback(w, "Processing: ")
	if cfg.ProgressInterval > 0 {
		cb = cb.WithUpdateInterval(cfg.ProgressInterval)
	}
	return append(callbacks, cb)
}

// chunkSize bounds how many input files are decoded at once.
func chunkSize(cfg *Config) int {
	return max(cfg.Workers*2, 1)
}

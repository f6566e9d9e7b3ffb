package pdf

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/MeKo-Tech/scanprep/internal/pipeline"
)

// Processor runs the preprocessing pipeline over the pages of PDF files.
type Processor struct {
	exec     *pipeline.Executor
	steps    []string
	parallel pipeline.ParallelConfig
}

// NewProcessor creates a processor that applies steps with exec.
func NewProcessor(exec *pipeline.Executor, steps []string) *Processor {
	return &Processor{exec: exec, steps: steps, parallel: pipeline.DefaultParallelConfig()}
}

// WithParallelConfig sets the worker pool used for the pages of one file.
func (p *Processor) WithParallelConfig(cfg pipeline.ParallelConfig) *Processor {
	p.parallel = cfg
	return p
}

// ProcessFile extracts the selected pages of filename and preprocesses them.
// A page whose run fails is reported in its PageResult; the error return is
// reserved for failures that affect the whole document.
func (p *Processor) ProcessFile(ctx context.Context, filename string, opts Options) (*DocumentResult, error) {
	if p.exec == nil {
		return nil, errors.New("pdf processor has no pipeline")
	}
	start := time.Now()

	doc, err := ExtractPages(ctx, filename, opts)
	if err != nil {
		return nil, err
	}
	extracted := time.Now()

	res := &DocumentResult{
		Filename:   filename,
		TotalPages: doc.TotalPages,
		Missing:    doc.Missing,
		Pages:      make([]PageResult, len(doc.Pages)),
	}
	for i, pg := range doc.Pages {
		b := pg.Image.Bounds()
		res.Pages[i] = PageResult{PageNumber: pg.Number, Width: b.Dx(), Height: b.Dy()}
	}

	if len(doc.Pages) > 0 {
		images := make([]image.Image, len(doc.Pages))
		for i, pg := range doc.Pages {
			images[i] = pg.Image
		}

		cfg := p.parallel
		callerHandler := cfg.ErrorHandler
		cfg.ErrorHandler = func(i int, img image.Image, err error) {
			res.Pages[i].Error = err.Error()
			if callerHandler != nil {
				callerHandler(i, img, err)
			}
		}

		// Per-page failures land in the handler above; only cancellation
		// aborts the document.
		results, _ := p.exec.ProcessImagesParallelContext(ctx, images, p.steps, cfg)
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("processing %s: %w", filename, err)
		}
		for i, r := range results {
			res.Pages[i].Result = r
		}
	}

	done := time.Now()
	res.Processing = ProcessingInfo{
		ExtractionTimeMs: extracted.Sub(start).Milliseconds(),
		PipelineTimeMs:   done.Sub(extracted).Milliseconds(),
		TotalTimeMs:      done.Sub(start).Milliseconds(),
	}
	return res, nil
}

// ProcessFiles processes several documents in turn and stops at the first
// document-level failure.
func (p *Processor) ProcessFiles(ctx context.Context, filenames []string, opts Options) ([]*DocumentResult, error) {
	out := make([]*DocumentResult, 0, len(filenames))
	for _, f := range filenames {
		r, err := p.ProcessFile(ctx, f, opts)
		if err != nil {
			return out, fmt.Errorf("%s: %w", f, err)
		}
		out = append(out, r)
	}
	return out, nil
}

package batch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/scanprep/internal/pdf"
	"github.com/MeKo-Tech/scanprep/internal/pipeline"
	"github.com/MeKo-Tech/scanprep/internal/utils"
)

// ErrOverwriteInput is returned when an output name resolves to its own input.
var ErrOverwriteInput = errors.New("output would overwrite input")

// unit is one page waiting for the pipeline.
type unit struct {
	source string
	page   int
	image  image.Image
}

// OutputName returns <dir>/<base>[_p<page>]<suffix>.png. An empty dir
// places the output next to source; page 0 means a single-image input.
func OutputName(dir, source string, page int, suffix string) string {
	base := filepath.Base(source)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if page > 0 {
		base = fmt.Sprintf("%s_p%d", base, page)
	}
	if dir == "" {
		dir = filepath.Dir(source)
	}
	return filepath.Join(dir, base+suffix+".png")
}

// loadFile turns one input file into units: a single unit for an image,
// one per extracted page for a PDF.
func loadFile(ctx context.Context, path string, cfg *Config) ([]unit, error) {
	if pdf.IsPDF(path) {
		doc, err := pdf.ExtractPages(ctx, path, pdf.Options{Pages: cfg.Pages, Password: cfg.Password})
		if err != nil {
			return nil, err
		}
		if len(doc.Pages) == 0 {
			return nil, fmt.Errorf("%w: no page images in %s", pdf.ErrNoPages, path)
		}
		out := make([]unit, len(doc.Pages))
		for i, pg := range doc.Pages {
			out[i] = unit{source: path, page: pg.Number, image: pg.Image}
		}
		return out, nil
	}

	if !utils.IsSupportedImage(path) {
		return nil, fmt.Errorf("unsupported input format: %s", path)
	}
	img, _, err := utils.LoadImage(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return []unit{{source: path, image: img}}, nil
}

// WriteOutput saves img as the PNG output of source, refusing to replace
// the source itself.
func WriteOutput(img image.Image, source string, page int, dir, suffix string) (string, error) {
	out := OutputName(dir, source, page, suffix)
	if sameFile(out, source) {
		return "", fmt.Errorf("%w: %s", ErrOverwriteInput, out)
	}
	if err := utils.SaveImage(img, out); err != nil {
		return "", err
	}
	return out, nil
}

// saveOutput writes the exit image and releases it from the result.
func saveOutput(res *pipeline.Result, u unit, cfg *Config) (string, error) {
	out, err := WriteOutput(res.Image, u.source, u.page, cfg.OutputDir, cfg.Suffix)
	if err != nil {
		return "", err
	}
	res.Image = nil
	return out, nil
}

func sameFile(a, b string) bool {
	aa, errA := filepath.Abs(a)
	bb, errB := filepath.Abs(b)
	return errA == nil && errB == nil && aa == bb
}

// processChunk loads files, runs their pages on the worker pool and saves
// the outputs. Failures are recorded per item.
func processChunk(ctx context.Context, exec *pipeline.Executor, files []string, cfg *Config) ([]Item, error) {
	var (
		items []Item
		units []unit
		slots []int // items index of each unit
	)
	for _, f := range files {
		loaded, err := loadFile(ctx, f, cfg)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			items = append(items, Item{Source: f, Error: err.Error()})
			continue
		}
		for _, u := range loaded {
			slots = append(slots, len(items))
			items = append(items, Item{Source: u.source, Page: u.page})
			units = append(units, u)
		}
	}
	if len(units) == 0 {
		return items, nil
	}

	images := make([]image.Image, len(units))
	for i, u := range units {
		images[i] = u.image
	}
	results, _ := exec.ProcessImagesParallelContext(ctx, images, cfg.Steps, pipeline.ParallelConfig{
		MaxWorkers: cfg.Workers,
		ErrorHandler: func(i int, _ image.Image, err error) {
			items[slots[i]].Error = err.Error()
		},
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i, res := range results {
		if res == nil {
			continue
		}
		it := &items[slots[i]]
		out, err := saveOutput(res, units[i], cfg)
		if err != nil {
			it.Error = err.Error()
			continue
		}
		it.Output = out
		it.Result = res
	}
	return items, nil
}

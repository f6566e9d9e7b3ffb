package pipeline

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/scanprep/internal/diag"
	"github.com/MeKo-Tech/scanprep/internal/format"
	"github.com/MeKo-Tech/scanprep/internal/oracle"
	"github.com/MeKo-Tech/scanprep/internal/orientation"
	"github.com/MeKo-Tech/scanprep/internal/transform"
)

// Box is an axis-aligned rectangle in pixels.
type Box struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

func boxFromRect(r image.Rectangle) Box {
	return Box{X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy()}
}

// StepRecord describes one applied step.
type StepRecord struct {
	Step     StepKind      `json:"step"`
	Index    int           `json:"index"`
	Duration time.Duration `json:"duration_ns"`
	Width    int           `json:"width"`
	Height   int           `json:"height"`
}

// Result is the outcome of one pipeline run.
type Result struct {
	Image *image.Gray `json:"-"`

	InputWidth  int `json:"input_width"`
	InputHeight int `json:"input_height"`
	Width       int `json:"width"`
	Height      int `json:"height"`

	Applied []StepRecord  `json:"applied"`
	Skipped []UnknownStep `json:"skipped,omitempty"`

	// DeskewAngle is the rotation of the last deskew step that found lines.
	DeskewAngle *float64 `json:"deskew_angle,omitempty"`
	// Orientation is the decision of the last orientation step.
	Orientation *orientation.Decision `json:"orientation,omitempty"`
	// Crop is the rectangle kept by the last crop step that trimmed the page.
	Crop *Box `json:"crop,omitempty"`

	Processing struct {
		EntryNs int64 `json:"entry_ns"`
		StepsNs int64 `json:"steps_ns"`
		ExitNs  int64 `json:"exit_ns"`
		TotalNs int64 `json:"total_ns"`
	} `json:"processing"`
}

// AppliedNames returns the applied step names in order.
func (r *Result) AppliedNames() []string {
	out := make([]string, len(r.Applied))
	for i, s := range r.Applied {
		out[i] = s.Step.String()
	}
	return out
}

// Run applies steps to img and returns the exit image.
func (e *Executor) Run(ctx context.Context, img image.Image, steps []string) (*image.Gray, error) {
	res, err := e.Process(ctx, img, steps)
	if err != nil {
		return nil, err
	}
	return res.Image, nil
}

// Process converts img to the working format, applies the known steps in
// the given order and converts the result to the exit format. Unknown step
// names are skipped with a warning event. Only malformed input, an invalid
// target width or cancellation fail the run.
func (e *Executor) Process(ctx context.Context, img image.Image, steps []string) (*Result, error) {
	start := time.Now()
	res := &Result{}

	work, err := format.ToWorking(img)
	if err != nil {
		return nil, err
	}
	res.InputWidth, res.InputHeight = work.Bounds().Dx(), work.Bounds().Dy()
	res.Processing.EntryNs = time.Since(start).Nanoseconds()

	plan := ParseSteps(steps)
	e.warnAcceleration(ctx, plan)

	stepsStart := time.Now()
	next := 0
	for i, name := range steps {
		if next < len(plan.Steps) && plan.Steps[next].Index == i {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("pipeline cancelled before step %d (%s): %w", i, name, err)
			}
			ps := plan.Steps[next]
			next++

			t0 := time.Now()
			work = e.apply(ctx, ps, work, res)
			rec := StepRecord{
				Step:     ps.Kind,
				Index:    ps.Index,
				Duration: time.Since(t0),
				Width:    work.Bounds().Dx(),
				Height:   work.Bounds().Dy(),
			}
			res.Applied = append(res.Applied, rec)
			e.sink.Emit(ctx, diag.Debug(diag.EventStepApplied, "step applied",
				slog.String("step", ps.Kind.String()),
				slog.Int("index", ps.Index),
				slog.Duration("duration", rec.Duration),
			))
			continue
		}
		res.Skipped = append(res.Skipped, UnknownStep{Name: name, Index: i})
		e.sink.Emit(ctx, diag.Warn(diag.EventStepUnknown, "unknown preprocessing step",
			slog.String("step", name),
			slog.Int("index", i),
		))
	}
	res.Processing.StepsNs = time.Since(stepsStart).Nanoseconds()

	exitStart := time.Now()
	out, err := format.ToOutput(work, e.cfg.TargetWidth)
	if err != nil {
		return nil, err
	}
	res.Processing.ExitNs = time.Since(exitStart).Nanoseconds()

	res.Image = out
	res.Width, res.Height = out.Bounds().Dx(), out.Bounds().Dy()
	res.Processing.TotalNs = time.Since(start).Nanoseconds()
	return res, nil
}

func (e *Executor) apply(ctx context.Context, ps PlannedStep, img *image.Gray, res *Result) *image.Gray {
	switch ps.Kind {
	case StepContrast:
		return transform.Contrast(img, e.cfg.Contrast)
	case StepDenoise:
		return transform.Denoise(img, e.cfg.Denoise)
	case StepEdgeEnhancement:
		return transform.EdgeEnhance(img, e.cfg.Edge)
	case StepSharpen:
		return transform.Sharpen(img, e.cfg.Sharpen)
	case StepThreshold:
		return transform.Threshold(img, e.cfg.Threshold)
	case StepDeskew:
		return e.deskew(ctx, img, res)
	case StepOrientation:
		out, dec := e.corrector.Correct(ctx, img)
		res.Orientation = &dec
		return out
	case StepCrop:
		return e.crop(ctx, img, res)
	}
	panic(fmt.Sprintf("pipeline: unhandled step kind %v", ps.Kind))
}

func (e *Executor) deskew(ctx context.Context, img *image.Gray, res *Result) *image.Gray {
	out, rep := transform.Deskew(img, e.cfg.Deskew)
	if !rep.Applied {
		e.sink.Emit(ctx, diag.Debug(diag.EventDeskewNoLines, "no lines found, page left as is",
			slog.Int("segments", rep.Segments),
		))
		return out
	}
	angle := rep.Angle
	res.DeskewAngle = &angle
	e.sink.Emit(ctx, diag.Debug(diag.EventDeskewApplied, "page deskewed",
		slog.Float64("angle", rep.Angle),
		slog.Int("segments", rep.Segments),
		slog.Bool("accelerated", rep.Accelerated),
	))
	return out
}

func (e *Executor) crop(ctx context.Context, img *image.Gray, res *Result) *image.Gray {
	out, rep := transform.Crop(ctx, img, e.oracle, e.cfg.Crop)
	if !rep.Applied {
		reason := "no confident text"
		switch {
		case e.oracle == nil:
			reason = "no oracle"
		case !rep.Available:
			reason = "oracle unavailable"
		case rep.Kept > 0:
			reason = "text fills the page"
		}
		attrs := []slog.Attr{
			slog.String("reason", reason),
			slog.Int("boxes", rep.Boxes),
			slog.Int("kept", rep.Kept),
		}
		if rep.Err != nil {
			attrs = append(attrs, slog.Any("error", rep.Err))
		}
		e.sink.Emit(ctx, diag.Debug(diag.EventCropSkipped, "crop skipped", attrs...))
		return out
	}
	box := boxFromRect(rep.Rect)
	res.Crop = &box
	e.sink.Emit(ctx, diag.Debug(diag.EventCropApplied, "page cropped to text",
		slog.Int("x", box.X), slog.Int("y", box.Y),
		slog.Int("w", box.W), slog.Int("h", box.H),
		slog.Int("kept", rep.Kept),
	))
	return out
}

func (e *Executor) warnAcceleration(ctx context.Context, plan Plan) {
	if !e.cfg.Accelerate || transform.AcceleratorAvailable() {
		return
	}
	if plan.Has(StepDenoise) || plan.Has(StepDeskew) {
		e.sink.Emit(ctx, diag.Warn(diag.EventAcceleratorMissing,
			"acceleration requested but OpenCV is not linked, using the pure Go path"))
	}
}

// RunPipeline runs steps over img with default step parameters.
func RunPipeline(ctx context.Context, img image.Image, steps []string, targetWidth int, o oracle.Oracle) (*image.Gray, error) {
	cfg := DefaultConfig()
	cfg.TargetWidth = targetWidth
	return newExecutor(cfg, o, nil).Run(ctx, img, steps)
}

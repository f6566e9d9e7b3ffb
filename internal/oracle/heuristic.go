package oracle

import (
	"context"
	"errors"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

var errTooSmall = errors.New("image too small for orientation analysis")

const (
	heuristicThumb         = 128
	heuristicMinConfidence = 0.1
)

// Heuristic estimates page orientation from ink-transition statistics and
// needs no external engine. Horizontal text produces more light/dark
// transitions along rows than along columns, so a page whose columns carry
// more transitions is reported as needing a quarter turn. It cannot tell 0
// from 180 or 90 from 270 and has no text capability.
type Heuristic struct {
	// MinConfidence is the margin below which the page is reported upright.
	MinConfidence float64
}

// NewHeuristic returns a heuristic backend with the default margin.
func NewHeuristic() *Heuristic {
	return &Heuristic{MinConfidence: heuristicMinConfidence}
}

// DetectOrientation reports 0 or 90 degrees of residual rotation.
func (h *Heuristic) DetectOrientation(ctx context.Context, img *image.Gray) OrientationResult {
	if err := ctx.Err(); err != nil {
		return OrientationUnavailable(err)
	}
	if img == nil || img.Bounds().Dx() < 2 || img.Bounds().Dy() < 2 {
		return OrientationUnavailable(errTooSmall)
	}
	rotate, conf := transitionOrientation(img)
	if conf < h.MinConfidence {
		rotate = 0
	}
	return Estimated(rotate, conf)
}

// RecognizeText is not supported.
func (h *Heuristic) RecognizeText(context.Context, *image.Gray) (string, error) {
	return "", ErrNoTextCapability
}

// DetectWordBoxes is not supported.
func (h *Heuristic) DetectWordBoxes(context.Context, *image.Gray, float64) BoxQueryResult {
	return BoxesUnavailable(ErrNoTextCapability)
}

func transitionOrientation(img *image.Gray) (int, float64) {
	thumb := imaging.Resize(img, heuristicThumb, heuristicThumb, imaging.Lanczos)
	w, hgt := thumb.Bounds().Dx(), thumb.Bounds().Dy()

	var sum float64
	for i := 0; i < len(thumb.Pix); i += 4 {
		sum += float64(thumb.Pix[i])
	}
	mean := sum / float64(w*hgt)

	ink := func(x, y int) bool { return float64(thumb.Pix[y*thumb.Stride+x*4]) < mean }

	var rows, cols float64
	for y := range hgt {
		prev := ink(0, y)
		for x := 1; x < w; x++ {
			cur := ink(x, y)
			if cur != prev {
				rows++
			}
			prev = cur
		}
	}
	for x := range w {
		prev := ink(x, 0)
		for y := 1; y < hgt; y++ {
			cur := ink(x, y)
			if cur != prev {
				cols++
			}
			prev = cur
		}
	}

	total := rows + cols
	if total == 0 {
		return 0, 0
	}
	b := img.Bounds()
	ar := float64(b.Dy()) / float64(b.Dx())
	if cols > rows {
		conf := (cols - rows) / total
		if ar < 0.8 {
			conf = math.Min(1, conf+0.1)
		}
		return 90, conf
	}
	conf := (rows - cols) / total
	if ar > 1.2 {
		conf = math.Min(1, conf+0.1)
	}
	return 0, conf
}

// Package format converts images between the representations used at the
// pipeline boundaries: arbitrary decoded images on entry, the 8-bit
// single-channel working raster between steps, and the fixed-width output
// raster handed to the recognition engine.
package format

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/MeKo-Tech/scanprep/internal/utils"
	"github.com/disintegration/imaging"
	xdraw "golang.org/x/image/draw"
)

// DefaultTargetWidth is the output width used when callers do not choose one.
const DefaultTargetWidth = 800

var (
	// ErrNilImage is reported for a missing input buffer.
	ErrNilImage = errors.New("image is nil")
	// ErrEmptyImage is reported for a zero-width or zero-height input.
	ErrEmptyImage = errors.New("image has zero width or height")
	// ErrInvalidTargetWidth is reported for a non-positive output width.
	ErrInvalidTargetWidth = errors.New("target width must be positive")
)

// FormatError reports an input that cannot be interpreted as an image at a
// format boundary.
type FormatError struct {
	Stage string // "entry" or "exit"
	Err   error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("format error at %s: %v", e.Stage, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// ToWorking converts img to the 8-bit single-channel working format using
// ITU-R 601 luma weights. The result always starts at (0,0).
func ToWorking(img image.Image) (*image.Gray, error) {
	if img == nil {
		return nil, &FormatError{Stage: "entry", Err: ErrNilImage}
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, &FormatError{Stage: "entry", Err: ErrEmptyImage}
	}
	if g, ok := img.(*image.Gray); ok {
		return utils.CloneGray(g), nil
	}
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(dst, dst.Bounds(), img, b.Min, xdraw.Src)
	return dst, nil
}

// ToOutput resizes img to targetWidth, preserving the aspect ratio with the
// height rounded to the nearest integer (at least 1), normalizes the samples
// to [0,1] and rescales them back to 8-bit.
func ToOutput(img *image.Gray, targetWidth int) (*image.Gray, error) {
	if img == nil {
		return nil, &FormatError{Stage: "exit", Err: ErrNilImage}
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, &FormatError{Stage: "exit", Err: ErrEmptyImage}
	}
	if targetWidth <= 0 {
		return nil, &FormatError{Stage: "exit", Err: fmt.Errorf("%w: %d", ErrInvalidTargetWidth, targetWidth)}
	}

	w, h := OutputSize(b.Dx(), b.Dy(), targetWidth)
	resized := resize(img, w, h)

	f := Normalize(resized)
	defer f.Release()
	return f.ToGray(), nil
}

// OutputSize returns the exit dimensions for a w×h image.
func OutputSize(w, h, targetWidth int) (int, int) {
	nh := int(math.Round(float64(h) * float64(targetWidth) / float64(w)))
	if nh < 1 {
		nh = 1
	}
	return targetWidth, nh
}

// resize scales with area averaging when shrinking and linear interpolation
// when enlarging.
func resize(img *image.Gray, w, h int) *image.Gray {
	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return utils.CloneGray(img)
	}
	filter := imaging.Box
	if w > b.Dx() || h > b.Dy() {
		filter = imaging.Linear
	}
	return utils.GrayFromNRGBA(imaging.Resize(img, w, h, filter))
}

// Package oracle defines the recognition engine the preprocessing steps query
// for layout hints, plus the backends that implement it.
//
// Every operation blocks. Failures of page-layout analysis and word-box
// detection are values (OrientationResult, BoxQueryResult) rather than
// errors, so callers branch on availability explicitly.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"strings"
	"time"
)

var (
	// ErrBackendNotLinked is returned when a backend needs a build tag that
	// was not set.
	ErrBackendNotLinked = errors.New("oracle backend not linked into this binary")
	// ErrBinaryNotFound is returned when the tesseract executable is missing.
	ErrBinaryNotFound = errors.New("tesseract binary not found")
	// ErrNoTextCapability is returned by backends that cannot read text.
	ErrNoTextCapability = errors.New("oracle backend cannot recognize text")
	// ErrUnknownBackend is returned by New for unrecognised backend names.
	ErrUnknownBackend = errors.New("unknown oracle backend")
	// ErrNoOracle marks answers that were never asked because no oracle was
	// configured.
	ErrNoOracle = errors.New("no oracle configured")
)

// Oracle is the recognition engine consulted by the orientation and crop steps.
type Oracle interface {
	// DetectOrientation estimates the rotation still needed to make img upright.
	DetectOrientation(ctx context.Context, img *image.Gray) OrientationResult
	// RecognizeText runs a full-text pass over img.
	RecognizeText(ctx context.Context, img *image.Gray) (string, error)
	// DetectWordBoxes returns word boxes whose confidence is at least minConfidence.
	// Backends may return boxes below the cutoff; callers filter again.
	DetectWordBoxes(ctx context.Context, img *image.Gray, minConfidence float64) BoxQueryResult
}

// Estimate is a residual-rotation estimate in degrees with its confidence.
type Estimate struct {
	Rotate     int
	Confidence float64
}

// OrientationResult is either an Estimate or Unavailable.
type OrientationResult struct {
	estimate  Estimate
	available bool
	err       error
}

// Estimated wraps a successful orientation estimate.
func Estimated(rotate int, confidence float64) OrientationResult {
	return OrientationResult{estimate: Estimate{Rotate: rotate, Confidence: confidence}, available: true}
}

// OrientationUnavailable records that no estimate could be produced.
func OrientationUnavailable(err error) OrientationResult {
	return OrientationResult{err: err}
}

// Available reports whether the oracle produced an estimate.
func (r OrientationResult) Available() bool { return r.available }

// Estimate returns the estimate and whether it exists.
func (r OrientationResult) Estimate() (Estimate, bool) { return r.estimate, r.available }

// Err returns the failure behind an unavailable result.
func (r OrientationResult) Err() error { return r.err }

// UnavailableResidual is the rotation charged when no estimate exists.
const UnavailableResidual = 360

// Residual returns the rotation and confidence used for scoring. Unavailable
// results yield UnavailableResidual and NaN.
func (r OrientationResult) Residual() (int, float64) {
	if !r.available {
		return UnavailableResidual, math.NaN()
	}
	return r.estimate.Rotate, r.estimate.Confidence
}

// TextRegion is a word bounding box reported by the oracle.
type TextRegion struct {
	Left       int
	Top        int
	Right      int
	Bottom     int
	Confidence float64
	Text       string
}

// Rect returns the region as an image.Rectangle.
func (t TextRegion) Rect() image.Rectangle {
	return image.Rect(t.Left, t.Top, t.Right, t.Bottom)
}

// BoxQueryResult is either a list of boxes or Unavailable.
type BoxQueryResult struct {
	boxes     []TextRegion
	available bool
	err       error
}

// Boxes wraps a successful box query. An empty list is still available.
func Boxes(regions []TextRegion) BoxQueryResult {
	return BoxQueryResult{boxes: regions, available: true}
}

// BoxesUnavailable records that the box query failed.
func BoxesUnavailable(err error) BoxQueryResult {
	return BoxQueryResult{err: err}
}

// Available reports whether the query succeeded.
func (r BoxQueryResult) Available() bool { return r.available }

// Regions returns the boxes; nil when unavailable.
func (r BoxQueryResult) Regions() []TextRegion { return r.boxes }

// Err returns the failure behind an unavailable result.
func (r BoxQueryResult) Err() error { return r.err }

// Backend names accepted by New.
const (
	BackendTesseract = "tesseract"
	BackendGosseract = "gosseract"
	BackendHeuristic = "heuristic"
)

// Backends lists the backend names accepted by New.
func Backends() []string {
	return []string{BackendTesseract, BackendGosseract, BackendHeuristic}
}

// Options configures a backend built by New.
type Options struct {
	Backend  string
	Binary   string
	Language string
	PSM      int
	Timeout  time.Duration
}

// DefaultOptions returns the tesseract CLI backend with English text.
func DefaultOptions() Options {
	return Options{
		Backend:  BackendTesseract,
		Binary:   "tesseract",
		Language: "eng",
		PSM:      DefaultLayoutPSM,
	}
}

// New builds the backend named in opts.
func New(opts Options) (Oracle, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", BackendTesseract:
		t, err := NewTesseract(opts)
		if err != nil {
			return nil, err
		}
		return t, nil
	case BackendGosseract:
		g, err := NewGosseract(opts)
		if err != nil {
			return nil, err
		}
		return g, nil
	case BackendHeuristic:
		return NewHeuristic(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}

// Close releases backend resources when the oracle holds any.
func Close(o Oracle) error {
	if c, ok := o.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

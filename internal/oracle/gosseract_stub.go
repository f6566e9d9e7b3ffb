//go:build !gosseract

package oracle

import (
	"context"
	"image"
)

// Gosseract is unavailable in this build; rebuild with -tags gosseract.
type Gosseract struct{}

// NewGosseract always fails with ErrBackendNotLinked.
func NewGosseract(Options) (*Gosseract, error) {
	return nil, ErrBackendNotLinked
}

func (*Gosseract) DetectOrientation(context.Context, *image.Gray) OrientationResult {
	return OrientationUnavailable(ErrBackendNotLinked)
}

func (*Gosseract) RecognizeText(context.Context, *image.Gray) (string, error) {
	return "", ErrBackendNotLinked
}

func (*Gosseract) DetectWordBoxes(context.Context, *image.Gray, float64) BoxQueryResult {
	return BoxesUnavailable(ErrBackendNotLinked)
}

//go:build !gocv

package transform

import "image"

// AcceleratorAvailable reports whether OpenCV is linked into this build.
// Build with -tags gocv to enable it.
func AcceleratorAvailable() bool { return false }

func denoiseAccelerated(*image.Gray, DenoiseParams) (*image.Gray, bool) { return nil, false }

func detectSegmentsAccelerated(*image.Gray, DeskewParams) ([]Segment, bool) { return nil, false }

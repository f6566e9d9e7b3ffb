package utils

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// CloneGray returns a copy of img whose bounds start at (0,0).
func CloneGray(img *image.Gray) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := range b.Dy() {
		copy(out.Pix[y*out.Stride:y*out.Stride+b.Dx()], img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):])
	}
	return out
}

// GrayFromNRGBA collapses an NRGBA raster produced by imaging back into a
// single channel. Inputs are expected to carry equal R, G and B samples.
func GrayFromNRGBA(src *image.NRGBA) *image.Gray {
	b := src.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := range b.Dy() {
		row := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
		dst := out.Pix[y*out.Stride : y*out.Stride+b.Dx()]
		for x := range dst {
			dst[x] = row[x*4]
		}
	}
	return out
}

// CropGray copies rect out of img. The rectangle is intersected with the image
// bounds first; an empty intersection yields nil.
func CropGray(img *image.Gray, rect image.Rectangle) *image.Gray {
	rect = rect.Intersect(img.Bounds())
	if rect.Empty() {
		return nil
	}
	sub, ok := img.SubImage(rect).(*image.Gray)
	if !ok {
		return GrayFromNRGBA(imaging.Crop(img, rect))
	}
	return CloneGray(sub)
}

// RotateBound rotates img counter-clockwise by angle degrees about its center.
// The canvas grows to hold every rotated corner and the uncovered area is
// black. Quarter turns are lossless. Non-finite angles return a copy.
func RotateBound(img *image.Gray, angle float64) *image.Gray {
	if math.IsNaN(angle) || math.IsInf(angle, 0) {
		return CloneGray(img)
	}
	a := math.Mod(angle, 360)
	if a < 0 {
		a += 360
	}
	switch a {
	case 0:
		return CloneGray(img)
	case 90:
		return GrayFromNRGBA(imaging.Rotate90(img))
	case 180:
		return GrayFromNRGBA(imaging.Rotate180(img))
	case 270:
		return GrayFromNRGBA(imaging.Rotate270(img))
	}
	rotated := imaging.Rotate(img, a, color.Black)
	if rotated.Bounds().Empty() {
		return CloneGray(img)
	}
	return GrayFromNRGBA(rotated)
}

// RotatedSize reports the canvas RotateBound produces for a w×h image, using
// the absolute cosine and sine of the rotation on the corner extents.
func RotatedSize(w, h int, angle float64) (int, int) {
	rad := angle * math.Pi / 180
	c := math.Abs(math.Cos(rad))
	s := math.Abs(math.Sin(rad))
	nw := float64(h)*s + float64(w)*c
	nh := float64(h)*c + float64(w)*s
	return int(math.Ceil(nw - 1e-6)), int(math.Ceil(nh - 1e-6))
}

// ClampInt bounds v to [lo, hi].
func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampRect bounds r to [0,w)×[0,h) while keeping Min <= Max.
func ClampRect(r image.Rectangle, w, h int) image.Rectangle {
	x1 := ClampInt(r.Min.X, 0, w)
	y1 := ClampInt(r.Min.Y, 0, h)
	x2 := ClampInt(r.Max.X, 0, w)
	y2 := ClampInt(r.Max.Y, 0, h)
	if x2 < x1 {
		x2 = x1
	}
	if y2 < y1 {
		y2 = y1
	}
	return image.Rect(x1, y1, x2, y2)
}

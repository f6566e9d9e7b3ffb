package transform

import (
	"image"
	"math"

	"github.com/MeKo-Tech/scanprep/internal/utils"
	"github.com/disintegration/imaging"
)

// Sharpen convolves img with the 3×3 kernel from p. Results are rounded and
// saturated to [0,255]; borders are reflect-101 padded.
func Sharpen(img *image.Gray, p SharpenParams) *image.Gray {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	padded := padBorder101(img, 1)
	conv := imaging.Convolve3x3(padded, p.Kernel(), nil)
	return utils.GrayFromNRGBA(imaging.Crop(conv, image.Rect(1, 1, w+1, h+1)))
}

// padBorder101 surrounds src with b mirrored samples on every side.
func padBorder101(src *image.Gray, b int) *image.Gray {
	r := src.Bounds()
	w, h := r.Dx(), r.Dy()
	out := image.NewGray(image.Rect(0, 0, w+2*b, h+2*b))
	for y := range h + 2*b {
		sy := r.Min.Y + reflect101(y-b, h)
		for x := range w + 2*b {
			out.Pix[y*out.Stride+x] = src.Pix[src.PixOffset(r.Min.X+reflect101(x-b, w), sy)]
		}
	}
	return out
}

// EdgeEnhance adds alpha times the morphological gradient (dilation minus
// erosion over a k×k rectangle) back onto the image, so strokes gain a
// brighter rim.
func EdgeEnhance(img *image.Gray, p EdgeParams) *image.Gray {
	src := utils.CloneGray(img)
	if p.KernelSize <= 1 || p.Alpha == 0 {
		return src
	}
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	dil := morph(src, p.KernelSize, func(a, b uint8) bool { return a > b })
	ero := morph(src, p.KernelSize, func(a, b uint8) bool { return a < b })

	out := image.NewGray(image.Rect(0, 0, w, h))
	for i, v := range src.Pix {
		grad := float64(dil[i]) - float64(ero[i])
		out.Pix[i] = saturate(math.RoundToEven(float64(v) + p.Alpha*grad))
	}
	return out
}

// morph computes a rectangular min or max filter. better reports whether a
// replaces b as the running extreme; samples outside the image are ignored.
// The window is separable, so rows and columns are filtered in turn.
func morph(src *image.Gray, k int, better func(a, b uint8) bool) []uint8 {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	lo, hi := -(k / 2), k-1-k/2

	rows := make([]uint8, w*h)
	for y := range h {
		line := src.Pix[y*src.Stride : y*src.Stride+w]
		for x := range w {
			best := line[x]
			for dx := lo; dx <= hi; dx++ {
				nx := x + dx
				if nx >= 0 && nx < w && better(line[nx], best) {
					best = line[nx]
				}
			}
			rows[y*w+x] = best
		}
	}

	out := make([]uint8, w*h)
	for y := range h {
		for x := range w {
			best := rows[y*w+x]
			for dy := lo; dy <= hi; dy++ {
				ny := y + dy
				if ny >= 0 && ny < h && better(rows[ny*w+x], best) {
					best = rows[ny*w+x]
				}
			}
			out[y*w+x] = best
		}
	}
	return out
}

// Threshold binarises img: samples above the cutoff become Max and the rest
// 0, or the reverse when Invert is set.
func Threshold(img *image.Gray, p ThresholdParams) *image.Gray {
	src := utils.CloneGray(img)
	hi, lo := p.Max, uint8(0)
	if p.Invert {
		hi, lo = lo, hi
	}
	for i, v := range src.Pix {
		if v > p.Cutoff {
			src.Pix[i] = hi
		} else {
			src.Pix[i] = lo
		}
	}
	return src
}

package format

import (
	"image"
	"math"

	"github.com/MeKo-Tech/scanprep/internal/mempool"
)

// FloatImage is a single-channel raster with samples in [0,1], row-major.
type FloatImage struct {
	Pix    []float32
	Width  int
	Height int
}

// Normalize maps 8-bit samples to [0,1]. The buffer comes from a pool;
// call Release once the FloatImage is no longer used.
func Normalize(img *image.Gray) FloatImage {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	pix := mempool.GetFloat32(w * h)
	for y := range h {
		row := img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):]
		for x := range w {
			pix[y*w+x] = float32(row[x]) / 255.0
		}
	}
	return FloatImage{Pix: pix, Width: w, Height: h}
}

// ToGray rescales samples to [0,255], rounding to the nearest level and
// saturating anything outside [0,1].
func (f FloatImage) ToGray() *image.Gray {
	out := image.NewGray(image.Rect(0, 0, f.Width, f.Height))
	for i, v := range f.Pix[:f.Width*f.Height] {
		s := math.Round(float64(v) * 255)
		switch {
		case s < 0:
			s = 0
		case s > 255:
			s = 255
		}
		out.Pix[i] = uint8(s)
	}
	return out
}

// Release hands the sample buffer back to the pool.
func (f *FloatImage) Release() {
	mempool.PutFloat32(f.Pix)
	f.Pix = nil
}

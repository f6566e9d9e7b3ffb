package transform

import (
	"image"
	"math"
	"runtime"
	"sync"

	"github.com/MeKo-Tech/scanprep/internal/mempool"
	"github.com/MeKo-Tech/scanprep/internal/utils"
)

// minNLMWeight drops neighbours whose similarity weight falls below it.
const minNLMWeight = 0.001

// Denoise applies non-local means filtering. Each output pixel is the
// weighted mean of the pixels in its search window, weighted by
// exp(-(SSD/patchArea)/h²) where SSD compares the patches around the two
// pixels. Borders are extended by reflection.
func Denoise(img *image.Gray, p DenoiseParams) *image.Gray {
	src := utils.CloneGray(img)
	if p.Strength <= 0 {
		return src
	}
	if p.Accelerate {
		if out, ok := denoiseAccelerated(src, p); ok {
			return out
		}
	}
	return nlMeans(src, p.Strength, oddAtLeast(p.PatchSize, 1), oddAtLeast(p.SearchSize, 1))
}

func oddAtLeast(n, lo int) int {
	n = max(n, lo)
	if n%2 == 0 {
		n++
	}
	return n
}

func nlMeans(src *image.Gray, h float64, patch, search int) *image.Gray {
	w, hgt := src.Bounds().Dx(), src.Bounds().Dy()
	pr, sr := patch/2, search/2
	border := pr + sr
	pw := w + 2*border
	padded := make([]uint8, pw*(hgt+2*border))
	for y := range hgt + 2*border {
		sy := reflect101(y-border, hgt)
		for x := range pw {
			padded[y*pw+x] = src.Pix[sy*src.Stride+reflect101(x-border, w)]
		}
	}

	area := float64(patch * patch)
	h2 := h * h
	// exp(-d/h²) < minNLMWeight once the mean squared distance exceeds this.
	maxDist := -math.Log(minNLMWeight) * h2

	out := image.NewGray(image.Rect(0, 0, w, hgt))
	bands := min(runtime.GOMAXPROCS(0), hgt)
	rowsPer := (hgt + bands - 1) / bands

	var wg sync.WaitGroup
	for y0 := 0; y0 < hgt; y0 += rowsPer {
		y1 := min(y0+rowsPer, hgt)
		wg.Add(1)
		go func(y0, y1 int) {
			defer wg.Done()
			nlMeansBand(padded, pw, border, w, y0, y1, pr, sr, area, h2, maxDist, out)
		}(y0, y1)
	}
	wg.Wait()
	return out
}

// nlMeansBand filters rows [y0,y1). For every search offset it builds an
// integral image of squared differences so each patch SSD costs four lookups.
func nlMeansBand(padded []uint8, pw, border, w, y0, y1, pr, sr int, area, h2, maxDist float64, out *image.Gray) {
	bandH := y1 - y0
	n := bandH * w
	acc := mempool.GetFloat64(n)
	wsum := mempool.GetFloat64(n)
	defer mempool.PutFloat64(acc)
	defer mempool.PutFloat64(wsum)

	// Integral over the band plus the patch radius on every side.
	iw, ih := w+2*pr+1, bandH+2*pr+1
	integral := mempool.GetFloat64(iw * ih)
	defer mempool.PutFloat64(integral)

	px := func(x, y int) float64 { return float64(padded[(y+border)*pw+x+border]) }

	for dy := -sr; dy <= sr; dy++ {
		for dx := -sr; dx <= sr; dx++ {
			for iy := 1; iy < ih; iy++ {
				y := y0 - pr + iy - 1
				var rowSum float64
				for ix := 1; ix < iw; ix++ {
					x := ix - 1 - pr
					d := px(x, y) - px(x+dx, y+dy)
					rowSum += d * d
					integral[iy*iw+ix] = integral[(iy-1)*iw+ix] + rowSum
				}
			}
			for by := range bandH {
				top, bot := by, by+2*pr+1
				for x := range w {
					left, right := x, x+2*pr+1
					ssd := integral[bot*iw+right] - integral[top*iw+right] -
						integral[bot*iw+left] + integral[top*iw+left]
					dist := ssd / area
					if dist > maxDist {
						continue
					}
					wt := math.Exp(-dist / h2)
					if wt < minNLMWeight {
						continue
					}
					i := by*w + x
					acc[i] += wt * px(x+dx, y0+by+dy)
					wsum[i] += wt
				}
			}
		}
	}

	for by := range bandH {
		row := out.Pix[(y0+by)*out.Stride : (y0+by)*out.Stride+w]
		for x := range row {
			i := by*w + x
			row[x] = saturate(math.Round(acc[i] / wsum[i]))
		}
	}
}

package transform

import (
	"image"
	"math"

	"github.com/MeKo-Tech/scanprep/internal/utils"
)

const histSize = 256

// Contrast applies an optional gamma lookup table and then optional
// contrast-limited adaptive histogram equalisation.
func Contrast(img *image.Gray, p ContrastParams) *image.Gray {
	out := utils.CloneGray(img)
	if p.UseGamma && p.Gamma > 0 {
		applyLUT(out, gammaLUT(p.Gamma))
	}
	if p.UseCLAHE && p.TilesX > 0 && p.TilesY > 0 {
		out = clahe(out, p.ClipLimit, p.TilesX, p.TilesY)
	}
	return out
}

// gammaLUT maps i to ((i/255)^(1/gamma))*255, truncated.
func gammaLUT(gamma float64) [256]uint8 {
	var lut [256]uint8
	inv := 1.0 / gamma
	for i := range lut {
		v := math.Pow(float64(i)/255.0, inv) * 255
		lut[i] = uint8(math.Min(255, math.Max(0, v)))
	}
	return lut
}

func applyLUT(img *image.Gray, lut [256]uint8) {
	for i, v := range img.Pix {
		img.Pix[i] = lut[v]
	}
}

// clahe equalises each tile's histogram with its counts clipped at
// clipLimit×tileArea/256 and the excess spread evenly, then blends the four
// nearest tile mappings bilinearly per pixel. Images that the grid does not
// divide are padded by reflection for the histogram pass only.
func clahe(src *image.Gray, clipLimit float64, tilesX, tilesY int) *image.Gray {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()

	padded := src
	pw, ph := w, h
	if w%tilesX != 0 || h%tilesY != 0 {
		pw = w + (tilesX-w%tilesX)%tilesX
		ph = h + (tilesY-h%tilesY)%tilesY
		padded = padReflect101(src, pw, ph)
	}
	tileW, tileH := pw/tilesX, ph/tilesY
	tileArea := tileW * tileH

	clip := 0
	if clipLimit > 0 {
		clip = max(int(clipLimit*float64(tileArea)/histSize), 1)
	}

	luts := make([][histSize]uint8, tilesX*tilesY)
	scale := float64(histSize-1) / float64(tileArea)
	for ty := range tilesY {
		for tx := range tilesX {
			var hist [histSize]int
			for y := ty * tileH; y < (ty+1)*tileH; y++ {
				row := padded.Pix[y*padded.Stride+tx*tileW : y*padded.Stride+(tx+1)*tileW]
				for _, v := range row {
					hist[v]++
				}
			}
			if clip > 0 {
				clipHistogram(&hist, clip)
			}
			lut := &luts[ty*tilesX+tx]
			sum := 0
			for i := range hist {
				sum += hist[i]
				lut[i] = saturate(math.RoundToEven(float64(sum) * scale))
			}
		}
	}

	out := image.NewGray(image.Rect(0, 0, w, h))
	invTW, invTH := 1.0/float64(tileW), 1.0/float64(tileH)
	for y := range h {
		tyf := float64(y)*invTH - 0.5
		ty1 := int(math.Floor(tyf))
		ya := tyf - float64(ty1)
		ty2 := min(ty1+1, tilesY-1)
		ty1 = max(ty1, 0)
		srcRow := src.Pix[y*src.Stride : y*src.Stride+w]
		dstRow := out.Pix[y*out.Stride : y*out.Stride+w]
		for x, v := range srcRow {
			txf := float64(x)*invTW - 0.5
			tx1 := int(math.Floor(txf))
			xa := txf - float64(tx1)
			tx2 := min(tx1+1, tilesX-1)
			tx1 = max(tx1, 0)

			top := float64(luts[ty1*tilesX+tx1][v])*(1-xa) + float64(luts[ty1*tilesX+tx2][v])*xa
			bot := float64(luts[ty2*tilesX+tx1][v])*(1-xa) + float64(luts[ty2*tilesX+tx2][v])*xa
			dstRow[x] = saturate(math.RoundToEven(top*(1-ya) + bot*ya))
		}
	}
	return out
}

func clipHistogram(hist *[histSize]int, clip int) {
	clipped := 0
	for i, c := range hist {
		if c > clip {
			clipped += c - clip
			hist[i] = clip
		}
	}
	batch := clipped / histSize
	residual := clipped - batch*histSize
	for i := range hist {
		hist[i] += batch
	}
	if residual > 0 {
		step := max(histSize/residual, 1)
		for i := 0; i < histSize && residual > 0; i += step {
			hist[i]++
			residual--
		}
	}
}

// padReflect101 extends src to pw×ph by mirroring without repeating the edge
// sample (dcb|abcd|cba).
func padReflect101(src *image.Gray, pw, ph int) *image.Gray {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	out := image.NewGray(image.Rect(0, 0, pw, ph))
	for y := range ph {
		sy := reflect101(y, h)
		for x := range pw {
			out.Pix[y*out.Stride+x] = src.Pix[sy*src.Stride+reflect101(x, w)]
		}
	}
	return out
}

// reflect101 maps any index onto [0,n) by mirror reflection about the edge
// samples.
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * (n - 1)
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - i
	}
	return i
}

func saturate(v float64) uint8 {
	switch {
	case v <= 0 || math.IsNaN(v):
		return 0
	case v >= 255:
		return 255
	}
	return uint8(v)
}

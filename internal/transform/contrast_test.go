package transform

import (
	"image"
	"math"
	"testing"

	"github.com/MeKo-Tech/scanprep/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGammaLUT(t *testing.T) {
	lut := gammaLUT(0.5)
	assert.Equal(t, uint8(0), lut[0])
	assert.Equal(t, uint8(64), lut[128]) // (128/255)^2*255 = 64.25, truncated
	assert.Equal(t, uint8(255), lut[255])
	for i := 1; i < 256; i++ {
		assert.GreaterOrEqual(t, lut[i], lut[i-1], "LUT must be monotonic")
	}
}

func TestContrastGammaOnly(t *testing.T) {
	p := DefaultContrastParams()
	p.UseCLAHE = false
	in := testutil.GradientGray(256, 2)
	out := Contrast(in, p)
	lut := gammaLUT(0.5)
	for x := range 256 {
		assert.Equal(t, lut[in.GrayAt(x, 1).Y], out.GrayAt(x, 1).Y)
	}
}

func TestContrastDisabledIsCopy(t *testing.T) {
	in := testutil.NoisyGray(17, 9, 1)
	out := Contrast(in, ContrastParams{})
	assert.True(t, testutil.GrayEqual(in, out))
	out.Pix[0]++
	assert.NotEqual(t, in.Pix[0], out.Pix[0], "output must not alias the input")
}

func TestCLAHEUniformStaysUniform(t *testing.T) {
	p := DefaultContrastParams()
	p.UseGamma = false
	out := Contrast(testutil.UniformGray(64, 48, 120), p)
	first := out.Pix[0]
	for _, v := range out.Pix {
		require.Equal(t, first, v)
	}
}

func stddev(img *image.Gray) float64 {
	var sum, sq float64
	for _, v := range img.Pix {
		sum += float64(v)
		sq += float64(v) * float64(v)
	}
	n := float64(len(img.Pix))
	mean := sum / n
	return math.Sqrt(sq/n - mean*mean)
}

func TestCLAHEStretchesLowContrast(t *testing.T) {
	in := testutil.NoisyGray(96, 96, 3)
	for i, v := range in.Pix {
		in.Pix[i] = 100 + v/16 // values in [100,115]
	}
	p := DefaultContrastParams()
	p.UseGamma = false
	out := Contrast(in, p)
	assert.Greater(t, stddev(out), 2*stddev(in))
}

func TestCLAHEOddSizes(t *testing.T) {
	p := DefaultContrastParams()
	for _, sz := range []image.Point{{37, 23}, {5, 3}, {1, 1}, {9, 200}} {
		out := Contrast(testutil.NoisyGray(sz.X, sz.Y, 5), p)
		assert.Equal(t, image.Rectangle{Max: sz}, out.Bounds(), "size %v", sz)
	}
}

func TestClipHistogramConservesCount(t *testing.T) {
	var hist [histSize]int
	hist[10] = 1000
	hist[200] = 37
	clipHistogram(&hist, 16)
	total := 0
	for _, c := range hist {
		total += c
	}
	assert.Equal(t, 1037, total)
	assert.LessOrEqual(t, hist[10], 16+5)
}

func TestReflect101(t *testing.T) {
	cases := []struct{ i, n, want int }{
		{0, 4, 0}, {3, 4, 3}, {-1, 4, 1}, {-2, 4, 2}, {4, 4, 2}, {5, 4, 1}, {-3, 1, 0}, {7, 2, 1},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, reflect101(c.i, c.n), "reflect101(%d, %d)", c.i, c.n)
	}
}

func TestContrastHonoursSubImageOrigin(t *testing.T) {
	full := testutil.GradientGray(40, 40)
	sub := full.SubImage(image.Rect(10, 10, 30, 30)).(*image.Gray)
	out := Contrast(sub, DefaultContrastParams())
	assert.Equal(t, image.Rect(0, 0, 20, 20), out.Bounds())
}

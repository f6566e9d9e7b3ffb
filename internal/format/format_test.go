package format

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToWorkingConvertsColor(t *testing.T) {
	src := image.NewRGBA(image.Rect(10, 20, 13, 22))
	src.Set(10, 20, color.RGBA{R: 255, A: 255})
	src.Set(11, 20, color.RGBA{G: 255, A: 255})
	src.Set(12, 20, color.RGBA{B: 255, A: 255})
	src.Set(10, 21, color.White)

	g, err := ToWorking(src)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 3, 2), g.Bounds())
	assert.InDelta(t, 76, int(g.GrayAt(0, 0).Y), 1)  // 0.299 * 255
	assert.InDelta(t, 150, int(g.GrayAt(1, 0).Y), 1) // 0.587 * 255
	assert.InDelta(t, 29, int(g.GrayAt(2, 0).Y), 1)  // 0.114 * 255
	assert.Equal(t, uint8(255), g.GrayAt(0, 1).Y)
}

func TestToWorkingCopiesGray(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 2, 2))
	src.Pix[0] = 42
	g, err := ToWorking(src)
	require.NoError(t, err)
	g.Pix[0] = 0
	assert.Equal(t, uint8(42), src.Pix[0])
}

func TestToWorkingRejectsMalformedInput(t *testing.T) {
	var fe *FormatError

	_, err := ToWorking(nil)
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "entry", fe.Stage)
	assert.ErrorIs(t, err, ErrNilImage)

	_, err = ToWorking(image.NewRGBA(image.Rect(0, 0, 0, 5)))
	require.ErrorAs(t, err, &fe)
	assert.ErrorIs(t, err, ErrEmptyImage)
}

func TestToOutputDimensions(t *testing.T) {
	cases := []struct {
		name         string
		w, h, target int
		wantH        int
	}{
		{"shrink portrait", 1000, 1400, 800, 1120},
		{"enlarge", 400, 300, 800, 600},
		{"rounds fraction up", 3, 1, 2, 1},
		{"rounds to nearest", 7, 5, 3, 2},
		{"minimum height", 2000, 1, 800, 1},
		{"identity", 800, 10, 800, 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := ToOutput(image.NewGray(image.Rect(0, 0, tc.w, tc.h)), tc.target)
			require.NoError(t, err)
			assert.Equal(t, tc.target, out.Bounds().Dx())
			assert.Equal(t, tc.wantH, out.Bounds().Dy())
		})
	}
}

func TestToOutputPreservesLevels(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 800, 2))
	for i := range src.Pix {
		src.Pix[i] = uint8(i % 256)
	}
	out, err := ToOutput(src, 800)
	require.NoError(t, err)
	assert.Equal(t, src.Pix, out.Pix, "normalizing and rescaling must be lossless at the same size")
}

func TestToOutputRejectsBadInput(t *testing.T) {
	var fe *FormatError
	_, err := ToOutput(nil, 800)
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "exit", fe.Stage)

	_, err = ToOutput(image.NewGray(image.Rect(0, 0, 10, 10)), 0)
	assert.ErrorIs(t, err, ErrInvalidTargetWidth)
}

func TestFloatImageSaturates(t *testing.T) {
	f := FloatImage{Pix: []float32{-0.5, 0, 0.5, 1, 1.5}, Width: 5, Height: 1}
	g := f.ToGray()
	assert.Equal(t, []uint8{0, 0, 128, 255, 255}, g.Pix)
}

func TestNormalizeRange(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 2, 1))
	src.Pix[0], src.Pix[1] = 0, 255
	f := Normalize(src)
	defer f.Release()
	assert.InDelta(t, 0.0, f.Pix[0], 1e-6)
	assert.InDelta(t, 1.0, f.Pix[1], 1e-6)
}

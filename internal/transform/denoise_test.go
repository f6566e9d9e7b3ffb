package transform

import (
	"image"
	"testing"

	"github.com/MeKo-Tech/scanprep/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func smallDenoise() DenoiseParams {
	return DenoiseParams{Strength: 10, PatchSize: 3, SearchSize: 7}
}

func TestDenoiseUniformUnchanged(t *testing.T) {
	in := testutil.UniformGray(20, 15, 90)
	out := Denoise(in, DefaultDenoiseParams())
	assert.True(t, testutil.GrayEqual(in, out))
}

func TestDenoiseReducesSaltNoise(t *testing.T) {
	clean := testutil.UniformGray(40, 40, 200)
	noisy := testutil.UniformGray(40, 40, 200)
	for i := 0; i < len(noisy.Pix); i += 37 {
		noisy.Pix[i] = 205
	}
	out := Denoise(noisy, smallDenoise())
	assert.Less(t, testutil.MeanAbsDiff(out, clean), testutil.MeanAbsDiff(noisy, clean))
}

func TestDenoisePreservesStrongEdges(t *testing.T) {
	in := testutil.UniformGray(30, 30, 0)
	testutil.FillRect(in, image.Rect(15, 0, 30, 30), 255)
	out := Denoise(in, smallDenoise())
	assert.Equal(t, uint8(0), out.GrayAt(5, 15).Y)
	assert.Equal(t, uint8(255), out.GrayAt(25, 15).Y)
}

func TestDenoiseDeterministic(t *testing.T) {
	in := testutil.NoisyGray(25, 18, 11)
	assert.True(t, testutil.GrayEqual(Denoise(in, smallDenoise()), Denoise(in, smallDenoise())))
}

func TestDenoiseDegenerateInputs(t *testing.T) {
	in := testutil.NoisyGray(3, 2, 2)
	out := Denoise(in, DefaultDenoiseParams())
	assert.Equal(t, in.Bounds(), out.Bounds())

	same := Denoise(in, DenoiseParams{})
	assert.True(t, testutil.GrayEqual(in, same), "zero strength is a copy")

	even := Denoise(in, DenoiseParams{Strength: 5, PatchSize: 2, SearchSize: 4})
	assert.Equal(t, in.Bounds(), even.Bounds())
}

func TestOddAtLeast(t *testing.T) {
	assert.Equal(t, 9, oddAtLeast(9, 1))
	assert.Equal(t, 5, oddAtLeast(4, 1))
	assert.Equal(t, 1, oddAtLeast(-3, 1))
}

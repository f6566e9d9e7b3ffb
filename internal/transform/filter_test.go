package transform

import (
	"image"
	"testing"

	"github.com/MeKo-Tech/scanprep/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSharpenKernel(t *testing.T) {
	k := DefaultSharpenParams().Kernel()
	assert.Equal(t, [9]float64{0, -0.5, 0, -0.5, 3, -0.5, 0, -0.5, 0}, k)
}

func TestSharpenUniformUnchanged(t *testing.T) {
	in := testutil.UniformGray(10, 10, 100)
	out := Sharpen(in, DefaultSharpenParams())
	assert.True(t, testutil.GrayEqual(in, out))
}

func TestSharpenBoostsImpulse(t *testing.T) {
	in := testutil.UniformGray(9, 9, 50)
	in.Pix[4*9+4] = 80
	out := Sharpen(in, DefaultSharpenParams())
	// center: 3*80 - 4*0.5*50 = 140; neighbour: 3*50 - 0.5*80 - 1.5*50 = 35
	assert.Equal(t, uint8(140), out.GrayAt(4, 4).Y)
	assert.Equal(t, uint8(35), out.GrayAt(5, 4).Y)
	assert.Equal(t, uint8(50), out.GrayAt(5, 5).Y, "diagonals are untouched")
}

func TestSharpenSaturates(t *testing.T) {
	in := testutil.UniformGray(5, 5, 0)
	in.Pix[12] = 200
	out := Sharpen(in, DefaultSharpenParams())
	assert.Equal(t, uint8(255), out.GrayAt(2, 2).Y)
	assert.Equal(t, uint8(0), out.GrayAt(2, 1).Y)
}

func TestSharpenReflectsBorders(t *testing.T) {
	in := testutil.UniformGray(4, 4, 100)
	testutil.FillRect(in, image.Rect(0, 0, 1, 4), 200)
	out := Sharpen(in, DefaultSharpenParams())
	// The mirror of column 0 is column 1 (100), not a repeated 200:
	// 3*200 - 0.5*(100+100+200+200) = 300, saturated.
	assert.Equal(t, uint8(255), out.GrayAt(0, 1).Y)
	// 3*100 - 0.5*(200+100+100+100) = 50
	assert.Equal(t, uint8(50), out.GrayAt(1, 1).Y)
}

func TestPadBorder101(t *testing.T) {
	in := image.NewGray(image.Rect(0, 0, 3, 1))
	copy(in.Pix, []uint8{1, 2, 3})
	out := padBorder101(in, 1)
	assert.Equal(t, image.Rect(0, 0, 5, 3), out.Bounds())
	assert.Equal(t, []uint8{2, 1, 2, 3, 2}, out.Pix[out.Stride:2*out.Stride])
}

func TestEdgeEnhanceStepEdge(t *testing.T) {
	in := testutil.UniformGray(10, 6, 100)
	testutil.FillRect(in, image.Rect(5, 0, 10, 6), 200)
	out := EdgeEnhance(in, DefaultEdgeParams())

	// gradient is 100 on both sides of the step: 100+20 and 200+20.
	assert.Equal(t, uint8(120), out.GrayAt(4, 3).Y)
	assert.Equal(t, uint8(220), out.GrayAt(5, 3).Y)
	assert.Equal(t, uint8(100), out.GrayAt(1, 3).Y)
	assert.Equal(t, uint8(200), out.GrayAt(8, 3).Y)
}

func TestEdgeEnhanceRoundsHalfToEven(t *testing.T) {
	in := testutil.UniformGray(4, 1, 10)
	in.Pix[2] = 15
	in.Pix[3] = 15
	out := EdgeEnhance(in, EdgeParams{Alpha: 0.5, KernelSize: 3})
	// 10 + 0.5*5 = 12.5 → 12; 15 + 2.5 = 17.5 → 18
	assert.Equal(t, uint8(12), out.Pix[1])
	assert.Equal(t, uint8(18), out.Pix[2])
}

func TestEdgeEnhanceNoOpParams(t *testing.T) {
	in := testutil.NoisyGray(8, 8, 4)
	assert.True(t, testutil.GrayEqual(in, EdgeEnhance(in, EdgeParams{Alpha: 0.2, KernelSize: 1})))
	assert.True(t, testutil.GrayEqual(in, EdgeEnhance(in, EdgeParams{Alpha: 0, KernelSize: 3})))
}

func TestMorphEvenKernelAnchor(t *testing.T) {
	in := testutil.UniformGray(4, 1, 0)
	in.Pix[2] = 9
	dil := morph(in, 2, func(a, b uint8) bool { return a > b })
	// 2-wide window spans [x-1, x].
	assert.Equal(t, []uint8{0, 0, 9, 9}, dil)
}

func TestThreshold(t *testing.T) {
	in := image.NewGray(image.Rect(0, 0, 4, 1))
	copy(in.Pix, []uint8{0, 80, 81, 255})

	out := Threshold(in, DefaultThresholdParams())
	assert.Equal(t, []uint8{0, 0, 255, 255}, out.Pix)

	p := DefaultThresholdParams()
	p.Invert = true
	assert.Equal(t, []uint8{255, 255, 0, 0}, Threshold(in, p).Pix)

	p = ThresholdParams{Cutoff: 10, Max: 128}
	assert.Equal(t, []uint8{0, 128, 128, 128}, Threshold(in, p).Pix)
	assert.Equal(t, []uint8{0, 80, 81, 255}, in.Pix, "input untouched")
}

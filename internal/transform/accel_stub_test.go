//go:build !gocv

package transform

import (
	"testing"

	"github.com/MeKo-Tech/scanprep/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func TestAcceleratedPathsFallBack(t *testing.T) {
	assert.False(t, AcceleratorAvailable())

	noisy := testutil.NoisyGray(24, 18, 7)
	dp := DefaultDenoiseParams()
	accel := dp
	accel.Accelerate = true
	assert.True(t, testutil.GrayEqual(Denoise(noisy, dp), Denoise(noisy, accel)))

	cfg := testutil.DefaultPageConfig()
	cfg.Size = testutil.ImageSize{Width: 400, Height: 300}
	cfg.Rules = true
	cfg.Skew = 2
	page := testutil.GeneratePage(cfg)
	sp := DefaultDeskewParams()
	sp.Accelerate = true
	out, rep := Deskew(page, sp)
	assert.False(t, rep.Accelerated)
	plain, _ := Deskew(page, DefaultDeskewParams())
	assert.True(t, testutil.GrayEqual(plain, out))
}

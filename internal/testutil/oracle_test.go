package testutil

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/MeKo-Tech/scanprep/internal/oracle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptedOracleReplaysInOrder(t *testing.T) {
	s := NewScriptedOracle()
	s.Orientations = []oracle.OrientationResult{oracle.Estimated(90, 2)}
	s.Texts = []string{"one", "two"}
	s.TextErrs = []error{nil, nil, errors.New("engine crashed")}
	s.DefaultText = "fallback"

	ctx := context.Background()
	img := image.NewGray(image.Rect(0, 0, 3, 2))

	est, ok := s.DetectOrientation(ctx, img).Estimate()
	require.True(t, ok)
	assert.Equal(t, 90, est.Rotate)
	assert.False(t, s.DetectOrientation(ctx, img).Available())

	for _, want := range []string{"one", "two"} {
		got, err := s.RecognizeText(ctx, img)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := s.RecognizeText(ctx, img)
	assert.EqualError(t, err, "engine crashed")
	got, err := s.RecognizeText(ctx, img)
	require.NoError(t, err)
	assert.Equal(t, "fallback", got)

	assert.False(t, s.DetectWordBoxes(ctx, img, 60).Available())
	assert.Equal(t, []float64{60}, s.BoxCalls())
	assert.Len(t, s.OrientationCalls(), 2)
	assert.Len(t, s.TextCalls(), 4)
	assert.Equal(t, img.Bounds(), s.TextCalls()[0])
}

func TestUprightOracle(t *testing.T) {
	box := oracle.TextRegion{Left: 1, Top: 1, Right: 5, Bottom: 5, Confidence: 90, Text: "x"}
	s := UprightOracle(box)
	ctx := context.Background()
	img := image.NewGray(image.Rect(0, 0, 2, 2))

	rot, _ := s.DetectOrientation(ctx, img).Residual()
	assert.Equal(t, 0, rot)
	text, err := s.RecognizeText(ctx, img)
	require.NoError(t, err)
	assert.Equal(t, 100, oracle.CountAlnum(text))

	res := s.DetectWordBoxes(ctx, img, 60)
	require.True(t, res.Available())
	assert.Equal(t, []oracle.TextRegion{box}, res.Regions())
}

package oracle

import (
	"context"
	"errors"
	"image"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrientationResultResidual(t *testing.T) {
	r := Estimated(90, 4.2)
	assert.True(t, r.Available())
	rot, conf := r.Residual()
	assert.Equal(t, 90, rot)
	assert.InDelta(t, 4.2, conf, 1e-12)

	u := OrientationUnavailable(errors.New("boom"))
	assert.False(t, u.Available())
	rot, conf = u.Residual()
	assert.Equal(t, UnavailableResidual, rot)
	assert.True(t, math.IsNaN(conf))
	assert.EqualError(t, u.Err(), "boom")
}

func TestBoxQueryResult(t *testing.T) {
	empty := Boxes(nil)
	assert.True(t, empty.Available())
	assert.Empty(t, empty.Regions())

	u := BoxesUnavailable(ErrNoTextCapability)
	assert.False(t, u.Available())
	assert.ErrorIs(t, u.Err(), ErrNoTextCapability)

	r := TextRegion{Left: 1, Top: 2, Right: 5, Bottom: 9}
	assert.Equal(t, image.Rect(1, 2, 5, 9), r.Rect())
}

func TestNewSelectsBackend(t *testing.T) {
	o, err := New(Options{Backend: "Heuristic"})
	require.NoError(t, err)
	assert.IsType(t, &Heuristic{}, o)
	assert.NoError(t, Close(o))

	_, err = New(Options{Backend: "easyocr"})
	assert.ErrorIs(t, err, ErrUnknownBackend)

	_, err = New(Options{Backend: BackendTesseract, Binary: filepath.Join(t.TempDir(), "no-such-tesseract")})
	assert.ErrorIs(t, err, ErrBinaryNotFound)

	assert.ElementsMatch(t, []string{"tesseract", "gosseract", "heuristic"}, Backends())
}

// fakeTesseract installs a shell script that mimics the tesseract CLI.
func fakeTesseract(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "tesseract")
	script := "#!/bin/sh\ncat >/dev/null\n" + body
	require.NoError(t, os.WriteFile(path, []byte(script), 0o700)) //nolint:gosec // test executable
	return path
}

const fakeResponses = `case "$*" in
  *tsv*) printf 'level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n5\t1\t1\t1\t1\t1\t10\t20\t30\t40\t96.5\tHello\n5\t1\t1\t1\t1\t2\t50\t20\t30\t40\t30\tfaint\n' ;;
  *"--psm 0"*) printf 'Page number: 0\nOrientation in degrees: 90\nRotate: 270\nOrientation confidence: 4.5\n' ;;
  *) printf 'Hello world 42\n' ;;
esac
`

func TestTesseractCLI(t *testing.T) {
	bin := fakeTesseract(t, fakeResponses)
	tess, err := NewTesseract(Options{Binary: bin, Language: "German", Timeout: 5 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, "deu", tess.Language())
	assert.Equal(t, bin, tess.Binary())

	ctx := context.Background()
	img := image.NewGray(image.Rect(0, 0, 20, 10))

	est, ok := tess.DetectOrientation(ctx, img).Estimate()
	require.True(t, ok)
	assert.Equal(t, Estimate{Rotate: 270, Confidence: 4.5}, est)

	text, err := tess.RecognizeText(ctx, img)
	require.NoError(t, err)
	assert.Equal(t, "Hello world 42\n", text)

	boxes := tess.DetectWordBoxes(ctx, img, 60)
	require.True(t, boxes.Available())
	require.Len(t, boxes.Regions(), 1)
	assert.Equal(t, TextRegion{Left: 10, Top: 20, Right: 40, Bottom: 60, Confidence: 96.5, Text: "Hello"}, boxes.Regions()[0])
}

func TestTesseractCLIFailureIsUnavailable(t *testing.T) {
	bin := fakeTesseract(t, "echo 'Too few characters' >&2\nexit 1\n")
	tess, err := NewTesseract(Options{Binary: bin})
	require.NoError(t, err)

	ctx := context.Background()
	img := image.NewGray(image.Rect(0, 0, 4, 4))

	res := tess.DetectOrientation(ctx, img)
	assert.False(t, res.Available())
	assert.ErrorContains(t, res.Err(), "Too few characters")

	assert.False(t, tess.DetectWordBoxes(ctx, img, 0).Available())

	_, err = tess.RecognizeText(ctx, img)
	assert.Error(t, err)

	_, err = tess.RecognizeText(ctx, nil)
	assert.Error(t, err)
}

func TestTesseractCLIHonoursCancellation(t *testing.T) {
	bin := fakeTesseract(t, "exec sleep 5\n")
	tess, err := NewTesseract(Options{Binary: bin, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	res := tess.DetectOrientation(context.Background(), image.NewGray(image.Rect(0, 0, 4, 4)))
	require.False(t, res.Available())
	assert.ErrorIs(t, res.Err(), context.DeadlineExceeded)
}

package testutil

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// ImageSize represents common image dimensions.
type ImageSize struct {
	Width  int
	Height int
}

var (
	// Common test image sizes.
	SmallSize  = ImageSize{320, 240}
	MediumSize = ImageSize{640, 480}
	PageSize   = ImageSize{1000, 1400}
)

// SampleLines is the body text of generated pages.
var SampleLines = []string{
	"INVOICE No 2024-0117",
	"Date: 17 January 2024",
	"Customer: Example Trading Ltd",
	"Item          Qty    Price",
	"Paper A4       10    45.00",
	"Toner black     2   120.00",
	"Total due           165.00",
}

// PageConfig describes a synthetic scanned page.
type PageConfig struct {
	Size       ImageSize
	Lines      []string
	Scale      int // glyph magnification of the 7×13 face
	Margin     int
	LineGap    int
	Rules      bool    // underline every text line with a full-width rule
	Skew       float64 // counter-clockwise rotation in degrees, white fill
	Background uint8
	Foreground uint8
}

// DefaultPageConfig returns an upright 1000×1400 page of dark text on white.
func DefaultPageConfig() PageConfig {
	return PageConfig{
		Size:       PageSize,
		Lines:      SampleLines,
		Scale:      3,
		Margin:     80,
		LineGap:    30,
		Background: 255,
		Foreground: 0,
	}
}

// GeneratePage renders cfg as a grayscale page. Skewed pages grow to hold
// the rotated content.
func GeneratePage(cfg PageConfig) *image.Gray {
	scale := max(cfg.Scale, 1)
	small := image.NewGray(image.Rect(0, 0, max(cfg.Size.Width/scale, 1), max(cfg.Size.Height/scale, 1)))
	draw.Draw(small, small.Bounds(), image.NewUniform(color.Gray{Y: cfg.Background}), image.Point{}, draw.Src)

	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: small, Src: image.NewUniform(color.Gray{Y: cfg.Foreground}), Face: face}
	lineH := face.Metrics().Height.Ceil() + cfg.LineGap/scale
	margin := cfg.Margin / scale
	var baselines []int
	for i, line := range cfg.Lines {
		y := margin + (i+1)*lineH
		if y >= small.Bounds().Dy()-margin {
			break
		}
		drawer.Dot = fixed.P(margin, y)
		drawer.DrawString(line)
		baselines = append(baselines, y)
	}

	page := image.NewGray(image.Rect(0, 0, cfg.Size.Width, cfg.Size.Height))
	resized := imaging.Resize(small, cfg.Size.Width, cfg.Size.Height, imaging.NearestNeighbor)
	draw.Draw(page, page.Bounds(), resized, image.Point{}, draw.Src)

	if cfg.Rules {
		for _, b := range baselines {
			y := b*cfg.Size.Height/small.Bounds().Dy() + scale*2
			FillRect(page, image.Rect(cfg.Margin, y, cfg.Size.Width-cfg.Margin, y+3), cfg.Foreground)
		}
	}

	if cfg.Skew != 0 {
		rotated := imaging.Rotate(page, cfg.Skew, color.Gray{Y: cfg.Background})
		out := image.NewGray(rotated.Bounds())
		draw.Draw(out, out.Bounds(), rotated, rotated.Bounds().Min, draw.Src)
		return out
	}
	return page
}

// TextPage renders the sample lines on a w×h page.
func TextPage(w, h int) *image.Gray {
	cfg := DefaultPageConfig()
	cfg.Size = ImageSize{Width: w, Height: h}
	return GeneratePage(cfg)
}

// FillRect paints r with v, clipped to img.
func FillRect(img *image.Gray, r image.Rectangle, v uint8) {
	draw.Draw(img, r.Intersect(img.Bounds()), image.NewUniform(color.Gray{Y: v}), image.Point{}, draw.Src)
}

// UniformGray returns a w×h image filled with v.
func UniformGray(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

// NoisyGray returns a w×h image of uniformly random samples from a seeded
// generator, so repeated calls with one seed are identical.
func NoisyGray(w, h int, seed uint64) *image.Gray {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = uint8(rng.IntN(256))
	}
	return img
}

// GradientGray returns a horizontal ramp from 0 to 255.
func GradientGray(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Pix[y*img.Stride+x] = uint8(x * 255 / max(w-1, 1))
		}
	}
	return img
}

// CreateTestImage creates an RGBA image of the given size filled with a color.
func CreateTestImage(width, height int, backgroundColor color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{backgroundColor}, image.Point{}, draw.Src)
	return img
}

// GrayEqual reports whether two images have identical bounds and samples.
func GrayEqual(a, b *image.Gray) bool {
	if a.Bounds().Size() != b.Bounds().Size() {
		return false
	}
	ab, bb := a.Bounds(), b.Bounds()
	for y := range ab.Dy() {
		ra := a.Pix[a.PixOffset(ab.Min.X, ab.Min.Y+y):][:ab.Dx()]
		rb := b.Pix[b.PixOffset(bb.Min.X, bb.Min.Y+y):][:bb.Dx()]
		if string(ra) != string(rb) {
			return false
		}
	}
	return true
}

// MeanAbsDiff returns the mean absolute sample difference of two
// equally-sized images, or +Inf when the sizes differ.
func MeanAbsDiff(a, b *image.Gray) float64 {
	if a.Bounds().Size() != b.Bounds().Size() {
		return math.Inf(1)
	}
	ab, bb := a.Bounds(), b.Bounds()
	var sum float64
	for y := range ab.Dy() {
		for x := range ab.Dx() {
			d := float64(a.GrayAt(ab.Min.X+x, ab.Min.Y+y).Y) - float64(b.GrayAt(bb.Min.X+x, bb.Min.Y+y).Y)
			sum += math.Abs(d)
		}
	}
	return sum / float64(ab.Dx()*ab.Dy())
}

// SaveImage saves an image as PNG, creating parent directories.
func SaveImage(t *testing.T, img image.Image, path string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))

	file, err := os.Create(path) //nolint:gosec // G304: Test file creation with controlled path
	require.NoError(t, err, "Failed to create file %s", path)
	defer func() {
		require.NoError(t, file.Close())
	}()

	require.NoError(t, png.Encode(file, img), "Failed to encode PNG image")
}

// LoadImage loads an image from the specified path.
func LoadImage(t *testing.T, path string) image.Image {
	t.Helper()

	img, err := LoadImageFile(path)
	require.NoError(t, err)
	return img
}

// LoadImageFile loads an image from the specified path (non-testing version).
func LoadImageFile(path string) (image.Image, error) {
	file, err := os.Open(path) //nolint:gosec // G304: Opening user-provided image file is expected
	if err != nil {
		return nil, fmt.Errorf("failed to open image file %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	return img, nil
}

// WriteSamplePages writes an upright and a skewed page into dir and returns
// their paths.
func WriteSamplePages(t *testing.T, dir string) []string {
	t.Helper()

	upright := DefaultPageConfig()
	upright.Size = ImageSize{Width: 600, Height: 840}
	skewed := upright
	skewed.Rules = true
	skewed.Skew = 3

	paths := []string{
		filepath.Join(dir, "upright.png"),
		filepath.Join(dir, "skewed.png"),
	}
	SaveImage(t, GeneratePage(upright), paths[0])
	SaveImage(t, GeneratePage(skewed), paths[1])
	return paths
}

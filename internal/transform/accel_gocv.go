//go:build gocv

package transform

import (
	"image"
	"math"

	"gocv.io/x/gocv"
)

// AcceleratorAvailable reports whether OpenCV is linked into this build.
func AcceleratorAvailable() bool { return true }

func matFromGray(img *image.Gray) (gocv.Mat, error) {
	b := img.Bounds()
	return gocv.NewMatFromBytes(b.Dy(), b.Dx(), gocv.MatTypeCV8U, img.Pix[:b.Dx()*b.Dy()])
}

func grayFromMat(m gocv.Mat) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, m.Cols(), m.Rows()))
	copy(out.Pix, m.ToBytes())
	return out
}

// denoiseAccelerated expects a Gray whose stride equals its width.
func denoiseAccelerated(img *image.Gray, p DenoiseParams) (*image.Gray, bool) {
	src, err := matFromGray(img)
	if err != nil {
		return nil, false
	}
	defer src.Close()
	dst := gocv.NewMat()
	defer dst.Close()
	gocv.FastNlMeansDenoisingWithParams(src, &dst, float32(p.Strength),
		oddAtLeast(p.PatchSize, 1), oddAtLeast(p.SearchSize, 1))
	if dst.Empty() {
		return nil, false
	}
	return grayFromMat(dst), true
}

func detectSegmentsAccelerated(img *image.Gray, p DeskewParams) ([]Segment, bool) {
	src, err := matFromGray(img)
	if err != nil {
		return nil, false
	}
	defer src.Close()

	blurred := gocv.NewMat()
	defer blurred.Close()
	k := oddAtLeast(p.BlurSize, 1)
	gocv.GaussianBlur(src, &blurred, image.Pt(k, k), 0, 0, gocv.BorderDefault)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(blurred, &edges, float32(p.CannyLow), float32(p.CannyHigh))

	lines := gocv.NewMat()
	defer lines.Close()
	gocv.HoughLinesPWithParams(edges, &lines, 1, math.Pi/180, p.HoughVotes,
		float32(p.MinLineLength), float32(p.MaxLineGap))

	segs := make([]Segment, 0, lines.Rows())
	for i := range lines.Rows() {
		v := lines.GetVeciAt(i, 0)
		segs = append(segs, Segment{X1: int(v[0]), Y1: int(v[1]), X2: int(v[2]), Y2: int(v[3])})
	}
	return segs, true
}

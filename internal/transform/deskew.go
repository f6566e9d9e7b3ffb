package transform

import (
	"image"
	"math"
	"slices"

	"github.com/MeKo-Tech/scanprep/internal/utils"
)

// Segment is a detected line segment in pixel coordinates.
type Segment struct {
	X1, Y1, X2, Y2 int
}

// Angle returns atan2(y2-y1, x2-x1) in degrees.
func (s Segment) Angle() float64 {
	return math.Atan2(float64(s.Y2-s.Y1), float64(s.X2-s.X1)) * 180 / math.Pi
}

// DeskewReport describes what Deskew did.
type DeskewReport struct {
	Segments    int
	Angle       float64 // median segment angle in degrees; NaN when unknown
	Applied     bool
	Accelerated bool
}

// Deskew estimates the dominant line angle of img and rotates the page by
// it. Edges come from a Gaussian-blurred Canny pass, segments from a
// probabilistic Hough transform and the angle is the median over segments.
// Without segments the input is returned unchanged.
func Deskew(img *image.Gray, p DeskewParams) (*image.Gray, DeskewReport) {
	src := utils.CloneGray(img)
	rep := DeskewReport{Angle: math.NaN()}

	var segs []Segment
	if p.Accelerate {
		segs, rep.Accelerated = detectSegmentsAccelerated(src, p)
	}
	if !rep.Accelerated {
		segs = DetectSegments(src, p)
	}
	rep.Segments = len(segs)
	if len(segs) == 0 {
		return src, rep
	}

	angles := make([]float64, len(segs))
	for i, s := range segs {
		angles[i] = s.Angle()
	}
	rep.Angle = median(angles)
	if math.IsNaN(rep.Angle) || math.IsInf(rep.Angle, 0) {
		return src, rep
	}
	rep.Applied = true
	return utils.RotateBound(src, rep.Angle), rep
}

// DetectSegments runs blur, edge detection and the Hough transform.
func DetectSegments(img *image.Gray, p DeskewParams) []Segment {
	blurred := GaussianBlur(img, oddAtLeast(p.BlurSize, 1))
	edges := Canny(blurred, p.CannyLow, p.CannyHigh)
	return HoughSegments(edges, p.HoughVotes, p.MinLineLength, p.MaxLineGap, p.Seed)
}

func median(v []float64) float64 {
	if len(v) == 0 {
		return math.NaN()
	}
	s := slices.Clone(v)
	slices.Sort(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}

// GaussianBlur smooths img with a k×k Gaussian whose sigma follows from the
// size (0.3·((k-1)/2 - 1) + 0.8). Sizes 3, 5 and 7 use fixed integer
// weights so results are exact. Borders reflect without repeating the edge.
func GaussianBlur(img *image.Gray, k int) *image.Gray {
	src := utils.CloneGray(img)
	if k <= 1 {
		return src
	}
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	r := k / 2

	if kern, ok := smallGaussianKernel(k); ok {
		// Separable passes with the scale applied once at the end.
		tmp := make([]int32, w*h)
		for y := range h {
			for x := range w {
				var s int32
				for i, c := range kern {
					s += c * int32(src.Pix[y*src.Stride+reflect101(x+i-r, w)])
				}
				tmp[y*w+x] = s
			}
		}
		var norm int32
		for _, c := range kern {
			norm += c
		}
		norm *= norm
		out := image.NewGray(image.Rect(0, 0, w, h))
		for y := range h {
			for x := range w {
				var s int32
				for i, c := range kern {
					s += c * tmp[reflect101(y+i-r, h)*w+x]
				}
				out.Pix[y*w+x] = uint8((s + norm/2) / norm)
			}
		}
		return out
	}

	sigma := 0.3*(float64(k-1)*0.5-1) + 0.8
	kern := make([]float64, k)
	var sum float64
	for i := range kern {
		d := float64(i - r)
		kern[i] = math.Exp(-d * d / (2 * sigma * sigma))
		sum += kern[i]
	}
	for i := range kern {
		kern[i] /= sum
	}
	tmp := make([]float64, w*h)
	for y := range h {
		for x := range w {
			var s float64
			for i, c := range kern {
				s += c * float64(src.Pix[y*src.Stride+reflect101(x+i-r, w)])
			}
			tmp[y*w+x] = s
		}
	}
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			var s float64
			for i, c := range kern {
				s += c * tmp[reflect101(y+i-r, h)*w+x]
			}
			out.Pix[y*w+x] = saturate(math.RoundToEven(s))
		}
	}
	return out
}

func smallGaussianKernel(k int) ([]int32, bool) {
	switch k {
	case 3:
		return []int32{1, 2, 1}, true
	case 5:
		return []int32{1, 4, 6, 4, 1}, true
	case 7:
		return []int32{2, 7, 14, 18, 14, 7, 2}, true
	}
	return nil, false
}

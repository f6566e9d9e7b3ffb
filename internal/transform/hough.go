package transform

import (
	"image"
	"math"
)

const (
	houghAngles = 180 // one-degree theta resolution
	houghShift  = 16
)

// mwcRNG is a multiply-with-carry generator. Seeding it identically makes
// the Hough point order, and therefore the detected segments, reproducible.
type mwcRNG struct{ state uint64 }

func (r *mwcRNG) next() uint32 {
	r.state = uint64(uint32(r.state))*4164903690 + r.state>>32
	return uint32(r.state)
}

// uniform returns an integer in [a, b).
func (r *mwcRNG) uniform(a, b int) int {
	if a == b {
		return a
	}
	return a + int(r.next()%uint32(b-a))
}

// HoughSegments finds line segments in a binary edge map with the
// progressive probabilistic Hough transform (rho 1px, theta 1°). Edge points
// are visited in random order; each votes in the accumulator and once a
// (rho, theta) cell reaches votes the line through the point is walked in
// both directions, tolerating gaps up to maxGap. Segments at least minLength
// long along x or y are kept and their points withdraw their votes.
func HoughSegments(edges *image.Gray, votes, minLength, maxGap int, seed uint64) []Segment {
	w, h := edges.Bounds().Dx(), edges.Bounds().Dy()
	if w == 0 || h == 0 || votes <= 0 {
		return nil
	}
	numrho := int(math.RoundToEven(float64((w+h)*2 + 1)))
	rhoOff := (numrho - 1) / 2
	accum := make([]int32, houghAngles*numrho)

	trig := make([]float32, houghAngles*2)
	theta := math.Pi / houghAngles
	for n := range houghAngles {
		trig[n*2] = float32(math.Cos(float64(n) * theta))
		trig[n*2+1] = float32(math.Sin(float64(n) * theta))
	}
	rhoOf := func(n, x, y int) int {
		r := float32(float32(x)*trig[n*2]) + float32(float32(y)*trig[n*2+1])
		return int(math.RoundToEven(float64(r))) + rhoOff
	}

	mask := make([]bool, w*h)
	var points []image.Point
	for y := range h {
		row := edges.Pix[edges.PixOffset(edges.Bounds().Min.X, edges.Bounds().Min.Y+y):]
		for x := range w {
			if row[x] != 0 {
				mask[y*w+x] = true
				points = append(points, image.Point{X: x, Y: y})
			}
		}
	}

	rng := mwcRNG{state: seed}
	var segs []Segment
	for count := len(points); count > 0; count-- {
		idx := rng.uniform(0, count)
		pt := points[idx]
		points[idx] = points[count-1]

		if !mask[pt.Y*w+pt.X] {
			continue
		}

		maxVal, maxN := votes-1, 0
		for n := range houghAngles {
			r := rhoOf(n, pt.X, pt.Y)
			accum[n*numrho+r]++
			if v := int(accum[n*numrho+r]); v > maxVal {
				maxVal, maxN = v, n
			}
		}
		if maxVal < votes {
			continue
		}

		a := -trig[maxN*2+1]
		b := trig[maxN*2]
		x0, y0 := pt.X, pt.Y
		var dx0, dy0 int
		xflag := abs32f(a) > abs32f(b)
		if xflag {
			dx0 = sign32f(a)
			dy0 = int(math.RoundToEven(float64(b * float32(1<<houghShift) / abs32f(a))))
			y0 = y0<<houghShift + 1<<(houghShift-1)
		} else {
			dy0 = sign32f(b)
			dx0 = int(math.RoundToEven(float64(a * float32(1<<houghShift) / abs32f(b))))
			x0 = x0<<houghShift + 1<<(houghShift-1)
		}
		cell := func(x, y int) (int, int) {
			if xflag {
				return x, y >> houghShift
			}
			return x >> houghShift, y
		}

		var ends [2]image.Point
		for k := range 2 {
			gap := 0
			dx, dy := dx0, dy0
			if k > 0 {
				dx, dy = -dx, -dy
			}
			for x, y := x0, y0; ; x, y = x+dx, y+dy {
				j1, i1 := cell(x, y)
				if j1 < 0 || j1 >= w || i1 < 0 || i1 >= h {
					break
				}
				if mask[i1*w+j1] {
					gap = 0
					ends[k] = image.Point{X: j1, Y: i1}
				} else if gap++; gap > maxGap {
					break
				}
			}
		}

		good := absInt(ends[1].X-ends[0].X) >= minLength || absInt(ends[1].Y-ends[0].Y) >= minLength

		for k := range 2 {
			dx, dy := dx0, dy0
			if k > 0 {
				dx, dy = -dx, -dy
			}
			for x, y := x0, y0; ; x, y = x+dx, y+dy {
				j1, i1 := cell(x, y)
				if mask[i1*w+j1] {
					if good {
						for n := range houghAngles {
							accum[n*numrho+rhoOf(n, j1, i1)]--
						}
					}
					mask[i1*w+j1] = false
				}
				if i1 == ends[k].Y && j1 == ends[k].X {
					break
				}
			}
		}

		if good {
			segs = append(segs, Segment{X1: ends[0].X, Y1: ends[0].Y, X2: ends[1].X, Y2: ends[1].Y})
		}
	}
	return segs
}

func abs32f(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func sign32f(v float32) int {
	if v > 0 {
		return 1
	}
	return -1
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

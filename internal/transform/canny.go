package transform

import (
	"image"

	"github.com/MeKo-Tech/scanprep/internal/utils"
)

// tan(22.5°) in Q15, for sector tests without floating point.
const tg22 = 13573

// Canny returns a binary edge map (255 on edges). Gradients come from 3×3
// Sobel filters with replicated borders and their magnitude is |gx|+|gy|.
// After non-maximum suppression, pixels above high seed edges that grow
// through 8-connected pixels above low.
func Canny(img *image.Gray, low, high float64) *image.Gray {
	src := utils.CloneGray(img)
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	if high < low {
		low, high = high, low
	}
	lo, hi := int32(low), int32(high)

	at := func(x, y int) int32 {
		return int32(src.Pix[utils.ClampInt(y, 0, h-1)*w+utils.ClampInt(x, 0, w-1)])
	}
	gx := make([]int32, w*h)
	gy := make([]int32, w*h)
	// mag has a zero ring so neighbour lookups need no bounds checks.
	mw := w + 2
	mag := make([]int32, mw*(h+2))
	for y := range h {
		for x := range w {
			dx := at(x+1, y-1) + 2*at(x+1, y) + at(x+1, y+1) -
				at(x-1, y-1) - 2*at(x-1, y) - at(x-1, y+1)
			dy := at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1) -
				at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1)
			gx[y*w+x], gy[y*w+x] = dx, dy
			mag[(y+1)*mw+x+1] = abs32(dx) + abs32(dy)
		}
	}

	const (
		edgeNone   = 1
		edgeWeak   = 0
		edgeStrong = 2
	)
	state := make([]uint8, w*h)
	var stack []int
	for y := range h {
		for x := range w {
			i := y*w + x
			m := mag[(y+1)*mw+x+1]
			state[i] = edgeNone
			if m <= lo {
				continue
			}
			if !isLocalMax(mag, mw, x+1, y+1, m, gx[i], gy[i]) {
				continue
			}
			if m > hi {
				state[i] = edgeStrong
				stack = append(stack, i)
			} else {
				state[i] = edgeWeak
			}
		}
	}

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%w, i/w
		for ny := y - 1; ny <= y+1; ny++ {
			for nx := x - 1; nx <= x+1; nx++ {
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				j := ny*w + nx
				if state[j] == edgeWeak {
					state[j] = edgeStrong
					stack = append(stack, j)
				}
			}
		}
	}

	out := image.NewGray(image.Rect(0, 0, w, h))
	for i, s := range state {
		if s == edgeStrong {
			out.Pix[i] = 255
		}
	}
	return out
}

// isLocalMax compares m against its two neighbours across the gradient
// direction, one of horizontal, vertical or a diagonal.
func isLocalMax(mag []int32, mw, x, y int, m, dx, dy int32) bool {
	ax := int64(abs32(dx))
	ay := int64(abs32(dy)) << 15
	t22 := ax * tg22
	if ay < t22 {
		return m > mag[y*mw+x-1] && m >= mag[y*mw+x+1]
	}
	t67 := t22 + ax<<16
	if ay > t67 {
		return m > mag[(y-1)*mw+x] && m >= mag[(y+1)*mw+x]
	}
	s := 1
	if (dx ^ dy) < 0 {
		s = -1
	}
	return m > mag[(y-1)*mw+x-s] && m > mag[(y+1)*mw+x+s]
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

package vision

import (
	"image"
	"image/color"
	"math"
)

// drawLine draws a 1px line with Bresenham's algorithm, clipping to the
// image bounds.
func drawLine(img *image.RGBA, x1, y1, x2, y2 int, c color.RGBA) {
	dx := abs(x2 - x1)
	dy := -abs(y2 - y1)
	sx := 1
	if x1 > x2 {
		sx = -1
	}
	sy := 1
	if y1 > y2 {
		sy = -1
	}
	err := dx + dy
	b := img.Bounds()
	for {
		if image.Pt(x1, y1).In(b) {
			img.SetRGBA(x1, y1, c)
		}
		if x1 == x2 && y1 == y2 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x1 += sx
		}
		if e2 <= dx {
			err += dx
			y1 += sy
		}
	}
}

// drawArrow draws a line with a small head at the tip, used for flow vector
// overlays.
func drawArrow(img *image.RGBA, x1, y1, x2, y2 int, c color.RGBA) {
	drawLine(img, x1, y1, x2, y2, c)

	angle := math.Atan2(float64(y2-y1), float64(x2-x1))
	length := math.Hypot(float64(x2-x1), float64(y2-y1))
	head := length * 0.3
	if head < 2 {
		head = 2
	}
	for _, offset := range [2]float64{math.Pi / 6, -math.Pi / 6} {
		hx := x2 - int(math.Round(head*math.Cos(angle+offset)))
		hy := y2 - int(math.Round(head*math.Sin(angle+offset)))
		drawLine(img, x2, y2, hx, hy, c)
	}
}

// drawCircle draws a 1px circle outline with the midpoint algorithm.
func drawCircle(img *image.RGBA, cx, cy, r int, c color.RGBA) {
	if r <= 0 {
		return
	}
	b := img.Bounds()
	set := func(x, y int) {
		if image.Pt(x, y).In(b) {
			img.SetRGBA(x, y, c)
		}
	}
	x, y := r, 0
	err := 1 - r
	for x >= y {
		set(cx+x, cy+y)
		set(cx-x, cy+y)
		set(cx+x, cy-y)
		set(cx-x, cy-y)
		set(cx+y, cy+x)
		set(cx-y, cy+x)
		set(cx+y, cy-x)
		set(cx-y, cy-x)
		y++
		if err < 0 {
			err += 2*y + 1
		} else {
			x--
			err += 2*(y-x) + 1
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

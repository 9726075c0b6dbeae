package vision

import (
	"math"
)

// FlowField is a dense per-pixel displacement field from a previous frame to
// the current one.
type FlowField struct {
	Width  int
	Height int
	Dx     []float64
	Dy     []float64
}

// At returns the displacement vector at (x, y).
func (ff *FlowField) At(x, y int) (dx, dy float64) {
	i := y*ff.Width + x
	return ff.Dx[i], ff.Dy[i]
}

// MeanVector averages the field to two scalars. A zero-area field yields
// (0, 0).
func (ff *FlowField) MeanVector() (dx, dy float64) {
	n := len(ff.Dx)
	if n == 0 {
		return 0, 0
	}
	var sx, sy float64
	for i := 0; i < n; i++ {
		sx += ff.Dx[i]
		sy += ff.Dy[i]
	}
	return sx / float64(n), sy / float64(n)
}

// FlowEstimator computes a dense displacement field between two frames of
// equal dimensions. Implementations are interchangeable as long as the field
// shape contract holds; the pipeline only consumes the field through
// MeanVector and At.
type FlowEstimator interface {
	Estimate(prev, curr *Frame) (*FlowField, error)
}

// BlockMatcher estimates displacement by exhaustive block matching on the
// luminance plane: for each BlockSize×BlockSize tile of the previous frame it
// searches a ±SearchRadius window in the current frame for the offset with
// the minimum sum of absolute differences, preferring zero displacement on
// ties. All pixels of a tile share the tile's displacement.
type BlockMatcher struct {
	BlockSize    int
	SearchRadius int
}

// DefaultBlockMatcher returns the estimator configuration used by the flow
// pipeline.
func DefaultBlockMatcher() BlockMatcher {
	return BlockMatcher{BlockSize: 16, SearchRadius: 7}
}

// Estimate computes the dense field. Frames of unequal dimensions yield a
// zero field sized to the overlap; this mirrors the degraded-value policy of
// the rest of the per-unit math.
func (bm BlockMatcher) Estimate(prev, curr *Frame) (*FlowField, error) {
	w := min(prev.Width, curr.Width)
	h := min(prev.Height, curr.Height)
	ff := &FlowField{
		Width:  w,
		Height: h,
		Dx:     make([]float64, w*h),
		Dy:     make([]float64, w*h),
	}
	if w == 0 || h == 0 {
		return ff, nil
	}
	if prev.Width != curr.Width || prev.Height != curr.Height {
		return ff, nil
	}

	block := bm.BlockSize
	if block <= 0 {
		block = 16
	}
	radius := bm.SearchRadius
	if radius <= 0 {
		radius = 7
	}

	prevGray := prev.Gray()
	currGray := curr.Gray()

	for by := 0; by < h; by += block {
		for bx := 0; bx < w; bx += block {
			bw := min(block, w-bx)
			bh := min(block, h-by)
			dx, dy := bm.matchBlock(prevGray, currGray, w, h, bx, by, bw, bh, radius)
			for y := by; y < by+bh; y++ {
				for x := bx; x < bx+bw; x++ {
					i := y*w + x
					ff.Dx[i] = float64(dx)
					ff.Dy[i] = float64(dy)
				}
			}
		}
	}
	return ff, nil
}

// matchBlock finds the displacement minimising the SAD between the previous
// block and the shifted current block. The zero offset is evaluated first so
// static content never drifts on ties.
func (bm BlockMatcher) matchBlock(prevGray, currGray []float64, w, h, bx, by, bw, bh, radius int) (int, int) {
	bestDx, bestDy := 0, 0
	bestSAD := blockSAD(prevGray, currGray, w, h, bx, by, bw, bh, 0, 0)
	if bestSAD == 0 {
		return 0, 0
	}
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			sad := blockSAD(prevGray, currGray, w, h, bx, by, bw, bh, dx, dy)
			if sad < bestSAD {
				bestSAD = sad
				bestDx, bestDy = dx, dy
			}
		}
	}
	return bestDx, bestDy
}

// blockSAD sums |prev(x,y) - curr(x+dx,y+dy)| over the block. Shifted pixels
// outside the frame count as maximal mismatch so the search does not favour
// running off the edge.
func blockSAD(prevGray, currGray []float64, w, h, bx, by, bw, bh, dx, dy int) float64 {
	var sad float64
	for y := by; y < by+bh; y++ {
		for x := bx; x < bx+bw; x++ {
			cx, cy := x+dx, y+dy
			if cx < 0 || cx >= w || cy < 0 || cy >= h {
				sad += 255
				continue
			}
			sad += math.Abs(prevGray[y*w+x] - currGray[cy*w+cx])
		}
	}
	return sad
}

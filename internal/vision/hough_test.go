package vision

import (
	"image/color"
	"math"
	"testing"

	"github.com/emberfall/framesight/internal/testutil"
)

func circleOutlinePNG(t *testing.T, w, h, cx, cy int, radius float64) []byte {
	t.Helper()
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	black := color.RGBA{A: 255}
	return testutil.FramePNG(t, w, h, func(x, y int) color.RGBA {
		d := math.Hypot(float64(x-cx), float64(y-cy))
		if math.Abs(d-radius) <= 1.5 {
			return white
		}
		return black
	})
}

func verticalBarPNG(t *testing.T, w, h, x0, width, y0, length int) []byte {
	t.Helper()
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	black := color.RGBA{A: 255}
	return testutil.FramePNG(t, w, h, func(x, y int) color.RGBA {
		if x >= x0 && x < x0+width && y >= y0 && y < y0+length {
			return white
		}
		return black
	})
}

func TestDetectCirclesFindsOutline(t *testing.T) {
	f, err := DecodeFrame(circleOutlinePNG(t, 120, 120, 60, 60, 20))
	if err != nil {
		t.Fatal(err)
	}

	circles := DetectCircles(f, DefaultCircleParams())
	if len(circles) == 0 {
		t.Fatal("expected at least one circle")
	}
	best := circles[0]
	if abs(best.X-60) > 3 || abs(best.Y-60) > 3 {
		t.Errorf("circle center = (%d, %d), want near (60, 60)", best.X, best.Y)
	}
	if best.Radius < 15 || best.Radius > 25 {
		t.Errorf("circle radius = %d, want near 20", best.Radius)
	}
}

func TestDetectCirclesBlankFrame(t *testing.T) {
	f, err := DecodeFrame(testutil.BlackPNG(t, 64, 64))
	if err != nil {
		t.Fatal(err)
	}
	if got := DetectCircles(f, DefaultCircleParams()); len(got) != 0 {
		t.Errorf("blank frame produced %d circles", len(got))
	}
}

func TestDetectLinesFindsVerticalBar(t *testing.T) {
	f, err := DecodeFrame(verticalBarPNG(t, 120, 120, 30, 3, 10, 100))
	if err != nil {
		t.Fatal(err)
	}

	lines := DetectLines(f, DefaultLineParams())
	if len(lines) == 0 {
		t.Fatal("expected at least one line segment")
	}
	// At least one segment should be near-vertical and long.
	found := false
	for _, s := range lines {
		width := abs(s.X2 - s.X1)
		height := abs(s.Y2 - s.Y1)
		if width <= 2 && height >= 50 {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("no long vertical segment among %v", lines)
	}
}

func TestDetectLinesBlankFrame(t *testing.T) {
	f, err := DecodeFrame(testutil.BlackPNG(t, 64, 64))
	if err != nil {
		t.Fatal(err)
	}
	if got := DetectLines(f, DefaultLineParams()); len(got) != 0 {
		t.Errorf("blank frame produced %d lines", len(got))
	}
}

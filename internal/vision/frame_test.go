package vision

import (
	"image/color"
	"math"
	"testing"

	"github.com/emberfall/framesight/internal/testutil"
)

func TestDecodeFrame(t *testing.T) {
	data := testutil.SolidPNG(t, 4, 3, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	f, err := DecodeFrame(data)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if f.Width != 4 || f.Height != 3 {
		t.Fatalf("dims = %dx%d, want 4x3", f.Width, f.Height)
	}
	r, g, b := f.At(2, 1)
	if r != 10 || g != 20 || b != 30 {
		t.Errorf("At(2,1) = (%v, %v, %v), want (10, 20, 30)", r, g, b)
	}
}

func TestDecodeFrameRejectsGarbage(t *testing.T) {
	if _, err := DecodeFrame([]byte("not a png")); err == nil {
		t.Error("expected decode error for garbage bytes")
	}
}

func TestMeanAbsDiff(t *testing.T) {
	a, err := DecodeFrame(testutil.SolidPNG(t, 8, 8, color.RGBA{R: 100, G: 100, B: 100, A: 255}))
	if err != nil {
		t.Fatal(err)
	}
	b, err := DecodeFrame(testutil.SolidPNG(t, 8, 8, color.RGBA{R: 110, G: 100, B: 90, A: 255}))
	if err != nil {
		t.Fatal(err)
	}

	if got := a.MeanAbsDiff(a); got != 0 {
		t.Errorf("MeanAbsDiff(self) = %v, want 0", got)
	}
	// Per-pixel channel diffs are 10, 0, 10; mean over 3 channels is 20/3.
	want := 20.0 / 3.0
	if got := b.MeanAbsDiff(a); math.Abs(got-want) > 1e-9 {
		t.Errorf("MeanAbsDiff = %v, want %v", got, want)
	}
}

func TestGrayWeights(t *testing.T) {
	f, err := DecodeFrame(testutil.SolidPNG(t, 2, 2, color.RGBA{R: 255, A: 255}))
	if err != nil {
		t.Fatal(err)
	}
	gray := f.Gray()
	want := 0.299 * 255
	if math.Abs(gray[0]-want) > 1e-9 {
		t.Errorf("gray of pure red = %v, want %v", gray[0], want)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	f, err := DecodeFrame(testutil.SquarePNG(t, 16, 16, 4, 4, 6))
	if err != nil {
		t.Fatal(err)
	}
	data, err := EncodePNG(f.ToRGBA())
	if err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	g, err := DecodeFrame(data)
	if err != nil {
		t.Fatalf("re-decode: %v", err)
	}
	if g.MeanAbsDiff(f) != 0 {
		t.Error("round trip changed pixel data")
	}
}

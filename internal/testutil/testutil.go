// Package testutil provides shared test fixtures.
//
// This package centralises synthetic frame construction so image-handling
// tests do not each reinvent PNG plumbing.
package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

// PixelFunc returns the colour of the pixel at (x, y).
type PixelFunc func(x, y int) color.RGBA

// FramePNG renders a w×h image from fn and returns it as PNG bytes.
func FramePNG(t *testing.T, w, h int, fn PixelFunc) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, fn(x, y))
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test frame: %v", err)
	}
	return buf.Bytes()
}

// SolidPNG renders a w×h image filled with a single colour.
func SolidPNG(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	return FramePNG(t, w, h, func(int, int) color.RGBA { return c })
}

// BlackPNG renders an all-black (zero-density) frame.
func BlackPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	return SolidPNG(t, w, h, color.RGBA{A: 255})
}

// SquarePNG renders a black frame with a filled white square whose top-left
// corner is at (x0, y0).
func SquarePNG(t *testing.T, w, h, x0, y0, size int) []byte {
	t.Helper()
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	black := color.RGBA{A: 255}
	return FramePNG(t, w, h, func(x, y int) color.RGBA {
		if x >= x0 && x < x0+size && y >= y0 && y < y0+size {
			return white
		}
		return black
	})
}

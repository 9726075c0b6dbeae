// Package vision implements the per-unit image computations: frame decoding,
// dense displacement estimation, density/colour statistics, shape detection,
// and annotated artifact rendering. Everything here is pure per-unit work;
// ordering and aggregation live in the pipeline package.
package vision

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/emberfall/framesight/internal/pipeline"
)

// Frame is a decoded image as float64 RGB planes. Float pixels keep the
// density/delta arithmetic exact for 8-bit sources.
type Frame struct {
	Width  int
	Height int
	// Pix is RGB interleaved, length Width*Height*3.
	Pix []float64
}

// DecodeFrame decodes PNG (or any registered format) bytes into a Frame.
func DecodeFrame(data []byte) (*Frame, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("image decode: %w", err)
	}
	b := img.Bounds()
	f := &Frame{
		Width:  b.Dx(),
		Height: b.Dy(),
		Pix:    make([]float64, b.Dx()*b.Dy()*3),
	}
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			f.Pix[i] = float64(r >> 8)
			f.Pix[i+1] = float64(g >> 8)
			f.Pix[i+2] = float64(bl >> 8)
			i += 3
		}
	}
	return f, nil
}

// Dims returns the frame dimensions in pixels.
func (f *Frame) Dims() (int, int) { return f.Width, f.Height }

// At returns the RGB channels at (x, y).
func (f *Frame) At(x, y int) (r, g, b float64) {
	i := (y*f.Width + x) * 3
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// MeanAbsDiff returns the mean absolute per-channel difference against prev.
// Frames of slightly different size are compared over the overlapping
// region; the tolerance check belongs to the caller.
func (f *Frame) MeanAbsDiff(prev pipeline.FrameData) float64 {
	p, ok := prev.(*Frame)
	if !ok {
		return 0
	}
	w := min(f.Width, p.Width)
	h := min(f.Height, p.Height)
	if w == 0 || h == 0 {
		return 0
	}
	var sum float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			fr, fg, fb := f.At(x, y)
			pr, pg, pb := p.At(x, y)
			sum += absf(fr-pr) + absf(fg-pg) + absf(fb-pb)
		}
	}
	return sum / float64(w*h*3)
}

// Gray converts to a single luminance plane (ITU-R BT.601 weights).
func (f *Frame) Gray() []float64 {
	gray := make([]float64, f.Width*f.Height)
	for i := range gray {
		j := i * 3
		gray[i] = 0.299*f.Pix[j] + 0.587*f.Pix[j+1] + 0.114*f.Pix[j+2]
	}
	return gray
}

// ToRGBA renders the frame into a drawable RGBA image.
func (f *Frame) ToRGBA() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			r, g, b := f.At(x, y)
			img.SetRGBA(x, y, color.RGBA{R: clamp8(r), G: clamp8(g), B: clamp8(b), A: 255})
		}
	}
	return img
}

// EncodePNG serialises an image to PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("png encode: %w", err)
	}
	return buf.Bytes(), nil
}

func clamp8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

var _ pipeline.FrameData = (*Frame)(nil)

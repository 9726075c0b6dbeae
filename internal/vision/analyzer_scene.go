package vision

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"path/filepath"

	"github.com/emberfall/framesight/internal/fsutil"
	"github.com/emberfall/framesight/internal/pipeline"
)

// SceneAnalyzer analyses one frame: active-pixel density, centroid, mean
// colour, and circular/linear feature counts. It writes two artifacts per
// unit (active-pixel heatmap and detection overlay) and retains the decoded
// frame for downstream delta computation.
type SceneAnalyzer struct {
	FS        fsutil.FileSystem
	OutputDir string

	Circles CircleParams
	Lines   LineParams
}

// NewSceneAnalyzer builds a SceneAnalyzer with the default detection
// parameters.
func NewSceneAnalyzer(fs fsutil.FileSystem, outputDir string) *SceneAnalyzer {
	return &SceneAnalyzer{
		FS:        fs,
		OutputDir: outputDir,
		Circles:   DefaultCircleParams(),
		Lines:     DefaultLineParams(),
	}
}

// Analyze implements pipeline.Analyzer for per-frame units.
func (a *SceneAnalyzer) Analyze(ctx context.Context, u pipeline.Unit) (pipeline.UnitResult, error) {
	if err := ctx.Err(); err != nil {
		return pipeline.UnitResult{}, err
	}
	if len(u.Inputs) != 1 {
		return pipeline.UnitResult{}, fmt.Errorf("unit %d: per-frame analysis needs 1 input, got %d", u.Index, len(u.Inputs))
	}

	data, err := a.FS.ReadFile(u.Inputs[0])
	if err != nil {
		return pipeline.UnitResult{}, &pipeline.UnitInputError{Index: u.Index, Path: u.Inputs[0], Err: err}
	}
	f, err := DecodeFrame(data)
	if err != nil {
		return pipeline.UnitResult{}, &pipeline.UnitInputError{Index: u.Index, Path: u.Inputs[0], Err: err}
	}

	res := pipeline.UnitResult{Index: u.Index, Frame: f}
	mask := activeMask(f)
	res.Density, res.CentroidX, res.CentroidY, res.MeanColor = maskStats(f, mask)

	circles := DetectCircles(f, a.Circles)
	lines := DetectLines(f, a.Lines)
	res.Circles = len(circles)
	res.Lines = len(lines)

	res.HeatmapPath, err = a.writeHeatmap(u.Index, f, mask)
	if err != nil {
		return pipeline.UnitResult{}, err
	}
	res.ArtifactPath, err = a.writeDetections(u.Index, f, circles, lines)
	if err != nil {
		return pipeline.UnitResult{}, err
	}
	return res, nil
}

// activeMask marks pixels whose per-channel maximum exceeds zero.
func activeMask(f *Frame) []bool {
	mask := make([]bool, f.Width*f.Height)
	for i := range mask {
		j := i * 3
		if f.Pix[j] > 0 || f.Pix[j+1] > 0 || f.Pix[j+2] > 0 {
			mask[i] = true
		}
	}
	return mask
}

// maskStats computes density, centroid, and mean colour over active pixels.
// An all-dark frame yields zero density with (0,0) centroid and (0,0,0)
// colour; this is the degenerate-value policy, not an error.
func maskStats(f *Frame, mask []bool) (density int, cx, cy float64, meanColor [3]float64) {
	var sumX, sumY float64
	var sumC [3]float64
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			if !mask[y*f.Width+x] {
				continue
			}
			density++
			sumX += float64(x)
			sumY += float64(y)
			r, g, b := f.At(x, y)
			sumC[0] += r
			sumC[1] += g
			sumC[2] += b
		}
	}
	if density == 0 {
		return 0, 0, 0, [3]float64{}
	}
	n := float64(density)
	return density, sumX / n, sumY / n, [3]float64{sumC[0] / n, sumC[1] / n, sumC[2] / n}
}

// writeHeatmap renders the active-pixel mask and writes it under heatmaps/.
func (a *SceneAnalyzer) writeHeatmap(index int, f *Frame, mask []bool) (string, error) {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	hot := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			if mask[y*f.Width+x] {
				img.SetRGBA(x, y, hot)
			}
		}
	}
	return a.writeArtifact(index, "heatmaps", "heatmap", img)
}

// writeDetections draws detected circles (red) and segments (blue) over the
// frame and writes the overlay under detections/.
func (a *SceneAnalyzer) writeDetections(index int, f *Frame, circles []Circle, lines []Segment) (string, error) {
	img := f.ToRGBA()
	red := color.RGBA{R: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}
	for _, c := range circles {
		drawCircle(img, c.X, c.Y, c.Radius, red)
	}
	for _, s := range lines {
		drawLine(img, s.X1, s.Y1, s.X2, s.Y2, blue)
	}
	return a.writeArtifact(index, "detections", "detections", img)
}

func (a *SceneAnalyzer) writeArtifact(index int, subdir, prefix string, img *image.RGBA) (string, error) {
	dir := filepath.Join(a.OutputDir, subdir)
	if err := a.FS.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("unit %d: create artifact dir: %w", index, err)
	}
	data, err := EncodePNG(img)
	if err != nil {
		return "", fmt.Errorf("unit %d: %w", index, err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%03d.png", prefix, index))
	if err := a.FS.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("unit %d: write artifact: %w", index, err)
	}
	return path, nil
}

var _ pipeline.Analyzer = (*SceneAnalyzer)(nil)

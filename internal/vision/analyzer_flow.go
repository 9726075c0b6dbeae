package vision

import (
	"context"
	"fmt"
	"image/color"
	"math"
	"path/filepath"

	"github.com/emberfall/framesight/internal/fsutil"
	"github.com/emberfall/framesight/internal/pipeline"
)

// FlowAnalyzer analyses one adjacent frame pair: it estimates the dense
// displacement field, reduces it to mean speed and direction, and writes an
// arrow-overlay artifact. It carries no mutable state and is safe for
// concurrent use across units.
type FlowAnalyzer struct {
	FS        fsutil.FileSystem
	Estimator FlowEstimator
	OutputDir string

	// VectorSpacing is the pixel stride between drawn arrows.
	VectorSpacing int
	// IntensityScale maps displacement magnitude to arrow colour intensity.
	IntensityScale float64
}

// Analyze implements pipeline.Analyzer for pairwise units.
func (a *FlowAnalyzer) Analyze(ctx context.Context, u pipeline.Unit) (pipeline.UnitResult, error) {
	if err := ctx.Err(); err != nil {
		return pipeline.UnitResult{}, err
	}
	if len(u.Inputs) != 2 {
		return pipeline.UnitResult{}, fmt.Errorf("unit %d: pairwise analysis needs 2 inputs, got %d", u.Index, len(u.Inputs))
	}

	prev, err := a.loadFrame(u.Index, u.Inputs[0])
	if err != nil {
		return pipeline.UnitResult{}, err
	}
	curr, err := a.loadFrame(u.Index, u.Inputs[1])
	if err != nil {
		return pipeline.UnitResult{}, err
	}

	field, err := a.Estimator.Estimate(prev, curr)
	if err != nil {
		return pipeline.UnitResult{}, fmt.Errorf("unit %d: flow estimation: %w", u.Index, err)
	}

	meanDx, meanDy := field.MeanVector()
	speed := math.Hypot(meanDx, meanDy)
	// atan2(0, 0) = 0 keeps the angle well-defined for a zero mean vector.
	angleDeg := math.Atan2(meanDy, meanDx) * 180 / math.Pi

	artifact, err := a.writeAnnotated(u.Index, curr, field)
	if err != nil {
		return pipeline.UnitResult{}, err
	}

	return pipeline.UnitResult{
		Index:        u.Index,
		Speed:        speed,
		AngleDeg:     angleDeg,
		ArtifactPath: artifact,
	}, nil
}

func (a *FlowAnalyzer) loadFrame(index int, path string) (*Frame, error) {
	data, err := a.FS.ReadFile(path)
	if err != nil {
		return nil, &pipeline.UnitInputError{Index: index, Path: path, Err: err}
	}
	f, err := DecodeFrame(data)
	if err != nil {
		return nil, &pipeline.UnitInputError{Index: index, Path: path, Err: err}
	}
	return f, nil
}

// writeAnnotated renders the flow arrows over the current frame and writes
// the artifact under annotated/. The zero-padded index keeps paths disjoint
// across concurrent workers.
func (a *FlowAnalyzer) writeAnnotated(index int, curr *Frame, field *FlowField) (string, error) {
	spacing := a.VectorSpacing
	if spacing <= 0 {
		spacing = 16
	}
	scale := a.IntensityScale
	if scale <= 0 {
		scale = 10
	}

	img := curr.ToRGBA()
	for y := 0; y < field.Height; y += spacing {
		for x := 0; x < field.Width; x += spacing {
			dx, dy := field.At(x, y)
			mag := math.Hypot(dx, dy)
			cval := int(mag * scale)
			if cval > 255 {
				cval = 255
			}
			if cval == 0 {
				continue
			}
			arrowColor := color.RGBA{R: uint8(255 - cval), G: uint8(cval), B: 0, A: 255}
			drawArrow(img, x, y, x+int(math.Round(dx)), y+int(math.Round(dy)), arrowColor)
		}
	}

	dir := filepath.Join(a.OutputDir, "annotated")
	if err := a.FS.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("unit %d: create artifact dir: %w", index, err)
	}
	data, err := EncodePNG(img)
	if err != nil {
		return "", fmt.Errorf("unit %d: %w", index, err)
	}
	path := filepath.Join(dir, fmt.Sprintf("annotated_%03d.png", index))
	if err := a.FS.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("unit %d: write artifact: %w", index, err)
	}
	return path, nil
}

var _ pipeline.Analyzer = (*FlowAnalyzer)(nil)

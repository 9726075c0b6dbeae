package vision

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/emberfall/framesight/internal/fsutil"
	"github.com/emberfall/framesight/internal/pipeline"
	"github.com/emberfall/framesight/internal/testutil"
)

func TestSceneAnalyzerSquareStats(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	if err := fs.WriteFile("in/frame.png", testutil.SquarePNG(t, 40, 40, 5, 5, 10), 0644); err != nil {
		t.Fatal(err)
	}

	a := NewSceneAnalyzer(fs, "out")
	res, err := a.Analyze(context.Background(), pipeline.Unit{Index: 0, Inputs: []string{"in/frame.png"}})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if res.Density != 100 {
		t.Errorf("Density = %d, want 100", res.Density)
	}
	// Active columns/rows are 5..14; their mean is 9.5.
	if math.Abs(res.CentroidX-9.5) > 1e-9 || math.Abs(res.CentroidY-9.5) > 1e-9 {
		t.Errorf("centroid = (%v, %v), want (9.5, 9.5)", res.CentroidX, res.CentroidY)
	}
	for ch, v := range res.MeanColor {
		if v != 255 {
			t.Errorf("MeanColor[%d] = %v, want 255", ch, v)
		}
	}
	if res.Frame == nil {
		t.Error("Frame must be retained for delta computation")
	}

	if res.HeatmapPath != "out/heatmaps/heatmap_000.png" {
		t.Errorf("HeatmapPath = %q", res.HeatmapPath)
	}
	if res.ArtifactPath != "out/detections/detections_000.png" {
		t.Errorf("ArtifactPath = %q", res.ArtifactPath)
	}
	for _, p := range []string{res.HeatmapPath, res.ArtifactPath} {
		if !fs.Exists(p) {
			t.Errorf("artifact %s was not written", p)
		}
	}
}

func TestSceneAnalyzerDarkFrameDegenerateValues(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	if err := fs.WriteFile("in/dark.png", testutil.BlackPNG(t, 32, 32), 0644); err != nil {
		t.Fatal(err)
	}

	a := NewSceneAnalyzer(fs, "out")
	res, err := a.Analyze(context.Background(), pipeline.Unit{Index: 3, Inputs: []string{"in/dark.png"}})
	if err != nil {
		t.Fatalf("Analyze should absorb the empty mask, got %v", err)
	}

	if res.Density != 0 {
		t.Errorf("Density = %d, want 0", res.Density)
	}
	if res.CentroidX != 0 || res.CentroidY != 0 {
		t.Errorf("centroid = (%v, %v), want (0, 0)", res.CentroidX, res.CentroidY)
	}
	if res.MeanColor != [3]float64{} {
		t.Errorf("MeanColor = %v, want zeros", res.MeanColor)
	}
	if res.Circles != 0 || res.Lines != 0 {
		t.Errorf("detections = (%d circles, %d lines), want none", res.Circles, res.Lines)
	}
	if res.HeatmapPath != "out/heatmaps/heatmap_003.png" {
		t.Errorf("HeatmapPath = %q, want zero-padded index 3", res.HeatmapPath)
	}
}

func TestSceneAnalyzerDecodeFailure(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	if err := fs.WriteFile("in/bad.png", []byte("nope"), 0644); err != nil {
		t.Fatal(err)
	}

	a := NewSceneAnalyzer(fs, "out")
	_, err := a.Analyze(context.Background(), pipeline.Unit{Index: 5, Inputs: []string{"in/bad.png"}})
	var uerr *pipeline.UnitInputError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected *pipeline.UnitInputError, got %v", err)
	}
	if uerr.Index != 5 {
		t.Errorf("failing index = %d, want 5", uerr.Index)
	}
}

func TestScenePipelineDeltasAndAlerts(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	// Frame 0 and 2 are identical; frame 1 is dark.
	bright := testutil.SquarePNG(t, 40, 40, 5, 5, 20)
	dark := testutil.BlackPNG(t, 40, 40)
	for i, data := range [][]byte{bright, dark, bright} {
		if err := fs.WriteFile(fmt.Sprintf("in/screenshot_%03d.png", i), data, 0644); err != nil {
			t.Fatal(err)
		}
	}

	ix := &pipeline.FrameIndexer{FS: fs, Dir: "in", Pattern: "screenshot_*.png"}
	units, err := ix.Units(pipeline.PerFrame)
	if err != nil {
		t.Fatalf("Units: %v", err)
	}

	d := &pipeline.Dispatcher{Analyzer: NewSceneAnalyzer(fs, "out"), Workers: 3}
	results, err := d.Run(context.Background(), units)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	frames := make([]pipeline.FrameData, len(results))
	for i, r := range results {
		frames[i] = r.Frame
	}
	deltas, warnings := pipeline.Deltas(frames, 50)
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	if deltas[0] != 0 {
		t.Errorf("deltas[0] = %v, want 0", deltas[0])
	}
	if deltas[1] <= 0 || deltas[2] <= 0 {
		t.Errorf("deltas for changing frames = %v, want > 0", deltas[1:])
	}
	if math.Abs(deltas[1]-deltas[2]) > 1e-9 {
		t.Errorf("symmetric change should give equal deltas, got %v and %v", deltas[1], deltas[2])
	}

	alerts := pipeline.Alerts(pipeline.Densities(results), deltas,
		pipeline.AlertBand{DensityMin: 100, DensityMax: 100000, DeltaCeiling: 1000})
	if alerts[1] != "density out of bounds" {
		t.Errorf("alerts[1] = %q, want density alert for the dark frame", alerts[1])
	}
	if alerts[0] != "" || alerts[2] != "" {
		t.Errorf("unexpected alerts: %v", alerts)
	}
}

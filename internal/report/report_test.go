package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/emberfall/framesight/internal/fsutil"
	"github.com/emberfall/framesight/internal/pipeline"
)

func sceneData() Data {
	results := []pipeline.UnitResult{
		{Index: 0, Density: 50000, CentroidX: 10, CentroidY: 20, MeanColor: [3]float64{200, 100, 50}, Circles: 2, Lines: 3},
		{Index: 1, Density: 3000, CentroidX: 12, CentroidY: 22, Circles: 0, Lines: 1},
		{Index: 2, Density: 52000, CentroidX: 14, CentroidY: 24, MeanColor: [3]float64{180, 90, 40}, Circles: 1, Lines: 2},
	}
	circles, lines := pipeline.EventCounts(results)
	corr, lags := pipeline.CrossCorrelate(circles, lines)
	return Data{
		Mode:    pipeline.PerFrame,
		Results: results,
		Series: pipeline.DerivedSeries{
			Deltas:      []float64{0, 4.2, 4.2},
			Alerts:      []string{"", "density out of bounds", ""},
			Correlation: corr,
			Lags:        lags,
			BestLag:     pipeline.BestLag(corr, lags),
		},
		FrameRate: 60,
	}
}

func flowData() Data {
	results := []pipeline.UnitResult{
		{Index: 0, Speed: 1.5, AngleDeg: 10},
		{Index: 1, Speed: 2.5, AngleDeg: 15},
		{Index: 2, Speed: 2.0, AngleDeg: 12},
	}
	speeds := pipeline.Speeds(results)
	return Data{
		Mode:    pipeline.Pairwise,
		Results: results,
		Series: pipeline.DerivedSeries{
			Accelerations: pipeline.Accelerations(speeds, 60),
			MeanSpeed:     pipeline.MeanSpeed(speeds),
		},
		FrameRate: 60,
	}
}

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestWritePlotsScene(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	s := &Sink{FS: fs, OutputDir: "out/report"}

	paths, err := s.WritePlots(sceneData())
	if err != nil {
		t.Fatalf("WritePlots: %v", err)
	}
	if len(paths) != 6 {
		t.Fatalf("got %d plots, want 6", len(paths))
	}
	for _, p := range paths {
		data, err := fs.ReadFile(p)
		if err != nil {
			t.Fatalf("ReadFile(%s): %v", p, err)
		}
		if !bytes.HasPrefix(data, pngMagic) {
			t.Errorf("%s is not a PNG", p)
		}
	}
}

func TestWritePlotsFlow(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	s := &Sink{FS: fs, OutputDir: "out/report"}

	paths, err := s.WritePlots(flowData())
	if err != nil {
		t.Fatalf("WritePlots: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("got %d plots, want 3", len(paths))
	}
	if !fs.Exists("out/report/speed.png") {
		t.Error("speed plot missing")
	}
	if !fs.Exists("out/report/acceleration.png") {
		t.Error("acceleration plot missing")
	}
	if !fs.Exists("out/report/directions.png") {
		t.Error("direction histogram missing")
	}
}

func TestWriteHTMLSceneContainsTable(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	s := &Sink{FS: fs, OutputDir: "out/report"}

	path, err := s.WriteHTML(sceneData())
	if err != nil {
		t.Fatalf("WriteHTML: %v", err)
	}
	if path != "out/report/report.html" {
		t.Errorf("path = %q", path)
	}
	data, err := fs.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	doc := string(data)
	for _, want := range []string{"<table", "density out of bounds", "Active-pixel density", "</body>"} {
		if !strings.Contains(doc, want) {
			t.Errorf("report page missing %q", want)
		}
	}
	// The table must land inside the document, not after it.
	if strings.Index(doc, "<table") > strings.Index(doc, "</body>") {
		t.Error("unit table was appended after the closing body tag")
	}
}

func TestWriteHTMLFlowContainsSpeeds(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	s := &Sink{FS: fs, OutputDir: "out/report"}

	path, err := s.WriteHTML(flowData())
	if err != nil {
		t.Fatalf("WriteHTML: %v", err)
	}
	data, err := fs.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	doc := string(data)
	for _, want := range []string{"Mean speed", "Acceleration", "<th>Pair</th>"} {
		if !strings.Contains(doc, want) {
			t.Errorf("report page missing %q", want)
		}
	}
}

// Package report renders the pipeline's ordered results and derived series
// into PNG plots and an HTML report. It consumes finalized in-memory
// structures only; it never influences how the pipeline runs.
package report

import (
	"bytes"
	"fmt"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/emberfall/framesight/internal/fsutil"
	"github.com/emberfall/framesight/internal/pipeline"
)

// Sink writes report artifacts for one run.
type Sink struct {
	FS        fsutil.FileSystem
	OutputDir string
}

// Data is everything the sink needs from a finished run.
type Data struct {
	Mode      pipeline.Mode
	Results   []pipeline.UnitResult
	Series    pipeline.DerivedSeries
	FrameRate float64
}

// WritePlots renders the PNG plots for the run mode and returns the written
// paths. Flow runs get speed, acceleration, and direction-histogram plots;
// scene runs get density/delta, event-count, correlation, centroid
// trajectory, and colour-evolution plots.
func (s *Sink) WritePlots(d Data) ([]string, error) {
	if err := s.FS.MkdirAll(s.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}
	if d.Mode == pipeline.Pairwise {
		return s.writeFlowPlots(d)
	}
	return s.writeScenePlots(d)
}

func (s *Sink) writeFlowPlots(d Data) ([]string, error) {
	speeds := pipeline.Speeds(d.Results)

	pSpeed := plot.New()
	pSpeed.Title.Text = "Mean speed per frame pair"
	pSpeed.X.Label.Text = "Time (s)"
	pSpeed.Y.Label.Text = "Speed (px/frame)"
	if err := addTimeLine(pSpeed, speeds, d.FrameRate); err != nil {
		return nil, err
	}

	pAccel := plot.New()
	pAccel.Title.Text = "Acceleration per frame pair"
	pAccel.X.Label.Text = "Time (s)"
	pAccel.Y.Label.Text = "Acceleration (px/s²)"
	if err := addTimeLine(pAccel, d.Series.Accelerations, d.FrameRate); err != nil {
		return nil, err
	}

	pAngles := plot.New()
	pAngles.Title.Text = "Direction histogram"
	pAngles.X.Label.Text = "Angle (°)"
	pAngles.Y.Label.Text = "Occurrences"
	angles := make(plotter.Values, len(d.Results))
	for i, r := range d.Results {
		angles[i] = r.AngleDeg
	}
	hist, err := plotter.NewHist(angles, 36)
	if err != nil {
		return nil, fmt.Errorf("direction histogram: %w", err)
	}
	pAngles.Add(hist)

	return s.savePlots(map[string]*plot.Plot{
		"speed.png":        pSpeed,
		"acceleration.png": pAccel,
		"directions.png":   pAngles,
	})
}

func (s *Sink) writeScenePlots(d Data) ([]string, error) {
	densities := pipeline.Densities(d.Results)
	circles, lines := pipeline.EventCounts(d.Results)

	pDensity := plot.New()
	pDensity.Title.Text = "Active-pixel density per frame"
	pDensity.X.Label.Text = "Frame"
	pDensity.Y.Label.Text = "Density (px)"
	dvals := make([]float64, len(densities))
	for i, v := range densities {
		dvals[i] = float64(v)
	}
	if err := addIndexLine(pDensity, "density", dvals); err != nil {
		return nil, err
	}

	pDelta := plot.New()
	pDelta.Title.Text = "Frame-to-frame delta"
	pDelta.X.Label.Text = "Frame"
	pDelta.Y.Label.Text = "Mean |Δ|"
	if err := addIndexLine(pDelta, "delta", d.Series.Deltas); err != nil {
		return nil, err
	}

	pEvents := plot.New()
	pEvents.Title.Text = "Detected events per frame"
	pEvents.X.Label.Text = "Frame"
	pEvents.Y.Label.Text = "Count"
	if err := addIndexLine(pEvents, "circular", intsToFloats(circles)); err != nil {
		return nil, err
	}
	if err := addIndexLine(pEvents, "linear", intsToFloats(lines)); err != nil {
		return nil, err
	}

	pCorr := plot.New()
	pCorr.Title.Text = fmt.Sprintf("Cross-correlation (best lag = %d frames)", d.Series.BestLag)
	pCorr.X.Label.Text = "Lag (frames)"
	pCorr.Y.Label.Text = "Correlation"
	corrPts := make(plotter.XYs, len(d.Series.Correlation))
	for i := range d.Series.Correlation {
		corrPts[i] = plotter.XY{X: float64(d.Series.Lags[i]), Y: d.Series.Correlation[i]}
	}
	if len(corrPts) > 0 {
		line, err := plotter.NewLine(corrPts)
		if err != nil {
			return nil, fmt.Errorf("correlation line: %w", err)
		}
		line.Width = vg.Points(1)
		pCorr.Add(line)
		pCorr.Legend.Add("correlation", line)
	}

	pCentroid := plot.New()
	pCentroid.Title.Text = "Centroid trajectory"
	pCentroid.X.Label.Text = "X centroid"
	pCentroid.Y.Label.Text = "Y centroid"
	centroidPts := make(plotter.XYs, len(d.Results))
	for i, r := range d.Results {
		centroidPts[i] = plotter.XY{X: r.CentroidX, Y: r.CentroidY}
	}
	if len(centroidPts) > 0 {
		line, pts, err := plotter.NewLinePoints(centroidPts)
		if err != nil {
			return nil, fmt.Errorf("centroid trajectory: %w", err)
		}
		pCentroid.Add(line, pts)
	}

	pColor := plot.New()
	pColor.Title.Text = "Mean colour evolution"
	pColor.X.Label.Text = "Frame"
	pColor.Y.Label.Text = "Mean intensity"
	for ch, name := range [3]string{"R", "G", "B"} {
		vals := make([]float64, len(d.Results))
		for i, r := range d.Results {
			vals[i] = r.MeanColor[ch]
		}
		if err := addIndexLine(pColor, name, vals); err != nil {
			return nil, err
		}
	}

	return s.savePlots(map[string]*plot.Plot{
		"density.png":             pDensity,
		"delta.png":               pDelta,
		"events.png":              pEvents,
		"correlation.png":         pCorr,
		"centroid_trajectory.png": pCentroid,
		"color_evolution.png":     pColor,
	})
}

// savePlots renders each plot to PNG via the filesystem abstraction so tests
// can run against the in-memory filesystem.
func (s *Sink) savePlots(plots map[string]*plot.Plot) ([]string, error) {
	paths := make([]string, 0, len(plots))
	for name, p := range plots {
		wt, err := p.WriterTo(8*vg.Inch, 5*vg.Inch, "png")
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", name, err)
		}
		var buf bytes.Buffer
		if _, err := wt.WriteTo(&buf); err != nil {
			return nil, fmt.Errorf("render %s: %w", name, err)
		}
		path := filepath.Join(s.OutputDir, name)
		if err := s.FS.WriteFile(path, buf.Bytes(), 0644); err != nil {
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func addTimeLine(p *plot.Plot, vals []float64, frameRate float64) error {
	pts := make(plotter.XYs, len(vals))
	for i, v := range vals {
		pts[i] = plotter.XY{X: float64(i) / frameRate, Y: v}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("plot line: %w", err)
	}
	line.Width = vg.Points(1)
	p.Add(line)
	return nil
}

func addIndexLine(p *plot.Plot, name string, vals []float64) error {
	pts := make(plotter.XYs, len(vals))
	for i, v := range vals {
		pts[i] = plotter.XY{X: float64(i), Y: v}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("plot line %s: %w", name, err)
	}
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add(name, line)
	return nil
}

func intsToFloats(in []int) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

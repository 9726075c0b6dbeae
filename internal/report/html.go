package report

import (
	"bytes"
	"fmt"
	"html"
	"path/filepath"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/emberfall/framesight/internal/pipeline"
)

// WriteHTML renders the interactive report page and returns its path. The
// page carries one chart per derived series plus a per-unit table appended
// before the closing body tag.
func (s *Sink) WriteHTML(d Data) (string, error) {
	if err := s.FS.MkdirAll(s.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	page := components.NewPage()
	page.PageTitle = "Frame analysis report"

	if d.Mode == pipeline.Pairwise {
		page.AddCharts(
			seriesLine("Mean speed", "px/frame", pipeline.Speeds(d.Results)),
			seriesLine("Acceleration", "px/s²", d.Series.Accelerations),
		)
	} else {
		densities := pipeline.Densities(d.Results)
		circles, lines := pipeline.EventCounts(d.Results)
		page.AddCharts(
			seriesLine("Active-pixel density", "px", intsToFloats(densities)),
			seriesLine("Frame delta", "mean |Δ|", d.Series.Deltas),
			eventScatter(circles, lines),
			correlationLine(d.Series),
		)
	}

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return "", fmt.Errorf("render report page: %w", err)
	}

	doc := strings.Replace(buf.String(), "</body>", unitTable(d)+"\n</body>", 1)

	path := filepath.Join(s.OutputDir, "report.html")
	if err := s.FS.WriteFile(path, []byte(doc), 0644); err != nil {
		return "", fmt.Errorf("write report page: %w", err)
	}
	return path, nil
}

func seriesLine(title, unit string, vals []float64) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: unit}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	x := make([]int, len(vals))
	y := make([]opts.LineData, len(vals))
	for i, v := range vals {
		x[i] = i
		y[i] = opts.LineData{Value: v}
	}
	line.SetXAxis(x).AddSeries(title, y)
	return line
}

func eventScatter(circles, lines []int) *charts.Scatter {
	sc := charts.NewScatter()
	sc.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Detected events", Subtitle: "per frame"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	x := make([]int, len(circles))
	cd := make([]opts.ScatterData, len(circles))
	ld := make([]opts.ScatterData, len(lines))
	for i := range circles {
		x[i] = i
		cd[i] = opts.ScatterData{Value: circles[i]}
		ld[i] = opts.ScatterData{Value: lines[i]}
	}
	sc.SetXAxis(x).
		AddSeries("circular", cd).
		AddSeries("linear", ld)
	return sc
}

func correlationLine(s pipeline.DerivedSeries) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Event cross-correlation",
			Subtitle: fmt.Sprintf("best lag %d frames", s.BestLag),
		}),
	)
	y := make([]opts.LineData, len(s.Correlation))
	for i, v := range s.Correlation {
		y[i] = opts.LineData{Value: v}
	}
	line.SetXAxis(s.Lags).AddSeries("correlation", y)
	return line
}

// unitTable renders the per-unit numbers as a plain HTML table. Chart pages
// are for shape; the table is for exact values and artifact locations.
func unitTable(d Data) string {
	var b strings.Builder
	b.WriteString(`<div class="container"><table border="1" cellpadding="4" cellspacing="0">`)
	if d.Mode == pipeline.Pairwise {
		b.WriteString("<tr><th>Pair</th><th>Speed</th><th>Angle (°)</th><th>Acceleration</th><th>Artifact</th></tr>")
		for i, r := range d.Results {
			accel := 0.0
			if i < len(d.Series.Accelerations) {
				accel = d.Series.Accelerations[i]
			}
			fmt.Fprintf(&b, "<tr><td>%d</td><td>%.3f</td><td>%.1f</td><td>%.3f</td><td>%s</td></tr>",
				r.Index, r.Speed, r.AngleDeg, accel, html.EscapeString(r.ArtifactPath))
		}
	} else {
		b.WriteString("<tr><th>Frame</th><th>Density</th><th>Centroid</th><th>Mean color</th><th>Circles</th><th>Lines</th><th>Delta</th><th>Alert</th></tr>")
		for i, r := range d.Results {
			delta := 0.0
			if i < len(d.Series.Deltas) {
				delta = d.Series.Deltas[i]
			}
			alert := ""
			if i < len(d.Series.Alerts) {
				alert = d.Series.Alerts[i]
			}
			fmt.Fprintf(&b, "<tr><td>%d</td><td>%d</td><td>(%.1f, %.1f)</td><td>(%.0f, %.0f, %.0f)</td><td>%d</td><td>%d</td><td>%.3f</td><td>%s</td></tr>",
				r.Index, r.Density, r.CentroidX, r.CentroidY,
				r.MeanColor[0], r.MeanColor[1], r.MeanColor[2],
				r.Circles, r.Lines, delta, html.EscapeString(alert))
		}
	}
	b.WriteString("</table></div>")
	return b.String()
}

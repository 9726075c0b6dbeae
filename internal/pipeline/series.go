package pipeline

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/emberfall/framesight/internal/monitoring"
)

// DerivedSeries holds the pipeline-level time series computed from a
// finalized ordered result set. All slices are aligned 1:1 with result
// positions. Computed once; read-only thereafter.
type DerivedSeries struct {
	Accelerations []float64
	Deltas        []float64
	Alerts        []string
	Warnings      []string

	Correlation []float64
	Lags        []int
	BestLag     int

	MeanSpeed float64
}

// Speeds extracts the per-unit speed series from ordered results.
func Speeds(results []UnitResult) []float64 {
	out := make([]float64, len(results))
	for i, r := range results {
		out[i] = r.Speed
	}
	return out
}

// Densities extracts the per-unit density series from ordered results.
func Densities(results []UnitResult) []int {
	out := make([]int, len(results))
	for i, r := range results {
		out[i] = r.Density
	}
	return out
}

// EventCounts extracts the circle and line count series from ordered results.
func EventCounts(results []UnitResult) (circles, lines []int) {
	circles = make([]int, len(results))
	lines = make([]int, len(results))
	for i, r := range results {
		circles[i] = r.Circles
		lines[i] = r.Lines
	}
	return circles, lines
}

// Accelerations differentiates the speed series with a central-difference
// gradient (one-sided at the endpoints) and scales by the frame rate to
// convert px/frame² to px/s². Fewer than 2 points yields all zeros.
func Accelerations(speeds []float64, frameRate float64) []float64 {
	n := len(speeds)
	accel := make([]float64, n)
	if n < 2 {
		return accel
	}
	accel[0] = (speeds[1] - speeds[0]) * frameRate
	for i := 1; i < n-1; i++ {
		accel[i] = (speeds[i+1] - speeds[i-1]) / 2 * frameRate
	}
	accel[n-1] = (speeds[n-1] - speeds[n-2]) * frameRate
	return accel
}

// Deltas computes the per-index mean absolute pixel difference against the
// previous frame. Index 0 is always 0. When consecutive frames differ by
// more than tolerancePx in either axis the delta is defined as 0 and a
// warning is recorded; this is a degraded-mode policy, not a failure.
func Deltas(frames []FrameData, tolerancePx int) (deltas []float64, warnings []string) {
	deltas = make([]float64, len(frames))
	for i := 1; i < len(frames); i++ {
		prev, curr := frames[i-1], frames[i]
		if prev == nil || curr == nil {
			continue
		}
		pw, ph := prev.Dims()
		cw, ch := curr.Dims()
		if abs(pw-cw) > tolerancePx || abs(ph-ch) > tolerancePx {
			msg := warnDimensionMismatch(i-1, i)
			monitoring.Warnf("%s", msg)
			warnings = append(warnings, msg)
			continue
		}
		deltas[i] = curr.MeanAbsDiff(prev)
	}
	return deltas, warnings
}

func warnDimensionMismatch(a, b int) string {
	return fmt.Sprintf("skipping delta for frames %d and %d (dimension mismatch)", a, b)
}

// AlertBand bounds the expected density and delta ranges for alerting.
type AlertBand struct {
	DensityMin   int
	DensityMax   int
	DeltaCeiling float64
}

// Alerts flags each index whose density falls strictly outside the band or
// whose delta strictly exceeds the ceiling. Both conditions are independent
// and concatenate when they co-occur. The returned slice is aligned with the
// inputs; indices without alerts hold "".
func Alerts(densities []int, deltas []float64, band AlertBand) []string {
	alerts := make([]string, len(densities))
	for i := range densities {
		var parts []string
		if densities[i] < band.DensityMin || densities[i] > band.DensityMax {
			parts = append(parts, "density out of bounds")
		}
		if i < len(deltas) && deltas[i] > band.DeltaCeiling {
			parts = append(parts, "delta too high")
		}
		alerts[i] = strings.Join(parts, "; ")
	}
	return alerts
}

// CrossCorrelate computes the full cross-correlation of the mean-centered
// series a and b over every overlap lag from -(n-1) to n-1. A positive lag
// means a trails b by that many positions. Both series must have the same
// length; an empty result is returned otherwise.
func CrossCorrelate(a, b []int) (corr []float64, lags []int) {
	n := len(a)
	if n == 0 || n != len(b) {
		return nil, nil
	}

	ca := centered(a)
	cb := centered(b)

	corr = make([]float64, 2*n-1)
	lags = make([]int, 2*n-1)
	for k := 0; k < 2*n-1; k++ {
		lag := k - (n - 1)
		lags[k] = lag
		var sum float64
		for i := 0; i < n; i++ {
			j := i - lag
			if j < 0 || j >= n {
				continue
			}
			sum += ca[i] * cb[j]
		}
		corr[k] = sum
	}
	return corr, lags
}

// BestLag returns the lag at which the correlation is maximal: the
// best-estimated phase offset between the two series. Ties resolve to the
// most negative lag. Zero is returned for empty input.
func BestLag(corr []float64, lags []int) int {
	if len(corr) == 0 {
		return 0
	}
	best := 0
	for i := 1; i < len(corr); i++ {
		if corr[i] > corr[best] {
			best = i
		}
	}
	return lags[best]
}

func centered(s []int) []float64 {
	out := make([]float64, len(s))
	for i, v := range s {
		out[i] = float64(v)
	}
	mean := stat.Mean(out, nil)
	for i := range out {
		out[i] -= mean
	}
	return out
}

// MeanSpeed is the run-level speed summary; 0 for an empty run.
func MeanSpeed(speeds []float64) float64 {
	if len(speeds) == 0 {
		return 0
	}
	return stat.Mean(speeds, nil)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

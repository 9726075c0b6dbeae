// Package config defines the pipeline configuration. A run is parameterised
// once at startup; every component receives an immutable Params value rather
// than reading ambient state.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
)

// Params holds the resolved configuration for one analysis run.
type Params struct {
	// FrameRate converts per-frame units to per-second units (fps).
	FrameRate float64

	// VectorSpacing is the pixel spacing between annotated flow vectors.
	VectorSpacing int

	// IntensityScale maps displacement magnitude to annotation colour
	// intensity (0..255 after scaling and clamping).
	IntensityScale float64

	// DensityMin and DensityMax bound the expected active-pixel count.
	// A density strictly outside the band raises an alert.
	DensityMin int
	DensityMax int

	// DeltaCeiling is the maximum tolerated mean frame-to-frame pixel
	// difference before an alert is raised.
	DeltaCeiling float64

	// DeltaTolerancePx is the per-axis dimension mismatch (pixels) beyond
	// which a frame pair's delta is recorded as 0 with a warning.
	DeltaTolerancePx int

	// Workers bounds concurrent unit computations. Zero means one worker
	// per available CPU core.
	Workers int
}

// DefaultParams returns the canonical defaults. The numeric values match the
// analysis defaults the pipeline was tuned with.
func DefaultParams() Params {
	return Params{
		FrameRate:        60.0,
		VectorSpacing:    16,
		IntensityScale:   10.0,
		DensityMin:       5000,
		DensityMax:       100000,
		DeltaCeiling:     10.0,
		DeltaTolerancePx: 50,
		Workers:          0,
	}
}

// EffectiveWorkers resolves the worker count, defaulting to NumCPU.
func (p Params) EffectiveWorkers() int {
	if p.Workers > 0 {
		return p.Workers
	}
	return runtime.NumCPU()
}

// Validate checks invariants that must hold before any work is dispatched.
func (p Params) Validate() error {
	if p.FrameRate <= 0 {
		return fmt.Errorf("frame_rate must be > 0, got %v", p.FrameRate)
	}
	if p.VectorSpacing <= 0 {
		return fmt.Errorf("vector_spacing must be > 0, got %d", p.VectorSpacing)
	}
	if p.IntensityScale <= 0 {
		return fmt.Errorf("intensity_scale must be > 0, got %v", p.IntensityScale)
	}
	if p.DensityMin > p.DensityMax {
		return fmt.Errorf("density band inverted: [%d, %d]", p.DensityMin, p.DensityMax)
	}
	if p.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", p.Workers)
	}
	if p.DeltaTolerancePx < 0 {
		return fmt.Errorf("delta_tolerance_px must be >= 0, got %d", p.DeltaTolerancePx)
	}
	return nil
}

// FileConfig is the JSON overlay format. All fields are optional; unset
// fields keep their default. The same schema works for startup configuration
// and for recording the effective parameters of a run.
type FileConfig struct {
	FrameRate        *float64 `json:"frame_rate,omitempty"`
	VectorSpacing    *int     `json:"vector_spacing,omitempty"`
	IntensityScale   *float64 `json:"intensity_scale,omitempty"`
	DensityMin       *int     `json:"density_min,omitempty"`
	DensityMax       *int     `json:"density_max,omitempty"`
	DeltaCeiling     *float64 `json:"delta_ceiling,omitempty"`
	DeltaTolerancePx *int     `json:"delta_tolerance_px,omitempty"`
	Workers          *int     `json:"workers,omitempty"`
}

// Load reads a FileConfig from a JSON file.
func Load(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	var fc FileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return &fc, nil
}

// Apply overlays the set fields of fc onto p and returns the result.
func (fc *FileConfig) Apply(p Params) Params {
	if fc == nil {
		return p
	}
	if fc.FrameRate != nil {
		p.FrameRate = *fc.FrameRate
	}
	if fc.VectorSpacing != nil {
		p.VectorSpacing = *fc.VectorSpacing
	}
	if fc.IntensityScale != nil {
		p.IntensityScale = *fc.IntensityScale
	}
	if fc.DensityMin != nil {
		p.DensityMin = *fc.DensityMin
	}
	if fc.DensityMax != nil {
		p.DensityMax = *fc.DensityMax
	}
	if fc.DeltaCeiling != nil {
		p.DeltaCeiling = *fc.DeltaCeiling
	}
	if fc.DeltaTolerancePx != nil {
		p.DeltaTolerancePx = *fc.DeltaTolerancePx
	}
	if fc.Workers != nil {
		p.Workers = *fc.Workers
	}
	return p
}

// Marshal serialises the effective parameters for persistence alongside run
// results, so a run can be reproduced later.
func (p Params) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

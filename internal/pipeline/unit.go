// Package pipeline implements the ordered parallel frame-analysis pipeline:
// unit construction from an input frame sequence, bounded-concurrency
// dispatch with deterministic index-ordered reassembly, and the derived
// time-series computed from the ordered results.
package pipeline

import (
	"context"
	"fmt"
)

// Mode selects how frames are grouped into schedulable units.
type Mode int

const (
	// PerFrame analyses each frame independently (density/geometry variant).
	PerFrame Mode = iota
	// Pairwise analyses adjacent frame pairs (optical-flow variant).
	Pairwise
)

// String returns the mode name as stored with run records.
func (m Mode) String() string {
	switch m {
	case PerFrame:
		return "per-frame"
	case Pairwise:
		return "pairwise"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode is the inverse of String for stored run records.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "per-frame":
		return PerFrame, nil
	case "pairwise":
		return Pairwise, nil
	default:
		return 0, fmt.Errorf("unknown mode %q", s)
	}
}

// MinFrames is the minimum number of input frames the mode requires.
func (m Mode) MinFrames() int {
	if m == Pairwise {
		return 2
	}
	return 1
}

// Unit is one independently schedulable piece of work. Unit i references
// frame i (per-frame mode) or frames i and i+1 (pairwise mode). Units are
// immutable once built and consumed exactly once by a worker.
type Unit struct {
	Index  int
	Inputs []string
}

// UnitResult carries the numeric features and artifact paths produced by
// analysing one Unit. Index always equals the originating Unit's Index; the
// dispatcher enforces this.
type UnitResult struct {
	Index int

	// Pairwise-flow features.
	Speed    float64 // mean displacement magnitude (px/frame)
	AngleDeg float64 // mean displacement direction (degrees); 0 for a zero vector

	// Per-frame scene features.
	Density   int        // count of pixels whose per-channel max exceeds zero
	CentroidX float64    // mean column of active pixels; 0 if density is 0
	CentroidY float64    // mean row of active pixels; 0 if density is 0
	MeanColor [3]float64 // per-channel mean over active pixels; zeros if density is 0
	Circles   int        // circular features detected
	Lines     int        // linear features detected

	// ArtifactPath is the annotated image written by the analyzer. The
	// zero-padded index in the name keeps concurrent writes disjoint.
	ArtifactPath string

	// HeatmapPath is the active-pixel mask render (scene mode only).
	HeatmapPath string

	// Frame retains the decoded pixel data for frame-to-frame delta
	// computation (scene mode only); nil otherwise.
	Frame FrameData
}

// FrameData is the view of decoded pixel data the delta computation needs.
// The concrete type lives in the vision package; keeping an interface here
// avoids coupling the ordering/aggregation core to image handling.
type FrameData interface {
	// Dims returns the frame dimensions in pixels.
	Dims() (width, height int)
	// MeanAbsDiff returns the mean absolute per-channel difference against
	// prev, computed over the overlapping region.
	MeanAbsDiff(prev FrameData) float64
}

// Analyzer computes the features of one unit. Implementations must be pure:
// no shared state, deterministic for identical inputs, and no I/O side
// effects beyond writing their own artifact files. Recoverable per-unit
// conditions (empty masks, zero-length vectors) are absorbed into degenerate
// zero values; only total inability to read an input is returned as an
// error, which must be a *UnitInputError.
type Analyzer interface {
	Analyze(ctx context.Context, u Unit) (UnitResult, error)
}

// ErrEmptyInput reports that fewer than the minimum required frames exist.
// It is raised before any parallel work starts.
type ErrEmptyInput struct {
	Dir     string
	Pattern string
	Found   int
	Min     int
}

func (e *ErrEmptyInput) Error() string {
	return fmt.Sprintf("found %d frames matching %s in %s, need at least %d",
		e.Found, e.Pattern, e.Dir, e.Min)
}

// UnitInputError reports that a specific unit's source image could not be
// decoded. It is fatal to the whole pipeline; the failing index is preserved
// so the operator knows exactly which frame is bad.
type UnitInputError struct {
	Index int
	Path  string
	Err   error
}

func (e *UnitInputError) Error() string {
	return fmt.Sprintf("unit %d: cannot decode %s: %v", e.Index, e.Path, e.Err)
}

func (e *UnitInputError) Unwrap() error { return e.Err }

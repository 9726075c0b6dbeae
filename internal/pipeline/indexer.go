package pipeline

import (
	"fmt"
	"path/filepath"

	"github.com/emberfall/framesight/internal/fsutil"
	"github.com/emberfall/framesight/internal/monitoring"
)

// FrameIndexer lists input images in a stable total order and forms units.
// The lexicographic sort of filenames is the single source of truth for all
// downstream indices.
type FrameIndexer struct {
	FS      fsutil.FileSystem
	Dir     string
	Pattern string // filename pattern, e.g. "screenshot_*.png"
}

// ListFrames returns the sorted input frame paths. It fails with
// *ErrEmptyInput when fewer than min frames match.
func (ix *FrameIndexer) ListFrames(min int) ([]string, error) {
	pattern := ix.Pattern
	if pattern == "" {
		pattern = "*.png"
	}
	paths, err := ix.FS.Glob(filepath.Join(ix.Dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("failed to list frames in %s: %w", ix.Dir, err)
	}
	if len(paths) < min {
		return nil, &ErrEmptyInput{Dir: ix.Dir, Pattern: pattern, Found: len(paths), Min: min}
	}
	monitoring.Logf("found %d input frames in %s", len(paths), ix.Dir)
	return paths, nil
}

// Units lists frames and groups them into units for the given mode. In
// pairwise mode unit i references frames i and i+1, for i in [0, n-2]; in
// per-frame mode unit i references frame i. Indices are contiguous from 0.
func (ix *FrameIndexer) Units(mode Mode) ([]Unit, error) {
	paths, err := ix.ListFrames(mode.MinFrames())
	if err != nil {
		return nil, err
	}
	return MakeUnits(paths, mode), nil
}

// MakeUnits builds the unit sequence from an already sorted frame list.
func MakeUnits(paths []string, mode Mode) []Unit {
	if mode == Pairwise {
		units := make([]Unit, 0, len(paths)-1)
		for i := 0; i+1 < len(paths); i++ {
			units = append(units, Unit{Index: i, Inputs: []string{paths[i], paths[i+1]}})
		}
		return units
	}
	units := make([]Unit, len(paths))
	for i, p := range paths {
		units[i] = Unit{Index: i, Inputs: []string{p}}
	}
	return units
}

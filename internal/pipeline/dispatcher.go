package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/emberfall/framesight/internal/monitoring"
)

// Dispatcher runs every unit through the analyzer on a bounded worker pool
// and reassembles the results in index order. Per-unit work is CPU-bound and
// independent, so units only synchronise at the collection barrier: Run
// returns either the complete ordered result set or the first failure.
type Dispatcher struct {
	Analyzer Analyzer
	Workers  int // concurrent in-flight computations; must be > 0
}

// Run submits all units and waits for them. Results are written into a
// preallocated index-addressed slice, so completion order never influences
// the output order. On the first unit failure the shared context is
// cancelled, not-yet-started units are skipped, and the failure is returned
// after logging the failing index; no partial result set is produced.
func (d *Dispatcher) Run(ctx context.Context, units []Unit) ([]UnitResult, error) {
	if d.Workers <= 0 {
		return nil, fmt.Errorf("dispatcher requires a positive worker count, got %d", d.Workers)
	}
	for i, u := range units {
		if u.Index != i {
			return nil, fmt.Errorf("unit sequence not contiguous: position %d has index %d", i, u.Index)
		}
	}

	total := len(units)
	monitoring.Logf("dispatching %d units across %d workers", total, d.Workers)

	results := make([]UnitResult, total)
	var completed atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.Workers)
	for _, u := range units {
		u := u
		g.Go(func() error {
			// A sibling failure cancels the group context; skip units
			// that have not started yet.
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := d.Analyzer.Analyze(ctx, u)
			if err != nil {
				monitoring.Logf("unit %d failed: %v", u.Index, err)
				return err
			}
			if res.Index != u.Index {
				return fmt.Errorf("analyzer returned index %d for unit %d", res.Index, u.Index)
			}
			results[u.Index] = res

			done := completed.Add(1)
			if done%10 == 0 || done == int64(total) {
				monitoring.Logf("completed %d/%d units", done, total)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

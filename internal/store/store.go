// Package store persists finished runs to a local sqlite database so
// consecutive runs over the same capture can be compared later.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"encoding/json"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/emberfall/framesight/internal/config"
	"github.com/emberfall/framesight/internal/monitoring"
	"github.com/emberfall/framesight/internal/pipeline"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps the run database.
type Store struct {
	*sql.DB
}

// Open opens (creating if needed) the sqlite database at path and applies
// any pending migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open run database: %w", err)
	}
	s := &Store{db}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrateUp() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(s.DB, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	// Closing m would close the underlying DB connection; leave it to GC.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// Run is one persisted pipeline execution.
type Run struct {
	ID         string
	Mode       pipeline.Mode
	InputDir   string
	Params     config.Params
	FrameRate  float64
	UnitCount  int
	MeanSpeed  float64
	BestLag    int
	StartedAt  time.Time
	FinishedAt time.Time
}

// SaveRun writes the run header and all per-unit rows in one transaction and
// returns the generated run ID.
func (s *Store) SaveRun(ctx context.Context, run Run, results []pipeline.UnitResult, series pipeline.DerivedSeries) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	run.UnitCount = len(results)
	paramsJSON, err := run.Params.Marshal()
	if err != nil {
		return "", fmt.Errorf("marshal run params: %w", err)
	}

	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin run transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, mode, input_dir, params, frame_rate, unit_count, mean_speed, best_lag, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Mode.String(), run.InputDir, string(paramsJSON), run.FrameRate, run.UnitCount,
		run.MeanSpeed, run.BestLag, run.StartedAt, run.FinishedAt)
	if err != nil {
		return "", fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO unit_results (run_id, unit_index, speed, angle_deg, density, centroid_x, centroid_y,
			mean_r, mean_g, mean_b, circles, lines, acceleration, delta, alert, artifact_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare unit insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range results {
		accel, delta, alert := 0.0, 0.0, ""
		if i < len(series.Accelerations) {
			accel = series.Accelerations[i]
		}
		if i < len(series.Deltas) {
			delta = series.Deltas[i]
		}
		if i < len(series.Alerts) {
			alert = series.Alerts[i]
		}
		_, err = stmt.ExecContext(ctx, run.ID, r.Index, r.Speed, r.AngleDeg, r.Density,
			r.CentroidX, r.CentroidY, r.MeanColor[0], r.MeanColor[1], r.MeanColor[2],
			r.Circles, r.Lines, accel, delta, alert, r.ArtifactPath)
		if err != nil {
			return "", fmt.Errorf("insert unit %d: %w", r.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit run %s: %w", run.ID, err)
	}
	monitoring.Logf("stored run %s (%d units)", run.ID, run.UnitCount)
	return run.ID, nil
}

// ListRuns returns all persisted runs, most recent first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT run_id, mode, input_dir, params, frame_rate, unit_count, mean_speed, best_lag, started_at, finished_at
		FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var mode, paramsJSON string
		if err := rows.Scan(&r.ID, &mode, &r.InputDir, &paramsJSON, &r.FrameRate, &r.UnitCount,
			&r.MeanSpeed, &r.BestLag, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Mode, err = pipeline.ParseMode(mode)
		if err != nil {
			return nil, fmt.Errorf("run %s: %w", r.ID, err)
		}
		if err := json.Unmarshal([]byte(paramsJSON), &r.Params); err != nil {
			return nil, fmt.Errorf("run %s: parse params: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// UnitRow is one persisted per-unit record.
type UnitRow struct {
	Index        int
	Speed        float64
	AngleDeg     float64
	Density      int
	Acceleration float64
	Delta        float64
	Alert        string
	ArtifactPath string
}

// RunResults returns the per-unit rows of a run in index order.
func (s *Store) RunResults(ctx context.Context, runID string) ([]UnitRow, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT unit_index, speed, angle_deg, density, acceleration, delta, alert, artifact_path
		FROM unit_results WHERE run_id = ? ORDER BY unit_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run %s: %w", runID, err)
	}
	defer rows.Close()

	var out []UnitRow
	for rows.Next() {
		var u UnitRow
		if err := rows.Scan(&u.Index, &u.Speed, &u.AngleDeg, &u.Density,
			&u.Acceleration, &u.Delta, &u.Alert, &u.ArtifactPath); err != nil {
			return nil, fmt.Errorf("scan unit row: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

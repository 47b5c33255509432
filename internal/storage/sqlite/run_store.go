package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/velocity.ptv/internal/ptv"
)

// ErrRunNotFound is returned by GetRun for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// Run is one processed frame pair.
type Run struct {
	RunID         string          `json:"run_id"`
	PointsFile    string          `json:"points_file"`
	FrameA        int             `json:"frame_a"`
	FrameB        int             `json:"frame_b"`
	SourceCount   int             `json:"source_count"`
	TargetCount   int             `json:"target_count"`
	MatchedCount  int             `json:"matched_count"`
	Iterations    int             `json:"iterations"`
	ParamsJSON    json.RawMessage `json:"params_json,omitempty"`
	SummaryJSON   json.RawMessage `json:"summary_json,omitempty"`
	DurationNanos int64           `json:"duration_nanos"`
	CreatedAt     int64           `json:"created_at"`
}

// StoredMatch is one matched particle of a run.
type StoredMatch struct {
	RunID       string  `json:"run_id"`
	Source      int     `json:"source"`
	Target      int     `json:"target"`
	Probability float64 `json:"probability"`
	DX          float64 `json:"dx"`
	DY          float64 `json:"dy"`
	DZ          float64 `json:"dz"`
}

// NewRun describes res, computed between frames frameA and frameB of
// pointsFile, as a Run plus its matched particles. Unmatched source points
// are not stored.
func NewRun(pointsFile string, frameA, frameB int, params ptv.Params, res *ptv.Result, vectors []ptv.Vector, summary ptv.DisplacementSummary) (*Run, []StoredMatch, error) {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal params: %w", err)
	}
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal summary: %w", err)
	}

	run := &Run{
		PointsFile:    pointsFile,
		FrameA:        frameA,
		FrameB:        frameB,
		SourceCount:   res.SourcePoints,
		TargetCount:   res.TargetPoints,
		MatchedCount:  res.Matched(),
		Iterations:    res.Iterations,
		ParamsJSON:    paramsJSON,
		SummaryJSON:   summaryJSON,
		DurationNanos: res.Timings.Total().Nanoseconds(),
	}

	prob := make(map[int]float64, len(res.Matches))
	for _, m := range res.Matches {
		prob[m.Source] = m.Probability
	}
	matches := make([]StoredMatch, 0, len(vectors))
	for _, v := range vectors {
		matches = append(matches, StoredMatch{
			Source:      v.Source,
			Target:      v.Target,
			Probability: prob[v.Source],
			DX:          v.Displacement.X,
			DY:          v.Displacement.Y,
			DZ:          v.Displacement.Z,
		})
	}
	return run, matches, nil
}

// RunStore provides persistence for correspondence runs.
type RunStore struct {
	db *sql.DB
}

// NewRunStore creates a new RunStore.
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db.DB}
}

// InsertRun persists run and its matches in one transaction. If RunID is
// empty, a UUID is generated; the ID is copied into every match.
func (s *RunStore) InsertRun(ctx context.Context, run *Run, matches []StoredMatch) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt == 0 {
		run.CreatedAt = time.Now().UnixNano()
	}
	for i := range matches {
		matches[i].RunID = run.RunID
	}

	return retryOnBusy(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		_, err = tx.ExecContext(ctx, `
			INSERT INTO ptv_runs (
				run_id, points_file, frame_a, frame_b,
				source_count, target_count, matched_count, iterations,
				params_json, summary_json, duration_nanos, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.RunID, run.PointsFile, run.FrameA, run.FrameB,
			run.SourceCount, run.TargetCount, run.MatchedCount, run.Iterations,
			nullableJSON(run.ParamsJSON), nullableJSON(run.SummaryJSON), run.DurationNanos, run.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO ptv_matches (
				run_id, source_index, target_index, probability, dx, dy, dz
			) VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare match insert: %w", err)
		}
		defer stmt.Close()

		for _, m := range matches {
			if _, err := stmt.ExecContext(ctx, m.RunID, m.Source, m.Target, m.Probability, m.DX, m.DY, m.DZ); err != nil {
				return fmt.Errorf("insert match %d: %w", m.Source, err)
			}
		}
		return tx.Commit()
	})
}

func nullableJSON(b json.RawMessage) interface{} {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

const runColumns = `
	run_id, points_file, frame_a, frame_b,
	source_count, target_count, matched_count, iterations,
	params_json, summary_json, duration_nanos, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*Run, error) {
	var r Run
	var paramsStr, summaryStr sql.NullString
	err := row.Scan(
		&r.RunID, &r.PointsFile, &r.FrameA, &r.FrameB,
		&r.SourceCount, &r.TargetCount, &r.MatchedCount, &r.Iterations,
		&paramsStr, &summaryStr, &r.DurationNanos, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if paramsStr.Valid {
		r.ParamsJSON = json.RawMessage(paramsStr.String)
	}
	if summaryStr.Valid {
		r.SummaryJSON = json.RawMessage(summaryStr.String)
	}
	return &r, nil
}

// GetRun returns a single run by ID.
func (s *RunStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM ptv_runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	return r, nil
}

// ListRuns returns runs, newest first. limit <= 0 returns all of them.
func (s *RunStore) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM ptv_runs
		ORDER BY created_at DESC, frame_a DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ListMatches returns the matches of a run in source order.
func (s *RunStore) ListMatches(ctx context.Context, runID string) ([]StoredMatch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, source_index, target_index, probability, dx, dy, dz
		FROM ptv_matches
		WHERE run_id = ?
		ORDER BY source_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}
	defer rows.Close()

	var out []StoredMatch
	for rows.Next() {
		var m StoredMatch
		if err := rows.Scan(&m.RunID, &m.Source, &m.Target, &m.Probability, &m.DX, &m.DY, &m.DZ); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// DeleteRun removes a run and, through the foreign key, its matches.
func (s *RunStore) DeleteRun(ctx context.Context, runID string) error {
	return retryOnBusy(func() error {
		result, err := s.db.ExecContext(ctx, `DELETE FROM ptv_runs WHERE run_id = ?`, runID)
		if err != nil {
			return fmt.Errorf("delete run: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil
	})
}

// Package storage persists the supervisor's local state in PostgreSQL:
// the per-group configuration cache and the run history built from
// terminal reports.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/quickcart/order-supervisor/internal/supervisor/domain"
	"github.com/quickcart/order-supervisor/shared/postgresql"
)

type Storage struct {
	db *sqlx.DB
}

func NewStorage(pg *postgresql.Client) *Storage {
	return &Storage{
		db: pg.GetDB(),
	}
}

// EnsureSchema creates the supervisor tables when missing.
func (s *Storage) EnsureSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS config_cache (
			group_name TEXT PRIMARY KEY,
			payload    JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);

		CREATE TABLE IF NOT EXISTS runs (
			run_id        UUID PRIMARY KEY,
			outcome       TEXT NOT NULL,
			success_count INT NOT NULL,
			failure_count INT NOT NULL,
			total_orders  INT NOT NULL,
			started_at    TIMESTAMPTZ NOT NULL,
			finished_at   TIMESTAMPTZ NOT NULL
		);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// SaveConfigGroup upserts the cached payload for one settings group.
func (s *Storage) SaveConfigGroup(ctx context.Context, group string, payload json.RawMessage) error {
	query := `
		INSERT INTO config_cache (group_name, payload, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (group_name)
		DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at
	`

	if _, err := s.db.ExecContext(ctx, query, group, payload, time.Now()); err != nil {
		return fmt.Errorf("failed to save config group %q: %w", group, err)
	}
	return nil
}

// LoadConfigGroups returns all cached settings groups keyed by group
// name. A missing cache is not an error.
func (s *Storage) LoadConfigGroups(ctx context.Context) (map[string]json.RawMessage, error) {
	type row struct {
		GroupName string          `db:"group_name"`
		Payload   json.RawMessage `db:"payload"`
	}

	var rows []row
	query := `SELECT group_name, payload FROM config_cache`
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return map[string]json.RawMessage{}, nil
		}
		return nil, fmt.Errorf("failed to load config cache: %w", err)
	}

	groups := make(map[string]json.RawMessage, len(rows))
	for _, r := range rows {
		groups[r.GroupName] = r.Payload
	}
	return groups, nil
}

// RunRecord is one persisted run summary.
type RunRecord struct {
	RunID        string    `db:"run_id" json:"run_id"`
	Outcome      string    `db:"outcome" json:"outcome"`
	SuccessCount int       `db:"success_count" json:"success"`
	FailureCount int       `db:"failure_count" json:"failure"`
	TotalOrders  int       `db:"total_orders" json:"total_orders"`
	StartedAt    time.Time `db:"started_at" json:"started_at"`
	FinishedAt   time.Time `db:"finished_at" json:"finished_at"`
}

// SaveRun inserts the terminal report of one run. Re-inserting the
// same run ID is a no-op; the first report per run wins.
func (s *Storage) SaveRun(ctx context.Context, report domain.CompletionReport) error {
	query := `
		INSERT INTO runs (
			run_id, outcome, success_count, failure_count,
			total_orders, started_at, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (run_id) DO NOTHING
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		report.RunID,
		string(report.Outcome),
		report.SuccessCount,
		report.FailureCount,
		report.TotalUnits,
		report.StartedAt,
		report.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent run summaries, newest first.
func (s *Storage) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := `
		SELECT run_id, outcome, success_count, failure_count,
		       total_orders, started_at, finished_at
		FROM runs
		ORDER BY finished_at DESC
		LIMIT $1
	`

	var runs []RunRecord
	if err := s.db.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

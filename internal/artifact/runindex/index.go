// Package runindex maintains a small sqlite catalog of past races under
// .hydra/index.db, so `race list` and `doctor --history` can answer across
// every past run without re-reading every run directory's manifest.json.
package runindex

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hydra-cli/hydra/internal/core"
)

//go:embed migrations/001_initial_schema.sql
var migrationV1 string

// Index is a sqlite-backed catalog of run summaries.
type Index struct {
	db *sql.DB
}

// Open opens (creating if needed) the index database at dbPath and runs
// any pending migrations.
func Open(dbPath string) (*Index, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating run index directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening run index: %w", err)
	}
	db.SetMaxOpenConns(1)

	idx := &Index{db: db}
	if err := idx.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return idx, nil
}

// Close releases the index's database handle.
func (idx *Index) Close() error {
	return idx.db.Close()
}

func (idx *Index) migrate() error {
	var version int
	err := idx.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		version = 0
	}

	if version < 1 {
		if _, err := idx.db.Exec(migrationV1); err != nil {
			return fmt.Errorf("applying migration v1: %w", err)
		}
		if _, err := idx.db.Exec("INSERT INTO schema_migrations (version, applied_at) VALUES (1, ?)", time.Now().UTC().Format(time.RFC3339)); err != nil {
			return fmt.Errorf("recording migration v1: %w", err)
		}
	}

	return nil
}

// Summary is one run's catalog entry.
type Summary struct {
	RunID         string
	CreatedAt     time.Time
	CompletedAt   *time.Time
	BaseRef       string
	BaseCommit    string
	Status        core.RunStatus
	AgentKeys     []string
	WinnerAgent   string
	BudgetStopped bool
}

// Upsert records (or updates) one run's summary, called after a race
// completes or fails so the catalog never drifts from manifest.json.
func (idx *Index) Upsert(ctx context.Context, s Summary) error {
	var completedAt sql.NullString
	if s.CompletedAt != nil {
		completedAt = sql.NullString{String: s.CompletedAt.UTC().Format(time.RFC3339), Valid: true}
	}

	_, err := idx.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, created_at, completed_at, base_ref, base_commit, status, agent_keys, winner_agent, budget_stopped)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			completed_at = excluded.completed_at,
			status = excluded.status,
			winner_agent = excluded.winner_agent,
			budget_stopped = excluded.budget_stopped`,
		s.RunID, s.CreatedAt.UTC().Format(time.RFC3339), completedAt, s.BaseRef, s.BaseCommit,
		string(s.Status), strings.Join(s.AgentKeys, ","), s.WinnerAgent, boolToInt(s.BudgetStopped),
	)
	if err != nil {
		return fmt.Errorf("recording run %s: %w", s.RunID, err)
	}
	return nil
}

// List returns every catalogued run, most recent first, bounded by limit
// (0 means no limit).
func (idx *Index) List(ctx context.Context, limit int) ([]Summary, error) {
	query := "SELECT run_id, created_at, completed_at, base_ref, base_commit, status, agent_keys, COALESCE(winner_agent, ''), budget_stopped FROM runs ORDER BY created_at DESC"
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := idx.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var summaries []Summary
	for rows.Next() {
		var (
			s             Summary
			createdAt     string
			completedAt   sql.NullString
			status        string
			agentKeys     string
			budgetStopped int
		)
		if err := rows.Scan(&s.RunID, &createdAt, &completedAt, &s.BaseRef, &s.BaseCommit, &status, &agentKeys, &s.WinnerAgent, &budgetStopped); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		s.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		if completedAt.Valid {
			t, _ := time.Parse(time.RFC3339, completedAt.String)
			s.CompletedAt = &t
		}
		s.Status = core.RunStatus(status)
		if agentKeys != "" {
			s.AgentKeys = strings.Split(agentKeys, ",")
		}
		s.BudgetStopped = budgetStopped != 0
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

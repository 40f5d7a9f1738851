package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/snow-ghost/sleuth/core"
)

// timeLayout is fixed width so that text ordering equals time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store implements core.Store on SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ core.Store = (*Store)(nil)

// Open opens or creates the database at path. ":memory:" keeps it in process.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("%s?_busy_timeout=5000&_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
	if err := s.configurePragmas(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.createTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// DB exposes the handle for diagnostics and tests.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) configurePragmas(ctx context.Context) error {
	for _, q := range []string{"PRAGMA journal_mode=WAL;", "PRAGMA synchronous=NORMAL;"} {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("failed to set pragma %q: %w", q, err)
		}
	}
	return nil
}

func (s *Store) createTables(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS questions (
		id TEXT PRIMARY KEY,
		description TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS hypotheses (
		id TEXT PRIMARY KEY,
		question_id TEXT NOT NULL,
		description TEXT NOT NULL,
		status TEXT NOT NULL,
		score REAL NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		FOREIGN KEY (question_id) REFERENCES questions(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		question_id TEXT NOT NULL,
		hypothesis_id TEXT,
		description TEXT NOT NULL,
		status TEXT NOT NULL,
		result TEXT,
		errors INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		FOREIGN KEY (question_id) REFERENCES questions(id) ON DELETE CASCADE,
		FOREIGN KEY (hypothesis_id) REFERENCES hypotheses(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS skills (
		id TEXT PRIMARY KEY,
		description TEXT NOT NULL,
		code TEXT NOT NULL,
		file_path TEXT NOT NULL DEFAULT '',
		origin TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_questions_status ON questions(status, created_at);
	CREATE INDEX IF NOT EXISTS idx_hypotheses_question ON hypotheses(question_id, status);
	CREATE INDEX IF NOT EXISTS idx_tasks_question ON tasks(question_id);
	CREATE INDEX IF NOT EXISTS idx_tasks_hypothesis ON tasks(hypothesis_id);
	CREATE INDEX IF NOT EXISTS idx_skills_description ON skills(description);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(v string) (time.Time, error) {
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse time %q: %w", v, err)
	}
	return t, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// casResult turns a zero-row compare-and-set update into ErrNotFound or ErrStaleStatus.
func (s *Store) casResult(ctx context.Context, res sql.Result, table, id, expected string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 1 {
		return nil
	}
	var current string
	err = s.db.QueryRowContext(ctx, "SELECT status FROM "+table+" WHERE id = ?", id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", table, id, core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s status: %w", table, err)
	}
	return fmt.Errorf("%s %s is %s, expected %s: %w", table, id, current, expected, core.ErrStaleStatus)
}

func (s *Store) deleteByID(ctx context.Context, table, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", table, id, core.ErrNotFound)
	}
	return nil
}

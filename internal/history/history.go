// Package history records finished archive builds in a SQLite database.
package history

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/m-mizutani/goerr/v2"

	// SQLite driver for database/sql
	_ "github.com/mattn/go-sqlite3"

	"github.com/raoulx24/dropzip/internal/apperr"
)

const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Record describes one build attempt.
type Record struct {
	ID         string
	Name       string
	OutputPath string
	Trigger    string
	Status     string
	Error      string
	Entries    int
	Skipped    int
	Bytes      int64
	StartedAt  time.Time
	FinishedAt time.Time
}

// fixed width so lexical order matches time order
const timeLayout = "2006-01-02T15:04:05.000000000Z"

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS builds (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		output_path TEXT NOT NULL,
		origin TEXT NOT NULL,
		status TEXT NOT NULL,
		error TEXT,
		entries INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		bytes INTEGER NOT NULL DEFAULT 0,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_builds_started_at ON builds(started_at)`,
}

// Store wraps a sql.DB holding the builds table.
type Store struct {
	db *sql.DB
}

// Open opens (and migrates) the database, creating its parent directory.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, goerr.Wrap(err, "failed to create history directory",
			goerr.V("dir", dir),
			goerr.T(apperr.TagIO))
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open history database", goerr.V("path", path))
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(err, "failed to connect history database", goerr.V("path", path))
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			_ = db.Close()
			return nil, goerr.Wrap(err, "failed to migrate history database")
		}
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Record(ctx context.Context, r Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO builds (id, name, output_path, origin, status, error, entries, skipped, bytes, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Name, r.OutputPath, r.Trigger, r.Status, r.Error,
		r.Entries, r.Skipped, r.Bytes,
		r.StartedAt.UTC().Format(timeLayout),
		r.FinishedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return goerr.Wrap(err, "failed to insert build record", goerr.V("id", r.ID))
	}
	return nil
}

// List returns up to limit records, newest first. limit <= 0 means no limit.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, output_path, origin, status, COALESCE(error, ''), entries, skipped, bytes, started_at, finished_at
		 FROM builds ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query build records")
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r                 Record
			started, finished string
		)
		if err := rows.Scan(&r.ID, &r.Name, &r.OutputPath, &r.Trigger, &r.Status, &r.Error,
			&r.Entries, &r.Skipped, &r.Bytes, &started, &finished); err != nil {
			return nil, goerr.Wrap(err, "failed to scan build record")
		}
		if r.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, goerr.Wrap(err, "invalid started_at", goerr.V("id", r.ID))
		}
		if r.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
			return nil, goerr.Wrap(err, "invalid finished_at", goerr.V("id", r.ID))
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate build records")
	}
	return out, nil
}

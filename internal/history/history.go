// Package history keeps a log of completed builds in SQLite.
package history

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/sitegen/internal/build"
	"git.home.luguber.info/inful/sitegen/internal/foundation/errors"
	"git.home.luguber.info/inful/sitegen/internal/logfields"
)

// ErrNotFound is returned by Get for an unknown build id.
var ErrNotFound = errors.NotFoundError("build not found in history").Build()

// Build is one recorded build.
type Build struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Outcome    string
	Pages      int
	Warnings   int
	Errors     int
	ConfigHash string
	// Report is the serialized build report.
	Report []byte
}

// Duration is the wall time of the build.
func (b Build) Duration() time.Duration { return b.FinishedAt.Sub(b.StartedAt) }

// Store persists build records.
type Store interface {
	Record(ctx context.Context, report *build.BuildReport) error
	List(ctx context.Context, limit int) ([]Build, error)
	Get(ctx context.Context, id string) (*Build, error)
	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens or creates the database at dbPath. Use ":memory:" for
// an in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.EventStoreError("could not open history database").
			WithCause(err).
			WithContext("path", dbPath).
			Build()
	}
	// A single connection keeps ":memory:" databases alive across queries.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, errors.EventStoreError("failed to initialize history schema").WithCause(err).Build()
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS builds (
		id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		pages INTEGER NOT NULL,
		warnings INTEGER NOT NULL,
		errors INTEGER NOT NULL,
		config_hash TEXT NOT NULL,
		report BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_builds_started_at ON builds(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record stores a finished build. Recording the same id again replaces it.
func (s *SQLiteStore) Record(ctx context.Context, report *build.BuildReport) error {
	payload, err := report.JSON()
	if err != nil {
		return errors.EventStoreError("failed to marshal build report").WithCause(err).Build()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO builds (id, started_at, finished_at, outcome, pages, warnings, errors, config_hash, report)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.ID, report.Start.UnixMilli(), report.End.UnixMilli(), string(report.Outcome),
		report.Pages, len(report.Warnings), len(report.Errors), report.ConfigHash, payload,
	)
	if err != nil {
		return errors.EventStoreError("failed to record build").WithCause(err).WithContext("build_id", report.ID).Build()
	}
	return nil
}

const selectBuilds = `SELECT id, started_at, finished_at, outcome, pages, warnings, errors, config_hash, report FROM builds`

// List returns the most recent builds first. limit <= 0 returns all.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Build, error) {
	if limit <= 0 {
		limit = -1
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, selectBuilds+` ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, errors.EventStoreError("failed to query builds").WithCause(err).Build()
	}
	defer rows.Close()

	var out []Build
	for rows.Next() {
		b, err := scanBuild(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// Get returns one build by id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Build, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, selectBuilds+` WHERE id = ?`, id)
	b, err := scanBuild(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound.WithContext("build_id", id)
	}
	return b, err
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBuild(sc scanner) (*Build, error) {
	var b Build
	var started, finished int64
	err := sc.Scan(&b.ID, &started, &finished, &b.Outcome, &b.Pages, &b.Warnings, &b.Errors, &b.ConfigHash, &b.Report)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, errors.EventStoreError("failed to scan build row").WithCause(err).Build()
	}
	b.StartedAt = time.UnixMilli(started)
	b.FinishedAt = time.UnixMilli(finished)
	return &b, nil
}

// Observer records every finished build into a Store.
type Observer struct {
	build.NoopObserver
	store Store
}

// NewObserver returns a build observer writing to store.
func NewObserver(store Store) *Observer { return &Observer{store: store} }

// OnBuildComplete records the report. Failures are logged.
func (o *Observer) OnBuildComplete(r *build.BuildReport) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.store.Record(ctx, r); err != nil {
		slog.Warn("Failed to record build history", logfields.BuildID(r.ID), logfields.Error(err))
	}
}

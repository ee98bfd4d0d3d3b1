// Package audit keeps a persistent journal of every executor decision in an
// embedded sqlite database.
package audit

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"swh-client/internal/platform/httpclient"
	"swh-client/internal/platform/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationsDir = "migrations"

// writeTimeout bounds a single journal write, detached from the call's context.
const writeTimeout = 5 * time.Second

// Entry is one stored decision.
type Entry struct {
	ID       int64
	CallID   string
	Endpoint string
	Method   string
	URL      string
	Attempt  int
	Pool     string
	Status   int
	Class    string
	Action   string
	Reason   string
	Delay    time.Duration
	Duration time.Duration
	At       time.Time
}

// Store is an httpclient.Recorder backed by sqlite.
type Store struct {
	db  *sql.DB
	tx  *sqlite.TxRunner
	log *slog.Logger
}

var _ httpclient.Recorder = (*Store)(nil)

// Open creates or opens the journal at path and migrates it.
func Open(ctx context.Context, path string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	db, err := sqlite.NewDB(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", path, err)
	}
	if err := sqlite.ApplyMigrations(path, migrations, migrationsDir); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("audit: migrate %s: %w", path, err)
	}
	return &Store{db: db, tx: sqlite.NewTxRunner(db), log: log}, nil
}

// OpenReadOnly opens an existing journal for queries only. Record on a
// read-only store logs the failure and drops the entry.
func OpenReadOnly(ctx context.Context, path string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	db, err := sqlite.NewReadOnlyDB(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", path, err)
	}
	return &Store{db: db, tx: sqlite.NewTxRunner(db), log: log}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record writes r. Errors are logged and never reach the caller.
func (s *Store) Record(ctx context.Context, r httpclient.Record) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	at := r.At
	if at.IsZero() {
		at = time.Now()
	}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		_, err := s.tx.GetQuerier(ctx).ExecContext(ctx, `
			INSERT INTO decisions
				(call_id, endpoint, method, url, attempt, pool, status, class, action, reason, delay_ms, duration_ms, at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.CallID, r.Endpoint, r.Method, r.URL, r.Attempt, r.Pool, r.Status,
			r.Class.String(), r.Action.String(), r.Reason,
			r.Delay.Milliseconds(), r.Duration.Milliseconds(),
			at.UTC().Format(time.RFC3339Nano),
		)
		return err
	})
	if err != nil {
		s.log.WarnContext(ctx, "audit write failed", "call_id", r.CallID, "action", r.Action.String(), "err", err)
	}
}

// ByCall returns the decisions of one call in the order they were made.
func (s *Store) ByCall(ctx context.Context, callID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, call_id, endpoint, method, url, attempt, pool, status, class, action, reason, delay_ms, duration_ms, at
		FROM decisions
		WHERE call_id = ?
		ORDER BY id`, callID)
	if err != nil {
		return nil, fmt.Errorf("audit: query %s: %w", callID, err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e              Entry
			delayMS, durMS int64
			at             string
		)
		if err := rows.Scan(&e.ID, &e.CallID, &e.Endpoint, &e.Method, &e.URL, &e.Attempt, &e.Pool,
			&e.Status, &e.Class, &e.Action, &e.Reason, &delayMS, &durMS, &at); err != nil {
			return nil, fmt.Errorf("audit: scan: %w", err)
		}
		e.Delay = time.Duration(delayMS) * time.Millisecond
		e.Duration = time.Duration(durMS) * time.Millisecond
		if e.At, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("audit: decision %d: bad timestamp %q: %w", e.ID, at, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

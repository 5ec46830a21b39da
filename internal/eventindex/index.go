// Package eventindex maintains a SQLite mirror of the approvals event log
// for ad-hoc history queries. The mirror is derived state: the JSON event
// files stay the source of truth and a rebuild is always safe to re-run.
package eventindex

import (
	"database/sql"
	"fmt"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/craftwell/workpack/internal/lifecycle"
	"github.com/craftwell/workpack/internal/manifest"
)

// DB wraps the SQLite index connection.
type DB struct {
	conn *sql.DB
	path string
}

// DefaultPath returns the index location inside a work package directory.
func DefaultPath(workPackageDir string) string {
	return filepath.Join(workPackageDir, "events.db")
}

// Open opens or creates the index database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping index: %w", err)
	}
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}
	if _, err := conn.Exec(indexSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create index schema: %w", err)
	}
	return &DB{conn: conn, path: path}, nil
}

// Close closes the index connection.
func (d *DB) Close() error {
	return d.conn.Close()
}

const indexSchema = `
CREATE TABLE IF NOT EXISTS transition_events (
    event_id     TEXT PRIMARY KEY,
    work_package TEXT NOT NULL,
    event_type   TEXT NOT NULL CHECK(event_type IN ('advance','reopen')),
    from_stage   TEXT NOT NULL,
    to_stage     TEXT NOT NULL,
    actor        TEXT NOT NULL,
    reason       TEXT,
    at           TEXT NOT NULL,
    event_file   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_package_at ON transition_events(work_package, at);
`

// Rebuild re-derives the index rows for a work package from its JSON event
// log. Re-running it is idempotent: rows are upserted by event id and rows
// for events that no longer exist are removed.
func (d *DB) Rebuild(workPackageDir string) (int, error) {
	m, err := manifest.Load(workPackageDir)
	if err != nil {
		return 0, err
	}
	events, err := lifecycle.ListEvents(workPackageDir)
	if err != nil {
		return 0, err
	}

	tx, err := d.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin rebuild: %w", err)
	}
	defer tx.Rollback()

	workPackageID := m.WorkPackage.ID
	if _, err := tx.Exec("DELETE FROM transition_events WHERE work_package = ?", workPackageID); err != nil {
		return 0, fmt.Errorf("clear index rows: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO transition_events
		(event_id, work_package, event_type, from_stage, to_stage, actor, reason, at, event_file)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, event := range events {
		if _, err := stmt.Exec(
			event.EventID, workPackageID, event.EventType,
			event.FromStage, event.ToStage, event.Actor,
			event.Reason, event.At, event.File,
		); err != nil {
			return 0, fmt.Errorf("index event %s: %w", event.EventID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit rebuild: %w", err)
	}
	return len(events), nil
}

// Stats summarizes the indexed history of a work package.
type Stats struct {
	WorkPackage string
	Total       int
	Advances    int
	Reopens     int
	FirstAt     string
	LastAt      string
}

// Stats reports event totals per type plus the first and last event times.
func (d *DB) Stats(workPackageID string) (*Stats, error) {
	s := &Stats{WorkPackage: workPackageID}
	row := d.conn.QueryRow(`SELECT COUNT(*),
		COALESCE(SUM(CASE WHEN event_type = 'advance' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN event_type = 'reopen' THEN 1 ELSE 0 END), 0),
		COALESCE(MIN(at), ''), COALESCE(MAX(at), '')
		FROM transition_events WHERE work_package = ?`, workPackageID)
	if err := row.Scan(&s.Total, &s.Advances, &s.Reopens, &s.FirstAt, &s.LastAt); err != nil {
		return nil, fmt.Errorf("index stats: %w", err)
	}
	return s, nil
}

// Row is one indexed transition event.
type Row struct {
	EventID   string
	EventType string
	FromStage string
	ToStage   string
	Actor     string
	At        string
	EventFile string
}

// Recent returns the most recent indexed events for a work package, newest
// first.
func (d *DB) Recent(workPackageID string, limit int) ([]Row, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.conn.Query(`SELECT event_id, event_type, from_stage, to_stage, actor, at, event_file
		FROM transition_events WHERE work_package = ?
		ORDER BY at DESC, event_file DESC LIMIT ?`, workPackageID, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent events: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.EventID, &r.EventType, &r.FromStage, &r.ToStage, &r.Actor, &r.At, &r.EventFile); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

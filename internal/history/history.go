// Package history persists a log of completed calls in a local SQLite
// database so past conversations survive restarts.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS calls (
	id            TEXT PRIMARY KEY,
	year          TEXT NOT NULL,
	persona       TEXT NOT NULL,
	started_at    INTEGER NOT NULL,
	duration_secs INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS calls_started_at ON calls (started_at DESC);
`

// Entry is one completed call.
type Entry struct {
	ID           string
	Year         string
	Persona      string
	StartedAt    time.Time
	DurationSecs int
}

// Log stores call entries. Safe for concurrent use; database/sql
// serializes access to the underlying connection pool.
type Log struct {
	db *sql.DB
}

// Open opens (creating if needed) the call log at path.
func Open(path string) (*Log, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open call log: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init call log schema: %w", err)
	}
	return &Log{db: db}, nil
}

// Record appends a completed call. The entry's ID is assigned here.
func (l *Log) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO calls (id, year, persona, started_at, duration_secs) VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.Year, e.Persona, e.StartedAt.Unix(), e.DurationSecs,
	)
	if err != nil {
		return fmt.Errorf("record call: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (l *Log) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, year, persona, started_at, duration_secs FROM calls ORDER BY started_at DESC, id LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query call log: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var startedAt int64
		if err := rows.Scan(&e.ID, &e.Year, &e.Persona, &startedAt, &e.DurationSecs); err != nil {
			return nil, fmt.Errorf("scan call log row: %w", err)
		}
		e.StartedAt = time.Unix(startedAt, 0).UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read call log: %w", err)
	}
	return out, nil
}

// Close releases the database handle.
func (l *Log) Close() error {
	return l.db.Close()
}

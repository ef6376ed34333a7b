// Package history persists every ring attempt to a local sqlite
// database. The journal answers "what happened", history answers
// "show me the last N bells" for the CLI and the bell.history RPC.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/chimebell/chime/common"
)

// Play is one recorded ring attempt.
type Play struct {
	ID       int64
	RangAt   time.Time
	Slot     string // HH:MM or cron text, "manual" when not slot-driven
	URL      string
	ClipHash string
	Trigger  common.TriggerKind
	Outcome  common.Outcome
	Duration time.Duration
	Error    string
}

// Store wraps the plays database.
type Store struct {
	db     *sql.DB
	insert *sql.Stmt
	recent *sql.Stmt
	since  *sql.Stmt
}

// trigger is a sqlite keyword, hence the quoting.
const schema = `
CREATE TABLE IF NOT EXISTS plays (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	rang_at     INTEGER NOT NULL,
	slot        TEXT NOT NULL DEFAULT '',
	url         TEXT    NOT NULL DEFAULT '',
	clip_hash   TEXT    NOT NULL DEFAULT '',
	"trigger"   TEXT    NOT NULL,
	outcome     TEXT    NOT NULL,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	error       TEXT    NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS plays_rang_at ON plays(rang_at);
`

const playColumns = `id, rang_at, slot, url, clip_hash, "trigger", outcome, duration_ms, error`

// Open opens (and if needed creates) the history database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("history dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("history open: %w", err)
	}
	// one writer keeps the in-process driver out of SQLITE_BUSY
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history schema: %w", err)
	}
	s := &Store{db: db}
	if s.insert, err = db.Prepare(`INSERT INTO plays (rang_at, slot, url, clip_hash, "trigger", outcome, duration_ms, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("history prepare: %w", err)
	}
	if s.recent, err = db.Prepare(`SELECT ` + playColumns + ` FROM plays ORDER BY rang_at DESC, id DESC LIMIT ?`); err != nil {
		db.Close()
		return nil, fmt.Errorf("history prepare: %w", err)
	}
	if s.since, err = db.Prepare(`SELECT ` + playColumns + ` FROM plays WHERE rang_at >= ? ORDER BY rang_at ASC, id ASC`); err != nil {
		db.Close()
		return nil, fmt.Errorf("history prepare: %w", err)
	}
	return s, nil
}

// Record stores one play. A zero RangAt means now.
func (s *Store) Record(p Play) error {
	at := p.RangAt
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.insert.Exec(at.Unix(), p.Slot, p.URL, p.ClipHash,
		string(p.Trigger), string(p.Outcome), p.Duration.Milliseconds(), p.Error)
	if err != nil {
		return fmt.Errorf("history record: %w", err)
	}
	return nil
}

// Recent returns up to n plays, newest first.
func (s *Store) Recent(n int) ([]Play, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := s.recent.Query(n)
	if err != nil {
		return nil, fmt.Errorf("history recent: %w", err)
	}
	return scanPlays(rows)
}

// Since returns all plays at or after t, oldest first.
func (s *Store) Since(t time.Time) ([]Play, error) {
	rows, err := s.since.Query(t.Unix())
	if err != nil {
		return nil, fmt.Errorf("history since: %w", err)
	}
	return scanPlays(rows)
}

func scanPlays(rows *sql.Rows) ([]Play, error) {
	defer rows.Close()
	var plays []Play
	for rows.Next() {
		var (
			p          Play
			rangAt     int64
			durationMs int64
			trigger    string
			outcome    string
		)
		if err := rows.Scan(&p.ID, &rangAt, &p.Slot, &p.URL, &p.ClipHash,
			&trigger, &outcome, &durationMs, &p.Error); err != nil {
			return nil, fmt.Errorf("history scan: %w", err)
		}
		p.RangAt = time.Unix(rangAt, 0)
		p.Duration = time.Duration(durationMs) * time.Millisecond
		p.Trigger = common.TriggerKind(trigger)
		p.Outcome = common.Outcome(outcome)
		plays = append(plays, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history rows: %w", err)
	}
	return plays, nil
}

// Close releases the prepared statements and the database.
func (s *Store) Close() error {
	for _, st := range []*sql.Stmt{s.insert, s.recent, s.since} {
		if st != nil {
			_ = st.Close()
		}
	}
	return s.db.Close()
}

// Package journal keeps the bell event log: an append-only file of
// timestamped events, the record a school keeps of when its bells
// actually rang. Append never fails the caller; a broken log must not
// silence a bell.
package journal

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chimebell/chime/pkg/logger"
)

// Event names, stable so the journal stays greppable.
const (
	EventStart       = "START"
	EventStop        = "STOP"
	EventSchedule    = "SCHEDULE"
	EventRing        = "RING"
	EventPlayDone    = "PLAY_DONE"
	EventPlayStopped = "PLAY_STOPPED"
	EventRingFailed  = "RING_FAILED"
	EventMissed      = "MISSED"
	EventFetch       = "FETCH"
	EventFetchFailed = "FETCH_FAILED"
	EventReload      = "RELOAD"
	EventFlush       = "FLUSH"
)

const timeLayout = "2006-01-02 15:04:05"

// Fields are the k=v pairs on a journal line, written in key order.
type Fields map[string]interface{}

// Line is one parsed journal line. Lines that do not parse keep their
// Raw text and a zero At so nothing is hidden from `chime log`.
type Line struct {
	At    time.Time
	Event string
	Raw   string
}

// Journal appends event lines to a single log file.
type Journal struct {
	path string
	l    logger.Logger

	mu sync.Mutex
	f  *os.File

	now func() time.Time
}

// Open appends to the journal at path, creating it and its directory
// when missing.
func Open(path string, l logger.Logger) (*Journal, error) {
	if l == nil {
		l = logger.NewNopLogger()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("journal dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("journal open: %w", err)
	}
	return &Journal{path: path, f: f, l: l, now: time.Now}, nil
}

// Path returns the journal file path.
func (j *Journal) Path() string { return j.path }

// Append writes one event line. Write errors are warned to the process
// logger and dropped.
func (j *Journal) Append(event string, fields Fields) {
	line := j.format(event, fields)
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.f == nil {
		return
	}
	if _, err := j.f.WriteString(line); err != nil {
		j.l.Warning("journal append: %v", err)
		return
	}
	// STOP is the last thing a shutting-down daemon writes.
	if event == EventStop {
		_ = j.f.Sync()
	}
}

func (j *Journal) format(event string, fields Fields) string {
	var b strings.Builder
	b.WriteString(j.now().Format(timeLayout))
	b.WriteString(" | ")
	b.WriteString(event)
	if len(fields) > 0 {
		b.WriteString(" | ")
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(' ')
			}
			v := strings.ReplaceAll(fmt.Sprintf("%v", fields[k]), "\n", " ")
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(v)
		}
	}
	b.WriteByte('\n')
	return b.String()
}

// Tail returns the last n journal lines, oldest first. The journal of
// a school bell grows by a handful of lines a day, so reading it whole
// is fine.
func (j *Journal) Tail(n int) ([]Line, error) {
	if n <= 0 {
		return nil, nil
	}
	b, err := os.ReadFile(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("journal read: %w", err)
	}
	raw := strings.Split(strings.TrimRight(string(b), "\n"), "\n")
	if len(raw) == 1 && raw[0] == "" {
		return nil, nil
	}
	if len(raw) > n {
		raw = raw[len(raw)-n:]
	}
	lines := make([]Line, 0, len(raw))
	for _, r := range raw {
		lines = append(lines, parseLine(r))
	}
	return lines, nil
}

func parseLine(raw string) Line {
	parts := strings.SplitN(raw, " | ", 3)
	if len(parts) < 2 {
		return Line{Raw: raw}
	}
	at, err := time.ParseInLocation(timeLayout, parts[0], time.Local)
	if err != nil {
		return Line{Raw: raw}
	}
	return Line{At: at, Event: parts[1], Raw: raw}
}

// Close syncs and closes the journal. Appends after Close are dropped.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.f == nil {
		return nil
	}
	_ = j.f.Sync()
	err := j.f.Close()
	j.f = nil
	return err
}

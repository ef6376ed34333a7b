//go:build windows

package logger

import (
	"fmt"

	"golang.org/x/sys/windows/svc/eventlog"
)

// Event IDs for Windows Event Log entries written by chimed.
const (
	EventIDInfo    uint32 = 1
	EventIDWarning uint32 = 2
	EventIDError   uint32 = 3
)

// EventLogger writes to the Windows Event Log. The event source must
// already be registered (eventlog.InstallAsEventCreate) or Open fails.
type EventLogger struct {
	log *eventlog.Log
}

// NewEventLogger opens the Event Log source with the given name,
// typically "chimed".
func NewEventLogger(sourceName string) (*EventLogger, error) {
	elog, err := eventlog.Open(sourceName)
	if err != nil {
		return nil, fmt.Errorf("logger: open event log: %w", err)
	}
	return &EventLogger{log: elog}, nil
}

// Info writes an informational event.
func (e *EventLogger) Info(format string, args ...interface{}) {
	// Write errors are ignored; the daemon must keep running even if
	// event logging fails.
	_ = e.log.Info(EventIDInfo, fmt.Sprintf(format, args...))
}

// Warning writes a warning event.
func (e *EventLogger) Warning(format string, args ...interface{}) {
	_ = e.log.Warning(EventIDWarning, fmt.Sprintf(format, args...))
}

// Error writes an error event.
func (e *EventLogger) Error(format string, args ...interface{}) {
	_ = e.log.Error(EventIDError, fmt.Sprintf(format, args...))
}

// Close releases the Event Log handle.
func (e *EventLogger) Close() error {
	if e.log != nil {
		return e.log.Close()
	}
	return nil
}

var _ Logger = (*EventLogger)(nil)

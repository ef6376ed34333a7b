// Package logger provides the logging interface shared by the chime
// daemon and CLI. Backends cover console, plain files and, on Windows,
// the Event Log, so the same engine code runs unchanged as a foreground
// process or a background daemon.
package logger

import (
	"fmt"
	"log"
	"os"
)

// Logger is the process-level diagnostic log used across chime
// components. It is distinct from the bell event journal: the journal
// records what the bell did, the Logger records how the process is
// doing it.
type Logger interface {
	// Info logs an informational message (e.g. "schedule loaded").
	Info(format string, args ...interface{})

	// Warning logs a recoverable condition (e.g. "manifest corrupt, starting fresh").
	Warning(format string, args ...interface{})

	// Error logs a failure (e.g. "playback failed: ffplay not found").
	Error(format string, args ...interface{})

	// Close releases backend resources. Safe to call more than once.
	Close() error
}

// StandardLogger wraps a stdlib *log.Logger for console or file output.
type StandardLogger struct {
	logger *log.Logger
	file   *os.File
}

// NewStandardLogger wraps an existing *log.Logger.
func NewStandardLogger(l *log.Logger) *StandardLogger {
	return &StandardLogger{logger: l}
}

// NewConsoleLogger returns a StandardLogger writing to stderr with the
// default log flags.
func NewConsoleLogger() *StandardLogger {
	return &StandardLogger{logger: log.New(os.Stderr, "", log.LstdFlags)}
}

// NewFileLogger returns a StandardLogger appending to the file at path,
// creating it if needed. The file is closed by Close.
func NewFileLogger(path string) (*StandardLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("logger: open %s: %w", path, err)
	}
	return &StandardLogger{
		logger: log.New(f, "", log.LstdFlags),
		file:   f,
	}, nil
}

// Info logs with an [INFO] prefix.
func (s *StandardLogger) Info(format string, args ...interface{}) {
	s.logger.Printf("[INFO] "+format, args...)
}

// Warning logs with a [WARNING] prefix.
func (s *StandardLogger) Warning(format string, args ...interface{}) {
	s.logger.Printf("[WARNING] "+format, args...)
}

// Error logs with an [ERROR] prefix.
func (s *StandardLogger) Error(format string, args ...interface{}) {
	s.logger.Printf("[ERROR] "+format, args...)
}

// Close closes the backing file, if any.
func (s *StandardLogger) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// NopLogger discards all messages. Used in tests and wherever a
// component requires a Logger but the caller wants silence.
type NopLogger struct{}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() *NopLogger {
	return &NopLogger{}
}

func (n *NopLogger) Info(format string, args ...interface{})    {}
func (n *NopLogger) Warning(format string, args ...interface{}) {}
func (n *NopLogger) Error(format string, args ...interface{})   {}

// Close is a no-op.
func (n *NopLogger) Close() error {
	return nil
}

var (
	_ Logger = (*StandardLogger)(nil)
	_ Logger = (*NopLogger)(nil)
)

// MockLogger records every call for verification in tests.
type MockLogger struct {
	InfoCalls    []string
	WarningCalls []string
	ErrorCalls   []string
	CloseCalled  bool
}

// NewMockLogger returns an empty MockLogger.
func NewMockLogger() *MockLogger {
	return &MockLogger{
		InfoCalls:    make([]string, 0),
		WarningCalls: make([]string, 0),
		ErrorCalls:   make([]string, 0),
	}
}

// Info records the formatted message.
func (m *MockLogger) Info(format string, args ...interface{}) {
	m.InfoCalls = append(m.InfoCalls, fmt.Sprintf(format, args...))
}

// Warning records the formatted message.
func (m *MockLogger) Warning(format string, args ...interface{}) {
	m.WarningCalls = append(m.WarningCalls, fmt.Sprintf(format, args...))
}

// Error records the formatted message.
func (m *MockLogger) Error(format string, args ...interface{}) {
	m.ErrorCalls = append(m.ErrorCalls, fmt.Sprintf(format, args...))
}

// Close records that Close was called.
func (m *MockLogger) Close() error {
	m.CloseCalled = true
	return nil
}

var _ Logger = (*MockLogger)(nil)

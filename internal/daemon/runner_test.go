package daemon

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// TestNewRunner_CreatesWithCorrectConfig tests that New() creates a runner with
// the correct configuration values.
func TestNewRunner_CreatesWithCorrectConfig(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
	}{
		{
			name: "default configuration",
			config: &Config{
				ConfigDir: "/tmp/chime",
			},
		},
		{
			name: "custom shutdown timeout",
			config: &Config{
				ConfigDir:       "/tmp/chime",
				ShutdownTimeout: 10 * time.Second,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := New(tt.config, nil)
			if runner == nil {
				t.Fatal("New() returned nil runner")
			}
			if runner.Config().ConfigDir != tt.config.ConfigDir {
				t.Errorf("ConfigDir = %q, want %q", runner.Config().ConfigDir, tt.config.ConfigDir)
			}
			if runner.Config().ShutdownTimeout != tt.config.ShutdownTimeout {
				t.Errorf("ShutdownTimeout = %v, want %v", runner.Config().ShutdownTimeout, tt.config.ShutdownTimeout)
			}
		})
	}
}

// TestNewRunner_NilConfig tests that New() handles nil config gracefully.
func TestNewRunner_NilConfig(t *testing.T) {
	runner := New(nil, nil)
	if runner == nil {
		t.Fatal("New() with nil config returned nil runner")
	}
	if runner.Config() == nil {
		t.Error("Config() returned nil with nil input config")
	}
}

// TestRunner_Start_RunsFunc tests that Start() invokes the run function.
func TestRunner_Start_RunsFunc(t *testing.T) {
	var ran atomic.Bool
	runner := New(nil, &Dependencies{
		RunFunc: func(ctx context.Context) error {
			ran.Store(true)
			<-ctx.Done()
			return ctx.Err()
		},
	})

	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- runner.Start(ctx)
	}()

	// Give time for Start to begin
	time.Sleep(50 * time.Millisecond)

	if !ran.Load() {
		t.Error("Start() did not invoke run function")
	}
	if !runner.IsRunning() {
		t.Error("Start() did not set running state")
	}

	cancel()
	<-errCh
}

// TestRunner_Start_ReturnsErrorIfAlreadyRunning tests that Start() returns an error
// if the runner is already started.
func TestRunner_Start_ReturnsErrorIfAlreadyRunning(t *testing.T) {
	runner := New(nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start first instance
	go func() {
		_ = runner.Start(ctx)
	}()

	// Give time for Start to begin
	time.Sleep(50 * time.Millisecond)

	// Attempt to start again
	err := runner.Start(ctx)
	if err == nil {
		t.Error("Start() should return error when already running")
	}
	if !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("Start() error = %v, want ErrAlreadyRunning", err)
	}
}

// TestRunner_Shutdown tests that Shutdown() gracefully stops the runner.
func TestRunner_Shutdown(t *testing.T) {
	var shutdownCalled atomic.Bool
	mockShutdownFunc := func() error {
		shutdownCalled.Store(true)
		return nil
	}

	runner := New(nil, &Dependencies{
		ShutdownFunc: mockShutdownFunc,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start the runner
	go func() {
		_ = runner.Start(ctx)
	}()

	// Give time for Start to begin
	time.Sleep(50 * time.Millisecond)

	// Shutdown
	err := runner.Shutdown()
	if err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	if !shutdownCalled.Load() {
		t.Error("Shutdown() did not call shutdown function")
	}

	if runner.IsRunning() {
		t.Error("Shutdown() did not stop the runner")
	}
}

// TestRunner_Shutdown_WithTimeout tests that Shutdown() respects timeout.
func TestRunner_Shutdown_WithTimeout(t *testing.T) {
	config := &Config{
		ShutdownTimeout: 100 * time.Millisecond,
	}

	// Mock shutdown that takes too long
	mockShutdownFunc := func() error {
		time.Sleep(500 * time.Millisecond)
		return nil
	}

	runner := New(config, &Dependencies{
		ShutdownFunc: mockShutdownFunc,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = runner.Start(ctx)
	}()

	time.Sleep(50 * time.Millisecond)

	err := runner.Shutdown()
	if err == nil {
		t.Error("Shutdown() should return timeout error")
	}
	if !errors.Is(err, ErrShutdownTimeout) {
		t.Errorf("Shutdown() error = %v, want ErrShutdownTimeout", err)
	}
}

// TestRunner_Shutdown_NotRunning tests that Shutdown() handles not-running state.
func TestRunner_Shutdown_NotRunning(t *testing.T) {
	runner := New(nil, nil)

	err := runner.Shutdown()
	if err == nil {
		t.Error("Shutdown() should return error when not running")
	}
	if !errors.Is(err, ErrNotRunning) {
		t.Errorf("Shutdown() error = %v, want ErrNotRunning", err)
	}
}

// TestRunner_Context_CancellationStopsRunner tests context cancellation stops the runner.
func TestRunner_Context_CancellationStopsRunner(t *testing.T) {
	runner := New(nil, nil)

	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- runner.Start(ctx)
	}()

	time.Sleep(50 * time.Millisecond)

	// Cancel context
	cancel()

	// Wait for Start to return
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("Start() returned unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Error("Start() did not return after context cancellation")
	}

	if runner.IsRunning() {
		t.Error("Runner should not be running after context cancellation")
	}
}

// TestRunner_ExecuteWithTimeout_ReturnsError tests that executeWithTimeout returns
// errors from the function when it completes within the timeout.
func TestRunner_ExecuteWithTimeout_ReturnsError(t *testing.T) {
	config := &Config{
		ShutdownTimeout: 1 * time.Second,
	}

	expectedErr := errors.New("shutdown error")
	runner := New(config, &Dependencies{
		ShutdownFunc: func() error {
			return expectedErr
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = runner.Start(ctx)
	}()

	time.Sleep(50 * time.Millisecond)

	err := runner.Shutdown()
	if err == nil {
		t.Error("Shutdown() should return the error from shutdown function")
	}
	if !errors.Is(err, expectedErr) {
		t.Errorf("Shutdown() error = %v, want %v", err, expectedErr)
	}
}

// TestRunner_RunFuncError tests that Start() surfaces the run function's error.
func TestRunner_RunFuncError(t *testing.T) {
	wantErr := errors.New("server died")
	runner := New(nil, &Dependencies{
		RunFunc: func(context.Context) error { return wantErr },
	})

	err := runner.Start(context.Background())
	if !errors.Is(err, wantErr) {
		t.Errorf("Start() error = %v, want %v", err, wantErr)
	}
	if runner.IsRunning() {
		t.Error("Runner should not be running after run function returned")
	}
}

// Package player plays cached bell clips. Backends are tried in order
// under the auto backend: an external player command, a builtin
// ffmpeg+oto pipeline, and a synthesized chime that degrades to the
// terminal bell. The daemon always gets some kind of bell out.
package player

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chimebell/chime/internal/config"
	"github.com/chimebell/chime/pkg/chimelib"
	"github.com/chimebell/chime/pkg/logger"
)

// ErrStopped reports a playback cut short by Stop.
var ErrStopped = errors.New("playback stopped")

// Player plays one clip at a time.
type Player interface {
	// Play blocks until the clip finishes, Stop is called or ctx is
	// cancelled.
	Play(ctx context.Context, path string) error
	// Stop interrupts the active playback. No-op when idle.
	Stop()
	// Name identifies the backend for logs and status output.
	Name() string
}

// Select picks a playback backend for cfg. The auto backend chains
// whatever is usable on this host and ends on the tone synth, which
// cannot fail. Explicit backends are returned as-is and report their
// own errors at play time.
func Select(cfg *config.PlayerConfig, l logger.Logger) Player {
	if cfg == nil {
		cfg = &config.PlayerConfig{}
	}
	if l == nil {
		l = logger.NewNopLogger()
	}
	switch cfg.Backend {
	case config.BackendExec:
		return newExecPlayer(cfg, l)
	case config.BackendBuiltin:
		return newBuiltinPlayer(l)
	case config.BackendTone:
		return newTonePlayer(l)
	}

	var chain []Player
	if p := probeExecPlayer(cfg, l); p != nil {
		chain = append(chain, p)
	}
	if chimelib.FFmpegAvailable() {
		chain = append(chain, newBuiltinPlayer(l))
	}
	chain = append(chain, newTonePlayer(l))
	return &fallbackPlayer{l: l, chain: chain}
}

// fallbackPlayer walks its chain until one backend gets the clip out.
// Stop and ctx cancellation end the walk instead of falling through.
type fallbackPlayer struct {
	l     logger.Logger
	chain []Player

	mu      sync.Mutex
	active  Player
	stopped bool
}

func (f *fallbackPlayer) Play(ctx context.Context, path string) error {
	f.mu.Lock()
	f.stopped = false
	f.mu.Unlock()

	var lastErr error
	for _, p := range f.chain {
		f.mu.Lock()
		if f.stopped {
			f.mu.Unlock()
			return ErrStopped
		}
		f.active = p
		f.mu.Unlock()

		err := p.Play(ctx, path)

		f.mu.Lock()
		f.active = nil
		f.mu.Unlock()

		if err == nil {
			return nil
		}
		if errors.Is(err, ErrStopped) || ctx.Err() != nil {
			return err
		}
		f.l.Warning("player %s failed, trying next backend: %v", p.Name(), err)
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no playback backend available")
	}
	return lastErr
}

func (f *fallbackPlayer) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	if f.active != nil {
		f.active.Stop()
	}
}

func (f *fallbackPlayer) Name() string { return "auto" }

// terminalBell is the last resort when no audio device exists.
func terminalBell() {
	fmt.Print("\a")
}

var (
	_ Player = (*fallbackPlayer)(nil)
	_ Player = (*execPlayer)(nil)
	_ Player = (*builtinPlayer)(nil)
	_ Player = (*tonePlayer)(nil)
)

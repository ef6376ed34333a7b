package player

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sync"

	"github.com/chimebell/chime/internal/config"
	"github.com/chimebell/chime/pkg/logger"
)

// lookPlayer is swappable in tests.
var lookPlayer = exec.LookPath

// execCandidate is one platform player command; the clip path is
// appended to args.
type execCandidate struct {
	bin  string
	args []string
}

// execPlayer shells out to an external player.
type execPlayer struct {
	bin  string
	args []string
	l    logger.Logger

	mu      sync.Mutex
	active  *exec.Cmd
	stopped bool
}

// newExecPlayer builds the exec backend for an explicit
// Backend=exec config. A missing binary surfaces at play time.
func newExecPlayer(cfg *config.PlayerConfig, l logger.Logger) *execPlayer {
	if cfg.Command != "" {
		return &execPlayer{bin: cfg.Command, args: cfg.Args, l: l}
	}
	if p := probeExecPlayer(cfg, l); p != nil {
		return p
	}
	cands := playerCandidates()
	l.Warning("no player command found in PATH, playback will fail until %s is installed", cands[0].bin)
	return &execPlayer{bin: cands[0].bin, args: cands[0].args, l: l}
}

// probeExecPlayer returns an exec backend only when a usable command
// exists right now. Used to assemble the auto chain.
func probeExecPlayer(cfg *config.PlayerConfig, l logger.Logger) *execPlayer {
	if cfg.Command != "" {
		if _, err := lookPlayer(cfg.Command); err != nil {
			l.Warning("configured player %s not found in PATH", cfg.Command)
			return nil
		}
		return &execPlayer{bin: cfg.Command, args: cfg.Args, l: l}
	}
	for _, c := range playerCandidates() {
		if _, err := lookPlayer(c.bin); err == nil {
			return &execPlayer{bin: c.bin, args: c.args, l: l}
		}
	}
	return nil
}

func (p *execPlayer) Play(ctx context.Context, path string) error {
	// Re-resolve every play; the binary may have gone away since the
	// backend was selected.
	bin, err := lookPlayer(p.bin)
	if err != nil {
		return fmt.Errorf("player %s not found: %w", p.bin, err)
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, append(append([]string{}, p.args...), path)...)
	cmd.Stderr = &stderr
	setProcGroup(cmd)

	p.mu.Lock()
	p.stopped = false
	if err := cmd.Start(); err != nil {
		p.mu.Unlock()
		return fmt.Errorf("player %s: %w", p.bin, err)
	}
	p.active = cmd
	p.mu.Unlock()

	err = cmd.Wait()

	p.mu.Lock()
	p.active = nil
	wasStopped := p.stopped
	p.mu.Unlock()

	switch {
	case wasStopped:
		return ErrStopped
	case ctx.Err() != nil:
		return ctx.Err()
	case err != nil:
		if msg := lastLine(stderr.Bytes()); msg != "" {
			return fmt.Errorf("player %s: %s", p.bin, msg)
		}
		return fmt.Errorf("player %s: %w", p.bin, err)
	}
	return nil
}

func (p *execPlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active == nil {
		return
	}
	p.stopped = true
	killProcGroup(p.active)
}

func (p *execPlayer) Name() string { return p.bin }

func lastLine(out []byte) string {
	out = bytes.TrimSpace(out)
	if i := bytes.LastIndexByte(out, '\n'); i >= 0 {
		out = out[i+1:]
	}
	return string(out)
}

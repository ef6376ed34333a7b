package player

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"

	"github.com/chimebell/chime/pkg/logger"
)

// builtinPlayer decodes the clip with ffmpeg and feeds the raw PCM to
// the audio device directly. Covers hosts with ffmpeg but no player
// binary.
type builtinPlayer struct {
	l logger.Logger

	mu     sync.Mutex
	stopCh chan struct{}
}

func newBuiltinPlayer(l logger.Logger) *builtinPlayer {
	return &builtinPlayer{l: l}
}

// decodeClip runs ffmpeg to decode any input into interleaved stereo
// s16le at the package sample rate. Clips top out around a minute, so
// decoding whole into memory stays small.
func decodeClip(ctx context.Context, path string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", path,
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", fmt.Sprint(pcmSampleRate),
		"-ac", fmt.Sprint(pcmChannels),
		"-loglevel", "error",
		"pipe:1",
	)
	out, err := cmd.Output()
	if err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) && len(ee.Stderr) > 0 {
			return nil, fmt.Errorf("ffmpeg decode %s: %s", path, lastLine(ee.Stderr))
		}
		return nil, fmt.Errorf("ffmpeg decode %s: %w", path, err)
	}
	// int16 alignment
	frame := pcmChannels * pcmBytes
	if rem := len(out) % frame; rem != 0 {
		out = out[:len(out)-rem]
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("ffmpeg decode %s: no audio", path)
	}
	return out, nil
}

func (b *builtinPlayer) Play(ctx context.Context, path string) error {
	pcm, err := decodeClip(ctx, path)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.stopCh = make(chan struct{})
	stop := b.stopCh
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		b.stopCh = nil
		b.mu.Unlock()
	}()
	return playPCM(ctx, stop, pcm)
}

func (b *builtinPlayer) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopCh != nil {
		select {
		case <-b.stopCh:
		default:
			close(b.stopCh)
		}
	}
}

func (b *builtinPlayer) Name() string { return "builtin" }

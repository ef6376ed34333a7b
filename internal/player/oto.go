package player

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// All PCM in this package is interleaved stereo s16le at 44.1kHz, the
// same shape the fetch engine normalizes clips to.
const (
	pcmSampleRate = 44100
	pcmChannels   = 2
	pcmBytes      = 2
)

// oto allows one context per process, so both the builtin and tone
// backends share it.
var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoErr  error
)

func sharedOtoContext() (*oto.Context, error) {
	otoOnce.Do(func() {
		var ready chan struct{}
		otoCtx, ready, otoErr = oto.NewContext(&oto.NewContextOptions{
			SampleRate:   pcmSampleRate,
			ChannelCount: pcmChannels,
			Format:       oto.FormatSignedInt16LE,
		})
		if otoErr == nil {
			<-ready
		}
	})
	return otoCtx, otoErr
}

// playPCM feeds pcm to the audio device and blocks until it drains,
// stop closes or ctx is cancelled.
func playPCM(ctx context.Context, stop <-chan struct{}, pcm []byte) error {
	octx, err := sharedOtoContext()
	if err != nil {
		return err
	}
	p := octx.NewPlayer(bytes.NewReader(pcm))
	defer p.Close()
	p.Play()

	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for p.IsPlaying() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return ErrStopped
		case <-tick.C:
		}
	}
	return p.Err()
}

package player

import (
	"context"
	"encoding/binary"
	"math"
	"sync"

	"github.com/chimebell/chime/pkg/logger"
)

// tonePlayer rings a synthesized chime. It needs no media file and no
// external tools, and when even the audio device is gone it falls back
// to the terminal bell, so it never fails.
type tonePlayer struct {
	l logger.Logger

	mu     sync.Mutex
	stopCh chan struct{}
}

func newTonePlayer(l logger.Logger) *tonePlayer {
	return &tonePlayer{l: l}
}

// synthChime renders a two-strike school chime: a small stack of sine
// partials struck twice with an exponential decay, interleaved stereo
// s16le.
func synthChime() []byte {
	const (
		strikeGap = 0.65 // seconds between the two strikes
		tail      = 1.6  // decay tail after the second strike
		tau       = 0.45 // decay time constant
	)
	partials := []struct{ freq, amp float64 }{
		{659.26, 1.0}, // E5
		{1318.51, 0.55},
		{1975.53, 0.30},
		{2637.02, 0.12},
	}
	n := int((strikeGap + tail) * pcmSampleRate)
	mono := make([]float64, n)
	strike := func(at float64) {
		start := int(at * pcmSampleRate)
		for i := start; i < n; i++ {
			t := float64(i-start) / pcmSampleRate
			env := math.Exp(-t / tau)
			var s float64
			for _, p := range partials {
				s += p.amp * math.Sin(2*math.Pi*p.freq*t)
			}
			mono[i] += s * env
		}
	}
	strike(0)
	strike(strikeGap)

	var peak float64
	for _, s := range mono {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	scale := 0.85 * math.MaxInt16
	if peak > 0 {
		scale /= peak
	}
	buf := make([]byte, n*pcmChannels*pcmBytes)
	for i, s := range mono {
		v := uint16(int16(s * scale))
		binary.LittleEndian.PutUint16(buf[i*4:], v)
		binary.LittleEndian.PutUint16(buf[i*4+2:], v)
	}
	return buf
}

// Play ignores path; the chime is synthesized.
func (t *tonePlayer) Play(ctx context.Context, path string) error {
	t.mu.Lock()
	t.stopCh = make(chan struct{})
	stop := t.stopCh
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		t.stopCh = nil
		t.mu.Unlock()
	}()

	err := playPCM(ctx, stop, synthChime())
	if err != nil && err != ErrStopped && ctx.Err() == nil {
		t.l.Warning("no audio device (%v), ringing the terminal bell", err)
		terminalBell()
		return nil
	}
	return err
}

func (t *tonePlayer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopCh != nil {
		select {
		case <-t.stopCh:
		default:
			close(t.stopCh)
		}
	}
}

func (t *tonePlayer) Name() string { return "tone" }

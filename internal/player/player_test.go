package player

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/chimebell/chime/internal/config"
	"github.com/chimebell/chime/pkg/logger"
)

type fakePlayer struct {
	name    string
	err     error
	calls   int
	stopped bool
	onPlay  func()
}

func (f *fakePlayer) Play(ctx context.Context, path string) error {
	f.calls++
	if f.onPlay != nil {
		f.onPlay()
	}
	return f.err
}

func (f *fakePlayer) Stop()        { f.stopped = true }
func (f *fakePlayer) Name() string { return f.name }

func TestSelectExplicitBackends(t *testing.T) {
	l := logger.NewNopLogger()

	if p := Select(&config.PlayerConfig{Backend: config.BackendTone}, l); p.Name() != "tone" {
		t.Errorf("tone backend = %q", p.Name())
	}
	if p := Select(&config.PlayerConfig{Backend: config.BackendBuiltin}, l); p.Name() != "builtin" {
		t.Errorf("builtin backend = %q", p.Name())
	}
	p := Select(&config.PlayerConfig{Backend: config.BackendExec, Command: "mycustomplayer"}, l)
	ep, ok := p.(*execPlayer)
	if !ok {
		t.Fatalf("exec backend = %T", p)
	}
	if ep.bin != "mycustomplayer" {
		t.Errorf("exec bin = %q, want configured command", ep.bin)
	}
}

func TestSelectAutoEndsOnTone(t *testing.T) {
	p := Select(&config.PlayerConfig{}, logger.NewNopLogger())
	fp, ok := p.(*fallbackPlayer)
	if !ok {
		t.Fatalf("auto backend = %T, want fallback chain", p)
	}
	if len(fp.chain) == 0 {
		t.Fatal("empty auto chain")
	}
	if last := fp.chain[len(fp.chain)-1]; last.Name() != "tone" {
		t.Errorf("auto chain ends on %q, want tone", last.Name())
	}
	if p.Name() != "auto" {
		t.Errorf("Name = %q, want auto", p.Name())
	}
}

func TestFallbackChain(t *testing.T) {
	ml := logger.NewMockLogger()
	broken := &fakePlayer{name: "broken", err: errors.New("device busy")}
	good := &fakePlayer{name: "good"}
	f := &fallbackPlayer{l: ml, chain: []Player{broken, good}}

	if err := f.Play(context.Background(), "clip.mp3"); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if broken.calls != 1 || good.calls != 1 {
		t.Errorf("calls = %d,%d, want 1,1", broken.calls, good.calls)
	}
	if len(ml.WarningCalls) != 1 || !strings.Contains(ml.WarningCalls[0], "broken") {
		t.Errorf("expected fallthrough warning naming the backend, got %v", ml.WarningCalls)
	}
}

func TestFallbackAllFail(t *testing.T) {
	first := &fakePlayer{name: "one", err: errors.New("first broke")}
	second := &fakePlayer{name: "two", err: errors.New("second broke")}
	f := &fallbackPlayer{l: logger.NewNopLogger(), chain: []Player{first, second}}

	err := f.Play(context.Background(), "clip.mp3")
	if err == nil || !strings.Contains(err.Error(), "second broke") {
		t.Errorf("Play = %v, want last backend's error", err)
	}
}

func TestFallbackStopShortCircuits(t *testing.T) {
	stopped := &fakePlayer{name: "one", err: ErrStopped}
	next := &fakePlayer{name: "two"}
	f := &fallbackPlayer{l: logger.NewNopLogger(), chain: []Player{stopped, next}}

	if err := f.Play(context.Background(), "clip.mp3"); !errors.Is(err, ErrStopped) {
		t.Errorf("Play = %v, want ErrStopped", err)
	}
	if next.calls != 0 {
		t.Error("stop must not fall through to the next backend")
	}
}

func TestFallbackCancelShortCircuits(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	first := &fakePlayer{name: "one", err: errors.New("interrupted"), onPlay: cancel}
	next := &fakePlayer{name: "two"}
	f := &fallbackPlayer{l: logger.NewNopLogger(), chain: []Player{first, next}}

	if err := f.Play(ctx, "clip.mp3"); err == nil {
		t.Error("expected error after cancellation")
	}
	if next.calls != 0 {
		t.Error("cancellation must not fall through to the next backend")
	}
}

func TestFallbackStopMarksPending(t *testing.T) {
	first := &fakePlayer{name: "one", err: errors.New("broke")}
	next := &fakePlayer{name: "two"}
	f := &fallbackPlayer{l: logger.NewNopLogger(), chain: []Player{first, next}}
	first.onPlay = f.Stop

	if err := f.Play(context.Background(), "clip.mp3"); !errors.Is(err, ErrStopped) {
		t.Errorf("Play = %v, want ErrStopped when stopped mid-chain", err)
	}
	if next.calls != 0 {
		t.Error("stop raced the chain walk and lost")
	}
}

func TestFallbackStopWhenIdle(t *testing.T) {
	f := &fallbackPlayer{l: logger.NewNopLogger(), chain: []Player{&fakePlayer{name: "one"}}}
	f.Stop()
	// a fresh Play clears the stale stop
	if err := f.Play(context.Background(), "clip.mp3"); err != nil {
		t.Errorf("Play after idle Stop: %v", err)
	}
}

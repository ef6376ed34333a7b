// Package bell orchestrates a ring: pick a link, make sure its clip is
// cached, play it, and record what happened in the journal and the
// play history. Rings are single-flight; school bells do not overlap.
package bell

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/chimebell/chime/common"
	"github.com/chimebell/chime/internal/config"
	"github.com/chimebell/chime/internal/history"
	"github.com/chimebell/chime/internal/journal"
	"github.com/chimebell/chime/internal/links"
	"github.com/chimebell/chime/internal/player"
	"github.com/chimebell/chime/pkg/chimelib"
	"github.com/chimebell/chime/pkg/logger"
)

var (
	// ErrAlreadyRinging rejects a ring while another is in flight.
	ErrAlreadyRinging = errors.New("a bell is already ringing")
	// ErrNotRinging rejects a stop when nothing is playing.
	ErrNotRinging = errors.New("no bell is ringing")
	// ErrUnknownSlot rejects a ring naming a slot the schedule does
	// not have.
	ErrUnknownSlot = errors.New("no such schedule slot")
)

// stopGrace pads the playback cap past ClipSeconds so a clip that was
// never trimmed by ffmpeg still ends close to schedule.
const stopGrace = 10 * time.Second

// RingTrigger says why a bell is ringing and, optionally, what to play.
type RingTrigger struct {
	Kind common.TriggerKind
	// Slot is the schedule slot text for scheduled rings. Empty for
	// manual and rpc triggers; the trigger kind stands in as the slot.
	Slot string
	// URL pins the ring to a specific link, bypassing rotation.
	URL string
}

// RingReport describes a finished ring.
type RingReport struct {
	Slot      string
	URL       string
	ClipHash  string
	ClipName  string
	Player    string
	StartedAt time.Time
	Duration  time.Duration
	Outcome   common.Outcome
	// Fallback names the degraded path taken when the link could not
	// be fetched: "last-played" or "tone". Empty on the normal path.
	Fallback string
	Error    string
}

// Status is a snapshot of the ringer.
type Status struct {
	Ringing     bool
	Slot        string
	URL         string
	ClipHash    string
	ClipName    string
	Player      string
	StartedAt   time.Time
	RingCount   int
	LastRangAt  time.Time
	LastOutcome common.Outcome
}

// Notifier receives bell and fetch events for push delivery. The RPC
// server registers one; a nil notifier drops events.
type Notifier interface {
	Notify(event common.EventType, payload interface{})
}

type currentRing struct {
	Slot      string
	URL       string
	ClipHash  string
	ClipName  string
	StartedAt time.Time
}

// Options wires a Ringer. Manager, Rotation, Journal and History may
// be nil; the ringer degrades to the tone and skips recording.
type Options struct {
	Config   *config.Config
	Manager  *chimelib.Manager
	Rotation *links.Rotation
	Journal  *journal.Journal
	History  *history.Store
	// Player overrides the backend chosen from Config.Player.
	Player player.Player
	// Tone overrides the last-resort synth player.
	Tone   player.Player
	Logger logger.Logger
}

// Ringer rings bells.
type Ringer struct {
	manager *chimelib.Manager
	jrnl    *journal.Journal
	hist    *history.Store
	l       logger.Logger

	player      player.Player
	tone        player.Player
	clipSeconds int

	mu          sync.Mutex
	rotation    *links.Rotation
	notifier    Notifier
	ringing     bool
	stopPending bool
	active      player.Player
	current     currentRing
	ringCount   int
	lastRangAt  time.Time
	lastOutcome common.Outcome
}

func NewRinger(opts Options) *Ringer {
	l := opts.Logger
	if l == nil {
		l = logger.NewNopLogger()
	}
	p := opts.Player
	if p == nil {
		var pc *config.PlayerConfig
		if opts.Config != nil {
			pc = &opts.Config.Player
		}
		p = player.Select(pc, l)
	}
	tone := opts.Tone
	if tone == nil {
		tone = player.Select(&config.PlayerConfig{Backend: config.BackendTone}, l)
	}
	clipSeconds := 0
	if opts.Config != nil {
		clipSeconds = opts.Config.ClipSeconds
	}
	return &Ringer{
		manager:     opts.Manager,
		jrnl:        opts.Journal,
		hist:        opts.History,
		l:           l,
		player:      p,
		tone:        tone,
		clipSeconds: clipSeconds,
		rotation:    opts.Rotation,
	}
}

// SetNotifier registers the push sink. Safe to call while ringing.
func (r *Ringer) SetNotifier(n Notifier) {
	r.mu.Lock()
	r.notifier = n
	r.mu.Unlock()
}

// Rotation returns the current link rotation, nil when none is loaded.
func (r *Ringer) Rotation() *links.Rotation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rotation
}

// SwapRotation replaces the link rotation, used on reload.
func (r *Ringer) SwapRotation(rot *links.Rotation) {
	r.mu.Lock()
	r.rotation = rot
	r.mu.Unlock()
}

// Manager returns the clip cache manager.
func (r *Ringer) Manager() *chimelib.Manager { return r.manager }

// Ring plays one bell and blocks until playback ends. A second ring
// while one is in flight returns ErrAlreadyRinging; the refusal is
// journaled. Fetch failures fall back to the most recently played
// cached clip, then to the synthesized tone, so a trigger always makes
// a sound.
func (r *Ringer) Ring(ctx context.Context, trigger RingTrigger) (*RingReport, error) {
	slot := trigger.Slot
	if slot == "" {
		slot = string(trigger.Kind)
	}

	r.mu.Lock()
	if r.ringing {
		r.mu.Unlock()
		r.journalEvent(journal.EventRingFailed, journal.Fields{"slot": slot, "err": "already ringing"})
		return nil, ErrAlreadyRinging
	}
	r.ringing = true
	r.stopPending = false
	r.current = currentRing{Slot: slot}
	r.mu.Unlock()

	report, err := r.ring(ctx, trigger, slot)

	r.mu.Lock()
	r.ringing = false
	r.active = nil
	r.current = currentRing{}
	r.ringCount++
	if report != nil {
		r.lastRangAt = report.StartedAt
		r.lastOutcome = report.Outcome
	}
	r.mu.Unlock()
	return report, err
}

func (r *Ringer) ring(ctx context.Context, trigger RingTrigger, slot string) (*RingReport, error) {
	link := trigger.URL
	if link == "" {
		if rot := r.Rotation(); rot != nil && rot.Len() > 0 {
			pick, err := rot.Next()
			if err != nil {
				return nil, err
			}
			link = pick.URL
		}
	}
	r.mu.Lock()
	r.current.URL = link
	r.mu.Unlock()

	ringFields := journal.Fields{"slot": slot, "trigger": trigger.Kind}
	if link != "" {
		ringFields["url"] = link
	}
	r.journalEvent(journal.EventRing, ringFields)

	var (
		clip     *chimelib.Clip
		fallback string
	)
	if link != "" && r.manager != nil {
		var err error
		clip, err = r.manager.Ensure(ctx, link, r.fetchHandlers())
		if err != nil {
			r.l.Warning("fetch %s: %v", link, err)
			if last := r.manager.LastPlayed(); last != nil {
				clip = last
				fallback = "last-played"
				r.l.Info("ringing last played clip %s instead", last.Name)
			}
		}
	}

	active := r.player
	if clip == nil {
		active = r.tone
		fallback = "tone"
	}

	started := time.Now()
	report := &RingReport{
		Slot:      slot,
		URL:       link,
		Player:    active.Name(),
		StartedAt: started,
		Fallback:  fallback,
	}
	if clip != nil {
		report.ClipHash = clip.Hash
		report.ClipName = clip.Name
	}

	r.mu.Lock()
	if r.stopPending {
		r.mu.Unlock()
		report.Outcome = common.OutcomeStopped
		r.journalEvent(journal.EventPlayStopped, journal.Fields{"slot": slot, "dur_ms": 0})
		r.notify(common.EventBellStopped, r.note(report, trigger, ""))
		r.record(report, trigger)
		return report, nil
	}
	r.active = active
	r.current = currentRing{
		Slot: slot, URL: link,
		ClipHash: report.ClipHash, ClipName: report.ClipName,
		StartedAt: started,
	}
	r.mu.Unlock()

	r.notify(common.EventBellRang, r.note(report, trigger, ""))

	var path string
	if clip != nil {
		path = clip.Path
	}
	playErr := r.play(ctx, active, path)
	report.Duration = time.Since(started)

	switch {
	case playErr == nil:
		report.Outcome = common.OutcomePlayed
		r.journalEvent(journal.EventPlayDone, journal.Fields{
			"slot": slot, "dur_ms": report.Duration.Milliseconds(),
		})
	case errors.Is(playErr, player.ErrStopped), errors.Is(playErr, context.Canceled):
		report.Outcome = common.OutcomeStopped
		r.journalEvent(journal.EventPlayStopped, journal.Fields{
			"slot": slot, "dur_ms": report.Duration.Milliseconds(),
		})
		r.notify(common.EventBellStopped, r.note(report, trigger, ""))
	case errors.Is(playErr, context.DeadlineExceeded) && ctx.Err() == nil:
		// The playback cap ended a clip that ran long.
		report.Outcome = common.OutcomePlayed
		r.journalEvent(journal.EventPlayDone, journal.Fields{
			"slot": slot, "dur_ms": report.Duration.Milliseconds(), "capped": true,
		})
	default:
		report.Outcome = common.OutcomeFailed
		report.Error = playErr.Error()
		r.journalEvent(journal.EventRingFailed, journal.Fields{"slot": slot, "err": playErr})
		r.notify(common.EventBellFailed, r.note(report, trigger, playErr.Error()))
	}

	if report.Outcome != common.OutcomeFailed && clip != nil && r.manager != nil {
		r.manager.MarkPlayed(clip.Hash)
	}
	r.record(report, trigger)

	if report.Outcome == common.OutcomeFailed {
		return report, playErr
	}
	return report, nil
}

// Stop interrupts the ring in flight. A stop during the fetch phase
// marks the ring so playback never starts.
func (r *Ringer) Stop() error {
	r.mu.Lock()
	if !r.ringing {
		r.mu.Unlock()
		return ErrNotRinging
	}
	r.stopPending = true
	p := r.active
	r.mu.Unlock()
	if p != nil {
		p.Stop()
	}
	return nil
}

// Status reports the ringer snapshot.
func (r *Ringer) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := Status{
		Ringing:     r.ringing,
		Slot:        r.current.Slot,
		URL:         r.current.URL,
		ClipHash:    r.current.ClipHash,
		ClipName:    r.current.ClipName,
		StartedAt:   r.current.StartedAt,
		RingCount:   r.ringCount,
		LastRangAt:  r.lastRangAt,
		LastOutcome: r.lastOutcome,
	}
	if r.active != nil {
		st.Player = r.active.Name()
	}
	return st
}

func (r *Ringer) play(ctx context.Context, p player.Player, path string) error {
	if r.clipSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(r.clipSeconds)*time.Second+stopGrace)
		defer cancel()
	}
	return p.Play(ctx, path)
}

// fetchHandlers journals fetch activity and pushes progress to the
// notifier. Ensure calls back from a single goroutine per fetch.
func (r *Ringer) fetchHandlers() *chimelib.Handlers {
	var read, total int64
	return &chimelib.Handlers{
		FetchStartedHandler: func(url string, size int64) {
			total = size
			r.journalEvent(journal.EventFetch, journal.Fields{"url": url, "size": size})
			r.notify(common.EventFetchStarted, common.FetchUpdateNote{Url: url, Total: size})
		},
		FetchProgressHandler: func(url string, nread int) {
			read += int64(nread)
			r.notify(common.EventFetchProgress, common.FetchUpdateNote{Url: url, Read: read, Total: total})
		},
		FetchCompleteHandler: func(url string, tread int64) {
			r.notify(common.EventFetchComplete, common.FetchUpdateNote{Url: url, Read: tread, Total: tread})
		},
		ErrorHandler: func(url string, err error) {
			r.journalEvent(journal.EventFetchFailed, journal.Fields{"url": url, "err": err})
			r.notify(common.EventFetchFailed, common.FetchUpdateNote{Url: url, Error: err.Error()})
		},
	}
}

func (r *Ringer) note(report *RingReport, trigger RingTrigger, errMsg string) common.BellEventNote {
	return common.BellEventNote{
		Slot:    report.Slot,
		Url:     report.URL,
		Trigger: trigger.Kind,
		Outcome: report.Outcome,
		Error:   errMsg,
		At:      time.Now(),
	}
}

func (r *Ringer) record(report *RingReport, trigger RingTrigger) {
	if r.hist == nil {
		return
	}
	err := r.hist.Record(history.Play{
		RangAt:   report.StartedAt,
		Slot:     report.Slot,
		URL:      report.URL,
		ClipHash: report.ClipHash,
		Trigger:  trigger.Kind,
		Outcome:  report.Outcome,
		Duration: report.Duration,
		Error:    report.Error,
	})
	if err != nil {
		r.l.Warning("history record: %v", err)
	}
}

func (r *Ringer) journalEvent(event string, fields journal.Fields) {
	if r.jrnl != nil {
		r.jrnl.Append(event, fields)
	}
}

func (r *Ringer) notify(event common.EventType, payload interface{}) {
	r.mu.Lock()
	n := r.notifier
	r.mu.Unlock()
	if n != nil {
		n.Notify(event, payload)
	}
}

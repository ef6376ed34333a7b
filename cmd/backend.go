package cmd

import (
	"context"
	"fmt"
	"sync"

	"github.com/chimebell/chime/common"
	"github.com/chimebell/chime/internal/bell"
	"github.com/chimebell/chime/internal/config"
	"github.com/chimebell/chime/internal/journal"
	"github.com/chimebell/chime/internal/scheduler"
)

// chimeBackend adapts the daemon components to the RPC surface. It is
// shared by the foreground run command and the background daemon.
type chimeBackend struct {
	components *DaemonComponents
	sched      *scheduler.Scheduler
	version    string
	cfgPath    string

	mu       sync.Mutex
	notifier bell.Notifier
	watchers func() int
}

func newBackend(c *DaemonComponents, sched *scheduler.Scheduler, version, cfgPath string) *chimeBackend {
	return &chimeBackend{
		components: c,
		sched:      sched,
		version:    version,
		cfgPath:    cfgPath,
	}
}

// attach wires the push sink once the RPC server exists. The backend
// is created first because the RPC server needs it.
func (b *chimeBackend) attach(n bell.Notifier, watchers func() int) {
	b.mu.Lock()
	b.notifier = n
	b.watchers = watchers
	b.mu.Unlock()
	b.components.Ringer.SetNotifier(n)
}

func (b *chimeBackend) Ring(ctx context.Context, p *common.RingParams) (*common.RingResponse, error) {
	trigger := bell.RingTrigger{Kind: common.TriggerRPC}
	if p != nil {
		trigger.URL = p.Url
		trigger.Slot = p.Slot
	}
	if trigger.Slot != "" && trigger.URL == "" {
		link, err := b.resolveSlot(trigger.Slot)
		if err != nil {
			return nil, err
		}
		trigger.URL = link
	}
	report, err := b.components.Ringer.Ring(ctx, trigger)
	if err != nil {
		return nil, err
	}
	return &common.RingResponse{
		Slot:      report.Slot,
		Url:       report.URL,
		ClipHash:  report.ClipHash,
		ClipName:  report.ClipName,
		Player:    report.Player,
		StartedAt: report.StartedAt,
	}, nil
}

// resolveSlot maps a named schedule slot to its pinned link, which is
// empty when the slot rings the rotation. Naming a slot the schedule
// does not have is an error, not a label.
func (b *chimeBackend) resolveSlot(slot string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sc := &b.components.Config.Schedule
	for _, entry := range sc.Times {
		if entry.At == slot {
			return entry.Link, nil
		}
	}
	for _, expr := range sc.Crons {
		if expr == slot {
			return "", nil
		}
	}
	return "", fmt.Errorf("%w: %s", bell.ErrUnknownSlot, slot)
}

func (b *chimeBackend) Stop() (*common.StopResponse, error) {
	if err := b.components.Ringer.Stop(); err != nil {
		return nil, err
	}
	return &common.StopResponse{Stopped: true}, nil
}

func (b *chimeBackend) Status() *common.StatusResponse {
	st := b.components.Ringer.Status()
	resp := &common.StatusResponse{
		Version:   b.version,
		StartedAt: b.components.StartedAt,
		Playing:   st.Ringing,
		NextBells: b.Next(5),
	}
	if st.Ringing {
		resp.Current = &common.RingResponse{
			Slot:      st.Slot,
			Url:       st.URL,
			ClipHash:  st.ClipHash,
			ClipName:  st.ClipName,
			Player:    st.Player,
			StartedAt: st.StartedAt,
		}
	}
	if rot := b.components.Ringer.Rotation(); rot != nil {
		resp.LinksTotal = rot.Len()
	}
	if m := b.components.Manager; m != nil {
		resp.CachedClips = len(m.Clips())
	}
	b.mu.Lock()
	if b.watchers != nil {
		resp.Watchers = b.watchers()
	}
	b.mu.Unlock()
	return resp
}

func (b *chimeBackend) Next(n int) []common.BellInfo {
	events := b.sched.Upcoming(n)
	bells := make([]common.BellInfo, 0, len(events))
	for _, ev := range events {
		bells = append(bells, common.BellInfo{
			Slot: ev.Slot,
			At:   ev.TriggerAt,
			Url:  ev.Link,
		})
	}
	return bells
}

// Reload re-reads the config file and the link sheet, swaps the
// rotation, and rebuilds the schedule. The running daemon keeps its
// socket, journal and cache; only the schedule and links change.
func (b *chimeBackend) Reload() (*common.ReloadResponse, error) {
	cfg, err := config.Load(b.cfgPath)
	if err != nil {
		return nil, err
	}
	rot, err := openRotation(cfg, b.components.logger)
	if err != nil {
		return nil, err
	}

	c := b.components
	b.mu.Lock()
	c.Config.LinksFile = cfg.LinksFile
	c.Config.Selection = cfg.Selection
	c.Config.Schedule = cfg.Schedule
	n := b.notifier
	b.mu.Unlock()
	c.Ringer.SwapRotation(rot)
	bells, err := loadSchedule(c, b.sched, n, false)
	if err != nil {
		return nil, err
	}

	resp := &common.ReloadResponse{Links: rot.Len(), Bells: bells}
	c.Journal.Append(journal.EventReload, journal.Fields{
		"links": resp.Links,
		"bells": resp.Bells,
	})
	if n != nil {
		n.Notify(common.EventScheduleLoaded, resp)
	}
	return resp, nil
}

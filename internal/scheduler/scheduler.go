package scheduler

import (
	"container/heap"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/adhocore/gronx"

	"github.com/chimebell/chime/internal/config"
)

const maxSleepCap = 60 * time.Second

type peekRequest struct {
	n     int
	reply chan []BellEvent
}

// Scheduler manages pending bell events using a min-heap.
// It runs a background goroutine that sleeps until the next event's
// trigger time, then calls the onTrigger callback with the event.
type Scheduler struct {
	addChan    chan BellEvent
	removeChan chan string
	peekChan   chan peekRequest
	clearChan  chan struct{}
	ctx        context.Context
}

// New creates and starts a new Scheduler.
// The onTrigger callback is invoked in its own goroutine when a bell
// event fires, so a slow callback never stalls the scheduler.
// The scheduler goroutine exits when ctx is cancelled.
func New(ctx context.Context, onTrigger func(BellEvent)) *Scheduler {
	s := &Scheduler{
		addChan:    make(chan BellEvent, 64),
		removeChan: make(chan string, 64),
		peekChan:   make(chan peekRequest),
		clearChan:  make(chan struct{}),
		ctx:        ctx,
	}
	go s.run(onTrigger)
	return s
}

// Add enqueues a new bell event.
func (s *Scheduler) Add(event BellEvent) {
	select {
	case s.addChan <- event:
	case <-s.ctx.Done():
	}
}

// Remove cancels all pending events for a schedule slot.
func (s *Scheduler) Remove(slot string) {
	select {
	case s.removeChan <- slot:
	case <-s.ctx.Done():
	}
}

// Clear drops every pending event. Used before re-adding a freshly
// loaded schedule on reload.
func (s *Scheduler) Clear() {
	select {
	case s.clearChan <- struct{}{}:
	case <-s.ctx.Done():
	}
}

// Upcoming returns the next n pending events in trigger order.
// n <= 0 returns all pending events. Returns nil after shutdown.
func (s *Scheduler) Upcoming(n int) []BellEvent {
	req := peekRequest{n: n, reply: make(chan []BellEvent, 1)}
	select {
	case s.peekChan <- req:
	case <-s.ctx.Done():
		return nil
	}
	select {
	case events := <-req.reply:
		return events
	case <-s.ctx.Done():
		return nil
	}
}

// run is the core scheduler goroutine implementing the active-object pattern.
// It maintains a min-heap of events and sleeps with a 60s max-sleep-cap.
// After firing, cron events re-add their next occurrence and daily
// events re-arm for the next allowed day.
func (s *Scheduler) run(onTrigger func(BellEvent)) {
	h := &bellHeap{}
	heap.Init(h)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	resetTimer := func() <-chan time.Time {
		if timer != nil {
			timer.Stop()
		}
		if h.Len() == 0 {
			// No events — block indefinitely on channels
			return nil
		}
		next := (*h)[0].TriggerAt
		dur := time.Until(next)
		if dur > maxSleepCap {
			dur = maxSleepCap
		}
		if dur < 0 {
			dur = 0
		}
		timer = time.NewTimer(dur)
		return timer.C
	}

	timerCh := resetTimer()

	for {
		select {
		case <-s.ctx.Done():
			return

		case event := <-s.addChan:
			heapPush(h, event)
			timerCh = resetTimer()

		case slot := <-s.removeChan:
			heapRemoveBySlot(h, slot)
			timerCh = resetTimer()

		case <-s.clearChan:
			*h = (*h)[:0]
			timerCh = resetTimer()

		case req := <-s.peekChan:
			events := make([]BellEvent, h.Len())
			copy(events, *h)
			sort.Slice(events, func(i, j int) bool {
				return events[i].TriggerAt.Before(events[j].TriggerAt)
			})
			if req.n > 0 && req.n < len(events) {
				events = events[:req.n]
			}
			req.reply <- events

		case <-timerCh:
			// Check and fire all events whose time has arrived.
			// Each trigger runs in its own goroutine: playback blocks
			// for the length of the clip, and the loop must keep
			// serving peeks and re-arming the next slot meanwhile.
			now := time.Now()
			for h.Len() > 0 && !(*h)[0].TriggerAt.After(now) {
				event := heapPop(h)
				go onTrigger(event)
				switch {
				case event.CronExpr != "":
					next, err := nextCronOccurrence(event.CronExpr, time.Now())
					if err == nil {
						event.TriggerAt = next
						heapPush(h, event)
					}
				case event.Daily:
					event.TriggerAt = nextDailyOccurrence(
						event.TriggerAt.Hour(), event.TriggerAt.Minute(),
						event.Days, time.Now())
					heapPush(h, event)
				}
			}
			timerCh = resetTimer()
		}
	}
}

// nextCronOccurrence returns the next time the cron expression fires strictly
// after start. Uses gronx.NextTickAfter with inclRefTime=false.
func nextCronOccurrence(expr string, start time.Time) (time.Time, error) {
	return gronx.NextTickAfter(expr, start, false)
}

// nextDailyOccurrence returns the first time strictly after the given
// instant that lands on hour:minute of an allowed weekday. Dates are
// advanced with AddDate so DST gaps normalize instead of repeating.
func nextDailyOccurrence(hour, minute int, days []time.Weekday, after time.Time) time.Time {
	next := time.Date(after.Year(), after.Month(), after.Day(), hour, minute, 0, 0, after.Location())
	for !next.After(after) || !dayAllowed(days, next.Weekday()) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// dayAllowed reports whether the weekday passes the day filter.
// An empty filter allows every day.
func dayAllowed(days []time.Weekday, wd time.Weekday) bool {
	if len(days) == 0 {
		return true
	}
	for _, d := range days {
		if d == wd {
			return true
		}
	}
	return false
}

// LoadSchedule builds the startup events from the schedule config.
//
// Every fixed bell time yields a future event at its next allowed
// occurrence. Slots whose time already passed today on an allowed day
// are additionally returned as missed, so the daemon can journal them
// instead of ringing stale bells. Cron entries yield future events
// only; a recurring expression has no meaningful missed instant.
//
// Slots are named by their config text: the HH:MM for fixed times,
// the expression for crons.
func LoadSchedule(sc *config.ScheduleConfig, now time.Time) (future, missed []BellEvent, err error) {
	for _, entry := range sc.Times {
		hour, minute, err := config.ParseBellTime(entry.At)
		if err != nil {
			return nil, nil, err
		}
		days, err := config.ParseDays(sc.DaysFor(entry))
		if err != nil {
			return nil, nil, fmt.Errorf("bell time %q: %w", entry.At, err)
		}
		ev := BellEvent{Slot: entry.At, Days: days, Link: entry.Link, Daily: true}

		today := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
		if today.Before(now) && dayAllowed(days, today.Weekday()) {
			m := ev
			m.TriggerAt = today
			missed = append(missed, m)
		}

		ev.TriggerAt = nextDailyOccurrence(hour, minute, days, now)
		future = append(future, ev)
	}

	for _, expr := range sc.Crons {
		next, err := nextCronOccurrence(expr, now)
		if err != nil {
			return nil, nil, fmt.Errorf("cron %q: %w", expr, err)
		}
		future = append(future, BellEvent{
			Slot:      expr,
			TriggerAt: next,
			CronExpr:  expr,
		})
	}
	return future, missed, nil
}

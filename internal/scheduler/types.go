package scheduler

import "time"

// BellEvent represents a pending bell in the scheduler heap. It is an
// in-memory only type: the heap is rebuilt from the schedule config on
// daemon restart.
type BellEvent struct {
	// Slot identifies the schedule entry this event came from: the
	// HH:MM text for fixed bell times, the expression for crons.
	Slot string
	// TriggerAt is the wall-clock time when the bell should ring.
	TriggerAt time.Time
	// Days restricts daily re-arming to these weekdays. Empty means
	// every day. Ignored for cron events.
	Days []time.Weekday
	// CronExpr is the cron expression for cron-driven bells. Empty
	// means the event came from a fixed bell time.
	CronExpr string
	// Link optionally pins the event to a specific link, bypassing
	// rotation. Empty means the daemon picks from the link sheet.
	Link string
	// Daily marks events that re-arm for the next allowed day after
	// firing. One-shot events (manual test rings) leave it false.
	Daily bool
}

// Package scheduler decides when bells ring. It runs a single
// goroutine over a min-heap of BellEvents sorted by trigger time, with
// a 60-second max-sleep-cap to handle NTP steps, DST transitions and
// system sleep (macOS pauses the monotonic clock).
//
// The scheduler fires events and calls a registered OnTrigger callback
// to ring through the daemon's bell orchestrator. It does not persist
// state: the heap is rebuilt from the schedule config on every start,
// and slots that already passed today are reported as missed so the
// daemon can journal them instead of ringing stale bells.
package scheduler

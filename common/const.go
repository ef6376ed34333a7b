package common

import (
	"os"
	"path/filepath"
)

// EventType names a push notification sent by the daemon to attached
// watchers. The value doubles as the jrpc2 notification method name.
type EventType string

const (
	EventBellRang       EventType = "bell.rang"
	EventBellStopped    EventType = "bell.stopped"
	EventBellFailed     EventType = "bell.failed"
	EventBellMissed     EventType = "bell.missed"
	EventFetchStarted   EventType = "fetch.started"
	EventFetchProgress  EventType = "fetch.progress"
	EventFetchComplete  EventType = "fetch.complete"
	EventFetchFailed    EventType = "fetch.failed"
	EventScheduleLoaded EventType = "schedule.loaded"
	EventDaemonStopping EventType = "daemon.stopping"
)

// TriggerKind records what caused a bell to ring.
type TriggerKind string

const (
	TriggerScheduled TriggerKind = "scheduled"
	TriggerManual    TriggerKind = "manual"
	TriggerRPC       TriggerKind = "rpc"
)

// Outcome records how a ring attempt ended.
type Outcome string

const (
	OutcomePlayed  Outcome = "played"
	OutcomeStopped Outcome = "stopped"
	OutcomeFailed  Outcome = "failed"
	OutcomeMissed  Outcome = "missed"
)

// DefaultSocketName is the filename of the daemon control socket,
// created under the system temp directory.
const DefaultSocketName = "chimed.sock"

// SocketPath returns the unix socket path for the daemon control
// surface. CHIME_SOCKET_PATH overrides the default.
func SocketPath() string {
	if p := os.Getenv(SocketPathEnv); p != "" {
		return p
	}
	return filepath.Join(os.TempDir(), DefaultSocketName)
}

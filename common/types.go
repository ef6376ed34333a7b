package common

import (
	"time"

	"github.com/chimebell/chime/pkg/chimelib"
)

// RingParams asks the daemon to ring the bell immediately. With no
// fields set the daemon plays the next link from the rotation; Url
// plays a specific link, Slot attributes the ring to a schedule slot.
type RingParams struct {
	Url  string `json:"url,omitempty"`
	Slot string `json:"slot,omitempty"`
}

// RingResponse describes a playback that just started.
type RingResponse struct {
	Slot      string    `json:"slot"`
	Url       string    `json:"url"`
	ClipHash  string    `json:"clip_hash,omitempty"`
	ClipName  string    `json:"clip_name,omitempty"`
	Player    string    `json:"player"`
	StartedAt time.Time `json:"started_at"`
}

// StopResponse reports whether a playback was actually interrupted.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// BellInfo is one upcoming schedule entry.
type BellInfo struct {
	Slot string    `json:"slot"`
	At   time.Time `json:"at"`
	Url  string    `json:"url,omitempty"`
}

// StatusResponse is the daemon status snapshot.
type StatusResponse struct {
	Version     string        `json:"version"`
	StartedAt   time.Time     `json:"started_at"`
	Playing     bool          `json:"playing"`
	Current     *RingResponse `json:"current,omitempty"`
	NextBells   []BellInfo    `json:"next_bells,omitempty"`
	LinksTotal  int           `json:"links_total"`
	CachedClips int           `json:"cached_clips"`
	Watchers    int           `json:"watchers"`
}

// NextParams limits how many upcoming bells to report.
type NextParams struct {
	Count int `json:"count,omitempty"`
}

// NextResponse lists upcoming bells in firing order.
type NextResponse struct {
	Bells []BellInfo `json:"bells"`
}

// PlayRecord is one row of ring history.
type PlayRecord struct {
	RangAt     time.Time   `json:"rang_at"`
	Slot       string      `json:"slot"`
	Url        string      `json:"url"`
	ClipHash   string      `json:"clip_hash,omitempty"`
	Trigger    TriggerKind `json:"trigger"`
	Outcome    Outcome     `json:"outcome"`
	DurationMs int64       `json:"duration_ms,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// HistoryParams selects history rows, newest first.
type HistoryParams struct {
	Limit int    `json:"limit,omitempty"`
	Since string `json:"since,omitempty"` // RFC3339
}

// HistoryResponse carries the selected history rows.
type HistoryResponse struct {
	Plays []PlayRecord `json:"plays"`
}

// ReloadResponse reports the result of a config and links reload.
type ReloadResponse struct {
	Links int `json:"links"`
	Bells int `json:"bells"`
}

// CacheListResponse lists the cached clips known to the manifest.
type CacheListResponse struct {
	Clips []*chimelib.Clip `json:"clips"`
}

// CacheFlushParams selects what to drop from the cache; empty hash
// drops everything.
type CacheFlushParams struct {
	ClipHash string `json:"clip_hash,omitempty"`
}

// CacheFlushResponse reports how many clips were dropped.
type CacheFlushResponse struct {
	Flushed int `json:"flushed"`
}

// VersionResponse reports daemon build information.
type VersionResponse struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	Date      string `json:"date,omitempty"`
	BuildType string `json:"build_type,omitempty"`
}

// BellEventNote is the payload of bell.* notifications.
type BellEventNote struct {
	Slot    string      `json:"slot"`
	Url     string      `json:"url,omitempty"`
	Trigger TriggerKind `json:"trigger,omitempty"`
	Outcome Outcome     `json:"outcome,omitempty"`
	Error   string      `json:"error,omitempty"`
	At      time.Time   `json:"at"`
}

// FetchUpdateNote is the payload of fetch.* notifications.
type FetchUpdateNote struct {
	Url   string `json:"url"`
	Hash  string `json:"hash,omitempty"`
	Read  int64  `json:"read,omitempty"`
	Total int64  `json:"total,omitempty"`
	Error string `json:"error,omitempty"`
}

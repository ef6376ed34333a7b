package chimelib

import (
	"os"
	"time"
)

// Clip is one cached bell sound: the media behind a sheet link, fetched
// and (usually) normalized to a short mp3.
type Clip struct {
	// Hash is the stable cache key derived from the link (ClipHash).
	Hash string `json:"hash"`
	// URL is the sheet link this clip was cached for.
	URL string `json:"url"`
	// Name is the cache file name, e.g. "bell_3af09c.mp3".
	Name string `json:"name"`
	// Path is the absolute location of the cache file.
	Path string `json:"path"`
	// Size is the cached file size.
	Size ContentLength `json:"size"`
	// MediaType is the MIME type reported by the source, if any.
	MediaType string `json:"media_type,omitempty"`
	// SourceName is the remote file name before normalization.
	SourceName string `json:"source_name,omitempty"`
	// Transcoded is set when ffmpeg normalized the media.
	Transcoded bool `json:"transcoded"`

	AddedAt      time.Time `json:"added_at"`
	LastPlayedAt time.Time `json:"last_played_at,omitempty"`
	PlayCount    int       `json:"play_count"`
}

// Exists reports whether the cache file is still on disk.
func (c *Clip) Exists() bool {
	fi, err := os.Stat(c.Path)
	return err == nil && !fi.IsDir()
}

// ClipsMap is the manifest payload, keyed by clip hash.
type ClipsMap map[string]*Clip

// ClipSlice sorts clips oldest-added first, hash as tiebreaker, so
// listings are stable run to run.
type ClipSlice []*Clip

func (s ClipSlice) Len() int { return len(s) }

func (s ClipSlice) Less(i, j int) bool {
	if s[i].AddedAt.Equal(s[j].AddedAt) {
		return s[i].Hash < s[j].Hash
	}
	return s[i].AddedAt.Before(s[j].AddedAt)
}

func (s ClipSlice) Swap(i, j int) { s[i], s[j] = s[j], s[i] }

// Package config loads and validates the chime configuration file.
//
// Configuration is a JSON file under the chime config dir (or any
// explicit path). Decoding overlays the file onto Default(), so a
// minimal config can override a single field and keep stock behavior
// for the rest.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adhocore/gronx"
	"github.com/chimebell/chime/pkg/chimelib"
)

var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrConfigInvalid  = errors.New("config file invalid")
)

// Selection modes for picking the next bell link.
const (
	SelectionSequence = "sequence"
	SelectionRandom   = "random"
	SelectionShuffle  = "shuffle"
)

// Playback backends.
const (
	BackendAuto    = "auto"
	BackendExec    = "exec"
	BackendBuiltin = "builtin"
	BackendTone    = "tone"
)

// ConfigFileName is the config file under the chime config dir.
const ConfigFileName = "config.json"

// Config is the full chime configuration.
type Config struct {
	// LinksFile is the single-column sheet of bell media links.
	LinksFile string `json:"links_file"`
	// MediaDir holds the cached clips.
	MediaDir string `json:"media_dir"`
	// JournalFile is the append-only bell event log.
	JournalFile string `json:"journal_file"`
	// HistoryFile is the sqlite play-history database.
	HistoryFile string `json:"history_file"`
	// ClipSeconds trims normalized clips. 0 keeps full length.
	ClipSeconds int `json:"clip_seconds"`
	// Selection picks the next link: sequence, random or shuffle.
	Selection string `json:"selection"`

	Schedule ScheduleConfig `json:"schedule"`
	Player   PlayerConfig   `json:"player"`
	Resolver ResolverConfig `json:"resolver"`
	Fetch    FetchConfig    `json:"fetch"`
	RPC      RPCConfig      `json:"rpc"`
}

// ScheduleConfig describes when bells ring.
type ScheduleConfig struct {
	// Times are daily HH:MM slots.
	Times []ScheduleEntry `json:"times"`
	// Crons are additional cron expressions.
	Crons []string `json:"crons,omitempty"`
	// Days filters Times entries that carry no day filter of their
	// own. Empty means every day.
	Days []string `json:"days,omitempty"`
}

// ScheduleEntry is one daily bell slot.
type ScheduleEntry struct {
	// At is the wall-clock slot, HH:MM.
	At string `json:"at"`
	// Days restricts this slot to named weekdays.
	Days []string `json:"days,omitempty"`
	// Link pins a URL to this slot instead of rotating the sheet.
	Link string `json:"link,omitempty"`
}

// UnmarshalJSON accepts either a bare "HH:MM" string or the full
// object form.
func (e *ScheduleEntry) UnmarshalJSON(data []byte) error {
	var at string
	if err := json.Unmarshal(data, &at); err == nil {
		*e = ScheduleEntry{At: at}
		return nil
	}
	type entryAlias ScheduleEntry
	var a entryAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*e = ScheduleEntry(a)
	return nil
}

// DaysFor returns the day filter for an entry: its own days, or the
// schedule-wide default.
func (sc *ScheduleConfig) DaysFor(e ScheduleEntry) []string {
	if len(e.Days) > 0 {
		return e.Days
	}
	return sc.Days
}

// PlayerConfig selects and configures the playback backend.
type PlayerConfig struct {
	// Backend is auto, exec, builtin or tone.
	Backend string `json:"backend"`
	// Command overrides the platform player candidates (exec backend).
	Command string   `json:"command,omitempty"`
	Args    []string `json:"args,omitempty"`
}

// ResolverConfig configures page-link to media-URL resolution.
type ResolverConfig struct {
	// Tool is the external extractor command.
	Tool     string   `json:"tool"`
	ToolArgs []string `json:"tool_args,omitempty"`
	// ScriptsDir holds resolver scripts.
	ScriptsDir     string `json:"scripts_dir,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// FetchConfig configures clip fetching.
type FetchConfig struct {
	// Prefetch caches every sheet link at daemon start.
	Prefetch       bool   `json:"prefetch"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	MaxConcurrent  int    `json:"max_concurrent"`
	Proxy          string `json:"proxy,omitempty"`
	UserAgent      string `json:"user_agent,omitempty"`
	// SkipTranscode caches raw media without ffmpeg normalization.
	SkipTranscode bool `json:"skip_transcode,omitempty"`
}

// RPCConfig configures the optional TCP control listener. The local
// socket/pipe is always served.
type RPCConfig struct {
	Listen string `json:"listen,omitempty"`
	Secret string `json:"secret,omitempty"`
}

// DefaultPath is the stock config location under the chime config dir.
func DefaultPath() string {
	return filepath.Join(chimelib.ConfigDir, ConfigFileName)
}

// Default returns the stock configuration: the traditional seven-bell
// school day, sequential selection, 60-second clips.
func Default() *Config {
	dir := chimelib.ConfigDir
	return &Config{
		LinksFile:   filepath.Join(dir, "links.csv"),
		MediaDir:    chimelib.DefaultMediaDir(),
		JournalFile: filepath.Join(dir, "chime.log"),
		HistoryFile: filepath.Join(dir, "history.chime"),
		ClipSeconds: 60,
		Selection:   SelectionSequence,
		Schedule: ScheduleConfig{
			Times: defaultBellTimes(),
		},
		Player: PlayerConfig{Backend: BackendAuto},
		Resolver: ResolverConfig{
			Tool:           "yt-dlp",
			TimeoutSeconds: 30,
		},
		Fetch: FetchConfig{
			Prefetch:       true,
			TimeoutSeconds: 120,
			MaxConcurrent:  3,
		},
	}
}

func defaultBellTimes() []ScheduleEntry {
	slots := []string{"09:15", "10:12", "11:15", "12:12", "13:42", "14:42", "15:40"}
	entries := make([]ScheduleEntry, len(slots))
	for i, at := range slots {
		entries[i] = ScheduleEntry{At: at}
	}
	return entries
}

// Load reads a config file. An empty path means DefaultPath; a missing
// file there is a first run and yields Default(). A missing file at an
// explicit path is an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if !explicit {
				return Default(), nil
			}
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigInvalid, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigInvalid, path, err)
	}
	return cfg, nil
}

// Validate checks the config without touching the filesystem.
func (c *Config) Validate() error {
	for _, e := range c.Schedule.Times {
		if _, _, err := ParseBellTime(e.At); err != nil {
			return err
		}
		if _, err := ParseDays(e.Days); err != nil {
			return err
		}
	}
	if _, err := ParseDays(c.Schedule.Days); err != nil {
		return err
	}
	for _, expr := range c.Schedule.Crons {
		if _, err := gronx.NextTickAfter(expr, time.Now(), false); err != nil {
			return fmt.Errorf("cron %q: %v", expr, err)
		}
	}

	if c.ClipSeconds < 0 {
		return fmt.Errorf("clip_seconds must not be negative, got %d", c.ClipSeconds)
	}
	switch c.Selection {
	case SelectionSequence, SelectionRandom, SelectionShuffle:
	default:
		return fmt.Errorf("unknown selection mode %q", c.Selection)
	}
	switch c.Player.Backend {
	case "", BackendAuto, BackendExec, BackendBuiltin, BackendTone:
	default:
		return fmt.Errorf("unknown player backend %q", c.Player.Backend)
	}
	if c.Fetch.MaxConcurrent < 0 {
		return fmt.Errorf("fetch max_concurrent must not be negative, got %d", c.Fetch.MaxConcurrent)
	}
	if c.RPC.Listen != "" && c.RPC.Secret == "" {
		return errors.New("rpc.secret is required when rpc.listen is set")
	}
	return nil
}

// Save writes the config as indented JSON, creating parent directories.
func (c *Config) Save(path string) error {
	if path == "" {
		path = DefaultPath()
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

// ParseBellTime parses an HH:MM wall-clock slot.
func ParseBellTime(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, fmt.Errorf("bell time %q: want HH:MM", s)
	}
	return t.Hour(), t.Minute(), nil
}

var dayNames = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

// ParseDays resolves day names to weekdays. Names are case-insensitive
// three-letter or full English day names, plus the aliases "weekdays"
// and "weekend". An empty list means no filter.
func ParseDays(days []string) ([]time.Weekday, error) {
	if len(days) == 0 {
		return nil, nil
	}
	out := make([]time.Weekday, 0, len(days))
	for _, d := range days {
		name := strings.ToLower(strings.TrimSpace(d))
		switch name {
		case "weekdays":
			out = append(out, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday)
			continue
		case "weekend":
			out = append(out, time.Saturday, time.Sunday)
			continue
		}
		wd, ok := dayNames[name]
		if !ok {
			return nil, fmt.Errorf("unknown day name %q", d)
		}
		out = append(out, wd)
	}
	return out, nil
}

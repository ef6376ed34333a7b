package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/chimebell/chime/pkg/chimelib"
)

func useTempConfigDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := chimelib.SetConfigDir(dir); err != nil {
		t.Fatalf("SetConfigDir: %v", err)
	}
	return dir
}

func TestDefault(t *testing.T) {
	dir := useTempConfigDir(t)
	cfg := Default()

	if len(cfg.Schedule.Times) != 7 {
		t.Fatalf("default schedule has %d times, want 7", len(cfg.Schedule.Times))
	}
	if cfg.Schedule.Times[0].At != "09:15" {
		t.Errorf("first bell = %q, want 09:15", cfg.Schedule.Times[0].At)
	}
	if cfg.Schedule.Times[6].At != "15:40" {
		t.Errorf("last bell = %q, want 15:40", cfg.Schedule.Times[6].At)
	}
	if cfg.Selection != SelectionSequence {
		t.Errorf("Selection = %q, want sequence", cfg.Selection)
	}
	if cfg.ClipSeconds != 60 {
		t.Errorf("ClipSeconds = %d, want 60", cfg.ClipSeconds)
	}
	if cfg.LinksFile != filepath.Join(dir, "links.csv") {
		t.Errorf("LinksFile = %q, want under config dir", cfg.LinksFile)
	}
	if cfg.Resolver.Tool != "yt-dlp" {
		t.Errorf("Resolver.Tool = %q, want yt-dlp", cfg.Resolver.Tool)
	}
	if !cfg.Fetch.Prefetch {
		t.Error("Fetch.Prefetch should default on")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestScheduleEntryUnmarshal(t *testing.T) {
	var sc ScheduleConfig
	raw := `{
		"times": [
			"08:00",
			{"at": "12:30", "days": ["mon", "fri"]},
			{"at": "16:00", "link": "https://example.com/last-bell.mp3"}
		]
	}`
	if err := json.Unmarshal([]byte(raw), &sc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(sc.Times) != 3 {
		t.Fatalf("got %d times, want 3", len(sc.Times))
	}
	if sc.Times[0].At != "08:00" || sc.Times[0].Link != "" {
		t.Errorf("bare string entry = %+v", sc.Times[0])
	}
	if sc.Times[1].At != "12:30" || len(sc.Times[1].Days) != 2 {
		t.Errorf("object entry = %+v", sc.Times[1])
	}
	if sc.Times[2].Link != "https://example.com/last-bell.mp3" {
		t.Errorf("pinned entry = %+v", sc.Times[2])
	}
}

func TestDaysFor(t *testing.T) {
	sc := ScheduleConfig{Days: []string{"weekdays"}}
	own := ScheduleEntry{At: "10:00", Days: []string{"sat"}}
	plain := ScheduleEntry{At: "11:00"}

	if got := sc.DaysFor(own); !reflect.DeepEqual(got, []string{"sat"}) {
		t.Errorf("DaysFor(own) = %v", got)
	}
	if got := sc.DaysFor(plain); !reflect.DeepEqual(got, []string{"weekdays"}) {
		t.Errorf("DaysFor(plain) = %v", got)
	}
}

func TestLoad(t *testing.T) {
	t.Run("first run returns defaults", func(t *testing.T) {
		useTempConfigDir(t)
		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if len(cfg.Schedule.Times) != 7 {
			t.Errorf("expected default schedule, got %d times", len(cfg.Schedule.Times))
		}
	})

	t.Run("explicit missing path is an error", func(t *testing.T) {
		useTempConfigDir(t)
		_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("Load = %v, want ErrConfigNotFound", err)
		}
	})

	t.Run("malformed JSON", func(t *testing.T) {
		useTempConfigDir(t)
		p := filepath.Join(t.TempDir(), "config.json")
		if err := os.WriteFile(p, []byte("{not json"), 0644); err != nil {
			t.Fatal(err)
		}
		_, err := Load(p)
		if !errors.Is(err, ErrConfigInvalid) {
			t.Errorf("Load = %v, want ErrConfigInvalid", err)
		}
	})

	t.Run("overlay keeps defaults for absent fields", func(t *testing.T) {
		useTempConfigDir(t)
		p := filepath.Join(t.TempDir(), "config.json")
		raw := `{"selection": "random", "schedule": {"times": ["08:00"]}}`
		if err := os.WriteFile(p, []byte(raw), 0644); err != nil {
			t.Fatal(err)
		}
		cfg, err := Load(p)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.Selection != SelectionRandom {
			t.Errorf("Selection = %q, want random", cfg.Selection)
		}
		if len(cfg.Schedule.Times) != 1 || cfg.Schedule.Times[0].At != "08:00" {
			t.Errorf("Times = %+v, want single 08:00", cfg.Schedule.Times)
		}
		if cfg.ClipSeconds != 60 {
			t.Errorf("ClipSeconds = %d, default should survive overlay", cfg.ClipSeconds)
		}
		if cfg.Resolver.Tool != "yt-dlp" {
			t.Errorf("Resolver.Tool = %q, default should survive overlay", cfg.Resolver.Tool)
		}
	})

	t.Run("invalid values are rejected", func(t *testing.T) {
		useTempConfigDir(t)
		p := filepath.Join(t.TempDir(), "config.json")
		if err := os.WriteFile(p, []byte(`{"selection": "roulette"}`), 0644); err != nil {
			t.Fatal(err)
		}
		_, err := Load(p)
		if !errors.Is(err, ErrConfigInvalid) {
			t.Errorf("Load = %v, want ErrConfigInvalid", err)
		}
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		useTempConfigDir(t)
		return Default()
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"stock config", func(c *Config) {}, false},
		{"cron entry", func(c *Config) { c.Schedule.Crons = []string{"*/5 * * * *"} }, false},
		{"day filters", func(c *Config) {
			c.Schedule.Days = []string{"weekdays"}
			c.Schedule.Times[0].Days = []string{"Monday", "wed"}
		}, false},
		{"zero clip seconds keeps full media", func(c *Config) { c.ClipSeconds = 0 }, false},
		{"rpc with secret", func(c *Config) { c.RPC = RPCConfig{Listen: "127.0.0.1:9955", Secret: "s3"} }, false},
		{"bad time", func(c *Config) { c.Schedule.Times[0].At = "25:00" }, true},
		{"not a time", func(c *Config) { c.Schedule.Times[0].At = "noonish" }, true},
		{"bad day", func(c *Config) { c.Schedule.Days = []string{"funday"} }, true},
		{"bad cron", func(c *Config) { c.Schedule.Crons = []string{"not a cron"} }, true},
		{"negative clip seconds", func(c *Config) { c.ClipSeconds = -1 }, true},
		{"unknown selection", func(c *Config) { c.Selection = "roulette" }, true},
		{"unknown backend", func(c *Config) { c.Player.Backend = "gramophone" }, true},
		{"rpc listen without secret", func(c *Config) { c.RPC = RPCConfig{Listen: "127.0.0.1:9955"} }, true},
		{"negative concurrency", func(c *Config) { c.Fetch.MaxConcurrent = -2 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	useTempConfigDir(t)
	cfg := Default()
	cfg.Selection = SelectionShuffle
	cfg.Schedule.Times = []ScheduleEntry{{At: "07:45", Days: []string{"mon"}}}

	p := filepath.Join(t.TempDir(), "nested", "config.json")
	if err := cfg.Save(p); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Selection != SelectionShuffle {
		t.Errorf("Selection = %q, want shuffle", got.Selection)
	}
	if len(got.Schedule.Times) != 1 || got.Schedule.Times[0].At != "07:45" {
		t.Errorf("Times = %+v", got.Schedule.Times)
	}
}

func TestParseBellTime(t *testing.T) {
	tests := []struct {
		in       string
		hour, mm int
		wantErr  bool
	}{
		{"09:15", 9, 15, false},
		{"23:59", 23, 59, false},
		{"00:00", 0, 0, false},
		{" 12:12 ", 12, 12, false},
		{"24:00", 0, 0, true},
		{"09:65", 0, 0, true},
		{"0915", 0, 0, true},
		{"", 0, 0, true},
		{"ab:cd", 0, 0, true},
	}
	for _, tt := range tests {
		h, m, err := ParseBellTime(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseBellTime(%q) should fail", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseBellTime(%q): %v", tt.in, err)
			continue
		}
		if h != tt.hour || m != tt.mm {
			t.Errorf("ParseBellTime(%q) = %d:%d, want %d:%d", tt.in, h, m, tt.hour, tt.mm)
		}
	}
}

func TestParseDays(t *testing.T) {
	t.Run("empty means no filter", func(t *testing.T) {
		got, err := ParseDays(nil)
		if err != nil || got != nil {
			t.Errorf("ParseDays(nil) = %v, %v", got, err)
		}
	})

	t.Run("names and case", func(t *testing.T) {
		got, err := ParseDays([]string{"mon", "FRI", "Sunday"})
		if err != nil {
			t.Fatalf("ParseDays: %v", err)
		}
		want := []time.Weekday{time.Monday, time.Friday, time.Sunday}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("ParseDays = %v, want %v", got, want)
		}
	})

	t.Run("weekdays alias", func(t *testing.T) {
		got, err := ParseDays([]string{"weekdays"})
		if err != nil || len(got) != 5 {
			t.Errorf("ParseDays(weekdays) = %v, %v", got, err)
		}
	})

	t.Run("weekend alias", func(t *testing.T) {
		got, err := ParseDays([]string{"weekend"})
		if err != nil || len(got) != 2 {
			t.Errorf("ParseDays(weekend) = %v, %v", got, err)
		}
	})

	t.Run("unknown name", func(t *testing.T) {
		if _, err := ParseDays([]string{"funday"}); err == nil {
			t.Error("expected error for unknown day name")
		}
	})
}

package cmd

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chimebell/chime/common"
	"github.com/chimebell/chime/internal/bell"
	"github.com/chimebell/chime/internal/config"
	"github.com/chimebell/chime/internal/history"
	"github.com/chimebell/chime/internal/journal"
	"github.com/chimebell/chime/internal/links"
	"github.com/chimebell/chime/internal/resolver"
	"github.com/chimebell/chime/internal/scheduler"
	"github.com/chimebell/chime/pkg/chimelib"
	"github.com/chimebell/chime/pkg/credstore"
	"github.com/chimebell/chime/pkg/credstore/keyring"
	"github.com/chimebell/chime/pkg/logger"
)

const credFileName = "creds.chime"

// DaemonComponents holds all initialized daemon components.
// This allows for unified initialization and cleanup across
// foreground runs and background daemon mode.
type DaemonComponents struct {
	Config    *config.Config
	Journal   *journal.Journal
	History   *history.Store
	Creds     *credstore.Store
	Resolver  *resolver.Resolver
	Manager   *chimelib.Manager
	Ringer    *bell.Ringer
	StartedAt time.Time
	logger    logger.Logger
}

// Close releases all daemon component resources in reverse order of
// initialization.
func (c *DaemonComponents) Close() {
	if c.Ringer != nil {
		_ = c.Ringer.Stop()
	}
	if c.Manager != nil {
		if err := c.Manager.Close(); err != nil {
			c.logger.Warning("closing clip manager: %v", err)
		}
	}
	if c.Creds != nil {
		_ = c.Creds.Close()
	}
	if c.History != nil {
		_ = c.History.Close()
	}
	if c.Journal != nil {
		c.Journal.Append(journal.EventStop, nil)
		_ = c.Journal.Close()
	}
}

// initDaemonComponents initializes all daemon components with the
// provided logger. This is the shared initialization used by both the
// foreground run command and the background daemon.
//
// On error, any partially initialized components are cleaned up before
// returning.
var initDaemonComponents = func(log logger.Logger, cfgPath string) (*DaemonComponents, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	jrnl, err := journal.Open(cfg.JournalFile, log)
	if err != nil {
		log.Error("journal initialization failed: %v", err)
		return nil, err
	}

	hist, err := history.Open(cfg.HistoryFile)
	if err != nil {
		// A broken history database costs records, not bells.
		log.Warning("play history unavailable: %v", err)
		hist = nil
	}

	creds, err := openCredStore(log)
	if err != nil {
		log.Warning("credential store unavailable: %v", err)
		creds = nil
	}

	res := resolver.New(&cfg.Resolver, log)

	mopts := &chimelib.ManagerOpts{
		MediaDir:      cfg.MediaDir,
		ClipSeconds:   cfg.ClipSeconds,
		SkipTranscode: cfg.Fetch.SkipTranscode,
		UserAgent:     cfg.Fetch.UserAgent,
		ProxyURL:      cfg.Fetch.Proxy,
		FetchTimeout:  time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second,
		MaxConcurrent: cfg.Fetch.MaxConcurrent,
		Resolver:      res,
		Logger:        log,
	}
	if creds != nil {
		mopts.Creds = creds
	}
	m, err := chimelib.InitManager(mopts)
	if err != nil {
		log.Error("clip manager initialization failed: %v", err)
		jrnl.Close()
		if hist != nil {
			hist.Close()
		}
		if creds != nil {
			creds.Close()
		}
		return nil, err
	}

	rot, err := openRotation(cfg, log)
	if err != nil {
		log.Error("link sheet unusable: %v", err)
		m.Close()
		jrnl.Close()
		if hist != nil {
			hist.Close()
		}
		if creds != nil {
			creds.Close()
		}
		return nil, err
	}

	ringer := bell.NewRinger(bell.Options{
		Config:   cfg,
		Manager:  m,
		Rotation: rot,
		Journal:  jrnl,
		History:  hist,
		Logger:   log,
	})

	return &DaemonComponents{
		Config:    cfg,
		Journal:   jrnl,
		History:   hist,
		Creds:     creds,
		Resolver:  res,
		Manager:   m,
		Ringer:    ringer,
		StartedAt: time.Now(),
		logger:    log,
	}, nil
}

// openRotation opens the link sheet and wraps it in a rotation. A
// missing or empty sheet is a startup error: a bell daemon with
// nothing to play is misconfigured.
func openRotation(cfg *config.Config, log logger.Logger) (*links.Rotation, error) {
	sheet, err := links.Open(cfg.LinksFile)
	if err != nil {
		return nil, err
	}
	return links.NewRotation(sheet, cfg.Selection, "", log)
}

// openCredStore opens the encrypted credential store. Key resolution:
// CHIME_CRED_KEY hex from the environment, then the OS keyring, then
// the plain-file key store for headless systems without a keyring.
func openCredStore(log logger.Logger) (*credstore.Store, error) {
	key, err := credKey(log)
	if err != nil {
		return nil, err
	}
	return credstore.Open(filepath.Join(chimelib.ConfigDir, credFileName), key)
}

func credKey(log logger.Logger) ([]byte, error) {
	if keyHex := os.Getenv(common.CredKeyEnv); keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", common.CredKeyEnv, err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("invalid %s: want 32 bytes, got %d", common.CredKeyEnv, len(key))
		}
		return key, nil
	}

	kr := keyring.New()
	if key, err := kr.GetKey(); err == nil {
		return key, nil
	}
	if key, err := kr.SetKey(); err == nil {
		return key, nil
	} else {
		log.Warning("OS keyring unavailable (%v), falling back to key file", err)
	}

	fks := keyring.NewFileKeyStore(chimelib.ConfigDir)
	if key, err := fks.GetKey(); err == nil {
		return key, nil
	}
	return fks.SetKey()
}

// loadSchedule loads the configured bell times into the scheduler.
// Slots that already passed today are never rung late: on the first
// load they are journaled and recorded as missed instead. Returns how
// many bells were armed.
func loadSchedule(c *DaemonComponents, sched *scheduler.Scheduler, n bell.Notifier, recordMissed bool) (int, error) {
	future, missed, err := scheduler.LoadSchedule(&c.Config.Schedule, time.Now())
	if err != nil {
		return 0, err
	}

	sched.Clear()
	for _, ev := range future {
		sched.Add(ev)
	}

	c.Journal.Append(journal.EventSchedule, journal.Fields{
		"bells": len(future),
		"links": c.Ringer.Rotation().Len(),
	})
	if recordMissed {
		for _, ev := range missed {
			markMissed(c, n, ev)
		}
	}
	return len(future), nil
}

func markMissed(c *DaemonComponents, n bell.Notifier, ev scheduler.BellEvent) {
	c.Journal.Append(journal.EventMissed, journal.Fields{
		"slot": ev.Slot,
		"at":   ev.TriggerAt.Format("15:04"),
	})
	if c.History != nil {
		err := c.History.Record(history.Play{
			RangAt:  ev.TriggerAt,
			Slot:    ev.Slot,
			Trigger: common.TriggerScheduled,
			Outcome: common.OutcomeMissed,
		})
		if err != nil {
			c.logger.Warning("history record: %v", err)
		}
	}
	if n != nil {
		n.Notify(common.EventBellMissed, common.BellEventNote{
			Slot:    ev.Slot,
			Trigger: common.TriggerScheduled,
			Outcome: common.OutcomeMissed,
			At:      ev.TriggerAt,
		})
	}
}

// prefetchClips warms the cache with every sheet link.
func prefetchClips(ctx context.Context, c *DaemonComponents, h *chimelib.Handlers) {
	rot := c.Ringer.Rotation()
	if rot == nil {
		return
	}
	urls := rot.URLs()
	n, errs := c.Manager.PrefetchAll(ctx, urls, h)
	c.logger.Info("prefetched %d/%d clips", n, len(urls))
	for _, err := range errs {
		c.logger.Warning("prefetch: %v", err)
	}
}

package cmd

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"sync"
	"time"

	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v8"

	ccommon "github.com/chimebell/chime/cmd/common"
	"github.com/chimebell/chime/internal/config"
	"github.com/chimebell/chime/internal/links"
	"github.com/chimebell/chime/internal/resolver"
	"github.com/chimebell/chime/pkg/chimelib"
	"github.com/chimebell/chime/pkg/logger"
)

var fetchConfigPath string

var fetchFlags = []cli.Flag{
	cli.StringFlag{
		Name:        "config, c",
		Usage:       "`path` of the config file",
		Destination: &fetchConfigPath,
	},
}

// barState tracks one in-flight fetch for its progress bar. Ewma
// decorators want the duration since the previous increment.
type barState struct {
	bar  *mpb.Bar
	last time.Time
}

// fetch caches every sheet link up front with a progress bar per link.
// It works on the local cache directly; a daemon started later sees
// the warmed manifest.
func fetch(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	cfg, err := config.Load(fetchConfigPath)
	if err != nil {
		printRuntimeErr(ctx, "fetch", "load_config", err)
		return nil
	}
	sheet, err := links.Open(cfg.LinksFile)
	if err != nil {
		printRuntimeErr(ctx, "fetch", "open_links", err)
		return nil
	}

	// Bars own the terminal; keep the log quiet.
	log := logger.NewNopLogger()
	res := resolver.New(&cfg.Resolver, log)
	m, err := chimelib.InitManager(&chimelib.ManagerOpts{
		MediaDir:      cfg.MediaDir,
		ClipSeconds:   cfg.ClipSeconds,
		SkipTranscode: cfg.Fetch.SkipTranscode,
		UserAgent:     cfg.Fetch.UserAgent,
		ProxyURL:      cfg.Fetch.Proxy,
		FetchTimeout:  time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second,
		MaxConcurrent: cfg.Fetch.MaxConcurrent,
		Resolver:      res,
		Logger:        log,
	})
	if err != nil {
		printRuntimeErr(ctx, "fetch", "init_manager", err)
		return nil
	}
	defer m.Close()

	p := mpb.New(mpb.WithWidth(64), mpb.WithRefreshRate(100*time.Millisecond))

	var mu sync.Mutex
	bars := make(map[string]*barState)

	h := &chimelib.Handlers{
		FetchStartedHandler: func(link string, size int64) {
			mu.Lock()
			bars[link] = &barState{
				bar:  ccommon.InitFetchBar(p, linkLabel(link), size),
				last: time.Now(),
			}
			mu.Unlock()
		},
		FetchProgressHandler: func(link string, nread int) {
			mu.Lock()
			st := bars[link]
			mu.Unlock()
			if st == nil {
				return
			}
			now := time.Now()
			st.bar.EwmaIncrBy(nread, now.Sub(st.last))
			st.last = now
		},
		FetchCompleteHandler: func(link string, tread int64) {
			mu.Lock()
			st := bars[link]
			mu.Unlock()
			if st != nil {
				st.bar.SetTotal(tread, true)
			}
		},
		ErrorHandler: func(link string, err error) {
			mu.Lock()
			st := bars[link]
			mu.Unlock()
			if st != nil {
				st.bar.Abort(false)
			}
		},
	}

	n, errs := m.PrefetchAll(context.Background(), sheet.URLs, h)
	p.Wait()

	fmt.Printf("Cached %d of %d links.\n", n, len(sheet.URLs))
	for _, ferr := range errs {
		fmt.Printf("  %v\n", ferr)
	}
	return nil
}

// linkLabel derives a short bar label from a link.
func linkLabel(link string) string {
	u, err := url.Parse(link)
	if err != nil || u.Path == "" || u.Path == "/" {
		return link
	}
	return path.Base(u.Path)
}

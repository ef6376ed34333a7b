package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli"

	"github.com/chimebell/chime/common"
	"github.com/chimebell/chime/internal/bell"
	"github.com/chimebell/chime/internal/journal"
	"github.com/chimebell/chime/internal/scheduler"
	"github.com/chimebell/chime/pkg/logger"
)

// doubleTapWindow is how quickly a second Ctrl+C must follow the first
// to mean "quit" instead of "ring again".
const doubleTapWindow = 2 * time.Second

var runConfigPath string

var runFlags = []cli.Flag{
	cli.StringFlag{
		Name:        "config, c",
		Usage:       "`path` of the config file",
		Destination: &runConfigPath,
	},
}

// run rings scheduled bells in the foreground. Ctrl+C rings the bell
// by hand, or stops the one playing; a quick second Ctrl+C (or
// SIGTERM) quits.
func run(ctx *cli.Context) error {
	if arg := ctx.Args().First(); arg != "" {
		if ctx.Command.Name == "" {
			// Default action: an unknown first argument is a typoed
			// command, not a run argument.
			return help(ctx)
		}
		if arg == "help" {
			return cli.ShowCommandHelp(ctx, ctx.Command.Name)
		}
		return printErrWithCmdHelp(ctx, fmt.Errorf("unknown argument: %s", arg))
	}

	log := logger.NewConsoleLogger()
	defer log.Close()

	c, err := initDaemonComponents(log, runConfigPath)
	if err != nil {
		printRuntimeErr(ctx, "run", "init", err)
		return nil
	}
	defer c.Close()

	rctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.New(rctx, func(ev scheduler.BellEvent) {
		_, rerr := c.Ringer.Ring(rctx, bell.RingTrigger{
			Kind: common.TriggerScheduled,
			Slot: ev.Slot,
			URL:  ev.Link,
		})
		if rerr != nil {
			log.Warning("bell %s: %v", ev.Slot, rerr)
		}
	})

	c.Journal.Append(journal.EventStart, journal.Fields{"mode": "run"})
	bells, err := loadSchedule(c, sched, nil, false)
	if err != nil {
		printRuntimeErr(ctx, "run", "schedule", err)
		return nil
	}
	log.Info("%d bells armed, %d links on the sheet", bells, c.Ringer.Rotation().Len())

	if c.Config.Fetch.Prefetch {
		go prefetchClips(rctx, c, nil)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	fmt.Println("chime is running. Ctrl+C rings or stops the bell, twice quickly to quit.")

	var lastInterrupt time.Time
	for s := range sig {
		if s != os.Interrupt {
			break
		}
		now := time.Now()
		if now.Sub(lastInterrupt) < doubleTapWindow {
			break
		}
		lastInterrupt = now

		if c.Ringer.Status().Ringing {
			if serr := c.Ringer.Stop(); serr != nil {
				log.Warning("stop: %v", serr)
			}
			continue
		}
		go func() {
			_, rerr := c.Ringer.Ring(rctx, bell.RingTrigger{Kind: common.TriggerManual})
			if rerr != nil {
				log.Warning("manual ring: %v", rerr)
			}
		}()
	}

	fmt.Println("\nshutting down")
	cancel()
	return nil
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli"

	"github.com/chimebell/chime/common"
	"github.com/chimebell/chime/internal/bell"
	daemonpkg "github.com/chimebell/chime/internal/daemon"
	"github.com/chimebell/chime/internal/journal"
	"github.com/chimebell/chime/internal/scheduler"
	"github.com/chimebell/chime/internal/server"
	"github.com/chimebell/chime/pkg/logger"
)

// detachedEnvMarker tells a re-executed daemon process that it is the
// detached child and must not detach again.
const detachedEnvMarker = "CHIME_DAEMON_DETACHED"

var (
	daemonConfigPath string
	daemonDetach     bool
	daemonLogFile    string
)

var daemonFlags = []cli.Flag{
	cli.StringFlag{
		Name:        "config, c",
		Usage:       "`path` of the config file",
		Destination: &daemonConfigPath,
	},
	cli.BoolFlag{
		Name:        "detach, d",
		Usage:       "run the daemon in the background and return",
		Destination: &daemonDetach,
	},
	cli.StringFlag{
		Name:        "log-file, l",
		Usage:       "write daemon logs to `path` instead of stderr",
		Destination: &daemonLogFile,
	},
}

func daemon(ctx *cli.Context) error {
	if daemonDetach && os.Getenv(detachedEnvMarker) == "" {
		return detachDaemon(ctx)
	}
	return runDaemon(ctx)
}

// detachDaemon re-executes the current binary as a background daemon
// and returns once the child is off on its own.
func detachDaemon(ctx *cli.Context) error {
	executable, err := os.Executable()
	if err != nil {
		printRuntimeErr(ctx, "daemon", "executable", err)
		return nil
	}
	args := []string{"daemon"}
	if daemonConfigPath != "" {
		args = append(args, "--config", daemonConfigPath)
	}
	if daemonLogFile != "" {
		args = append(args, "--log-file", daemonLogFile)
	}
	cmd := exec.Command(executable, args...)
	cmd.Env = append(os.Environ(), detachedEnvMarker+"=1")
	applySysProcAttr(cmd)
	if err := cmd.Start(); err != nil {
		printRuntimeErr(ctx, "daemon", "detach", err)
		return nil
	}
	fmt.Printf("Daemon started (pid %d)\n", cmd.Process.Pid)
	return cmd.Process.Release()
}

func runDaemon(ctx *cli.Context) error {
	log, err := daemonLogger()
	if err != nil {
		printRuntimeErr(ctx, "daemon", "logger", err)
		return nil
	}
	defer log.Close()

	if pid, err := readPidFile(); err == nil && isProcessRunning(pid) {
		printRuntimeErr(ctx, "daemon", "pidfile",
			fmt.Errorf("daemon already running (pid %d)", pid))
		return nil
	}
	// A pid file left by a dead process means the last run never shut
	// down cleanly; bells that passed in the meantime count as missed.
	unclean := stalePidFile()

	c, err := initDaemonComponents(log, daemonConfigPath)
	if err != nil {
		printRuntimeErr(ctx, "daemon", "init", err)
		return nil
	}

	// Components are closed after the server drains, not from the
	// runner's shutdown hook, so in-flight RPC calls never see a
	// closed store.
	defer func() {
		c.Close()
		if rerr := removePidFile(); rerr != nil {
			log.Warning("pid file: %v", rerr)
		}
	}()

	runner := daemonpkg.New(
		&daemonpkg.Config{ShutdownTimeout: 10 * time.Second},
		&daemonpkg.Dependencies{
			RunFunc: func(rctx context.Context) error {
				return daemonLoop(rctx, c, unclean, log)
			},
		},
	)

	if err := writePidFile(); err != nil {
		printRuntimeErr(ctx, "daemon", "pidfile", err)
		return nil
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)
	go func() {
		s := <-sig
		log.Info("received %s, shutting down", s)
		if serr := runner.Shutdown(); serr != nil && serr != daemonpkg.ErrNotRunning {
			log.Warning("shutdown: %v", serr)
		}
	}()

	if err := runner.Start(context.Background()); err != nil {
		printRuntimeErr(ctx, "daemon", "run", err)
	}
	return nil
}

// daemonLoop runs the scheduler and the control surface until the
// context is canceled.
func daemonLoop(ctx context.Context, c *DaemonComponents, unclean bool, log logger.Logger) error {
	sched := scheduler.New(ctx, func(ev scheduler.BellEvent) {
		_, err := c.Ringer.Ring(ctx, bell.RingTrigger{
			Kind: common.TriggerScheduled,
			Slot: ev.Slot,
			URL:  ev.Link,
		})
		if err != nil {
			log.Warning("bell %s: %v", ev.Slot, err)
		}
	})

	backend := newBackend(c, sched, currentBuildArgs.Version, daemonConfigPath)
	rpc := server.NewRPCServer(backend, c.Manager, c.History, common.VersionResponse{
		Version:   currentBuildArgs.Version,
		Commit:    currentBuildArgs.Commit,
		Date:      currentBuildArgs.Date,
		BuildType: currentBuildArgs.BuildType,
	})
	defer rpc.Close()
	serv := server.NewServer(log, rpc, &c.Config.RPC)
	backend.attach(serv.Notifier(), serv.Watchers)

	c.Journal.Append(journal.EventStart, journal.Fields{"mode": "daemon"})
	bells, err := loadSchedule(c, sched, serv.Notifier(), unclean)
	if err != nil {
		return err
	}
	log.Info("%d bells armed, %d links on the sheet", bells, c.Ringer.Rotation().Len())

	if c.Config.Fetch.Prefetch {
		go prefetchClips(ctx, c, nil)
	}

	// Tell attached watchers the daemon is going away while their
	// connections still drain.
	go func() {
		<-ctx.Done()
		serv.Notifier().Notify(common.EventDaemonStopping, struct{}{})
	}()
	return serv.Start(ctx)
}

func daemonLogger() (logger.Logger, error) {
	if daemonLogFile != "" {
		return logger.NewFileLogger(daemonLogFile)
	}
	return logger.NewConsoleLogger(), nil
}

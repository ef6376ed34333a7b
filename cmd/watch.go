package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/urfave/cli"

	"github.com/chimebell/chime/common"
	"github.com/chimebell/chime/pkg/chimecli"
)

func watch(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	// NewClient spawns the daemon if it is not up yet.
	client, err := chimecli.NewClient()
	if err != nil {
		printRuntimeErr(ctx, "watch", "new_client", err)
		return nil
	}
	client.Close()

	wctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	fmt.Println("Watching bell events, Ctrl+C to detach.")
	err = chimecli.Watch(wctx, &chimecli.WatchHandlers{
		BellRang: func(n *common.BellEventNote) {
			fmt.Printf("%s  rang     %s\n", n.At.Format("15:04:05"), n.Slot)
		},
		BellStopped: func(n *common.BellEventNote) {
			fmt.Printf("%s  stopped  %s\n", n.At.Format("15:04:05"), n.Slot)
		},
		BellFailed: func(n *common.BellEventNote) {
			fmt.Printf("%s  failed   %s: %s\n", n.At.Format("15:04:05"), n.Slot, n.Error)
		},
		BellMissed: func(n *common.BellEventNote) {
			fmt.Printf("%s  missed   %s\n", n.At.Format("15:04:05"), n.Slot)
		},
		FetchStarted:  func(*common.FetchUpdateNote) {},
		FetchProgress: func(*common.FetchUpdateNote) {},
		FetchComplete: func(n *common.FetchUpdateNote) {
			fmt.Printf("          fetched  %s\n", n.Url)
		},
		FetchFailed: func(n *common.FetchUpdateNote) {
			fmt.Printf("          fetch failed  %s: %s\n", n.Url, n.Error)
		},
		ScheduleLoaded: func(r *common.ReloadResponse) {
			fmt.Printf("          schedule reloaded: %d bells, %d links\n", r.Bells, r.Links)
		},
		DaemonStopping: func() {
			fmt.Println("          daemon stopping")
		},
		Unknown: func(method string, params json.RawMessage) {
			fmt.Printf("          %s %s\n", method, params)
		},
	})
	if err != nil && wctx.Err() == nil {
		printRuntimeErr(ctx, "watch", "watch", err)
	}
	return nil
}

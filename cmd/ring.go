package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli"

	"github.com/chimebell/chime/pkg/chimecli"
)

var ringSlot string

var ringFlags = []cli.Flag{
	cli.StringFlag{
		Name:        "slot, s",
		Usage:       "ring the schedule `slot`: plays its pinned link, if it has one",
		Destination: &ringSlot,
	},
}

func ring(ctx *cli.Context) error {
	url := ctx.Args().First()
	if url == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	client, err := chimecli.NewClient()
	if err != nil {
		printRuntimeErr(ctx, "ring", "new_client", err)
		return nil
	}
	defer client.Close()

	fmt.Println("Ringing...")
	resp, err := client.Ring(context.Background(), &chimecli.RingOpts{
		Url:  url,
		Slot: ringSlot,
	})
	if err != nil {
		printRuntimeErr(ctx, "ring", "ring", err)
		return nil
	}
	if resp.ClipName != "" {
		fmt.Printf("Bell rang: %s (%s via %s)\n", resp.ClipName, resp.Slot, resp.Player)
	} else {
		fmt.Printf("Bell rang: %s via %s\n", resp.Slot, resp.Player)
	}
	return nil
}

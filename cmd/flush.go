package cmd

import (
	"fmt"

	"github.com/urfave/cli"

	"github.com/chimebell/chime/pkg/chimecli"
)

var (
	flushHash  string
	flushForce bool
)

var flushFlags = []cli.Flag{
	cli.StringFlag{
		Name:        "item, i",
		Usage:       "flush only the clip with this `hash`",
		Destination: &flushHash,
	},
	cli.BoolFlag{
		Name:        "force, f",
		Usage:       "skip the confirmation prompt",
		Destination: &flushForce,
	},
}

func flush(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	if !confirm(command("flush"), flushForce) {
		return nil
	}
	client, err := chimecli.NewClient()
	if err != nil {
		printRuntimeErr(ctx, "flush", "new_client", err)
		return nil
	}
	defer client.Close()

	resp, err := client.CacheFlush(flushHash)
	if err != nil {
		printRuntimeErr(ctx, "flush", "flush", err)
		return nil
	}
	switch resp.Flushed {
	case 0:
		fmt.Println("Nothing to flush.")
	case 1:
		fmt.Println("Flushed 1 clip.")
	default:
		fmt.Printf("Flushed %d clips.\n", resp.Flushed)
	}
	return nil
}

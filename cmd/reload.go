package cmd

import (
	"fmt"

	"github.com/urfave/cli"

	"github.com/chimebell/chime/pkg/chimecli"
)

func reload(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	client, err := chimecli.NewClient()
	if err != nil {
		printRuntimeErr(ctx, "reload", "new_client", err)
		return nil
	}
	defer client.Close()

	resp, err := client.Reload()
	if err != nil {
		printRuntimeErr(ctx, "reload", "reload", err)
		return nil
	}
	fmt.Printf("Schedule reloaded: %d bells, %d links.\n", resp.Bells, resp.Links)
	return nil
}

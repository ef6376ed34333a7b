package cmd

import (
	"fmt"

	"github.com/urfave/cli"

	"github.com/chimebell/chime/pkg/chimecli"
)

func stop(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	client, err := chimecli.NewClient()
	if err != nil {
		printRuntimeErr(ctx, "stop", "new_client", err)
		return nil
	}
	defer client.Close()

	_, err = client.Stop()
	if err != nil {
		printRuntimeErr(ctx, "stop", "stop", err)
		return nil
	}
	fmt.Println("Bell stopped.")
	return nil
}

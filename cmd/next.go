package cmd

import (
	"fmt"

	"github.com/urfave/cli"

	"github.com/chimebell/chime/pkg/chimecli"
)

var nextCount int

var nextFlags = []cli.Flag{
	cli.IntFlag{
		Name:        "count, n",
		Usage:       "`number` of upcoming bells to list",
		Destination: &nextCount,
	},
}

func next(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	client, err := chimecli.NewClient()
	if err != nil {
		printRuntimeErr(ctx, "next", "new_client", err)
		return nil
	}
	defer client.Close()

	resp, err := client.Next(nextCount)
	if err != nil {
		printRuntimeErr(ctx, "next", "get_next", err)
		return nil
	}
	if len(resp.Bells) == 0 {
		fmt.Println("chime: no bells scheduled")
		return nil
	}
	for _, b := range resp.Bells {
		if b.Url != "" {
			fmt.Printf("%s  %s  %s\n", b.At.Format("Mon 15:04"), b.Slot, b.Url)
			continue
		}
		fmt.Printf("%s  %s\n", b.At.Format("Mon 15:04"), b.Slot)
	}
	return nil
}

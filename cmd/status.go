package cmd

import (
	"fmt"

	"github.com/urfave/cli"

	"github.com/chimebell/chime/pkg/chimecli"
)

func status(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	client, err := chimecli.NewClient()
	if err != nil {
		printRuntimeErr(ctx, "status", "new_client", err)
		return nil
	}
	defer client.Close()

	st, err := client.Status()
	if err != nil {
		printRuntimeErr(ctx, "status", "get_status", err)
		return nil
	}

	fmt.Printf("chime daemon %s, up since %s\n", st.Version, st.StartedAt.Format("2006-01-02 15:04:05"))
	if st.Playing && st.Current != nil {
		fmt.Printf("Playing: %s (%s via %s)\n", st.Current.ClipName, st.Current.Slot, st.Current.Player)
	} else {
		fmt.Println("Playing: nothing")
	}
	fmt.Printf("Links: %d on the sheet, %d clips cached, %d watchers attached\n",
		st.LinksTotal, st.CachedClips, st.Watchers)
	if len(st.NextBells) > 0 {
		fmt.Println("Upcoming:")
		for _, b := range st.NextBells {
			fmt.Printf("  %s  %s\n", b.At.Format("Mon 15:04"), b.Slot)
		}
	}
	return nil
}

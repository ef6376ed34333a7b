package cmd

import (
	"fmt"
	"time"

	"github.com/urfave/cli"

	"github.com/chimebell/chime/internal/config"
	"github.com/chimebell/chime/internal/history"
)

var (
	historyLimit      int
	historySince      string
	historyConfigPath string
)

var historyFlags = []cli.Flag{
	cli.IntFlag{
		Name:        "limit, n",
		Usage:       "`number` of rows to list",
		Value:       20,
		Destination: &historyLimit,
	},
	cli.StringFlag{
		Name:        "since, s",
		Usage:       "list rings at or after `time` (RFC3339)",
		Destination: &historySince,
	},
	cli.StringFlag{
		Name:        "config, c",
		Usage:       "`path` of the config file",
		Destination: &historyConfigPath,
	},
}

// historyCmd reads the play history database directly; it does not
// need a running daemon.
func historyCmd(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	cfg, err := config.Load(historyConfigPath)
	if err != nil {
		printRuntimeErr(ctx, "history", "load_config", err)
		return nil
	}
	store, err := history.Open(cfg.HistoryFile)
	if err != nil {
		printRuntimeErr(ctx, "history", "open_history", err)
		return nil
	}
	defer store.Close()

	var plays []history.Play
	if historySince != "" {
		since, perr := time.Parse(time.RFC3339, historySince)
		if perr != nil {
			return printErrWithCmdHelp(ctx, fmt.Errorf("since: want RFC3339 timestamp: %w", perr))
		}
		plays, err = store.Since(since)
	} else {
		plays, err = store.Recent(historyLimit)
	}
	if err != nil {
		printRuntimeErr(ctx, "history", "query", err)
		return nil
	}
	if len(plays) == 0 {
		fmt.Println("chime: no rings recorded")
		return nil
	}
	for _, p := range plays {
		line := fmt.Sprintf("%s  %-8s %-9s %s",
			p.RangAt.Format("2006-01-02 15:04:05"), p.Outcome, p.Trigger, p.Slot)
		if p.Error != "" {
			line += "  (" + p.Error + ")"
		}
		fmt.Println(line)
	}
	return nil
}

package cmd

import (
	"fmt"

	"github.com/urfave/cli"

	"github.com/chimebell/chime/internal/config"
	"github.com/chimebell/chime/internal/journal"
	"github.com/chimebell/chime/pkg/logger"
)

var (
	logLines      int
	logConfigPath string
)

var logFlags = []cli.Flag{
	cli.IntFlag{
		Name:        "lines, n",
		Usage:       "`number` of journal lines to print",
		Value:       20,
		Destination: &logLines,
	},
	cli.StringFlag{
		Name:        "config, c",
		Usage:       "`path` of the config file",
		Destination: &logConfigPath,
	},
}

func logCmd(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	cfg, err := config.Load(logConfigPath)
	if err != nil {
		printRuntimeErr(ctx, "log", "load_config", err)
		return nil
	}
	jrnl, err := journal.Open(cfg.JournalFile, logger.NewNopLogger())
	if err != nil {
		printRuntimeErr(ctx, "log", "open_journal", err)
		return nil
	}
	defer jrnl.Close()

	lines, err := jrnl.Tail(logLines)
	if err != nil {
		printRuntimeErr(ctx, "log", "tail", err)
		return nil
	}
	if len(lines) == 0 {
		fmt.Println("chime: journal is empty")
		return nil
	}
	for _, line := range lines {
		fmt.Println(line.Raw)
	}
	return nil
}

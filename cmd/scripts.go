package cmd

import (
	"fmt"
	"strings"

	"github.com/urfave/cli"

	"github.com/chimebell/chime/internal/config"
	"github.com/chimebell/chime/internal/resolver"
	"github.com/chimebell/chime/pkg/logger"
)

var scriptsConfigPath string

var scriptsFlags = []cli.Flag{
	cli.StringFlag{
		Name:        "config, c",
		Usage:       "`path` of the config file",
		Destination: &scriptsConfigPath,
	},
}

func scripts(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	cfg, err := config.Load(scriptsConfigPath)
	if err != nil {
		printRuntimeErr(ctx, "scripts", "load_config", err)
		return nil
	}
	res := resolver.New(&cfg.Resolver, logger.NewConsoleLogger())
	infos := res.Scripts()
	if len(infos) == 0 {
		fmt.Println("chime: no resolver scripts loaded")
		return nil
	}
	for _, info := range infos {
		if len(info.Matches) > 0 {
			fmt.Printf("%s  (%s)  matches: %s\n", info.Name, info.Path, strings.Join(info.Matches, ", "))
			continue
		}
		fmt.Printf("%s  (%s)\n", info.Name, info.Path)
	}
	return nil
}

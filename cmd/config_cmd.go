package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli"

	"github.com/chimebell/chime/internal/config"
)

var configCmdPath string

var configFlags = []cli.Flag{
	cli.StringFlag{
		Name:        "config, c",
		Usage:       "`path` of the config file",
		Destination: &configCmdPath,
	},
}

func configInit(ctx *cli.Context) error {
	path := configCmdPath
	if path == "" {
		path = config.DefaultPath()
	}
	if _, err := os.Stat(path); err == nil {
		return printErrWithCmdHelp(ctx, errors.New("config file already exists: "+path))
	}
	cfg := config.Default()
	if err := cfg.Save(path); err != nil {
		printRuntimeErr(ctx, "config", "init", err)
		return nil
	}
	fmt.Printf("Wrote default config to %s\n", path)
	return nil
}

// configShow prints the effective configuration: the defaults merged
// with whatever the file overrides.
func configShow(ctx *cli.Context) error {
	cfg, err := config.Load(configCmdPath)
	if err != nil {
		printRuntimeErr(ctx, "config", "show", err)
		return nil
	}
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		printRuntimeErr(ctx, "config", "show", err)
		return nil
	}
	fmt.Println(string(b))
	return nil
}

func configPath(ctx *cli.Context) error {
	if configCmdPath != "" {
		fmt.Println(configCmdPath)
		return nil
	}
	fmt.Println(config.DefaultPath())
	return nil
}

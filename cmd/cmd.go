package cmd

import (
	"fmt"
	"runtime"

	"github.com/urfave/cli"

	"github.com/chimebell/chime/cmd/common"
)

// BuildArgs carries the build information stamped in via ldflags.
type BuildArgs struct {
	Version   string
	BuildType string
	Date      string
	Commit    string
}

var currentBuildArgs BuildArgs

func Execute(args []string, bArgs BuildArgs) error {
	currentBuildArgs = bArgs
	app := cli.App{
		Name:                  "chime",
		HelpName:              "chime",
		Usage:                 "A scheduled bell player.",
		Version:               fmt.Sprintf("%s-%s", bArgs.Version, bArgs.BuildType),
		UsageText:             "chime <command> [arguments...]",
		Description:           DESCRIPTION,
		CustomAppHelpTemplate: HELP_TEMPL,
		OnUsageError:          common.UsageErrorCallback,
		Commands: []cli.Command{
			{
				Name:                   "run",
				Usage:                  "ring scheduled bells in the foreground",
				Action:                 run,
				OnUsageError:           common.UsageErrorCallback,
				CustomHelpTemplate:     CMD_HELP_TEMPL,
				Description:            RunDescription,
				UseShortOptionHandling: true,
				Flags:                  runFlags,
			},
			{
				Name:               "daemon",
				Usage:              "run the bell scheduler as a background service",
				Action:             daemon,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        DaemonDescription,
				Flags:              daemonFlags,
			},
			{
				Name:               "stop-daemon",
				Usage:              "stop the background daemon",
				Action:             stopDaemon,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        StopDaemonDescription,
			},
			{
				Name:                   "ring",
				Aliases:                []string{"r"},
				Usage:                  "ring the bell now",
				Action:                 ring,
				OnUsageError:           common.UsageErrorCallback,
				CustomHelpTemplate:     CMD_HELP_TEMPL,
				Description:            RingDescription,
				UseShortOptionHandling: true,
				Flags:                  ringFlags,
			},
			{
				Name:               "stop",
				Usage:              "stop the bell currently playing",
				Action:             stop,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        StopDescription,
			},
			{
				Name:               "status",
				Aliases:            []string{"s"},
				Usage:              "show daemon status",
				Action:             status,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        StatusDescription,
			},
			{
				Name:                   "next",
				Usage:                  "list upcoming bells",
				Action:                 next,
				OnUsageError:           common.UsageErrorCallback,
				CustomHelpTemplate:     CMD_HELP_TEMPL,
				Description:            NextDescription,
				UseShortOptionHandling: true,
				Flags:                  nextFlags,
			},
			{
				Name:               "reload",
				Usage:              "reload the config and link sheet",
				Action:             reload,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        ReloadDescription,
			},
			{
				Name:               "watch",
				Aliases:            []string{"w"},
				Usage:              "stream bell and fetch events",
				Action:             watch,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        WatchDescription,
			},
			{
				Name:                   "fetch",
				Aliases:                []string{"f"},
				Usage:                  "prefetch every sheet link into the cache",
				Action:                 fetch,
				OnUsageError:           common.UsageErrorCallback,
				CustomHelpTemplate:     CMD_HELP_TEMPL,
				Description:            FetchDescription,
				UseShortOptionHandling: true,
				Flags:                  fetchFlags,
			},
			{
				Name:               "links",
				Usage:              "inspect the link sheet",
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        LinksDescription,
				Subcommands: []cli.Command{
					{
						Name:   "list",
						Usage:  "print the sheet in rotation order",
						Action: linksList,
						Flags:  linksFlags,
					},
					{
						Name:   "verify",
						Usage:  "probe every link and report failures",
						Action: linksVerify,
						Flags:  linksFlags,
					},
				},
			},
			{
				Name:                   "history",
				Usage:                  "list past rings",
				Action:                 historyCmd,
				OnUsageError:           common.UsageErrorCallback,
				CustomHelpTemplate:     CMD_HELP_TEMPL,
				Description:            HistoryDescription,
				UseShortOptionHandling: true,
				Flags:                  historyFlags,
			},
			{
				Name:                   "log",
				Usage:                  "print the tail of the bell journal",
				Action:                 logCmd,
				OnUsageError:           common.UsageErrorCallback,
				CustomHelpTemplate:     CMD_HELP_TEMPL,
				Description:            LogDescription,
				UseShortOptionHandling: true,
				Flags:                  logFlags,
			},
			{
				Name:               "auth",
				Usage:              "manage stored fetch credentials",
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        AuthDescription,
				Subcommands: []cli.Command{
					{
						Name:   "set",
						Usage:  "store credentials for a host",
						Action: authSet,
					},
					{
						Name:   "list",
						Usage:  "list hosts with stored credentials",
						Action: authList,
					},
					{
						Name:   "del",
						Usage:  "delete credentials for a host",
						Action: authDel,
					},
				},
			},
			{
				Name:               "scripts",
				Usage:              "list loaded resolver scripts",
				Action:             scripts,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        ScriptsDescription,
				Flags:              scriptsFlags,
			},
			{
				Name:                   "flush",
				Usage:                  "clear the media cache",
				Action:                 flush,
				OnUsageError:           common.UsageErrorCallback,
				CustomHelpTemplate:     CMD_HELP_TEMPL,
				Description:            FlushDescription,
				UseShortOptionHandling: true,
				Flags:                  flushFlags,
			},
			{
				Name:               "config",
				Usage:              "manage the configuration file",
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        ConfigDescription,
				Subcommands: []cli.Command{
					{
						Name:   "init",
						Usage:  "write the default config file",
						Action: configInit,
						Flags:  configFlags,
					},
					{
						Name:   "show",
						Usage:  "print the effective configuration",
						Action: configShow,
						Flags:  configFlags,
					},
					{
						Name:   "path",
						Usage:  "print the config file path",
						Action: configPath,
					},
				},
			},
			{
				Name:    "help",
				Aliases: []string{"h"},
				Usage:   "prints the help message",
				Action:  common.Help,
			},
			{
				Name:               "version",
				Aliases:            []string{"v"},
				Usage:              "prints installed version of chime",
				UsageText:          " ",
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             common.GetVersion,
			},
		},
		Action:                 run,
		Flags:                  runFlags,
		UseShortOptionHandling: true,
		HideHelp:               true,
		HideVersion:            true,
	}
	common.VersionCmdStr = fmt.Sprintf("%s %s (%s_%s)\nBuild: %s=%s\n",
		app.Name,
		app.Version,
		runtime.GOOS,
		runtime.GOARCH,
		bArgs.Date, bArgs.Commit,
	)
	return app.Run(args)
}

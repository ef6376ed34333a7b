package cmd

const HELP_TEMPL = `Usage: {{if .UsageText}}{{.UsageText}}{{else}}{{.HelpName}} {{if .VisibleFlags}}[global options]{{end}}{{if .Commands}} command [command options]{{end}} {{if .ArgsUsage}}{{.ArgsUsage}}{{else}}[arguments...]{{end}}{{end}}
{{.Description}}{{if .VisibleCommands}}
Commands:{{range .VisibleCategories}}{{if .Name}}

{{.Name}}:{{range .VisibleCommands}}
  {{join .Names ", "}}{{"\t"}}{{.Usage}}{{end}}{{else}}{{range .VisibleCommands}}
{{"\t"}}{{index .Names 0}}{{"\t:\t"}}{{.Usage}}{{end}}{{end}}{{end}}{{end}}{{if .VisibleFlags}}{{end}}

Use "{{.HelpName}} help <command>" for more information about any command.

`

const CMD_HELP_TEMPL = `{{if .Description}}{{.Description}}{{else}}{{.HelpName}} - {{.Usage}}

{{end}}Usage:
        {{.HelpName}} {{if .UsageText}}{{.UsageText}}{{else}}[arguments...]{{end}}{{if .VisibleFlags}}

Supported Flags:{{range .VisibleFlags}}
  {{.}}{{end}}{{end}}

`

const DESCRIPTION = `
Chime is a scheduled bell player. It rings configured wall-clock
bell times by fetching and playing audio links from a rotating
link sheet, keeps a journal and play history of every ring, and
can run as a background daemon controlled over a local socket.
`

const (
	RunDescription = `The run command starts the bell scheduler in the foreground.
Bells ring at the configured times; press Ctrl+C once to ring
(or stop) the bell by hand, press it twice quickly to quit.

Example:
        chime run

`
	RingDescription = `The ring command rings the bell right now. Without a url the
daemon plays the next link from the rotation; with one it plays
that specific link. Naming a schedule slot with --slot plays the
slot's pinned link when the config has one, and falls back to the
rotation otherwise. The command waits until playback ends.

Example:
        chime ring
        chime ring https://domain.com/bell.mp3
        chime ring --slot 09:15

`
	StopDescription = `The stop command interrupts the bell currently playing.

Example:
        chime stop

`
	StatusDescription = `The status command prints a snapshot of the running daemon:
current playback, upcoming bells, cache and watcher counts.

Example:
        chime status

`
	NextDescription = `The next command lists upcoming bells in firing order.

Example:
        chime next -n 3

`
	ReloadDescription = `The reload command makes the daemon re-read its config file and
link sheet and re-arm the schedule, without restarting.

Example:
        chime reload

`
	WatchDescription = `The watch command attaches to the daemon and prints bell and
fetch events as they happen, until interrupted.

Example:
        chime watch

`
	FetchDescription = `The fetch command downloads and caches every link from the
link sheet up front so scheduled bells never wait on the
network. Progress is shown per link.

Example:
        chime fetch

`
	LinksDescription = `The links command inspects the link sheet. "links list" prints
the sheet in rotation order; "links verify" probes every link
and reports the ones that fail.

Example:
        chime links list
        chime links verify

`
	HistoryDescription = `The history command lists past rings from the play history,
newest first.

Example:
        chime history -n 20
        chime history --since 2026-09-01T00:00:00Z

`
	LogDescription = `The log command prints the last lines of the bell journal.

Example:
        chime log -n 50

`
	AuthDescription = `The auth command manages stored fetch credentials for hosts
that need them (ftp, sftp, http basic auth). Credentials are
encrypted at rest.

Example:
        chime auth set ftp.school.example
        chime auth list
        chime auth del ftp.school.example

`
	ScriptsDescription = `The scripts command lists the resolver scripts loaded from the
scripts directory.

Example:
        chime scripts

`
	FlushDescription = `The flush command clears the media cache. Without a hash it
removes every cached clip; with one it removes that clip only.

Example:
        chime flush
        chime flush -i <clip hash>

`
	ConfigDescription = `The config command manages the chime configuration file.
"config init" writes the default config, "config show" prints
the effective configuration and "config path" prints its path.

Example:
        chime config init
        chime config show

`
	DaemonDescription = `The daemon command runs the bell scheduler as a background
service with the control socket enabled. Use stop-daemon to
stop it.

Example:
        chime daemon

`
	StopDaemonDescription = `The stop-daemon command stops a running background daemon.

Example:
        chime stop-daemon

`
)

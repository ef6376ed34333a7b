package cmd

import (
	"fmt"
	"strings"

	"github.com/urfave/cli"

	ccommon "github.com/chimebell/chime/cmd/common"
)

// Thin wrappers so action files can import the daemon types from the
// root common package without clashing with cmd/common.

func help(ctx *cli.Context) error { return ccommon.Help(ctx) }

func printRuntimeErr(ctx *cli.Context, cmd, action string, err error) {
	ccommon.PrintRuntimeErr(ctx, cmd, action, err)
}

func printErrWithCmdHelp(ctx *cli.Context, err error) error {
	return ccommon.PrintErrWithCmdHelp(ctx, err)
}

func beaut(s string, n int) string { return ccommon.Beaut(s, n) }

type (
	confirmAction interface {
		action() string
	}
	command string
)

func (a command) action() string {
	return strings.Join([]string{string(a), "command"}, " ")
}

func confirm(c confirmAction, force ...bool) bool {
	if len(force) != 0 && force[0] {
		return true
	}
	fmt.Printf("Are you sure you want to proceed with the %s? (yes/no): ", c.action())
	var i string
	_, _ = fmt.Scanf("%s", &i)
	i = strings.ToLower(i)
	switch i {
	case "yes", "y", "true", "1":
		return true
	default:
		fmt.Printf("Cancelled %s operation!\n", c)
		return false
	}
}

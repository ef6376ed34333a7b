//go:build !windows

package cmd

import (
	"os/exec"
	"syscall"
)

// applySysProcAttr detaches the child from the controlling terminal's
// process group so a Ctrl+C in the shell does not kill the daemon.
func applySysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

//go:build !windows

package cmd

import (
	"os"
	"syscall"
)

// isProcessRunning probes a pid with signal 0. FindProcess always
// succeeds on unix, the signal tells the truth.
func isProcessRunning(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

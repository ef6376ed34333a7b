//go:build windows

package cmd

import (
	"golang.org/x/sys/windows"
)

// isProcessRunning checks if a process with the given pid is still
// running. Opening with SYNCHRONIZE is the minimal access right that
// tells us whether the process exists.
func isProcessRunning(pid int) bool {
	handle, err := windows.OpenProcess(windows.SYNCHRONIZE, false, uint32(pid))
	if err != nil {
		return false
	}
	windows.CloseHandle(handle)
	return true
}

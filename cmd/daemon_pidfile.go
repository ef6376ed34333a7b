package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chimebell/chime/pkg/chimelib"
)

const pidFileName = "daemon.pid"

func pidFilePath() string {
	return filepath.Join(chimelib.ConfigDir, pidFileName)
}

// writePidFile records the daemon pid so stop-daemon can find it.
func writePidFile() error {
	return os.WriteFile(pidFilePath(), []byte(strconv.Itoa(os.Getpid())), 0644)
}

// readPidFile returns the recorded daemon pid. A missing file means no
// daemon was started.
func readPidFile() (int, error) {
	b, err := os.ReadFile(pidFilePath())
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0, fmt.Errorf("corrupt pid file %s: %w", pidFilePath(), err)
	}
	if pid <= 0 {
		return 0, fmt.Errorf("corrupt pid file %s: pid %d", pidFilePath(), pid)
	}
	return pid, nil
}

func removePidFile() error {
	err := os.Remove(pidFilePath())
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// stalePidFile reports whether a pid file from a previous run points
// at a process that no longer exists. Used to detect unclean
// shutdowns.
func stalePidFile() bool {
	pid, err := readPidFile()
	if err != nil {
		return false
	}
	return !isProcessRunning(pid)
}

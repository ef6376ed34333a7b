package cmd

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
)

func stopDaemon(ctx *cli.Context) error {
	pid, err := readPidFile()
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("Daemon is not running (pid file not found)")
			return nil
		}
		fmt.Fprintf(os.Stderr, "Error reading pid file: %v\n", err)
		return nil
	}

	fmt.Printf("Stopping daemon (pid %d)...\n", pid)

	if err := killDaemon(pid); err != nil {
		fmt.Fprintf(os.Stderr, "Error stopping daemon: %v\n", err)
		return nil
	}

	// The pid file is removed by the daemon's deferred cleanup.
	fmt.Println("Daemon stopped")
	return nil
}

//go:build !windows

package server

import (
	"net"
	"os"

	"github.com/chimebell/chime/common"
)

// createLocalListener binds the control socket. The socket is owned by
// the daemon user only; remote control goes through the authenticated
// TCP listener instead.
func createLocalListener() (net.Listener, error) {
	path := common.SocketPath()
	_ = os.Remove(path)
	l, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, err
	}
	_ = os.Chmod(path, 0600)
	return l, nil
}

// cleanupLocalListener removes the socket file after shutdown.
func cleanupLocalListener() error {
	if err := os.Remove(common.SocketPath()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

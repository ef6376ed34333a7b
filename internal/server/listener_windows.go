//go:build windows

package server

import (
	"net"

	"github.com/Microsoft/go-winio"

	"github.com/chimebell/chime/common"
)

// pipeSecurityDescriptor restricts pipe access to SYSTEM, the built-in
// Administrators group and the Creator Owner (the user running the
// daemon).
const pipeSecurityDescriptor = "D:(A;;GA;;;SY)(A;;GA;;;BA)(A;;GA;;;CO)"

// createLocalListener binds the control pipe with restricted
// permissions.
func createLocalListener() (net.Listener, error) {
	cfg := &winio.PipeConfig{
		SecurityDescriptor: pipeSecurityDescriptor,
	}
	return winio.ListenPipe(common.PipePath(), cfg)
}

// cleanupLocalListener is a no-op: named pipes vanish with their
// listener.
func cleanupLocalListener() error {
	return nil
}

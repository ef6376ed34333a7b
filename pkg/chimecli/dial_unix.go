//go:build !windows

package chimecli

import (
	"context"
	"net"
	"net/http"

	"github.com/chimebell/chime/common"
)

// connectionPath returns the unix socket the daemon listens on.
func connectionPath() string {
	return common.SocketPath()
}

// httpClient dials the control socket regardless of the request host.
func httpClient() *http.Client {
	path := connectionPath()
	return &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", path)
			},
		},
	}
}

// isDaemonRunning reports whether something is accepting on the
// control socket.
func isDaemonRunning(path string) bool {
	conn, err := net.DialTimeout("unix", path, socketDialTimeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

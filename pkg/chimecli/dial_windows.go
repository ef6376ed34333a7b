//go:build windows

package chimecli

import (
	"context"
	"net"
	"net/http"

	"github.com/Microsoft/go-winio"

	"github.com/chimebell/chime/common"
)

// connectionPath returns the named pipe the daemon listens on.
func connectionPath() string {
	return common.PipePath()
}

// httpClient dials the control pipe regardless of the request host.
func httpClient() *http.Client {
	path := connectionPath()
	return &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				return winio.DialPipeContext(ctx, path)
			},
		},
	}
}

// isDaemonRunning reports whether something is accepting on the
// control pipe.
func isDaemonRunning(path string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), socketDialTimeout)
	defer cancel()
	conn, err := winio.DialPipeContext(ctx, path)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

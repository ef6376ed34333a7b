// Package chimecli is the client library for the chime daemon control
// surface. It speaks JSON-RPC 2.0 over HTTP on the local socket (unix
// socket or Windows named pipe) and can attach a WebSocket watcher for
// push notifications.
package chimecli

import (
	"fmt"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/jhttp"
)

// Client talks to a running chime daemon.
type Client struct {
	rpc *jrpc2.Client
	ch  *jhttp.Channel
}

// NewClient connects to the daemon, spawning one first if none is
// running.
func NewClient() (*Client, error) {
	if err := ensureDaemon(); err != nil {
		return nil, fmt.Errorf("error starting daemon: %w", err)
	}
	return Connect()
}

// Connect connects to an already running daemon without spawning one.
func Connect() (*Client, error) {
	ch := jhttp.NewChannel(rpcURL(), &jhttp.ChannelOptions{
		Client: httpClient(),
	})
	return &Client{
		rpc: jrpc2.NewClient(ch, nil),
		ch:  ch,
	}, nil
}

// Close releases the connection to the daemon.
func (c *Client) Close() error {
	return c.rpc.Close()
}

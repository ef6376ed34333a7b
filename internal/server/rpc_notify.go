package server

import (
	"context"
	"sync"

	"github.com/creachadair/jrpc2"

	"github.com/chimebell/chime/common"
	"github.com/chimebell/chime/pkg/logger"
)

// RPCNotifier maintains the set of connected WebSocket jrpc2 servers
// and broadcasts push notifications to all of them. It is the ringer's
// notification sink.
type RPCNotifier struct {
	mu      sync.RWMutex
	servers map[*jrpc2.Server]struct{}
	l       logger.Logger
}

// NewRPCNotifier creates an empty notifier.
func NewRPCNotifier(lg logger.Logger) *RPCNotifier {
	if lg == nil {
		lg = logger.NewNopLogger()
	}
	return &RPCNotifier{
		servers: make(map[*jrpc2.Server]struct{}),
		l:       lg,
	}
}

// Register adds a server to the broadcast set.
func (n *RPCNotifier) Register(srv *jrpc2.Server) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.servers[srv] = struct{}{}
}

// Unregister removes a server from the broadcast set.
func (n *RPCNotifier) Unregister(srv *jrpc2.Server) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.servers, srv)
}

// Notify implements the ringer's notifier: the event name doubles as
// the jrpc2 notification method.
func (n *RPCNotifier) Notify(event common.EventType, payload interface{}) {
	n.Broadcast(string(event), payload)
}

// Broadcast sends a push notification to every registered server.
// Servers that fail to receive (disconnected watchers) are dropped.
func (n *RPCNotifier) Broadcast(method string, params any) {
	n.mu.RLock()
	servers := make([]*jrpc2.Server, 0, len(n.servers))
	for srv := range n.servers {
		servers = append(servers, srv)
	}
	n.mu.RUnlock()

	var failed []*jrpc2.Server
	for _, srv := range servers {
		if err := srv.Notify(context.Background(), method, params); err != nil {
			n.l.Warning("push %s failed: %v", method, err)
			failed = append(failed, srv)
		}
	}

	if len(failed) > 0 {
		n.mu.Lock()
		for _, srv := range failed {
			delete(n.servers, srv)
		}
		n.mu.Unlock()
	}
}

// Count reports how many watchers are attached.
func (n *RPCNotifier) Count() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.servers)
}

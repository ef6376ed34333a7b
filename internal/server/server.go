// Package server exposes the daemon control surface: JSON-RPC 2.0 over
// HTTP on a local socket (unix socket or Windows named pipe), an
// optional authenticated TCP listener, and a WebSocket endpoint that
// pushes bell and fetch notifications to attached watchers.
package server

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/creachadair/jrpc2"
	cws "github.com/coder/websocket"

	"github.com/chimebell/chime/internal/config"
	"github.com/chimebell/chime/pkg/logger"
)

// Server serves the control surface. The local listener is always on;
// the TCP listener follows RPCConfig.Listen.
type Server struct {
	l        logger.Logger
	rpc      *RPCServer
	notifier *RPCNotifier
	cfg      config.RPCConfig

	mu       sync.Mutex
	local    *http.Server
	tcp      *http.Server
	localLis net.Listener
	tcpLis   net.Listener
}

// NewServer wires the RPC methods and the push notifier into a server.
func NewServer(l logger.Logger, rpc *RPCServer, cfg *config.RPCConfig) *Server {
	if l == nil {
		l = logger.NewNopLogger()
	}
	s := &Server{
		l:        l,
		rpc:      rpc,
		notifier: NewRPCNotifier(l),
	}
	if cfg != nil {
		s.cfg = *cfg
	}
	return s
}

// Notifier returns the push sink to hand to the ringer.
func (s *Server) Notifier() *RPCNotifier { return s.notifier }

// Watchers reports how many push subscribers are attached.
func (s *Server) Watchers() int { return s.notifier.Count() }

func (s *Server) mux(authenticated bool) http.Handler {
	mux := http.NewServeMux()
	var rpcHandler http.Handler = s.rpc.bridge
	if authenticated {
		rpcHandler = requireToken(s.secret(), rpcHandler)
	}
	mux.Handle("/rpc", rpcHandler)
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

// handleWS upgrades a watcher connection and runs a dedicated jrpc2
// server over it. The same handler map answers calls; push
// notifications flow through the notifier until the watcher leaves.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := cws.Accept(w, r, nil)
	if err != nil {
		s.l.Warning("ws accept: %v", err)
		return
	}

	ch := &wsChannel{conn: conn, ctx: r.Context()}
	srv := jrpc2.NewServer(s.rpc.methods, &jrpc2.ServerOptions{AllowPush: true})
	s.notifier.Register(srv)
	srv.Start(ch)
	_ = srv.Wait()
	s.notifier.Unregister(srv)
}

// Start listens and serves until ctx is canceled. It returns once both
// listeners are down.
func (s *Server) Start(ctx context.Context) error {
	localLis, err := createLocalListener()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.localLis = localLis
	s.local = &http.Server{Handler: s.mux(false)}

	if s.cfg.Listen != "" {
		tcpLis, err := net.Listen("tcp", s.cfg.Listen)
		if err != nil {
			s.mu.Unlock()
			localLis.Close()
			return err
		}
		s.tcpLis = tcpLis
		s.tcp = &http.Server{Handler: s.mux(true)}
	}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.Shutdown()
	}()

	errc := make(chan error, 2)
	go func() { errc <- s.local.Serve(localLis) }()
	if s.tcp != nil {
		s.l.Info("control surface listening on %s", s.cfg.Listen)
		go func() { errc <- s.tcp.Serve(s.tcpLis) }()
	}

	err = <-errc
	if s.tcp != nil {
		<-errc
	}
	if err == http.ErrServerClosed || ctx.Err() != nil {
		return nil
	}
	return err
}

// Shutdown drains both HTTP servers and removes the local socket.
func (s *Server) Shutdown() {
	s.mu.Lock()
	local, tcp := s.local, s.tcp
	s.local, s.tcp = nil, nil
	s.mu.Unlock()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if local != nil {
		if err := local.Shutdown(shutdownCtx); err != nil {
			s.l.Warning("local listener shutdown: %v", err)
		}
	}
	if tcp != nil {
		if err := tcp.Shutdown(shutdownCtx); err != nil {
			s.l.Warning("tcp listener shutdown: %v", err)
		}
	}
	s.rpc.Close()
	if err := cleanupLocalListener(); err != nil {
		s.l.Warning("remove control socket: %v", err)
	}
}

func (s *Server) secret() string {
	if s.cfg.Secret != "" {
		return s.cfg.Secret
	}
	return secretFromEnv()
}

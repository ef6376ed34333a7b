//go:build !windows

package chimecli

import (
	"context"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	cws "github.com/coder/websocket"
	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"
	"github.com/creachadair/jrpc2/jhttp"

	"github.com/chimebell/chime/common"
)

// fakeDaemon serves the control surface over a unix socket the way
// chimed does, with canned method handlers.
type fakeDaemon struct {
	methods handler.Map
	bridge  jhttp.Bridge
	srv     *http.Server
	watcher chan *jrpc2.Server
}

func startFakeDaemon(t *testing.T) *fakeDaemon {
	t.Helper()
	sock := filepath.Join(t.TempDir(), "chimed.sock")
	t.Setenv(common.SocketPathEnv, sock)

	d := &fakeDaemon{watcher: make(chan *jrpc2.Server, 1)}
	d.methods = handler.Map{
		"bell.status": handler.New(func(context.Context) (*common.StatusResponse, error) {
			return &common.StatusResponse{Version: "fake", LinksTotal: 2}, nil
		}),
		"bell.stop": handler.New(func(context.Context) (*common.StopResponse, error) {
			return &common.StopResponse{Stopped: true}, nil
		}),
		"bell.ring": handler.New(func(_ context.Context, p *common.RingParams) (*common.RingResponse, error) {
			return &common.RingResponse{Slot: p.Slot, Url: p.Url, Player: "fake", StartedAt: time.Now()}, nil
		}),
		"bell.next": handler.New(func(_ context.Context, p *common.NextParams) (*common.NextResponse, error) {
			return &common.NextResponse{Bells: []common.BellInfo{{Slot: "09:15"}}}, nil
		}),
		"system.getVersion": handler.New(func(context.Context) (*common.VersionResponse, error) {
			return &common.VersionResponse{Version: "fake-daemon"}, nil
		}),
	}
	d.bridge = jhttp.NewBridge(d.methods, nil)

	mux := http.NewServeMux()
	mux.Handle("/rpc", d.bridge)
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := cws.Accept(w, r, nil)
		if err != nil {
			return
		}
		srv := jrpc2.NewServer(d.methods, &jrpc2.ServerOptions{AllowPush: true})
		srv.Start(&wsChannel{conn: conn, ctx: r.Context()})
		select {
		case d.watcher <- srv:
		default:
		}
		_ = srv.Wait()
	})

	lis, err := net.Listen("unix", sock)
	if err != nil {
		t.Fatalf("listen %s: %v", sock, err)
	}
	d.srv = &http.Server{Handler: mux}
	go d.srv.Serve(lis)

	t.Cleanup(func() {
		d.srv.Close()
		d.bridge.Close()
	})
	return d
}

func TestConnectAndCall(t *testing.T) {
	startFakeDaemon(t)

	c, err := Connect()
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Close()

	st, err := c.Status()
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.Version != "fake" || st.LinksTotal != 2 {
		t.Errorf("status = %+v", st)
	}

	v, err := c.Version()
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if v.Version != "fake-daemon" {
		t.Errorf("version = %q", v.Version)
	}
}

func TestRingPassesParams(t *testing.T) {
	startFakeDaemon(t)

	c, err := Connect()
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Close()

	r, err := c.Ring(context.Background(), &RingOpts{
		Url:  "https://media.example.com/bell.mp3",
		Slot: "09:15",
	})
	if err != nil {
		t.Fatalf("ring: %v", err)
	}
	if r.Url != "https://media.example.com/bell.mp3" || r.Slot != "09:15" {
		t.Errorf("ring = %+v", r)
	}
}

func TestNextAndStop(t *testing.T) {
	startFakeDaemon(t)

	c, err := Connect()
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Close()

	next, err := c.Next(3)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if len(next.Bells) != 1 || next.Bells[0].Slot != "09:15" {
		t.Errorf("next = %+v", next)
	}

	stop, err := c.Stop()
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !stop.Stopped {
		t.Error("stop.Stopped = false")
	}
}

func TestIsDaemonRunning(t *testing.T) {
	if isDaemonRunning(filepath.Join(t.TempDir(), "nothing.sock")) {
		t.Error("reported running with no socket")
	}
	startFakeDaemon(t)
	if !isDaemonRunning(connectionPath()) {
		t.Error("reported not running with a live socket")
	}
}

func TestWatchReceivesNotifications(t *testing.T) {
	d := startFakeDaemon(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rang := make(chan *common.BellEventNote, 1)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, &WatchHandlers{
			BellRang: func(n *common.BellEventNote) { rang <- n },
		})
	}()

	var srv *jrpc2.Server
	select {
	case srv = <-d.watcher:
	case <-ctx.Done():
		t.Fatal("watcher never attached")
	}

	err := srv.Notify(context.Background(), string(common.EventBellRang),
		common.BellEventNote{Slot: "12:00", At: time.Now()})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}

	select {
	case n := <-rang:
		if n.Slot != "12:00" {
			t.Errorf("slot = %q, want 12:00", n.Slot)
		}
	case <-ctx.Done():
		t.Fatal("notification never arrived")
	}

	cancel()
	if err := <-done; err != nil && err != context.Canceled {
		t.Errorf("watch returned %v", err)
	}
}

func TestWatchReturnsOnDaemonStopping(t *testing.T) {
	d := startFakeDaemon(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	attached := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, &WatchHandlers{
			DaemonStopping: func() { close(attached) },
		})
	}()

	var srv *jrpc2.Server
	select {
	case srv = <-d.watcher:
	case <-ctx.Done():
		t.Fatal("watcher never attached")
	}

	err := srv.Notify(context.Background(), string(common.EventDaemonStopping), nil)
	if err != nil {
		t.Fatalf("notify: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("watch returned %v", err)
		}
	case <-ctx.Done():
		t.Fatal("watch did not return after daemon.stopping")
	}
	<-attached
}

package server

import (
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"
	"github.com/creachadair/jrpc2/handler"

	"github.com/chimebell/chime/common"
)

// newWatcherPair wires a pushable jrpc2 server to a client that funnels
// notifications into notes.
func newWatcherPair(t *testing.T, notes chan<- *jrpc2.Request) (*jrpc2.Server, *jrpc2.Client) {
	t.Helper()
	cr, sw := io.Pipe()
	sr, cw := io.Pipe()

	srv := jrpc2.NewServer(handler.Map{}, &jrpc2.ServerOptions{AllowPush: true})
	srv.Start(channel.Line(sr, sw))

	cli := jrpc2.NewClient(channel.Line(cr, cw), &jrpc2.ClientOptions{
		OnNotify: func(req *jrpc2.Request) {
			notes <- req
		},
	})
	t.Cleanup(func() {
		cli.Close()
		srv.Stop()
	})
	return srv, cli
}

func TestNotifierRegisterUnregister(t *testing.T) {
	n := NewRPCNotifier(nil)
	if n.Count() != 0 {
		t.Fatalf("count = %d, want 0", n.Count())
	}

	notes := make(chan *jrpc2.Request, 1)
	srv, _ := newWatcherPair(t, notes)

	n.Register(srv)
	if n.Count() != 1 {
		t.Errorf("count after register = %d, want 1", n.Count())
	}
	n.Unregister(srv)
	if n.Count() != 0 {
		t.Errorf("count after unregister = %d, want 0", n.Count())
	}
}

func TestNotifierBroadcast(t *testing.T) {
	n := NewRPCNotifier(nil)
	notes := make(chan *jrpc2.Request, 1)
	srv, _ := newWatcherPair(t, notes)
	n.Register(srv)

	n.Notify(common.EventBellRang, common.BellEventNote{
		Slot:    "09:15",
		Url:     "https://media.example.com/bell.mp3",
		Trigger: common.TriggerScheduled,
		At:      time.Now(),
	})

	select {
	case req := <-notes:
		if req.Method() != string(common.EventBellRang) {
			t.Errorf("method = %q, want %q", req.Method(), common.EventBellRang)
		}
		var note common.BellEventNote
		if err := req.UnmarshalParams(&note); err != nil {
			t.Fatalf("unmarshal note: %v", err)
		}
		if note.Slot != "09:15" {
			t.Errorf("slot = %q, want 09:15", note.Slot)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("notification never arrived")
	}
}

func TestNotifierBroadcastFanout(t *testing.T) {
	n := NewRPCNotifier(nil)
	notes := make(chan *jrpc2.Request, 2)
	srvA, _ := newWatcherPair(t, notes)
	srvB, _ := newWatcherPair(t, notes)
	n.Register(srvA)
	n.Register(srvB)

	n.Broadcast("bell.rang", common.BellEventNote{Slot: "12:00", At: time.Now()})

	for i := 0; i < 2; i++ {
		select {
		case <-notes:
		case <-time.After(5 * time.Second):
			t.Fatalf("watcher %d never got the notification", i)
		}
	}
}

func TestNotifierDropsDeadWatchers(t *testing.T) {
	n := NewRPCNotifier(nil)
	notes := make(chan *jrpc2.Request, 1)
	srv, cli := newWatcherPair(t, notes)
	n.Register(srv)

	cli.Close()
	srv.Stop()
	_ = srv.Wait()

	n.Broadcast("bell.rang", common.BellEventNote{Slot: "12:00", At: time.Now()})
	if n.Count() != 0 {
		t.Errorf("dead watcher still registered, count = %d", n.Count())
	}
}

func TestNotifierPayloadShape(t *testing.T) {
	n := NewRPCNotifier(nil)
	notes := make(chan *jrpc2.Request, 1)
	srv, _ := newWatcherPair(t, notes)
	n.Register(srv)

	n.Notify(common.EventFetchProgress, common.FetchUpdateNote{
		Url:   "https://media.example.com/a.mp3",
		Read:  512,
		Total: 1024,
	})

	select {
	case req := <-notes:
		var raw json.RawMessage
		if err := req.UnmarshalParams(&raw); err != nil {
			t.Fatalf("params: %v", err)
		}
		var note common.FetchUpdateNote
		if err := json.Unmarshal(raw, &note); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if note.Read != 512 || note.Total != 1024 {
			t.Errorf("note = %+v", note)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("notification never arrived")
	}
}

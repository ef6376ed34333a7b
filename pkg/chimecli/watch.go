package chimecli

import (
	"context"
	"encoding/json"
	"fmt"

	cws "github.com/coder/websocket"
	"github.com/creachadair/jrpc2"

	"github.com/chimebell/chime/common"
)

// WatchHandlers receives daemon push notifications. Nil handlers are
// skipped; Unknown catches anything without a dedicated handler.
type WatchHandlers struct {
	BellRang    func(*common.BellEventNote)
	BellStopped func(*common.BellEventNote)
	BellFailed  func(*common.BellEventNote)
	BellMissed  func(*common.BellEventNote)

	FetchStarted  func(*common.FetchUpdateNote)
	FetchProgress func(*common.FetchUpdateNote)
	FetchComplete func(*common.FetchUpdateNote)
	FetchFailed   func(*common.FetchUpdateNote)

	ScheduleLoaded func(*common.ReloadResponse)
	DaemonStopping func()

	Unknown func(method string, params json.RawMessage)
}

func (h *WatchHandlers) bellHandler(event common.EventType) func(*common.BellEventNote) {
	switch event {
	case common.EventBellRang:
		return h.BellRang
	case common.EventBellStopped:
		return h.BellStopped
	case common.EventBellFailed:
		return h.BellFailed
	case common.EventBellMissed:
		return h.BellMissed
	}
	return nil
}

func (h *WatchHandlers) fetchHandler(event common.EventType) func(*common.FetchUpdateNote) {
	switch event {
	case common.EventFetchStarted:
		return h.FetchStarted
	case common.EventFetchProgress:
		return h.FetchProgress
	case common.EventFetchComplete:
		return h.FetchComplete
	case common.EventFetchFailed:
		return h.FetchFailed
	}
	return nil
}

// dispatch routes one notification to its typed handler.
func (h *WatchHandlers) dispatch(req *jrpc2.Request) {
	event := common.EventType(req.Method())
	switch event {
	case common.EventBellRang, common.EventBellStopped,
		common.EventBellFailed, common.EventBellMissed:
		fn := h.bellHandler(event)
		if fn == nil {
			break
		}
		var note common.BellEventNote
		if err := req.UnmarshalParams(&note); err != nil {
			debugLog("bad %s payload: %v", event, err)
			return
		}
		fn(&note)
		return

	case common.EventFetchStarted, common.EventFetchProgress,
		common.EventFetchComplete, common.EventFetchFailed:
		fn := h.fetchHandler(event)
		if fn == nil {
			break
		}
		var note common.FetchUpdateNote
		if err := req.UnmarshalParams(&note); err != nil {
			debugLog("bad %s payload: %v", event, err)
			return
		}
		fn(&note)
		return

	case common.EventScheduleLoaded:
		if h.ScheduleLoaded == nil {
			break
		}
		var note common.ReloadResponse
		if err := req.UnmarshalParams(&note); err != nil {
			debugLog("bad %s payload: %v", event, err)
			return
		}
		h.ScheduleLoaded(&note)
		return

	case common.EventDaemonStopping:
		if h.DaemonStopping != nil {
			h.DaemonStopping()
		}
		return
	}

	if h.Unknown != nil {
		var raw json.RawMessage
		_ = req.UnmarshalParams(&raw)
		h.Unknown(req.Method(), raw)
	}
}

// wsChannel adapts a coder/websocket.Conn to the jrpc2 Channel
// interface.
type wsChannel struct {
	conn *cws.Conn
	ctx  context.Context
}

func (c *wsChannel) Send(data []byte) error {
	return c.conn.Write(c.ctx, cws.MessageText, data)
}

func (c *wsChannel) Recv() ([]byte, error) {
	_, data, err := c.conn.Read(c.ctx)
	return data, err
}

func (c *wsChannel) Close() error {
	return c.conn.Close(cws.StatusNormalClosure, "")
}

// Watch attaches to the daemon push feed and blocks, routing
// notifications to h, until ctx is canceled or the daemon goes away.
// It returns nil after a daemon.stopping notification or a clean
// disconnect.
func Watch(ctx context.Context, h *WatchHandlers) error {
	if h == nil {
		h = &WatchHandlers{}
	}

	conn, _, err := cws.Dial(ctx, wsURL, &cws.DialOptions{
		HTTPClient: httpClient(),
	})
	if err != nil {
		return fmt.Errorf("error attaching watcher: %w", err)
	}

	done := make(chan struct{})
	stopping := make(chan struct{}, 1)
	inner := h.DaemonStopping
	h.DaemonStopping = func() {
		select {
		case stopping <- struct{}{}:
		default:
		}
		if inner != nil {
			inner()
		}
	}

	cli := jrpc2.NewClient(&wsChannel{conn: conn, ctx: ctx}, &jrpc2.ClientOptions{
		OnNotify: h.dispatch,
		OnStop:   func(*jrpc2.Client, error) { close(done) },
	})
	defer cli.Close()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-stopping:
		return nil
	case <-done:
		return nil
	}
}

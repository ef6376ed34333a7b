package server

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"
	"github.com/creachadair/jrpc2/jhttp"

	"github.com/chimebell/chime/common"
	"github.com/chimebell/chime/internal/bell"
	"github.com/chimebell/chime/internal/history"
	"github.com/chimebell/chime/pkg/chimelib"
)

// JSON-RPC error codes for bell operations.
const (
	codeNotRinging     = jrpc2.Code(-32001)
	codeAlreadyRinging = jrpc2.Code(-32002)
	codeNoSuchClip     = jrpc2.Code(-32003)
	codeInvalidURL     = jrpc2.Code(-32004)
	codeUnknownSlot    = jrpc2.Code(-32005)
	codeInvalidParams  = jrpc2.Code(-32602)
)

// Backend is the daemon surface the RPC methods drive. The daemon core
// implements it around the ringer and scheduler.
type Backend interface {
	// Ring plays a bell; it blocks until playback ends.
	Ring(ctx context.Context, p *common.RingParams) (*common.RingResponse, error)
	// Stop interrupts the bell in flight.
	Stop() (*common.StopResponse, error)
	// Status snapshots the daemon.
	Status() *common.StatusResponse
	// Next reports the upcoming bells in firing order.
	Next(n int) []common.BellInfo
	// Reload re-reads the config schedule and the link sheet.
	Reload() (*common.ReloadResponse, error)
}

// RPCServer binds the bell methods to a jrpc2 handler map and exposes
// them over an HTTP bridge. The same map backs the per-connection
// WebSocket servers.
type RPCServer struct {
	bridge  jhttp.Bridge
	methods handler.Map

	backend Backend
	manager *chimelib.Manager
	hist    *history.Store
	build   common.VersionResponse
}

// NewRPCServer wires the method handlers. manager and hist may be nil;
// the corresponding methods then report empty results.
func NewRPCServer(backend Backend, m *chimelib.Manager, hist *history.Store, build common.VersionResponse) *RPCServer {
	rs := &RPCServer{
		backend: backend,
		manager: m,
		hist:    hist,
		build:   build,
	}

	rs.methods = handler.Map{
		"bell.ring":         handler.New(rs.bellRing),
		"bell.stop":         handler.New(rs.bellStop),
		"bell.status":       handler.New(rs.bellStatus),
		"bell.next":         handler.New(rs.bellNext),
		"bell.reload":       handler.New(rs.bellReload),
		"bell.history":      handler.New(rs.bellHistory),
		"cache.list":        handler.New(rs.cacheList),
		"cache.flush":       handler.New(rs.cacheFlush),
		"system.getVersion": handler.New(rs.systemGetVersion),
	}
	rs.bridge = jhttp.NewBridge(rs.methods, nil)
	return rs
}

func (rs *RPCServer) systemGetVersion(_ context.Context) (*common.VersionResponse, error) {
	build := rs.build
	return &build, nil
}

// bellRing rings immediately. The call returns once playback finishes,
// mirroring a foreground ring.
func (rs *RPCServer) bellRing(ctx context.Context, p *common.RingParams) (*common.RingResponse, error) {
	if p.Url != "" {
		parsed, err := url.Parse(p.Url)
		if err != nil || parsed.Scheme == "" {
			return nil, &jrpc2.Error{Code: codeInvalidURL, Message: "invalid url: " + p.Url}
		}
	}
	resp, err := rs.backend.Ring(ctx, p)
	if err != nil {
		if errors.Is(err, bell.ErrAlreadyRinging) {
			return nil, &jrpc2.Error{Code: codeAlreadyRinging, Message: err.Error()}
		}
		if errors.Is(err, bell.ErrUnknownSlot) {
			return nil, &jrpc2.Error{Code: codeUnknownSlot, Message: err.Error()}
		}
		return nil, &jrpc2.Error{Code: codeInvalidParams, Message: err.Error()}
	}
	return resp, nil
}

func (rs *RPCServer) bellStop(_ context.Context) (*common.StopResponse, error) {
	resp, err := rs.backend.Stop()
	if err != nil {
		if errors.Is(err, bell.ErrNotRinging) {
			return nil, &jrpc2.Error{Code: codeNotRinging, Message: err.Error()}
		}
		return nil, err
	}
	return resp, nil
}

func (rs *RPCServer) bellStatus(_ context.Context) (*common.StatusResponse, error) {
	return rs.backend.Status(), nil
}

func (rs *RPCServer) bellNext(_ context.Context, p *common.NextParams) (*common.NextResponse, error) {
	count := p.Count
	if count <= 0 {
		count = 5
	}
	return &common.NextResponse{Bells: rs.backend.Next(count)}, nil
}

func (rs *RPCServer) bellReload(_ context.Context) (*common.ReloadResponse, error) {
	resp, err := rs.backend.Reload()
	if err != nil {
		return nil, &jrpc2.Error{Code: codeInvalidParams, Message: err.Error()}
	}
	return resp, nil
}

func (rs *RPCServer) bellHistory(_ context.Context, p *common.HistoryParams) (*common.HistoryResponse, error) {
	resp := &common.HistoryResponse{Plays: []common.PlayRecord{}}
	if rs.hist == nil {
		return resp, nil
	}

	var (
		plays []history.Play
		err   error
	)
	if p.Since != "" {
		since, perr := time.Parse(time.RFC3339, p.Since)
		if perr != nil {
			return nil, &jrpc2.Error{Code: codeInvalidParams, Message: "since: want RFC3339 timestamp"}
		}
		plays, err = rs.hist.Since(since)
	} else {
		limit := p.Limit
		if limit <= 0 {
			limit = 20
		}
		plays, err = rs.hist.Recent(limit)
	}
	if err != nil {
		return nil, err
	}

	for _, play := range plays {
		resp.Plays = append(resp.Plays, common.PlayRecord{
			RangAt:     play.RangAt,
			Slot:       play.Slot,
			Url:        play.URL,
			ClipHash:   play.ClipHash,
			Trigger:    play.Trigger,
			Outcome:    play.Outcome,
			DurationMs: play.Duration.Milliseconds(),
			Error:      play.Error,
		})
	}
	return resp, nil
}

func (rs *RPCServer) cacheList(_ context.Context) (*common.CacheListResponse, error) {
	resp := &common.CacheListResponse{Clips: []*chimelib.Clip{}}
	if rs.manager != nil {
		resp.Clips = rs.manager.Clips()
	}
	return resp, nil
}

func (rs *RPCServer) cacheFlush(_ context.Context, p *common.CacheFlushParams) (*common.CacheFlushResponse, error) {
	if rs.manager == nil {
		return &common.CacheFlushResponse{}, nil
	}
	n, err := rs.manager.Flush(strings.TrimSpace(p.ClipHash))
	if err != nil {
		if errors.Is(err, chimelib.ErrClipNotFound) {
			return nil, &jrpc2.Error{Code: codeNoSuchClip, Message: err.Error()}
		}
		return nil, err
	}
	return &common.CacheFlushResponse{Flushed: n}, nil
}

// Close shuts down the jrpc2 bridge, releasing internal goroutines.
func (rs *RPCServer) Close() {
	rs.bridge.Close()
}

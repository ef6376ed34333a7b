package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chimebell/chime/common"
	"github.com/chimebell/chime/internal/bell"
	"github.com/chimebell/chime/internal/config"
	"github.com/chimebell/chime/internal/history"
	"github.com/chimebell/chime/pkg/logger"
)

// fakeBackend records calls and returns canned answers.
type fakeBackend struct {
	ringErr  error
	stopErr  error
	lastRing *common.RingParams
	reloaded bool
}

func (f *fakeBackend) Ring(_ context.Context, p *common.RingParams) (*common.RingResponse, error) {
	f.lastRing = p
	if f.ringErr != nil {
		return nil, f.ringErr
	}
	slot := p.Slot
	if slot == "" {
		slot = "rpc"
	}
	return &common.RingResponse{Slot: slot, Url: p.Url, Player: "mock", StartedAt: time.Now()}, nil
}

func (f *fakeBackend) Stop() (*common.StopResponse, error) {
	if f.stopErr != nil {
		return nil, f.stopErr
	}
	return &common.StopResponse{Stopped: true}, nil
}

func (f *fakeBackend) Status() *common.StatusResponse {
	return &common.StatusResponse{Version: "test", Playing: false, LinksTotal: 3}
}

func (f *fakeBackend) Next(n int) []common.BellInfo {
	bells := make([]common.BellInfo, 0, n)
	for i := 0; i < n && i < 2; i++ {
		bells = append(bells, common.BellInfo{Slot: fmt.Sprintf("09:%02d", 15+i)})
	}
	return bells
}

func (f *fakeBackend) Reload() (*common.ReloadResponse, error) {
	f.reloaded = true
	return &common.ReloadResponse{Links: 4, Bells: 7}, nil
}

type rpcEnv struct {
	srv     *httptest.Server
	backend *fakeBackend
}

func newRPCEnv(t *testing.T, hist *history.Store) *rpcEnv {
	t.Helper()
	backend := &fakeBackend{}
	rs := NewRPCServer(backend, nil, hist, common.VersionResponse{Version: "1.2.3", BuildType: "test"})
	t.Cleanup(rs.Close)

	s := NewServer(logger.NewNopLogger(), rs, &config.RPCConfig{})
	srv := httptest.NewServer(s.mux(false))
	t.Cleanup(srv.Close)
	return &rpcEnv{srv: srv, backend: backend}
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// call posts a JSON-RPC request to /rpc and returns result or error.
func (e *rpcEnv) call(t *testing.T, method string, params any) (json.RawMessage, *rpcError) {
	t.Helper()
	reqBody := map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
	}
	if params != nil {
		reqBody["params"] = params
	}
	data, err := json.Marshal(reqBody)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(e.srv.URL+"/rpc", "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", method, err)
	}
	defer resp.Body.Close()

	var out struct {
		Result json.RawMessage `json:"result"`
		Error  *rpcError       `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode %s response: %v", method, err)
	}
	return out.Result, out.Error
}

func TestSystemGetVersion(t *testing.T) {
	env := newRPCEnv(t, nil)
	result, rpcErr := env.call(t, "system.getVersion", nil)
	if rpcErr != nil {
		t.Fatalf("rpc error: %+v", rpcErr)
	}
	var v common.VersionResponse
	if err := json.Unmarshal(result, &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.Version != "1.2.3" || v.BuildType != "test" {
		t.Errorf("version = %+v", v)
	}
}

func TestBellRing(t *testing.T) {
	env := newRPCEnv(t, nil)
	result, rpcErr := env.call(t, "bell.ring", common.RingParams{Url: "https://media.example.com/bell.mp3"})
	if rpcErr != nil {
		t.Fatalf("rpc error: %+v", rpcErr)
	}
	var r common.RingResponse
	if err := json.Unmarshal(result, &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if r.Url != "https://media.example.com/bell.mp3" || r.Player != "mock" {
		t.Errorf("ring response = %+v", r)
	}
	if env.backend.lastRing == nil {
		t.Error("backend never saw the ring")
	}
}

func TestBellRingInvalidURL(t *testing.T) {
	env := newRPCEnv(t, nil)
	_, rpcErr := env.call(t, "bell.ring", common.RingParams{Url: "not a url"})
	if rpcErr == nil || rpcErr.Code != int(codeInvalidURL) {
		t.Fatalf("error = %+v, want code %d", rpcErr, codeInvalidURL)
	}
}

func TestBellRingAlreadyRinging(t *testing.T) {
	env := newRPCEnv(t, nil)
	env.backend.ringErr = bell.ErrAlreadyRinging
	_, rpcErr := env.call(t, "bell.ring", common.RingParams{})
	if rpcErr == nil || rpcErr.Code != int(codeAlreadyRinging) {
		t.Fatalf("error = %+v, want code %d", rpcErr, codeAlreadyRinging)
	}
}

func TestBellRingUnknownSlot(t *testing.T) {
	env := newRPCEnv(t, nil)
	env.backend.ringErr = fmt.Errorf("%w: 23:59", bell.ErrUnknownSlot)
	_, rpcErr := env.call(t, "bell.ring", common.RingParams{Slot: "23:59"})
	if rpcErr == nil || rpcErr.Code != int(codeUnknownSlot) {
		t.Fatalf("error = %+v, want code %d", rpcErr, codeUnknownSlot)
	}
}

func TestBellStopNotRinging(t *testing.T) {
	env := newRPCEnv(t, nil)
	env.backend.stopErr = bell.ErrNotRinging
	_, rpcErr := env.call(t, "bell.stop", nil)
	if rpcErr == nil || rpcErr.Code != int(codeNotRinging) {
		t.Fatalf("error = %+v, want code %d", rpcErr, codeNotRinging)
	}
}

func TestBellStatus(t *testing.T) {
	env := newRPCEnv(t, nil)
	result, rpcErr := env.call(t, "bell.status", nil)
	if rpcErr != nil {
		t.Fatalf("rpc error: %+v", rpcErr)
	}
	var st common.StatusResponse
	if err := json.Unmarshal(result, &st); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if st.LinksTotal != 3 {
		t.Errorf("links = %d, want 3", st.LinksTotal)
	}
}

func TestBellNextDefaultsCount(t *testing.T) {
	env := newRPCEnv(t, nil)
	result, rpcErr := env.call(t, "bell.next", common.NextParams{})
	if rpcErr != nil {
		t.Fatalf("rpc error: %+v", rpcErr)
	}
	var next common.NextResponse
	if err := json.Unmarshal(result, &next); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(next.Bells) != 2 {
		t.Errorf("bells = %d, want 2", len(next.Bells))
	}
}

func TestBellReload(t *testing.T) {
	env := newRPCEnv(t, nil)
	result, rpcErr := env.call(t, "bell.reload", nil)
	if rpcErr != nil {
		t.Fatalf("rpc error: %+v", rpcErr)
	}
	var r common.ReloadResponse
	if err := json.Unmarshal(result, &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if r.Links != 4 || r.Bells != 7 {
		t.Errorf("reload = %+v", r)
	}
	if !env.backend.reloaded {
		t.Error("backend never reloaded")
	}
}

func TestBellHistory(t *testing.T) {
	hist, err := history.Open(t.TempDir() + "/history.chime")
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	defer hist.Close()
	err = hist.Record(history.Play{
		RangAt: time.Now(), Slot: "09:15",
		URL:     "https://media.example.com/a.mp3",
		Trigger: common.TriggerScheduled, Outcome: common.OutcomePlayed,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	env := newRPCEnv(t, hist)
	result, rpcErr := env.call(t, "bell.history", common.HistoryParams{Limit: 10})
	if rpcErr != nil {
		t.Fatalf("rpc error: %+v", rpcErr)
	}
	var h common.HistoryResponse
	if err := json.Unmarshal(result, &h); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(h.Plays) != 1 || h.Plays[0].Slot != "09:15" {
		t.Errorf("history = %+v", h)
	}
}

func TestBellHistoryBadSince(t *testing.T) {
	env := newRPCEnv(t, nil)
	_, rpcErr := env.call(t, "bell.history", common.HistoryParams{Since: "yesterday"})
	if rpcErr == nil || rpcErr.Code != int(codeInvalidParams) {
		t.Fatalf("error = %+v, want code %d", rpcErr, codeInvalidParams)
	}
}

func TestCacheListEmptyWithoutManager(t *testing.T) {
	env := newRPCEnv(t, nil)
	result, rpcErr := env.call(t, "cache.list", nil)
	if rpcErr != nil {
		t.Fatalf("rpc error: %+v", rpcErr)
	}
	var cl common.CacheListResponse
	if err := json.Unmarshal(result, &cl); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(cl.Clips) != 0 {
		t.Errorf("clips = %d, want 0", len(cl.Clips))
	}
}

func TestUnknownMethod(t *testing.T) {
	env := newRPCEnv(t, nil)
	_, rpcErr := env.call(t, "bell.nonsense", nil)
	if rpcErr == nil {
		t.Fatal("expected method-not-found error")
	}
}

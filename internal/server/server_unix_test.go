//go:build !windows

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chimebell/chime/common"
	"github.com/chimebell/chime/internal/config"
	"github.com/chimebell/chime/pkg/logger"
)

// socketClient dials the unix control socket regardless of the URL
// host, the way the CLI client does.
func socketClient(path string) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", path)
			},
		},
		Timeout: 5 * time.Second,
	}
}

func TestServerOverUnixSocket(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "chimed.sock")
	t.Setenv(common.SocketPathEnv, sock)

	backend := &fakeBackend{}
	rs := NewRPCServer(backend, nil, nil, common.VersionResponse{Version: "sock-test"})
	s := NewServer(logger.NewNopLogger(), rs, &config.RPCConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	// Wait for the socket to exist.
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(sock); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("socket never appeared")
		}
		time.Sleep(10 * time.Millisecond)
	}

	fi, err := os.Stat(sock)
	if err != nil {
		t.Fatalf("stat socket: %v", err)
	}
	if perm := fi.Mode().Perm(); perm != 0600 {
		t.Errorf("socket perm = %o, want 0600", perm)
	}

	body, _ := json.Marshal(map[string]any{
		"jsonrpc": "2.0", "id": 1, "method": "system.getVersion",
	})
	resp, err := socketClient(sock).Post("http://chimed/rpc", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST over socket: %v", err)
	}
	var out struct {
		Result common.VersionResponse `json:"result"`
	}
	err = json.NewDecoder(resp.Body).Decode(&out)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Result.Version != "sock-test" {
		t.Errorf("version = %q, want sock-test", out.Result.Version)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	if _, err := os.Stat(sock); !os.IsNotExist(err) {
		t.Errorf("socket not removed after shutdown: %v", err)
	}
}

func TestServerTCPRequiresToken(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "chimed.sock")
	t.Setenv(common.SocketPathEnv, sock)

	backend := &fakeBackend{}
	rs := NewRPCServer(backend, nil, nil, common.VersionResponse{Version: "tcp-test"})
	s := NewServer(logger.NewNopLogger(), rs, &config.RPCConfig{
		Listen: "127.0.0.1:0",
		Secret: "s3cret",
	})

	// Start binds an ephemeral port; read it back off the listener.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	var addr string
	for addr == "" {
		s.mu.Lock()
		if s.tcpLis != nil {
			addr = s.tcpLis.Addr().String()
		}
		s.mu.Unlock()
		if time.Now().After(deadline) {
			t.Fatal("tcp listener never came up")
		}
		time.Sleep(10 * time.Millisecond)
	}

	body, _ := json.Marshal(map[string]any{
		"jsonrpc": "2.0", "id": 1, "method": "system.getVersion",
	})

	resp, err := http.Post("http://"+addr+"/rpc", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want 401", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodPost, "http://"+addr+"/rpc", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer s3cret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("authorized POST: %v", err)
	}
	var out struct {
		Result common.VersionResponse `json:"result"`
	}
	err = json.NewDecoder(resp.Body).Decode(&out)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Result.Version != "tcp-test" {
		t.Errorf("version = %q, want tcp-test", out.Result.Version)
	}
}

package chimecli

import (
	"context"
	"time"

	"github.com/chimebell/chime/common"
)

// callTimeout bounds quick control calls. Ring is exempt: it blocks
// for the duration of playback.
const callTimeout = 10 * time.Second

func invoke[T any](ctx context.Context, c *Client, method string, params any) (*T, error) {
	var d T
	if err := c.rpc.CallResult(ctx, method, params, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func quick[T any](c *Client, method string, params any) (*T, error) {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	return invoke[T](ctx, c, method, params)
}

// RingOpts tweaks a manual ring.
type RingOpts struct {
	// Url plays a specific link instead of the next rotation entry.
	Url string
	// Slot names a configured schedule slot. The daemon plays the
	// slot's pinned link when it has one, and rejects a slot the
	// schedule does not have.
	Slot string
}

// Ring asks the daemon to ring the bell now. It blocks until playback
// ends; cancel ctx to give up waiting (the bell keeps playing).
func (c *Client) Ring(ctx context.Context, opts *RingOpts) (*common.RingResponse, error) {
	if opts == nil {
		opts = &RingOpts{}
	}
	return invoke[common.RingResponse](ctx, c, "bell.ring", &common.RingParams{
		Url:  opts.Url,
		Slot: opts.Slot,
	})
}

// Stop interrupts the bell in flight.
func (c *Client) Stop() (*common.StopResponse, error) {
	return quick[common.StopResponse](c, "bell.stop", nil)
}

// Status snapshots the daemon.
func (c *Client) Status() (*common.StatusResponse, error) {
	return quick[common.StatusResponse](c, "bell.status", nil)
}

// Next reports up to count upcoming bells in firing order. count <= 0
// uses the daemon default.
func (c *Client) Next(count int) (*common.NextResponse, error) {
	return quick[common.NextResponse](c, "bell.next", &common.NextParams{Count: count})
}

// Reload makes the daemon re-read its config schedule and link sheet.
func (c *Client) Reload() (*common.ReloadResponse, error) {
	return quick[common.ReloadResponse](c, "bell.reload", nil)
}

// HistoryOpts selects history rows, newest first.
type HistoryOpts struct {
	Limit int
	// Since selects rows at or after this instant; overrides Limit.
	Since time.Time
}

// History lists past rings.
func (c *Client) History(opts *HistoryOpts) (*common.HistoryResponse, error) {
	if opts == nil {
		opts = &HistoryOpts{}
	}
	p := &common.HistoryParams{Limit: opts.Limit}
	if !opts.Since.IsZero() {
		p.Since = opts.Since.Format(time.RFC3339)
	}
	return quick[common.HistoryResponse](c, "bell.history", p)
}

// CacheList lists the cached clips known to the daemon.
func (c *Client) CacheList() (*common.CacheListResponse, error) {
	return quick[common.CacheListResponse](c, "cache.list", nil)
}

// CacheFlush drops a cached clip by hash, or every clip when hash is
// empty.
func (c *Client) CacheFlush(hash string) (*common.CacheFlushResponse, error) {
	return quick[common.CacheFlushResponse](c, "cache.flush", &common.CacheFlushParams{ClipHash: hash})
}

// Version reports the daemon build information.
func (c *Client) Version() (*common.VersionResponse, error) {
	return quick[common.VersionResponse](c, "system.getVersion", nil)
}

package chimelib

import (
	"context"
	"fmt"
	"io"
)

// ProbeResult holds metadata discovered before transferring any media.
type ProbeResult struct {
	// Name is the remote file name, empty if the source gave none.
	Name string
	// Size is the total byte count, -1 when unknown.
	Size int64
	// MediaType is the reported MIME type, empty if unknown.
	MediaType string
}

// Fetcher is the abstraction between the clip cache and a concrete
// transfer protocol. Bell clips are short, so fetchers transfer a
// single stream; there is no segmenting or resume.
//
// Lifecycle:
//  1. Create via a FetcherFactory or SchemeRouter.NewFetcher
//  2. Probe for metadata (required before Fetch)
//  3. Fetch the media into a local destination
//  4. Close to release connections
type Fetcher interface {
	// Probe fetches metadata without transferring content. Safe to
	// call more than once.
	Probe(ctx context.Context) (ProbeResult, error)

	// Fetch transfers the media into dst. Probe must have been called.
	// handlers receives progress callbacks; pass nil for none.
	Fetch(ctx context.Context, dst io.Writer, handlers *Handlers) error

	// Stop signals the transfer to stop. Non-blocking.
	Stop()

	// Close releases all resources held by the fetcher.
	Close() error
}

// FetcherFactory creates a Fetcher for a raw URL.
type FetcherFactory func(rawURL string, opts *FetchOpts) (Fetcher, error)

// FetchOpts carries per-fetch settings shared by all protocols.
type FetchOpts struct {
	// UserAgent is sent on http(s) fetches.
	UserAgent string
	// Creds resolves stored credentials for hosts whose URL carries
	// no userinfo. May be nil.
	Creds CredentialSource
}

// CredentialSource looks up stored credentials for a host. Implemented
// by pkg/credstore; fetchers consult it when a link has no inline
// userinfo.
type CredentialSource interface {
	Lookup(host string) (username, password string, ok bool)
}

// Resolver turns a page link into a direct media URL. Implemented by
// internal/resolver; direct media links pass through unchanged.
type Resolver interface {
	Resolve(ctx context.Context, rawURL string) (string, error)
}

// FetchError is a structured error from a fetcher. Use errors.As to
// inspect; IsTransient tells retry loops whether another attempt makes
// sense.
type FetchError struct {
	// Proto identifies the protocol ("http", "ftp", "sftp", "file").
	Proto string
	// Op is the operation that failed ("probe", "fetch", "connect").
	Op string
	// Cause is the underlying error.
	Cause error

	transient bool
}

// Error formats as "proto op: cause".
func (e *FetchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s %s: %s", e.Proto, e.Op, e.Cause.Error())
	}
	return fmt.Sprintf("%s %s", e.Proto, e.Op)
}

// Unwrap returns the underlying cause for errors.Is/As chains.
func (e *FetchError) Unwrap() error {
	return e.Cause
}

// IsTransient reports whether a retry may succeed.
func (e *FetchError) IsTransient() bool {
	return e.transient
}

// NewTransientError creates a FetchError a retry may clear (timeouts,
// 5xx, connection resets).
func NewTransientError(proto, op string, cause error) *FetchError {
	return &FetchError{Proto: proto, Op: op, Cause: cause, transient: true}
}

// NewPermanentError creates a FetchError that retrying cannot fix
// (bad URL, 404, auth rejection).
func NewPermanentError(proto, op string, cause error) *FetchError {
	return &FetchError{Proto: proto, Op: op, Cause: cause, transient: false}
}

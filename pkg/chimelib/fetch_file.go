package chimelib

import (
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
)

// fileFetcher copies local media referenced by file:// links, so a
// sheet can mix remote URLs with files already on the machine.
type fileFetcher struct {
	path string

	probed  bool
	result  ProbeResult
	stopped atomic.Bool
}

func newFileFetcher(rawURL string) (Fetcher, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, NewPermanentError("file", "parse", err)
	}
	p := parsed.Path
	if parsed.Host != "" && parsed.Host != "localhost" {
		// file://host/... with a real host is not a local path.
		return nil, NewPermanentError("file", "parse", ErrUnsupportedScheme)
	}
	return &fileFetcher{path: filepath.FromSlash(p)}, nil
}

func (f *fileFetcher) Probe(ctx context.Context) (ProbeResult, error) {
	fi, err := os.Stat(f.path)
	if err != nil {
		return ProbeResult{}, NewPermanentError("file", "stat", err)
	}
	f.result = ProbeResult{
		Name: filepath.Base(f.path),
		Size: fi.Size(),
	}
	f.probed = true
	return f.result, nil
}

func (f *fileFetcher) Fetch(ctx context.Context, dst io.Writer, handlers *Handlers) error {
	if !f.probed {
		return NewPermanentError("file", "fetch", ErrProbeRequired)
	}
	handlers = handlers.withDefaults(nil)
	src, err := os.Open(f.path)
	if err != nil {
		return NewPermanentError("file", "open", err)
	}
	defer src.Close()

	handlers.FetchStartedHandler(f.path, f.result.Size)
	tread, err := copyWithProgress(ctx, dst, src, &f.stopped, func(n int) {
		handlers.FetchProgressHandler(f.path, n)
	})
	if err != nil {
		return NewPermanentError("file", "fetch", err)
	}
	handlers.FetchCompleteHandler(f.path, tread)
	return nil
}

func (f *fileFetcher) Stop() {
	f.stopped.Store(true)
}

func (f *fileFetcher) Close() error {
	return nil
}

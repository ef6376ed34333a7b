package chimelib

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"sync/atomic"
)

const (
	fetchChunkSize   = 32 * KB
	defaultUserAgent = "chime/1.0"
)

type httpFetcher struct {
	client    *http.Client
	rawURL    string
	userAgent string
	username  string
	password  string

	probed  bool
	result  ProbeResult
	stopped atomic.Bool
}

func newHTTPFetcher(rawURL string, opts *FetchOpts, client *http.Client) (Fetcher, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, NewPermanentError("http", "parse", err)
	}
	f := &httpFetcher{
		client:    client,
		rawURL:    rawURL,
		userAgent: opts.UserAgent,
	}
	if f.userAgent == "" {
		f.userAgent = defaultUserAgent
	}
	if parsed.User != nil {
		f.username = parsed.User.Username()
		f.password, _ = parsed.User.Password()
	} else if opts.Creds != nil {
		if u, p, ok := opts.Creds.Lookup(parsed.Hostname()); ok {
			f.username, f.password = u, p
		}
	}
	return f, nil
}

func (f *httpFetcher) newRequest(ctx context.Context) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	if f.username != "" {
		req.SetBasicAuth(f.username, f.password)
	}
	return req, nil
}

// Probe issues a one-byte ranged GET. Media CDNs commonly refuse HEAD,
// so a ranged GET is the reliable way to learn size and type without
// pulling the body.
func (f *httpFetcher) Probe(ctx context.Context) (ProbeResult, error) {
	req, err := f.newRequest(ctx)
	if err != nil {
		return ProbeResult{}, NewPermanentError("http", "probe", err)
	}
	req.Header.Set("Range", "bytes=0-0")

	resp, err := f.client.Do(req)
	if err != nil {
		return ProbeResult{}, NewTransientError("http", "probe", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 8))

	switch {
	case resp.StatusCode == http.StatusPartialContent:
		f.result.Size = totalFromContentRange(resp.Header.Get("Content-Range"))
	case resp.StatusCode == http.StatusOK:
		f.result.Size = resp.ContentLength
	case resp.StatusCode >= 500:
		return ProbeResult{}, NewTransientError("http", "probe", httpStatusError(resp.StatusCode))
	default:
		return ProbeResult{}, NewPermanentError("http", "probe", httpStatusError(resp.StatusCode))
	}
	if f.result.Size == 0 {
		f.result.Size = -1
	}
	f.result.Name = remoteName(resp.Header.Get("Content-Disposition"), f.rawURL)
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err == nil {
			f.result.MediaType = mt
		}
	}
	f.probed = true
	return f.result, nil
}

func (f *httpFetcher) Fetch(ctx context.Context, dst io.Writer, handlers *Handlers) error {
	if !f.probed {
		return NewPermanentError("http", "fetch", ErrProbeRequired)
	}
	handlers = handlers.withDefaults(nil)
	req, err := f.newRequest(ctx)
	if err != nil {
		return NewPermanentError("http", "fetch", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return NewTransientError("http", "fetch", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		if resp.StatusCode >= 500 {
			return NewTransientError("http", "fetch", httpStatusError(resp.StatusCode))
		}
		return NewPermanentError("http", "fetch", httpStatusError(resp.StatusCode))
	}

	handlers.FetchStartedHandler(f.rawURL, f.result.Size)
	tread, err := copyWithProgress(ctx, dst, resp.Body, &f.stopped, func(n int) {
		handlers.FetchProgressHandler(f.rawURL, n)
	})
	if err != nil {
		return NewTransientError("http", "fetch", err)
	}
	handlers.FetchCompleteHandler(f.rawURL, tread)
	return nil
}

func (f *httpFetcher) Stop() {
	f.stopped.Store(true)
}

func (f *httpFetcher) IsStopped() bool {
	return f.stopped.Load()
}

func (f *httpFetcher) Close() error {
	return nil
}

// copyWithProgress is the shared transfer loop used by all fetchers. It
// copies in fixed chunks, reporting each chunk and honoring both the
// context and the stop flag.
func copyWithProgress(ctx context.Context, dst io.Writer, src io.Reader, stopped *atomic.Bool, onChunk func(int)) (int64, error) {
	buf := make([]byte, fetchChunkSize)
	var tread int64
	for {
		if stopped != nil && stopped.Load() {
			return tread, ErrFetchStopped
		}
		select {
		case <-ctx.Done():
			return tread, ctx.Err()
		default:
		}
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return tread, werr
			}
			tread += int64(n)
			onChunk(n)
		}
		if err == io.EOF {
			return tread, nil
		}
		if err != nil {
			return tread, err
		}
	}
}

func httpStatusError(code int) error {
	return fmt.Errorf("unexpected status %d %s", code, http.StatusText(code))
}

// totalFromContentRange parses the total out of a Content-Range header
// like "bytes 0-0/12345". Returns -1 when the total is absent or "*".
func totalFromContentRange(cr string) int64 {
	idx := strings.LastIndexByte(cr, '/')
	if idx < 0 {
		return -1
	}
	total := cr[idx+1:]
	if total == "" || total == "*" {
		return -1
	}
	n, err := strconv.ParseInt(total, 10, 64)
	if err != nil {
		return -1
	}
	return n
}

// remoteName extracts the media file name from a Content-Disposition
// header, falling back to the last URL path element.
func remoteName(cd, rawURL string) string {
	if cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if fn := params["filename"]; fn != "" {
				return fn
			}
		}
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	base := path.Base(parsed.Path)
	if base == "." || base == "/" {
		return ""
	}
	return base
}

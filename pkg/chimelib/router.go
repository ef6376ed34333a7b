package chimelib

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// SchemeRouter maps URL schemes to FetcherFactory implementations. It
// is the single dispatch point for protocol-agnostic clip fetching.
// The zero value is not usable; use NewSchemeRouter.
type SchemeRouter struct {
	routes map[string]FetcherFactory
}

// NewSchemeRouter creates a router pre-wired with every protocol chime
// fetches out of the box: http/https on the given client, ftp/ftps,
// sftp and file.
func NewSchemeRouter(client *http.Client) *SchemeRouter {
	if client == nil {
		client = http.DefaultClient
	}
	r := &SchemeRouter{routes: make(map[string]FetcherFactory)}

	httpFactory := func(rawURL string, opts *FetchOpts) (Fetcher, error) {
		return newHTTPFetcher(rawURL, opts, client)
	}
	r.routes["http"] = httpFactory
	r.routes["https"] = httpFactory

	ftpFactory := func(rawURL string, opts *FetchOpts) (Fetcher, error) {
		return newFTPFetcher(rawURL, opts)
	}
	r.routes["ftp"] = ftpFactory
	r.routes["ftps"] = ftpFactory

	r.routes["sftp"] = func(rawURL string, opts *FetchOpts) (Fetcher, error) {
		return newSFTPFetcher(rawURL, opts)
	}
	r.routes["file"] = func(rawURL string, opts *FetchOpts) (Fetcher, error) {
		return newFileFetcher(rawURL)
	}
	return r
}

// Register adds or replaces the factory for a scheme. scheme must be
// lowercase.
func (r *SchemeRouter) Register(scheme string, factory FetcherFactory) {
	r.routes[strings.ToLower(scheme)] = factory
}

// NewFetcher creates a Fetcher for the raw URL, dispatching on its
// scheme case-insensitively.
func (r *SchemeRouter) NewFetcher(rawURL string, opts *FetchOpts) (Fetcher, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("%w: empty URL", ErrUnsupportedScheme)
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme == "" {
		return nil, fmt.Errorf("%w: no scheme in URL %q", ErrUnsupportedScheme, rawURL)
	}
	factory, ok := r.routes[scheme]
	if !ok {
		return nil, fmt.Errorf(
			"%w %q (supported: %s)",
			ErrUnsupportedScheme, scheme,
			strings.Join(SupportedSchemes(r), ", "),
		)
	}
	if opts == nil {
		opts = &FetchOpts{}
	}
	return factory(rawURL, opts)
}

// SupportedSchemes returns the registered schemes, sorted.
func SupportedSchemes(r *SchemeRouter) []string {
	schemes := make([]string, 0, len(r.routes))
	for s := range r.routes {
		schemes = append(schemes, s)
	}
	sort.Strings(schemes)
	return schemes
}

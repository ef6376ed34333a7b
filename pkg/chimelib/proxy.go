package chimelib

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/net/proxy"
)

var ErrInvalidProxyURL = errors.New("invalid proxy URL")

// DefaultMaxRedirects bounds redirect chains on http fetches.
const DefaultMaxRedirects = 10

var proxySchemes = map[string]bool{
	"http":   true,
	"https":  true,
	"socks5": true,
}

// RedirectPolicy returns a CheckRedirect func limiting a client to max
// redirects.
func RedirectPolicy(max int) func(req *http.Request, via []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return fmt.Errorf("stopped after %d redirects", max)
		}
		return nil
	}
}

// NewHTTPClient builds the http client used for clip fetching. An empty
// proxyURL yields a plain client honoring the process proxy env vars;
// otherwise http, https and socks5 proxy URLs are supported.
func NewHTTPClient(proxyURL string) (*http.Client, error) {
	if proxyURL == "" {
		return &http.Client{
			Transport:     &http.Transport{Proxy: http.ProxyFromEnvironment},
			CheckRedirect: RedirectPolicy(DefaultMaxRedirects),
		}, nil
	}

	parsed, err := url.Parse(proxyURL)
	if err != nil {
		return nil, ErrInvalidProxyURL
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, ErrInvalidProxyURL
	}
	if !proxySchemes[parsed.Scheme] {
		return nil, fmt.Errorf("%w: proxy scheme %q", ErrInvalidProxyURL, parsed.Scheme)
	}

	transport := &http.Transport{}
	if parsed.Scheme == "socks5" {
		var auth *proxy.Auth
		if parsed.User != nil {
			pass, _ := parsed.User.Password()
			auth = &proxy.Auth{User: parsed.User.Username(), Password: pass}
		}
		dialer, err := proxy.SOCKS5("tcp", parsed.Host, auth, proxy.Direct)
		if err != nil {
			return nil, err
		}
		transport.Dial = dialer.Dial
	} else {
		transport.Proxy = http.ProxyURL(parsed)
	}

	return &http.Client{
		Transport:     transport,
		CheckRedirect: RedirectPolicy(DefaultMaxRedirects),
	}, nil
}

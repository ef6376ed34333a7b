package chimelib

import (
	"context"
	"crypto/tls"
	"io"
	"net/url"
	"path"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jlaffaye/ftp"
)

const ftpDialTimeout = 30 * time.Second

type ftpFetcher struct {
	host     string // host:port
	ftpPath  string
	user     string
	password string
	explicit bool // ftps: explicit TLS after connect

	probed  bool
	result  ProbeResult
	stopped atomic.Bool
}

func newFTPFetcher(rawURL string, opts *FetchOpts) (Fetcher, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, NewPermanentError("ftp", "parse", err)
	}
	host := parsed.Host
	if parsed.Port() == "" {
		host += ":21"
	}
	f := &ftpFetcher{
		host:     host,
		ftpPath:  parsed.Path,
		user:     "anonymous",
		password: "anonymous",
		explicit: strings.EqualFold(parsed.Scheme, "ftps"),
	}
	if parsed.User != nil {
		f.user = parsed.User.Username()
		if p, ok := parsed.User.Password(); ok {
			f.password = p
		}
	} else if opts.Creds != nil {
		if u, p, ok := opts.Creds.Lookup(parsed.Hostname()); ok {
			f.user, f.password = u, p
		}
	}
	return f, nil
}

func (f *ftpFetcher) connect(ctx context.Context) (*ftp.ServerConn, error) {
	dialOpts := []ftp.DialOption{
		ftp.DialWithTimeout(ftpDialTimeout),
		ftp.DialWithContext(ctx),
	}
	if f.explicit {
		dialOpts = append(dialOpts, ftp.DialWithExplicitTLS(&tls.Config{
			MinVersion: tls.VersionTLS12,
		}))
	}
	conn, err := ftp.Dial(f.host, dialOpts...)
	if err != nil {
		return nil, NewTransientError("ftp", "connect", err)
	}
	if err := conn.Login(f.user, f.password); err != nil {
		conn.Quit()
		return nil, NewPermanentError("ftp", "login", err)
	}
	return conn, nil
}

func (f *ftpFetcher) Probe(ctx context.Context) (ProbeResult, error) {
	conn, err := f.connect(ctx)
	if err != nil {
		return ProbeResult{}, err
	}
	defer conn.Quit()

	f.result.Name = path.Base(f.ftpPath)
	// Servers without SIZE support still serve RETR fine.
	size, err := conn.FileSize(f.ftpPath)
	if err != nil {
		f.result.Size = -1
	} else {
		f.result.Size = size
	}
	f.probed = true
	return f.result, nil
}

func (f *ftpFetcher) Fetch(ctx context.Context, dst io.Writer, handlers *Handlers) error {
	if !f.probed {
		return NewPermanentError("ftp", "fetch", ErrProbeRequired)
	}
	handlers = handlers.withDefaults(nil)
	conn, err := f.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Quit()

	if err := conn.Type(ftp.TransferTypeBinary); err != nil {
		return NewTransientError("ftp", "type", err)
	}
	resp, err := conn.Retr(f.ftpPath)
	if err != nil {
		return NewPermanentError("ftp", "retr", err)
	}
	defer resp.Close()

	handlers.FetchStartedHandler(f.ftpPath, f.result.Size)
	tread, err := copyWithProgress(ctx, dst, resp, &f.stopped, func(n int) {
		handlers.FetchProgressHandler(f.ftpPath, n)
	})
	if err != nil {
		return NewTransientError("ftp", "fetch", err)
	}
	handlers.FetchCompleteHandler(f.ftpPath, tread)
	return nil
}

func (f *ftpFetcher) Stop() {
	f.stopped.Store(true)
}

func (f *ftpFetcher) Close() error {
	return nil
}

package chimelib

import (
	"context"
	"errors"
	"io"
	"net/url"
	"path"
	"sync/atomic"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

const sshDialTimeout = 30 * time.Second

type sftpFetcher struct {
	host     string // host:port
	sftpPath string
	user     string
	password string

	probed  bool
	result  ProbeResult
	stopped atomic.Bool
}

func newSFTPFetcher(rawURL string, opts *FetchOpts) (Fetcher, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, NewPermanentError("sftp", "parse", err)
	}
	host := parsed.Host
	if parsed.Port() == "" {
		host += ":22"
	}
	f := &sftpFetcher{
		host:     host,
		sftpPath: parsed.Path,
	}
	if parsed.User != nil {
		f.user = parsed.User.Username()
		f.password, _ = parsed.User.Password()
	} else if opts.Creds != nil {
		if u, p, ok := opts.Creds.Lookup(parsed.Hostname()); ok {
			f.user, f.password = u, p
		}
	}
	if f.user == "" {
		return nil, NewPermanentError("sftp", "parse", errors.New("sftp links need a username (inline or via chime auth)"))
	}
	return f, nil
}

func (f *sftpFetcher) connect() (*ssh.Client, *sftp.Client, error) {
	config := &ssh.ClientConfig{
		User:            f.user,
		Auth:            []ssh.AuthMethod{ssh.Password(f.password)},
		HostKeyCallback: tofuHostKeyCallback(KnownHostsPath),
		Timeout:         sshDialTimeout,
	}
	sshConn, err := ssh.Dial("tcp", f.host, config)
	if err != nil {
		return nil, nil, NewTransientError("sftp", "connect", err)
	}
	sftpClient, err := sftp.NewClient(sshConn)
	if err != nil {
		sshConn.Close()
		return nil, nil, NewTransientError("sftp", "session", err)
	}
	return sshConn, sftpClient, nil
}

func (f *sftpFetcher) Probe(ctx context.Context) (ProbeResult, error) {
	sshConn, client, err := f.connect()
	if err != nil {
		return ProbeResult{}, err
	}
	defer sshConn.Close()
	defer client.Close()

	fi, err := client.Stat(f.sftpPath)
	if err != nil {
		return ProbeResult{}, NewPermanentError("sftp", "stat", err)
	}
	f.result = ProbeResult{
		Name: path.Base(f.sftpPath),
		Size: fi.Size(),
	}
	f.probed = true
	return f.result, nil
}

func (f *sftpFetcher) Fetch(ctx context.Context, dst io.Writer, handlers *Handlers) error {
	if !f.probed {
		return NewPermanentError("sftp", "fetch", ErrProbeRequired)
	}
	handlers = handlers.withDefaults(nil)
	sshConn, client, err := f.connect()
	if err != nil {
		return err
	}
	defer sshConn.Close()
	defer client.Close()

	src, err := client.Open(f.sftpPath)
	if err != nil {
		return NewPermanentError("sftp", "open", err)
	}
	defer src.Close()

	handlers.FetchStartedHandler(f.sftpPath, f.result.Size)
	tread, err := copyWithProgress(ctx, dst, src, &f.stopped, func(n int) {
		handlers.FetchProgressHandler(f.sftpPath, n)
	})
	if err != nil {
		return NewTransientError("sftp", "fetch", err)
	}
	handlers.FetchCompleteHandler(f.sftpPath, tread)
	return nil
}

func (f *sftpFetcher) Stop() {
	f.stopped.Store(true)
}

func (f *sftpFetcher) Close() error {
	return nil
}

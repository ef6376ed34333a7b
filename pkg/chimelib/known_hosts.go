package chimelib

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// knownHostsMu serializes appends to the known_hosts file. First
// contact with a new host is rare, but two sftp fetches racing on two
// new hosts must not interleave writes.
var knownHostsMu sync.Mutex

// tofuHostKeyCallback implements trust-on-first-use for sftp links:
// a known host must present its recorded key, an unknown host is
// accepted and recorded. The file is re-read on every call so keys
// appended by concurrent fetches are visible immediately.
func tofuHostKeyCallback(knownHostsFile string) ssh.HostKeyCallback {
	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		if err := os.MkdirAll(filepath.Dir(knownHostsFile), 0700); err != nil {
			return fmt.Errorf("sftp: create known_hosts dir: %w", err)
		}

		if _, err := os.Stat(knownHostsFile); err == nil {
			cb, loadErr := knownhosts.New(knownHostsFile)
			if loadErr != nil {
				return fmt.Errorf("sftp: load known_hosts: %w", loadErr)
			}
			err := cb(hostname, remote, key)
			if err == nil {
				return nil
			}
			var keyErr *knownhosts.KeyError
			if errors.As(err, &keyErr) {
				if len(keyErr.Want) > 0 {
					// Recorded key differs. Refuse rather than ring a
					// bell with media from an impostor host.
					return fmt.Errorf(
						"sftp: host key changed for %s (got %s); remove the old entry from %s if this is expected",
						hostname, ssh.FingerprintSHA256(key), knownHostsFile,
					)
				}
				// Unknown host, fall through to first-use accept.
			} else {
				return err
			}
		}
		return appendKnownHost(knownHostsFile, hostname, key)
	}
}

func appendKnownHost(path, hostname string, key ssh.PublicKey) error {
	knownHostsMu.Lock()
	defer knownHostsMu.Unlock()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("sftp: write known_hosts: %w", err)
	}
	defer f.Close()

	line := knownhosts.Line([]string{knownhosts.Normalize(hostname)}, key)
	_, err = fmt.Fprintln(f, line)
	return err
}

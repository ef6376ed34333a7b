// Package chimelib implements the media engine behind chime: it turns
// bell links into locally cached audio clips. It fetches media over
// http(s), ftp(s), sftp and file URLs, normalizes clips with ffmpeg and
// tracks the cache in a manifest persisted under the config directory.
package chimelib

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
)

// ConfigDirEnv overrides the default configuration directory.
const ConfigDirEnv = "CHIME_CONFIG_DIR"

var (
	// ConfigDir is the absolute path of the chime configuration
	// directory. Set at init, changed via SetConfigDir.
	ConfigDir string

	// KnownHostsPath is chime's own known_hosts file for sftp links,
	// isolated from ~/.ssh so bell fetching never touches system SSH
	// state. Follows ConfigDir.
	KnownHostsPath string

	manifestPath string
)

func init() {
	dir := os.Getenv(ConfigDirEnv)
	if dir == "" {
		dir = defaultConfigDir()
	}
	if err := setConfigDir(dir); err != nil {
		panic(err)
	}
}

func defaultConfigDir() string {
	cdr, err := os.UserConfigDir()
	if err != nil {
		panic(err)
	}
	return filepath.Join(cdr, "chime")
}

func setConfigDir(dir string) error {
	if dir == "" {
		return errors.New("config dir is empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return err
	}
	ConfigDir = abs
	KnownHostsPath = filepath.Join(abs, "known_hosts")
	manifestPath = filepath.Join(abs, "clips.chime")
	return nil
}

// SetConfigDir points chimelib at a different configuration directory,
// creating it if needed. Derived paths (manifest, known_hosts) follow.
func SetConfigDir(dir string) error {
	return setConfigDir(dir)
}

// DefaultMediaDir is where cached clips live unless the config says
// otherwise.
func DefaultMediaDir() string {
	return filepath.Join(ConfigDir, "media")
}

// ClipHash derives the cache key for a link. It hashes the link itself,
// not the resolved media URL, so short-lived signed URLs from
// extractors map back to one stable cache entry.
func ClipHash(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return hex.EncodeToString(sum[:])[:12]
}

// Package credstore keeps per-host fetch credentials (ftp, sftp, http
// basic auth) in an encrypted store under the config dir. Passwords are
// sealed with AES-256-GCM; the store key lives in the OS keyring with a
// file fallback for headless systems.
package credstore

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chimebell/chime/pkg/credstore/encryption"
)

// Credential holds login data for one host. Password is stored
// encrypted on disk and returned decrypted by Get.
type Credential struct {
	Host     string
	Username string
	Password string
	// AddedAt records when the credential was first stored.
	AddedAt time.Time
}

// Store is the encrypted credential store. Safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	filePath string
	key      []byte
	creds    map[string]*Credential
}

// Open loads the credential store at filePath, creating it when absent.
// The key must be 32 bytes (AES-256).
func Open(filePath string, key []byte) (*Store, error) {
	s := &Store{
		filePath: filePath,
		key:      key,
		creds:    make(map[string]*Credential),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if len(data) == 0 {
		return nil
	}
	dec := gob.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&s.creds); err != nil {
		return fmt.Errorf("decode credential store: %w", err)
	}
	return nil
}

// save persists the store. Caller holds the mutex.
func (s *Store) save() error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s.creds); err != nil {
		return err
	}
	return os.WriteFile(s.filePath, buf.Bytes(), 0600)
}

func hostKey(host string) string {
	return strings.ToLower(strings.TrimSpace(host))
}

// Set stores a credential for a host, replacing any existing one.
func (s *Store) Set(cred Credential) error {
	sealed, err := encryption.EncryptValue(cred.Password, s.key)
	if err != nil {
		return err
	}
	cred.Password = string(sealed)
	if cred.AddedAt.IsZero() {
		cred.AddedAt = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds[hostKey(cred.Host)] = &cred
	return s.save()
}

// Get returns the credential for a host with the password decrypted.
func (s *Store) Get(host string) (*Credential, error) {
	s.mu.Lock()
	cred, ok := s.creds[hostKey(host)]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("no credential for host: %s", host)
	}
	plain, err := encryption.DecryptValue([]byte(cred.Password), s.key)
	if err != nil {
		return nil, err
	}
	out := *cred
	out.Password = string(plain)
	return &out, nil
}

// Delete removes the credential for a host.
func (s *Store) Delete(host string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.creds[hostKey(host)]; !ok {
		return fmt.Errorf("no credential for host: %s", host)
	}
	delete(s.creds, hostKey(host))
	return s.save()
}

// List returns the stored hosts and usernames, sorted by host. The
// passwords stay sealed.
func (s *Store) List() []Credential {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Credential, 0, len(s.creds))
	for _, c := range s.creds {
		out = append(out, Credential{Host: c.Host, Username: c.Username, AddedAt: c.AddedAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Host < out[j].Host })
	return out
}

// Lookup satisfies the fetcher credential source: it resolves a host to
// a username and password, reporting ok=false when nothing is stored.
func (s *Store) Lookup(host string) (username, password string, ok bool) {
	cred, err := s.Get(host)
	if err != nil {
		return "", "", false
	}
	return cred.Username, cred.Password, true
}

// Close persists the store a final time.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save()
}

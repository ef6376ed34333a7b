package credstore

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func testKey() []byte {
	return bytes.Repeat([]byte{0x42}, 32)
}

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "creds.chime")
	s, err := Open(path, testKey())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s, path
}

func TestSetGetRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	err := s.Set(Credential{Host: "ftp.example.com", Username: "bell", Password: "s3cret"})
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	cred, err := s.Get("ftp.example.com")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if cred.Username != "bell" || cred.Password != "s3cret" {
		t.Errorf("got %q/%q, want bell/s3cret", cred.Username, cred.Password)
	}
}

func TestGetUnknownHost(t *testing.T) {
	s, _ := newTestStore(t)
	if _, err := s.Get("nowhere.example.com"); err == nil {
		t.Error("expected error for unknown host")
	}
}

func TestHostLookupIsCaseInsensitive(t *testing.T) {
	s, _ := newTestStore(t)
	if err := s.Set(Credential{Host: "Media.School.Edu", Username: "u", Password: "p"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := s.Get("media.school.edu"); err != nil {
		t.Errorf("case-insensitive get failed: %v", err)
	}
}

func TestPasswordSealedOnDisk(t *testing.T) {
	s, path := newTestStore(t)
	if err := s.Set(Credential{Host: "h", Username: "u", Password: "plaintext-marker"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read store: %v", err)
	}
	if bytes.Contains(data, []byte("plaintext-marker")) {
		t.Error("password stored in the clear")
	}
}

func TestPersistAcrossReopen(t *testing.T) {
	s, path := newTestStore(t)
	if err := s.Set(Credential{Host: "sftp.example.com", Username: "bell", Password: "pw"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := Open(path, testKey())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	cred, err := s2.Get("sftp.example.com")
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if cred.Password != "pw" {
		t.Errorf("password = %q, want pw", cred.Password)
	}
}

func TestDelete(t *testing.T) {
	s, _ := newTestStore(t)
	if err := s.Set(Credential{Host: "h", Username: "u", Password: "p"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Delete("h"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get("h"); err == nil {
		t.Error("credential survived delete")
	}
	if err := s.Delete("h"); err == nil {
		t.Error("expected error deleting absent credential")
	}
}

func TestListSortedAndSealed(t *testing.T) {
	s, _ := newTestStore(t)
	for _, host := range []string{"zeta.example.com", "alpha.example.com"} {
		if err := s.Set(Credential{Host: host, Username: "u", Password: "p"}); err != nil {
			t.Fatalf("Set %s: %v", host, err)
		}
	}
	list := s.List()
	if len(list) != 2 {
		t.Fatalf("len(list) = %d, want 2", len(list))
	}
	if list[0].Host != "alpha.example.com" || list[1].Host != "zeta.example.com" {
		t.Errorf("list not sorted: %v", list)
	}
	for _, c := range list {
		if c.Password != "" {
			t.Errorf("List leaked password for %s", c.Host)
		}
	}
}

func TestLookup(t *testing.T) {
	s, _ := newTestStore(t)
	if err := s.Set(Credential{Host: "ftp.example.com", Username: "bell", Password: "pw"}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	user, pass, ok := s.Lookup("ftp.example.com")
	if !ok || user != "bell" || pass != "pw" {
		t.Errorf("Lookup = %q/%q/%v, want bell/pw/true", user, pass, ok)
	}
	if _, _, ok := s.Lookup("unknown.example.com"); ok {
		t.Error("Lookup reported ok for unknown host")
	}
}

func TestWrongKeyFailsDecrypt(t *testing.T) {
	s, path := newTestStore(t)
	if err := s.Set(Credential{Host: "h", Username: "u", Password: "p"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	other := bytes.Repeat([]byte{0x13}, 32)
	s2, err := Open(path, other)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if _, err := s2.Get("h"); err == nil {
		t.Error("expected decrypt failure with wrong key")
	}
}

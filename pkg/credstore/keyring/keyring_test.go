package keyring

import (
	"encoding/hex"
	"errors"
	"testing"
)

func TestSetKeyStoresHexEncoded(t *testing.T) {
	var gotService, gotField, gotValue string
	oldSet := keyringSet
	keyringSet = func(service, user, value string) error {
		gotService, gotField, gotValue = service, user, value
		return nil
	}
	defer func() { keyringSet = oldSet }()

	k := New()
	key, err := k.SetKey()
	if err != nil {
		t.Fatalf("SetKey: %v", err)
	}
	if len(key) != 32 {
		t.Errorf("key length = %d, want 32", len(key))
	}
	if gotService != "chime" || gotField != "main" {
		t.Errorf("stored under %s/%s, want chime/main", gotService, gotField)
	}
	decoded, err := hex.DecodeString(gotValue)
	if err != nil {
		t.Fatalf("stored value not hex: %v", err)
	}
	if string(decoded) != string(key) {
		t.Error("stored value does not match returned key")
	}
}

func TestSetKeyRandFailure(t *testing.T) {
	oldRand := randRead
	randRead = func([]byte) (int, error) { return 0, errors.New("no entropy") }
	defer func() { randRead = oldRand }()

	if _, err := New().SetKey(); err == nil {
		t.Error("expected error when random source fails")
	}
}

func TestGetKeyDecodes(t *testing.T) {
	oldGet := keyringGet
	keyringGet = func(service, user string) (string, error) {
		return "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff", nil
	}
	defer func() { keyringGet = oldGet }()

	key, err := New().GetKey()
	if err != nil {
		t.Fatalf("GetKey: %v", err)
	}
	if len(key) != 32 {
		t.Errorf("key length = %d, want 32", len(key))
	}
}

func TestGetKeyPropagatesError(t *testing.T) {
	oldGet := keyringGet
	keyringGet = func(service, user string) (string, error) {
		return "", errors.New("keyring locked")
	}
	defer func() { keyringGet = oldGet }()

	if _, err := New().GetKey(); err == nil {
		t.Error("expected error from keyring backend")
	}
}

func TestDeleteKey(t *testing.T) {
	var deleted bool
	oldDelete := keyringDelete
	keyringDelete = func(service, user string) error {
		deleted = true
		return nil
	}
	defer func() { keyringDelete = oldDelete }()

	if err := New().DeleteKey(); err != nil {
		t.Fatalf("DeleteKey: %v", err)
	}
	if !deleted {
		t.Error("keyring delete not invoked")
	}
}

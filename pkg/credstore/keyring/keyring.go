// Package keyring stores the credential-store key in the operating
// system keyring, falling back to a file under the config dir when no
// keyring service is available.
package keyring

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/zalando/go-keyring"
)

// Keyring wraps the OS keyring entry that holds the store key.
type Keyring struct {
	AppName  string
	KeyField string
}

// Function variables allow tests to stub the keyring backend.
var (
	keyringSet    = keyring.Set
	keyringGet    = keyring.Get
	keyringDelete = keyring.Delete
	randRead      = rand.Read
)

func New() *Keyring {
	return &Keyring{
		AppName:  "chime",
		KeyField: "main",
	}
}

// SetKey generates a fresh 32-byte key, stores it hex-encoded in the
// keyring and returns the raw bytes.
func (k *Keyring) SetKey() ([]byte, error) {
	key := make([]byte, 32)
	if _, err := randRead(key); err != nil {
		return nil, err
	}
	if err := keyringSet(k.AppName, k.KeyField, hex.EncodeToString(key)); err != nil {
		return nil, err
	}
	return key, nil
}

// GetKey retrieves and decodes the stored key.
func (k *Keyring) GetKey() ([]byte, error) {
	keyHex, err := keyringGet(k.AppName, k.KeyField)
	if err != nil {
		return nil, err
	}
	return hex.DecodeString(keyHex)
}

// DeleteKey removes the key from the keyring.
func (k *Keyring) DeleteKey() error {
	return keyringDelete(k.AppName, k.KeyField)
}

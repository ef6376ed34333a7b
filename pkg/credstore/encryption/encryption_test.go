package encryption

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"testing"
)

var key = bytes.Repeat([]byte{0xAB}, 32)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	for _, value := range []string{"", "p", "a longer password with spaces", "unicode: ü¶"} {
		sealed, err := EncryptValue(value, key)
		if err != nil {
			t.Fatalf("EncryptValue(%q): %v", value, err)
		}
		plain, err := DecryptValue(sealed, key)
		if err != nil {
			t.Fatalf("DecryptValue(%q): %v", value, err)
		}
		if string(plain) != value {
			t.Errorf("round trip = %q, want %q", plain, value)
		}
	}
}

func TestCiphertextCarriesVersionPrefix(t *testing.T) {
	sealed, err := EncryptValue("x", key)
	if err != nil {
		t.Fatalf("EncryptValue: %v", err)
	}
	if !bytes.HasPrefix(sealed, []byte("gcm1")) {
		t.Errorf("ciphertext missing gcm1 prefix: %q", sealed[:8])
	}
}

func TestTamperedCiphertextRejected(t *testing.T) {
	sealed, err := EncryptValue("secret", key)
	if err != nil {
		t.Fatalf("EncryptValue: %v", err)
	}
	sealed[len(sealed)-1] ^= 0xFF
	if _, err := DecryptValue(sealed, key); err == nil {
		t.Error("tampered ciphertext decrypted without error")
	}
}

func TestWrongKeyRejected(t *testing.T) {
	sealed, err := EncryptValue("secret", key)
	if err != nil {
		t.Fatalf("EncryptValue: %v", err)
	}
	other := bytes.Repeat([]byte{0x01}, 32)
	if _, err := DecryptValue(sealed, other); err == nil {
		t.Error("wrong key decrypted without error")
	}
}

func TestShortCiphertextRejected(t *testing.T) {
	for _, data := range [][]byte{{}, []byte("gcm1"), []byte("gcm1abc"), []byte("short")} {
		if _, err := DecryptValue(data, key); err == nil {
			t.Errorf("DecryptValue(%q) succeeded on malformed input", data)
		}
	}
}

// Legacy CFB ciphertexts written before the gcm1 format must still open.
func TestLegacyCFBFallback(t *testing.T) {
	value := "legacy password"
	block, err := aes.NewCipher(key)
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}
	ciphertext := make([]byte, aes.BlockSize+len(value))
	iv := ciphertext[:aes.BlockSize]
	if _, err := rand.Read(iv); err != nil {
		t.Fatalf("rand: %v", err)
	}
	stream := cipher.NewCFBEncrypter(block, iv)
	stream.XORKeyStream(ciphertext[aes.BlockSize:], []byte(value))

	plain, err := DecryptValue(ciphertext, key)
	if err != nil {
		t.Fatalf("DecryptValue legacy: %v", err)
	}
	if string(plain) != value {
		t.Errorf("legacy round trip = %q, want %q", plain, value)
	}
}

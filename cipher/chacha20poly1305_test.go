package cipher

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
)

// RFC 7539 §2.6.2: the one-time Poly1305 key is the first 32 keystream
// bytes at counter 0.
func TestAEAD_PolyKeyDerivation(t *testing.T) {
	key := unhex(t, `
		80 81 82 83 84 85 86 87 88 89 8a 8b 8c 8d 8e 8f
		90 91 92 93 94 95 96 97 98 99 9a 9b 9c 9d 9e 9f`)
	nonce, err := parseChachaNonce(unhex(t, "000000000001020304050607"))
	if err != nil {
		t.Fatalf("parse nonce: %v", err)
	}

	c, err := NewChaCha20Poly1305(key)
	if err != nil {
		t.Fatalf("NewChaCha20Poly1305 failed: %v", err)
	}
	got := c.polyKey(nonce)

	want := unhex(t, `
		8a d5 a0 8b 90 5f 81 cc 81 50 40 27 4a b2 94 71
		a8 33 b6 37 e3 fd 0d a5 08 db b8 e2 fd d1 a6 46`)
	if !bytes.Equal(got[:], want) {
		t.Errorf("poly key = %x, want %x", got, want)
	}
}

func TestAEAD_RoundTrip(t *testing.T) {
	c, err := NewChaCha20Poly1305(seqKey())
	if err != nil {
		t.Fatalf("NewChaCha20Poly1305 failed: %v", err)
	}

	for _, size := range []int{0, 1, 63, 64, 65, 16372} {
		msg := make([]byte, size)
		for i := range msg {
			msg[i] = byte(i * 31)
		}
		sealed, err := c.Encrypt(msg)
		if err != nil {
			t.Fatalf("Encrypt(%d) failed: %v", size, err)
		}
		if len(sealed) != aeadOverhead+size {
			t.Fatalf("size %d: sealed length %d, want %d", size, len(sealed), aeadOverhead+size)
		}
		opened, err := c.Decrypt(sealed)
		if err != nil {
			t.Fatalf("Decrypt(%d) failed: %v", size, err)
		}
		if !bytes.Equal(opened, msg) {
			t.Errorf("size %d: round trip mismatch", size)
		}
	}
}

// Flipping any single bit of nonce, ciphertext or tag must fail
// authentication.
func TestAEAD_TamperDetection(t *testing.T) {
	c, err := NewChaCha20Poly1305(seqKey())
	if err != nil {
		t.Fatalf("NewChaCha20Poly1305 failed: %v", err)
	}
	sealed, err := c.Encrypt([]byte("the tag covers the ciphertext"))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	for i := 0; i < len(sealed)*8; i++ {
		tampered := append([]byte(nil), sealed...)
		tampered[i/8] ^= 1 << (i % 8)
		if _, err := c.Decrypt(tampered); !errors.Is(err, ErrAuthentication) {
			t.Fatalf("bit %d: expected ErrAuthentication, got %v", i, err)
		}
	}
}

func TestAEAD_TooShort(t *testing.T) {
	c, err := NewChaCha20Poly1305(seqKey())
	if err != nil {
		t.Fatalf("NewChaCha20Poly1305 failed: %v", err)
	}
	for _, size := range []int{0, 1, aeadOverhead - 1} {
		if _, err := c.Decrypt(make([]byte, size)); !errors.Is(err, ErrCiphertextTooShort) {
			t.Errorf("size %d: expected ErrCiphertextTooShort, got %v", size, err)
		}
	}
}

func TestAEAD_NonceUnique(t *testing.T) {
	c, err := NewChaCha20Poly1305(seqKey())
	if err != nil {
		t.Fatalf("NewChaCha20Poly1305 failed: %v", err)
	}
	seen := make(map[string]bool)
	for i := 0; i < 32; i++ {
		sealed, err := c.Encrypt([]byte("m"))
		if err != nil {
			t.Fatalf("Encrypt failed: %v", err)
		}
		nonce := string(sealed[:ChaChaNonceSize])
		if seen[nonce] {
			t.Fatal("nonce repeated")
		}
		seen[nonce] = true
	}
}

func TestAEAD_KeyLength(t *testing.T) {
	if _, err := NewChaCha20Poly1305(make([]byte, 31)); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey, got %v", err)
	}
}

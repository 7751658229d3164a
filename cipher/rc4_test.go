package cipher

import (
	"bytes"
	stdrc4 "crypto/rc4"
	"testing"

	"github.com/pkg/errors"
)

func TestRC4_KeyLength(t *testing.T) {
	if _, err := NewRC4(nil); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("empty key: expected ErrInvalidKey, got %v", err)
	}
	if _, err := NewRC4(make([]byte, 257)); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("257-byte key: expected ErrInvalidKey, got %v", err)
	}
	if _, err := NewRC4(make([]byte, 256)); err != nil {
		t.Errorf("256-byte key: unexpected error %v", err)
	}
	if _, err := NewRC4([]byte{0x42}); err != nil {
		t.Errorf("1-byte key: unexpected error %v", err)
	}
}

// The hand-rolled KSA+PRGA must match the standard library stream for a
// fresh cipher state.
func TestRC4_MatchesStdlib(t *testing.T) {
	keys := [][]byte{
		[]byte("Key"),
		[]byte("Secret"),
		bytes.Repeat([]byte{0xab}, 16),
	}
	for _, key := range keys {
		c, err := NewRC4(key)
		if err != nil {
			t.Fatalf("NewRC4 failed: %v", err)
		}
		msg := make([]byte, 300)
		for i := range msg {
			msg[i] = byte(i)
		}

		got, err := c.Encrypt(msg)
		if err != nil {
			t.Fatalf("Encrypt failed: %v", err)
		}

		ref, _ := stdrc4.NewCipher(key)
		want := make([]byte, len(msg))
		ref.XORKeyStream(want, msg)

		if !bytes.Equal(got, want) {
			t.Errorf("key %q: keystream diverges from crypto/rc4", key)
		}
	}
}

// Each message restarts the keystream, so encrypt and decrypt on the
// same object stay symmetric.
func TestRC4_RoundTripPerMessage(t *testing.T) {
	c, err := NewRC4([]byte("legacy"))
	if err != nil {
		t.Fatalf("NewRC4 failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		msg := bytes.Repeat([]byte{byte(i + 1)}, 64+i)
		enc, err := c.Encrypt(msg)
		if err != nil {
			t.Fatalf("Encrypt failed: %v", err)
		}
		dec, err := c.Decrypt(enc)
		if err != nil {
			t.Fatalf("Decrypt failed: %v", err)
		}
		if !bytes.Equal(dec, msg) {
			t.Errorf("message %d: round trip mismatch", i)
		}
	}
}

func TestRC4_CloseZeroesKey(t *testing.T) {
	key := []byte("sensitive")
	c, err := NewRC4(key)
	if err != nil {
		t.Fatalf("NewRC4 failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	for _, b := range c.key {
		if b != 0 {
			t.Fatal("key not zeroed after Close")
		}
	}
}

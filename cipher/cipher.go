// Package cipher provides the pluggable message ciphers used by the
// secure codec: identity and obfuscation ciphers for development, and
// an RFC 7539 ChaCha20 / ChaCha20-Poly1305 stack for real traffic.
//
// Ciphers transform whole application messages; they are independent of
// the transport framing underneath.
package cipher

import "github.com/pkg/errors"

// Cipher transforms one message at a time. Implementations are safe for
// repeated use on a single connection but not for concurrent use unless
// documented otherwise.
type Cipher interface {
	// Encrypt transforms a plaintext message for the wire.
	Encrypt(plaintext []byte) ([]byte, error)
	// Decrypt reverses Encrypt. Authenticated ciphers return
	// ErrAuthentication when the message fails verification.
	Decrypt(ciphertext []byte) ([]byte, error)
	// Name identifies the cipher in logs and diagnostics.
	Name() string
}

// Errors returned by cipher construction and operation.
var (
	// ErrInvalidKey is returned when a key has the wrong length.
	ErrInvalidKey = errors.New("invalid key length")
	// ErrAuthentication is returned when an authenticated message fails
	// tag verification.
	ErrAuthentication = errors.New("message authentication failed")
	// ErrCiphertextTooShort is returned when a ciphertext cannot even
	// hold the cipher's nonce and tag overhead.
	ErrCiphertextTooShort = errors.New("ciphertext too short")
	// ErrCounterOverflow is returned when a message would exhaust the
	// 32-bit ChaCha20 block counter for one (key, nonce) pair.
	ErrCounterOverflow = errors.New("chacha20 counter overflow")
)

// zero wipes b. Used when key material is discarded.
func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// Null is the identity cipher.
type Null struct{}

// NewNull returns the identity cipher.
func NewNull() *Null { return &Null{} }

func (*Null) Encrypt(plaintext []byte) ([]byte, error)  { return plaintext, nil }
func (*Null) Decrypt(ciphertext []byte) ([]byte, error) { return ciphertext, nil }
func (*Null) Name() string                              { return "null" }

// Xor is a repeating-key XOR transform. It is obfuscation, not
// encryption: it hides payloads from casual inspection and nothing
// else.
type Xor struct {
	key []byte
}

// NewXor returns a repeating-key XOR cipher. The key must be non-empty.
func NewXor(key []byte) (*Xor, error) {
	if len(key) == 0 {
		return nil, errors.Wrap(ErrInvalidKey, "xor key empty")
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &Xor{key: k}, nil
}

func (x *Xor) Encrypt(plaintext []byte) ([]byte, error) {
	return x.transform(plaintext), nil
}

func (x *Xor) Decrypt(ciphertext []byte) ([]byte, error) {
	return x.transform(ciphertext), nil
}

func (x *Xor) transform(src []byte) []byte {
	out := make([]byte, len(src))
	for i, b := range src {
		out[i] = b ^ x.key[i%len(x.key)]
	}
	return out
}

func (x *Xor) Name() string { return "xor" }

// Close zeroes the key material.
func (x *Xor) Close() error {
	zero(x.key)
	return nil
}

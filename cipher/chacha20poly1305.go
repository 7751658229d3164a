package cipher

import (
	"crypto/rand"
	"crypto/subtle"

	"github.com/pkg/errors"
)

// ChaCha20Poly1305 is the RFC 7539 §2.8 authenticated cipher in this
// library's wire profile: every message is
//
//	nonce(12) ‖ ciphertext ‖ tag(16)
//
// with a fresh random nonce per message and the Poly1305 tag computed
// over the ciphertext alone; there is no associated data. The one-time
// Poly1305 key is the first 32 bytes of the ChaCha20 keystream at
// counter 0, and the plaintext is encrypted from counter 1.
type ChaCha20Poly1305 struct {
	key [8]uint32
}

const aeadOverhead = ChaChaNonceSize + Poly1305TagSize

// NewChaCha20Poly1305 returns an AEAD cipher. The key must be 32 bytes.
func NewChaCha20Poly1305(key []byte) (*ChaCha20Poly1305, error) {
	k, err := parseChachaKey(key)
	if err != nil {
		return nil, err
	}
	return &ChaCha20Poly1305{key: *k}, nil
}

// polyKey derives the one-time Poly1305 key for nonce.
func (c *ChaCha20Poly1305) polyKey(nonce *[3]uint32) [Poly1305KeySize]byte {
	var block [chachaBlockSize]byte
	chachaBlock(&c.key, nonce, 0, &block)
	var key [Poly1305KeySize]byte
	copy(key[:], block[:Poly1305KeySize])
	zero(block[:])
	return key
}

func (c *ChaCha20Poly1305) Encrypt(plaintext []byte) ([]byte, error) {
	out := make([]byte, aeadOverhead+len(plaintext))
	if _, err := rand.Read(out[:ChaChaNonceSize]); err != nil {
		return nil, errors.Wrap(err, "generate nonce")
	}
	nonce, err := parseChachaNonce(out[:ChaChaNonceSize])
	if err != nil {
		return nil, err
	}

	ct := out[ChaChaNonceSize : ChaChaNonceSize+len(plaintext)]
	if err := chachaXOR(ct, plaintext, &c.key, nonce, 1); err != nil {
		return nil, err
	}

	polyKey := c.polyKey(nonce)
	var tag [Poly1305TagSize]byte
	Poly1305Sum(&tag, ct, &polyKey)
	zero(polyKey[:])
	copy(out[ChaChaNonceSize+len(plaintext):], tag[:])
	return out, nil
}

func (c *ChaCha20Poly1305) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < aeadOverhead {
		return nil, errors.Wrapf(ErrCiphertextTooShort, "%d bytes", len(ciphertext))
	}
	nonce, err := parseChachaNonce(ciphertext[:ChaChaNonceSize])
	if err != nil {
		return nil, err
	}
	ct := ciphertext[ChaChaNonceSize : len(ciphertext)-Poly1305TagSize]
	received := ciphertext[len(ciphertext)-Poly1305TagSize:]

	polyKey := c.polyKey(nonce)
	var expected [Poly1305TagSize]byte
	Poly1305Sum(&expected, ct, &polyKey)
	zero(polyKey[:])
	if subtle.ConstantTimeCompare(expected[:], received) != 1 {
		return nil, ErrAuthentication
	}

	out := make([]byte, len(ct))
	if err := chachaXOR(out, ct, &c.key, nonce, 1); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ChaCha20Poly1305) Name() string { return "chacha20-poly1305" }

// Close zeroes the key schedule.
func (c *ChaCha20Poly1305) Close() error {
	for i := range c.key {
		c.key[i] = 0
	}
	return nil
}

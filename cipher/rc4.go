package cipher

import "github.com/pkg/errors"

// RC4 is the classic stream cipher, kept for compatibility with legacy
// peers. It is cryptographically broken; do not use it for anything
// that matters.
//
// The keystream is rewound for every message: each Encrypt or Decrypt
// runs the key schedule from scratch, so the two directions stay in
// sync without sharing state.
type RC4 struct {
	key []byte
}

// NewRC4 returns an RC4 cipher. The key must be 1 to 256 bytes.
func NewRC4(key []byte) (*RC4, error) {
	if len(key) < 1 || len(key) > 256 {
		return nil, errors.Wrapf(ErrInvalidKey, "rc4 key %d bytes", len(key))
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &RC4{key: k}, nil
}

func (r *RC4) Encrypt(plaintext []byte) ([]byte, error) {
	return r.transform(plaintext), nil
}

func (r *RC4) Decrypt(ciphertext []byte) ([]byte, error) {
	return r.transform(ciphertext), nil
}

// transform runs KSA then PRGA over src.
func (r *RC4) transform(src []byte) []byte {
	var s [256]byte
	for i := range s {
		s[i] = byte(i)
	}
	j := 0
	for i := 0; i < 256; i++ {
		j = (j + int(s[i]) + int(r.key[i%len(r.key)])) & 0xff
		s[i], s[j] = s[j], s[i]
	}

	out := make([]byte, len(src))
	i, j := 0, 0
	for n, b := range src {
		i = (i + 1) & 0xff
		j = (j + int(s[i])) & 0xff
		s[i], s[j] = s[j], s[i]
		out[n] = b ^ s[(int(s[i])+int(s[j]))&0xff]
	}
	return out
}

func (r *RC4) Name() string { return "rc4" }

// Close zeroes the key material.
func (r *RC4) Close() error {
	zero(r.key)
	return nil
}

package cipher

import (
	"crypto/rand"
	"encoding/binary"
	"math/bits"

	"github.com/pkg/errors"
)

// ChaCha20 sizes.
const (
	ChaChaKeySize   = 32
	ChaChaNonceSize = 12
	chachaBlockSize = 64
)

// chachaConst is the little-endian decoding of "expand 32-byte k".
var chachaConst = [4]uint32{0x61707865, 0x3320646e, 0x79622d32, 0x6b206574}

func quarterRound(a, b, c, d uint32) (uint32, uint32, uint32, uint32) {
	a += b
	d ^= a
	d = bits.RotateLeft32(d, 16)
	c += d
	b ^= c
	b = bits.RotateLeft32(b, 12)
	a += b
	d ^= a
	d = bits.RotateLeft32(d, 8)
	c += d
	b ^= c
	b = bits.RotateLeft32(b, 7)
	return a, b, c, d
}

// chachaBlock computes one 64-byte keystream block from the RFC 7539
// §2.3 state layout: 4 constant words, 8 key words, the block counter,
// and 3 nonce words, all little-endian.
func chachaBlock(key *[8]uint32, nonce *[3]uint32, counter uint32, out *[chachaBlockSize]byte) {
	var s [16]uint32
	s[0], s[1], s[2], s[3] = chachaConst[0], chachaConst[1], chachaConst[2], chachaConst[3]
	copy(s[4:12], key[:])
	s[12] = counter
	s[13], s[14], s[15] = nonce[0], nonce[1], nonce[2]

	x := s
	for i := 0; i < 10; i++ {
		// column rounds
		x[0], x[4], x[8], x[12] = quarterRound(x[0], x[4], x[8], x[12])
		x[1], x[5], x[9], x[13] = quarterRound(x[1], x[5], x[9], x[13])
		x[2], x[6], x[10], x[14] = quarterRound(x[2], x[6], x[10], x[14])
		x[3], x[7], x[11], x[15] = quarterRound(x[3], x[7], x[11], x[15])
		// diagonal rounds
		x[0], x[5], x[10], x[15] = quarterRound(x[0], x[5], x[10], x[15])
		x[1], x[6], x[11], x[12] = quarterRound(x[1], x[6], x[11], x[12])
		x[2], x[7], x[8], x[13] = quarterRound(x[2], x[7], x[8], x[13])
		x[3], x[4], x[9], x[14] = quarterRound(x[3], x[4], x[9], x[14])
	}
	for i := range x {
		binary.LittleEndian.PutUint32(out[i*4:], x[i]+s[i])
	}
}

// chachaXOR writes src XOR keystream(key, nonce, counter...) into dst.
// dst and src may overlap exactly. It fails if the 32-bit block counter
// would wrap before the input is consumed.
func chachaXOR(dst, src []byte, key *[8]uint32, nonce *[3]uint32, counter uint32) error {
	blocks := (uint64(len(src)) + chachaBlockSize - 1) / chachaBlockSize
	if blocks > (1<<32)-uint64(counter) {
		return errors.Wrapf(ErrCounterOverflow, "%d blocks from counter %d", blocks, counter)
	}

	var ks [chachaBlockSize]byte
	for len(src) >= chachaBlockSize {
		chachaBlock(key, nonce, counter, &ks)
		counter++
		for i := 0; i < chachaBlockSize; i++ {
			dst[i] = src[i] ^ ks[i]
		}
		dst = dst[chachaBlockSize:]
		src = src[chachaBlockSize:]
	}
	if len(src) > 0 {
		chachaBlock(key, nonce, counter, &ks)
		for i := range src {
			dst[i] = src[i] ^ ks[i]
		}
	}
	return nil
}

func parseChachaKey(key []byte) (*[8]uint32, error) {
	if len(key) != ChaChaKeySize {
		return nil, errors.Wrapf(ErrInvalidKey, "chacha20 key %d bytes", len(key))
	}
	var k [8]uint32
	for i := range k {
		k[i] = binary.LittleEndian.Uint32(key[i*4:])
	}
	return &k, nil
}

func parseChachaNonce(nonce []byte) (*[3]uint32, error) {
	if len(nonce) != ChaChaNonceSize {
		return nil, errors.Wrapf(ErrInvalidKey, "chacha20 nonce %d bytes", len(nonce))
	}
	var n [3]uint32
	for i := range n {
		n[i] = binary.LittleEndian.Uint32(nonce[i*4:])
	}
	return &n, nil
}

// ChaCha20 is the RFC 7539 stream cipher without authentication. In
// auto-nonce mode every Encrypt draws a fresh random nonce and prepends
// it to the output; in fixed-nonce mode the construction-time nonce is
// reused and the output carries ciphertext only.
//
// Without a MAC an attacker can flip plaintext bits undetected; prefer
// ChaCha20Poly1305 unless the peer dictates otherwise.
type ChaCha20 struct {
	key       [8]uint32
	nonce     [3]uint32
	autoNonce bool
}

// NewChaCha20 returns a ChaCha20 cipher in auto-nonce mode. The key
// must be 32 bytes.
func NewChaCha20(key []byte) (*ChaCha20, error) {
	k, err := parseChachaKey(key)
	if err != nil {
		return nil, err
	}
	return &ChaCha20{key: *k, autoNonce: true}, nil
}

// NewChaCha20WithNonce returns a ChaCha20 cipher that reuses the given
// 12-byte nonce for every message. The caller is responsible for never
// using the same (key, nonce) pair on two different plaintexts.
func NewChaCha20WithNonce(key, nonce []byte) (*ChaCha20, error) {
	k, err := parseChachaKey(key)
	if err != nil {
		return nil, err
	}
	n, err := parseChachaNonce(nonce)
	if err != nil {
		return nil, err
	}
	return &ChaCha20{key: *k, nonce: *n}, nil
}

func (c *ChaCha20) Encrypt(plaintext []byte) ([]byte, error) {
	if !c.autoNonce {
		out := make([]byte, len(plaintext))
		if err := chachaXOR(out, plaintext, &c.key, &c.nonce, 0); err != nil {
			return nil, err
		}
		return out, nil
	}

	out := make([]byte, ChaChaNonceSize+len(plaintext))
	if _, err := rand.Read(out[:ChaChaNonceSize]); err != nil {
		return nil, errors.Wrap(err, "generate nonce")
	}
	nonce, err := parseChachaNonce(out[:ChaChaNonceSize])
	if err != nil {
		return nil, err
	}
	if err := chachaXOR(out[ChaChaNonceSize:], plaintext, &c.key, nonce, 0); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ChaCha20) Decrypt(ciphertext []byte) ([]byte, error) {
	if !c.autoNonce {
		out := make([]byte, len(ciphertext))
		if err := chachaXOR(out, ciphertext, &c.key, &c.nonce, 0); err != nil {
			return nil, err
		}
		return out, nil
	}

	if len(ciphertext) < ChaChaNonceSize {
		return nil, errors.Wrapf(ErrCiphertextTooShort, "%d bytes", len(ciphertext))
	}
	nonce, err := parseChachaNonce(ciphertext[:ChaChaNonceSize])
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(ciphertext)-ChaChaNonceSize)
	if err := chachaXOR(out, ciphertext[ChaChaNonceSize:], &c.key, nonce, 0); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ChaCha20) Name() string { return "chacha20" }

// Close zeroes the key schedule.
func (c *ChaCha20) Close() error {
	for i := range c.key {
		c.key[i] = 0
	}
	return nil
}

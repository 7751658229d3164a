package cipher

import (
	"crypto/subtle"
	"encoding/binary"
)

// Poly1305 sizes.
const (
	Poly1305KeySize = 32
	Poly1305TagSize = 16
	polyBlockSize   = 16
)

// poly1305 accumulates the RFC 7539 §2.5 one-time MAC. The state keeps
// the clamped multiplier r in 4 32-bit words and the accumulator h in 5,
// with 64-bit intermediates and a mask-based final reduction, so the
// computation is branch-free on secret data.
type poly1305 struct {
	r [4]uint32
	s [4]uint32
	h [5]uint32
}

func newPoly1305(key *[Poly1305KeySize]byte) *poly1305 {
	p := &poly1305{}
	p.r[0] = binary.LittleEndian.Uint32(key[0:4]) & 0x0fffffff
	p.r[1] = binary.LittleEndian.Uint32(key[4:8]) & 0x0ffffffc
	p.r[2] = binary.LittleEndian.Uint32(key[8:12]) & 0x0ffffffc
	p.r[3] = binary.LittleEndian.Uint32(key[12:16]) & 0x0ffffffc
	p.s[0] = binary.LittleEndian.Uint32(key[16:20])
	p.s[1] = binary.LittleEndian.Uint32(key[20:24])
	p.s[2] = binary.LittleEndian.Uint32(key[24:28])
	p.s[3] = binary.LittleEndian.Uint32(key[28:32])
	return p
}

// carry32 returns 1 when sum overflowed while adding addend, computed
// without branching on the values.
func carry32(sum, addend uint32) uint32 {
	return (sum ^ ((sum ^ addend) | ((sum - addend) ^ addend))) >> 31
}

// block folds one 16-byte block into the accumulator. padbit is the
// conceptual 17th byte: 1 for full message blocks, 0 for the padded
// final block, which carries its own 0x01 marker.
func (p *poly1305) block(b []byte, padbit uint32) {
	h0, h1, h2, h3, h4 := p.h[0], p.h[1], p.h[2], p.h[3], p.h[4]
	r0, r1, r2, r3 := p.r[0], p.r[1], p.r[2], p.r[3]

	// r1..r3 have their low two bits clamped off, so r>>2 is exact and
	// s = r + r>>2 = 5r/4 folds the 2^130 wraparound into the products.
	s1 := r1 + (r1 >> 2)
	s2 := r2 + (r2 >> 2)
	s3 := r3 + (r3 >> 2)

	// h += block
	d0 := uint64(h0) + uint64(binary.LittleEndian.Uint32(b[0:4]))
	h0 = uint32(d0)
	d1 := uint64(h1) + (d0 >> 32) + uint64(binary.LittleEndian.Uint32(b[4:8]))
	h1 = uint32(d1)
	d2 := uint64(h2) + (d1 >> 32) + uint64(binary.LittleEndian.Uint32(b[8:12]))
	h2 = uint32(d2)
	d3 := uint64(h3) + (d2 >> 32) + uint64(binary.LittleEndian.Uint32(b[12:16]))
	h3 = uint32(d3)
	h4 += uint32(d3>>32) + padbit

	// h *= r, partially reduced mod 2^130 - 5
	d0 = uint64(h0)*uint64(r0) +
		uint64(h1)*uint64(s3) +
		uint64(h2)*uint64(s2) +
		uint64(h3)*uint64(s1)
	d1 = uint64(h0)*uint64(r1) +
		uint64(h1)*uint64(r0) +
		uint64(h2)*uint64(s3) +
		uint64(h3)*uint64(s2) +
		uint64(h4)*uint64(s1)
	d2 = uint64(h0)*uint64(r2) +
		uint64(h1)*uint64(r1) +
		uint64(h2)*uint64(r0) +
		uint64(h3)*uint64(s3) +
		uint64(h4)*uint64(s2)
	d3 = uint64(h0)*uint64(r3) +
		uint64(h1)*uint64(r2) +
		uint64(h2)*uint64(r1) +
		uint64(h3)*uint64(r0) +
		uint64(h4)*uint64(s3)
	h4 = h4 * r0

	h0 = uint32(d0)
	d1 += d0 >> 32
	h1 = uint32(d1)
	d2 += d1 >> 32
	h2 = uint32(d2)
	d3 += d2 >> 32
	h3 = uint32(d3)
	h4 += uint32(d3 >> 32)

	// fold bits at and above 2^130 back in: 2^130 = 5 (mod p)
	c := (h4 >> 2) + (h4 &^ 3)
	h4 &= 3
	h0 += c
	c = carry32(h0, c)
	h1 += c
	c = carry32(h1, c)
	h2 += c
	c = carry32(h2, c)
	h3 += c
	h4 += carry32(h3, c)

	p.h[0], p.h[1], p.h[2], p.h[3], p.h[4] = h0, h1, h2, h3, h4
}

func (p *poly1305) update(msg []byte) {
	for len(msg) >= polyBlockSize {
		p.block(msg[:polyBlockSize], 1)
		msg = msg[polyBlockSize:]
	}
	if len(msg) > 0 {
		var final [polyBlockSize]byte
		n := copy(final[:], msg)
		final[n] = 1
		p.block(final[:], 0)
	}
}

func (p *poly1305) finish(tag *[Poly1305TagSize]byte) {
	h0, h1, h2, h3, h4 := p.h[0], p.h[1], p.h[2], p.h[3], p.h[4]

	// compute h - p by adding 5 and watching for carry out of 2^130
	t := uint64(h0) + 5
	g0 := uint32(t)
	t = uint64(h1) + (t >> 32)
	g1 := uint32(t)
	t = uint64(h2) + (t >> 32)
	g2 := uint32(t)
	t = uint64(h3) + (t >> 32)
	g3 := uint32(t)
	g4 := h4 + uint32(t>>32)

	// select h if h < p, else h - p, without branching
	mask := uint32(0) - (g4 >> 2)
	g0 &= mask
	g1 &= mask
	g2 &= mask
	g3 &= mask
	mask = ^mask
	h0 = (h0 & mask) | g0
	h1 = (h1 & mask) | g1
	h2 = (h2 & mask) | g2
	h3 = (h3 & mask) | g3

	// tag = (h + s) mod 2^128
	t = uint64(h0) + uint64(p.s[0])
	h0 = uint32(t)
	t = uint64(h1) + (t >> 32) + uint64(p.s[1])
	h1 = uint32(t)
	t = uint64(h2) + (t >> 32) + uint64(p.s[2])
	h2 = uint32(t)
	t = uint64(h3) + (t >> 32) + uint64(p.s[3])
	h3 = uint32(t)

	binary.LittleEndian.PutUint32(tag[0:4], h0)
	binary.LittleEndian.PutUint32(tag[4:8], h1)
	binary.LittleEndian.PutUint32(tag[8:12], h2)
	binary.LittleEndian.PutUint32(tag[12:16], h3)
}

// Poly1305Sum writes the RFC 7539 one-time MAC of msg under key into
// tag. The key must only ever authenticate one message.
func Poly1305Sum(tag *[Poly1305TagSize]byte, msg []byte, key *[Poly1305KeySize]byte) {
	p := newPoly1305(key)
	p.update(msg)
	p.finish(tag)
}

// Poly1305Verify reports whether mac authenticates msg under key. The
// comparison runs in constant time.
func Poly1305Verify(mac *[Poly1305TagSize]byte, msg []byte, key *[Poly1305KeySize]byte) bool {
	var expected [Poly1305TagSize]byte
	Poly1305Sum(&expected, msg, key)
	return subtle.ConstantTimeCompare(expected[:], mac[:]) == 1
}

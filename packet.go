package nenet

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Packet is the application message layered on top of the framing
// protocol: a command id, a session token, and an opaque body.
//
// Wire layout, all integers big-endian:
//
//	offset  size  field
//	0       4     length of the remaining payload (12 + len(body))
//	4       4     command
//	8       8     token
//	16      n     body
//
// The leading length duplicates the frame length one layer down; it is
// produced for symmetry with existing servers, and decoders tolerate a
// mismatch.
type Packet struct {
	Command uint32
	Token   uint64
	Body    []byte
}

const packetHeaderLen = 16

// ErrPacketTooShort is returned when a decoded payload is shorter than
// the fixed packet header.
var ErrPacketTooShort = errors.New("packet shorter than header")

// PacketCodec encodes and decodes application packets.
type PacketCodec struct{}

// Encode serializes p into a fresh payload suitable for Client.Send.
func (PacketCodec) Encode(p Packet) []byte {
	return appendPacket(make([]byte, 0, packetHeaderLen+len(p.Body)), p)
}

// AppendEncode serializes p onto dst and returns the extended slice.
func (PacketCodec) AppendEncode(dst []byte, p Packet) []byte {
	return appendPacket(dst, p)
}

func appendPacket(dst []byte, p Packet) []byte {
	var hdr [packetHeaderLen]byte
	binary.BigEndian.PutUint32(hdr[0:4], uint32(12+len(p.Body)))
	binary.BigEndian.PutUint32(hdr[4:8], p.Command)
	binary.BigEndian.PutUint64(hdr[8:16], p.Token)
	dst = append(dst, hdr[:]...)
	return append(dst, p.Body...)
}

// Decode parses a received payload. The inner length field is not
// required to match the outer frame length; only the 16-byte minimum is
// enforced. The returned body aliases data.
func (PacketCodec) Decode(data []byte) (Packet, error) {
	if len(data) < packetHeaderLen {
		return Packet{}, errors.Wrapf(ErrPacketTooShort, "%d bytes", len(data))
	}
	return Packet{
		Command: binary.BigEndian.Uint32(data[4:8]),
		Token:   binary.BigEndian.Uint64(data[8:16]),
		Body:    data[16:],
	}, nil
}

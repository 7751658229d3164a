package nenet

import (
	"github.com/leonliu/NENet/cipher"
)

// SecureCodec layers a cipher over the application packet codec: encode
// output is the ciphertext of a serialized packet, decode first
// decrypts and then parses. With an AEAD cipher this gives per-message
// authenticated encryption over an otherwise plaintext frame stream.
type SecureCodec struct {
	codec  PacketCodec
	cipher cipher.Cipher
	logger Logger
}

// NewSecureCodec composes the packet codec with c. A nil logger falls
// back to the default.
func NewSecureCodec(c cipher.Cipher, logger Logger) *SecureCodec {
	if logger == nil {
		logger = defaultLogger()
	}
	return &SecureCodec{cipher: c, logger: logger}
}

// Encode serializes and encrypts p.
func (s *SecureCodec) Encode(p Packet) ([]byte, error) {
	return s.cipher.Encrypt(s.codec.Encode(p))
}

// Decode decrypts and parses a received payload. Authentication and
// decode failures do not propagate: the message is logged, dropped, and
// ok is false. A failed message never kills the connection.
func (s *SecureCodec) Decode(data []byte) (p Packet, ok bool) {
	plain, err := s.cipher.Decrypt(data)
	if err != nil {
		s.logger.Warn("message decrypt failed", "cipher", s.cipher.Name(), "error", err)
		return Packet{}, false
	}
	p, err = s.codec.Decode(plain)
	if err != nil {
		s.logger.Warn("message decode failed", "error", err)
		return Packet{}, false
	}
	return p, true
}

// Name identifies the composed cipher.
func (s *SecureCodec) Name() string {
	return s.cipher.Name()
}

package nenet

import (
	"encoding/binary"
	"io"
	"net"

	"github.com/pkg/errors"
)

// Wire framing: every message travels as a 4-byte big-endian length
// prefix followed by that many payload bytes. The prefix counts the
// payload only, never itself.
const (
	frameHeaderLen = 4

	// MaxMessageSize is the largest payload accepted in either direction.
	MaxMessageSize = 16 * 1024

	// MaxSendBuffer caps how many framed bytes are coalesced into a
	// single stream write.
	MaxSendBuffer = 64 * 1024
)

// readFrame reads one framed payload from r into a pooled buffer.
// A clean end of stream before the length prefix, or a local close
// during either read, maps to errClosed; anything else is a transport or
// protocol failure.
func readFrame(r io.Reader, pool *bufferPool) ([]byte, error) {
	var hdr [frameHeaderLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if isClosedRead(err, false) {
			return nil, errClosed
		}
		return nil, errors.Wrap(err, "read frame header")
	}

	length := binary.BigEndian.Uint32(hdr[:])
	if length == 0 || length > MaxMessageSize {
		return nil, errors.Wrapf(ErrFrameLength, "length %d", length)
	}

	buf := pool.get(int(length))
	if _, err := io.ReadFull(r, buf); err != nil {
		pool.put(buf)
		if isClosedRead(err, true) {
			return nil, errClosed
		}
		return nil, errors.Wrap(err, "read frame body")
	}
	return buf, nil
}

// isClosedRead reports whether err denotes a closed stream rather than
// an I/O failure. EOF mid-body is a truncated frame, not a clean close,
// but a local Close during either read still counts as clean.
func isClosedRead(err error, midFrame bool) bool {
	if errors.Is(err, net.ErrClosed) {
		return true
	}
	if midFrame {
		return false
	}
	return errors.Is(err, io.EOF)
}

// frameWriter coalesces framed messages into few stream writes. The
// scratch buffer is retained between batches up to MaxSendBuffer; larger
// batches use a transient allocation.
type frameWriter struct {
	scratch []byte
}

func newFrameWriter() *frameWriter {
	return &frameWriter{scratch: make([]byte, 0, MaxSendBuffer)}
}

// writeBatch frames msgs in order and writes them to w, greedily packing
// consecutive messages into batches of at most MaxSendBuffer bytes. A
// single message whose framed size exceeds the cap gets a batch of its
// own. Each batch is emitted in exactly one Write call.
func (fw *frameWriter) writeBatch(w io.Writer, msgs [][]byte) error {
	batch := fw.scratch[:0]
	for _, msg := range msgs {
		framed := frameHeaderLen + len(msg)
		if len(batch) > 0 && len(batch)+framed > MaxSendBuffer {
			if err := flush(w, batch); err != nil {
				return err
			}
			batch = batch[:0]
		}
		if framed > MaxSendBuffer && len(batch) == 0 {
			big := make([]byte, 0, framed)
			big = appendFrame(big, msg)
			if err := flush(w, big); err != nil {
				return err
			}
			continue
		}
		batch = appendFrame(batch, msg)
	}
	if len(batch) > 0 {
		if err := flush(w, batch); err != nil {
			return err
		}
	}
	if cap(batch) <= MaxSendBuffer {
		fw.scratch = batch[:0]
	}
	return nil
}

func appendFrame(dst, msg []byte) []byte {
	var hdr [frameHeaderLen]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(msg)))
	dst = append(dst, hdr[:]...)
	return append(dst, msg...)
}

func flush(w io.Writer, batch []byte) error {
	if _, err := w.Write(batch); err != nil {
		return errors.Wrap(err, "write batch")
	}
	return nil
}

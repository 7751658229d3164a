package nenet

import (
	"net"
	"sync/atomic"
	"time"
)

// stream gives the framing layer one surface over plain TCP and TLS
// connections: blocking reads, deadline-bounded writes, idempotent
// close. conn is the outermost connection (the TLS wrapper when TLS is
// configured), raw the TCP socket underneath it.
type stream struct {
	conn         net.Conn
	raw          net.Conn
	writeTimeout time.Duration
	closed       atomic.Bool
}

func newStream(conn, raw net.Conn, writeTimeout time.Duration) *stream {
	return &stream{conn: conn, raw: raw, writeTimeout: writeTimeout}
}

func (s *stream) Read(p []byte) (int, error) {
	return s.conn.Read(p)
}

// Write applies the configured send timeout to every write so a stalled
// peer cannot park the send worker forever.
func (s *stream) Write(p []byte) (int, error) {
	if s.writeTimeout > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	return s.conn.Write(p)
}

// Close closes the outer stream and the underlying socket. Safe to call
// from any goroutine, any number of times; a blocked Read or Write on
// another goroutine returns once the socket is closed.
func (s *stream) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	err := s.conn.Close()
	if s.raw != s.conn {
		_ = s.raw.Close()
	}
	return err
}

func (s *stream) isClosed() bool {
	return s.closed.Load()
}

package nenet

import "github.com/pkg/errors"

// Errors surfaced at the API boundary.
var (
	// ErrInvalidTag is returned when a client is created with an empty tag.
	ErrInvalidTag = errors.New("invalid client tag")
	// ErrInvalidHost is returned when Connect is called with an empty host.
	ErrInvalidHost = errors.New("invalid host")
	// ErrNoSuitableAddress is returned when DNS resolution yields no address
	// matching the configured address family.
	ErrNoSuitableAddress = errors.New("no suitable address")
)

// ErrFrameLength is returned when a received length prefix is zero or
// exceeds MaxMessageSize. It terminates the connection.
var ErrFrameLength = errors.New("frame length out of range")

// errClosed marks a clean end of stream: the peer closed between frames,
// or the local side closed the socket during a blocking read. It is not
// treated as a failure, only as the end of the connection.
var errClosed = errors.New("stream closed")

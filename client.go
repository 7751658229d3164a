// Package nenet is a client-side TCP networking library for interactive
// games and applications. It turns a blocking byte stream into a
// non-blocking, pollable event source: messages travel as 4-byte
// length-prefixed frames, sends are batched into few syscalls, and the
// host polls Connected, Data, and Disconnected events from its own
// loop. Transport-layer TLS and application-layer authenticated
// encryption (see the cipher subpackage) are optional layers on top.
package nenet

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Connection states.
const (
	stateIdle int32 = iota
	stateConnecting
	stateConnected
	stateClosing
)

func stateName(s int32) string {
	switch s {
	case stateIdle:
		return "idle"
	case stateConnecting:
		return "connecting"
	case stateConnected:
		return "connected"
	case stateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// Client is the public facade: connect, send, poll, disconnect. All
// methods are safe to call from any goroutine. A Client runs at most
// one connection attempt at a time; Connect while not idle is a
// logged no-op.
type Client struct {
	tag    string
	opts   options
	logger Logger

	state  atomic.Int32
	connID atomic.Uint64

	sendQ  *sendQueue
	events *eventQueue
	pool   *bufferPool

	mu     sync.Mutex
	tr     *transport
	cancel context.CancelFunc
	wake   chan struct{}
	done   chan struct{}
}

// NewClient creates a client identified by tag in logs and event tags.
// The tag must be non-empty.
func NewClient(tag string, opt ...Option) (*Client, error) {
	if tag == "" {
		return nil, ErrInvalidTag
	}
	opts := defaultOptions()
	for _, o := range opt {
		o(&opts)
	}
	if err := checkOptions(&opts); err != nil {
		return nil, err
	}
	c := &Client{
		tag:    tag,
		opts:   opts,
		logger: opts.logger,
		sendQ:  newSendQueue(),
		pool:   newBufferPool(opts.poolBuffers),
	}
	c.events = newEventQueue(opts.recvQueueWarn, opts.maxRecvQueue, opts.logger)
	return c, nil
}

// Tag returns the client-chosen tag.
func (c *Client) Tag() string {
	return c.tag
}

// ConnID returns the id of the latest connection attempt, zero before
// the first Connect.
func (c *Client) ConnID() uint64 {
	return c.connID.Load()
}

// CTag returns the connection tag of the latest attempt,
// "<tag>#<id>". Events carry the ctag of the attempt that produced
// them, so late events from a prior attempt are distinguishable.
func (c *Client) CTag() string {
	return fmt.Sprintf("%s#%d", c.tag, c.connID.Load())
}

// Connected reports whether the connection is established.
func (c *Client) Connected() bool {
	return c.state.Load() == stateConnected
}

// Connecting reports whether a connect attempt is in flight.
func (c *Client) Connecting() bool {
	return c.state.Load() == stateConnecting
}

// PendingSends returns the number of messages queued but not yet
// drained by the send worker.
func (c *Client) PendingSends() int {
	return c.sendQ.len()
}

// QueuedEvents returns the current event queue depth.
func (c *Client) QueuedEvents() int {
	return c.events.len()
}

// Connect starts a connection attempt to host:port. It validates the
// host, resets leftover session state, and returns immediately; the
// handshake runs on the connection workers and its outcome arrives as
// an EventConnected or EventDisconnected. A Connect while a session is
// already running does nothing.
func (c *Client) Connect(host string, port uint16) error {
	if host == "" {
		return errors.Wrap(ErrInvalidHost, "empty host")
	}
	if !c.state.CompareAndSwap(stateIdle, stateConnecting) {
		c.logger.Info("connect ignored", "ctag", c.CTag(), "state", stateName(c.state.Load()))
		return nil
	}

	if n := c.events.clear(); n > 0 {
		c.logger.Debug("dropped events from previous session", "ctag", c.CTag(), "count", n)
	}
	c.sendQ.clear()

	id := c.connID.Add(1)
	ctag := fmt.Sprintf("%s#%d", c.tag, id)

	ctx, cancel := context.WithCancel(context.Background())
	wake := make(chan struct{}, 1)
	done := make(chan struct{})
	c.mu.Lock()
	c.cancel, c.wake, c.done = cancel, wake, done
	c.mu.Unlock()

	c.logger.Info("connecting", "ctag", ctag, "host", host, "port", port)
	go c.runSession(ctx, host, port, ctag, wake, done)
	return nil
}

// Disconnect tears down the current session, if any: it cancels the
// workers, closes the socket, and waits for the workers to exit. The
// session's single EventDisconnected remains in the queue for the host
// to poll.
func (c *Client) Disconnect() {
	for {
		st := c.state.Load()
		if st == stateIdle {
			return
		}
		if st == stateClosing || c.state.CompareAndSwap(st, stateClosing) {
			break
		}
	}

	c.mu.Lock()
	cancel, tr, wake, done := c.cancel, c.tr, c.wake, c.done
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if wake != nil {
		select {
		case wake <- struct{}{}:
		default:
		}
	}
	if tr != nil {
		_ = tr.Close()
	}
	if done != nil {
		<-done
	}
	c.sendQ.clear()
}

// Send queues msg for transmission. It returns false for empty or
// oversize messages and when the client is not connected. Successful
// sends preserve FIFO order across goroutines. The slice is retained
// until the send worker drains it; the caller must not modify it in the
// meantime.
func (c *Client) Send(msg []byte) bool {
	if len(msg) == 0 || len(msg) > MaxMessageSize {
		return false
	}
	if c.state.Load() != stateConnected {
		return false
	}
	c.sendQ.push(msg)

	c.mu.Lock()
	wake := c.wake
	c.mu.Unlock()
	if wake != nil {
		select {
		case wake <- struct{}{}:
		default:
		}
	}
	return true
}

// TryNextEvent dequeues the next event without blocking. For
// EventData, the caller owns the payload and should call Release when
// done with it.
func (c *Client) TryNextEvent() (Event, bool) {
	return c.events.pop()
}

// runSession is the connection's receive worker: it dials, emits
// Connected, starts the send worker, and pumps received frames into
// the event queue. Its cleanup path owns the session's single
// Disconnected event.
func (c *Client) runSession(ctx context.Context, host string, port uint16, ctag string, wake chan struct{}, done chan struct{}) {
	defer close(done)

	tr, err := dialTransport(ctx, host, port, c.opts)
	if err != nil {
		c.logger.Error("connect failed", "ctag", ctag, "error", err)
		c.finish(ctag)
		return
	}

	c.mu.Lock()
	c.tr = tr
	c.mu.Unlock()

	if !c.state.CompareAndSwap(stateConnecting, stateConnected) {
		// Disconnect raced the dial.
		_ = tr.Close()
		c.finish(ctag)
		return
	}

	c.logger.Info("connected", "ctag", ctag, "addr", tr.remoteAddr())
	c.events.forcePush(Event{Kind: EventConnected, Tag: ctag})

	group, child := errgroup.WithContext(ctx)
	// The receive loop blocks in a read that only a socket close can
	// interrupt; close the stream as soon as the session is cancelled.
	stop := context.AfterFunc(child, func() { _ = tr.Close() })
	group.Go(func() error { return c.sendLoop(child, tr, wake) })
	group.Go(func() error { return c.recvLoop(tr, ctag) })
	err = group.Wait()
	stop()

	if err != nil && !errors.Is(err, errClosed) && !errors.Is(err, context.Canceled) && !errors.Is(err, net.ErrClosed) {
		c.logger.Info("session ended with error", "ctag", ctag, "error", err)
	} else {
		c.logger.Info("session ended", "ctag", ctag)
	}

	_ = tr.Close()
	c.mu.Lock()
	c.tr = nil
	c.mu.Unlock()
	c.finish(ctag)
}

// finish emits the attempt's single Disconnected event and returns the
// client to idle.
func (c *Client) finish(ctag string) {
	c.events.forcePush(Event{Kind: EventDisconnected, Tag: ctag})
	c.state.Store(stateIdle)
}

// recvLoop reads framed messages and enqueues Data events until the
// stream ends. Messages arriving while the event queue is at its hard
// cap are dropped, not buffered; the connection stays up.
func (c *Client) recvLoop(tr *transport, ctag string) error {
	for {
		payload, err := readFrame(tr.stream, c.pool)
		if err != nil {
			if errors.Is(err, errClosed) {
				c.logger.Debug("stream closed", "ctag", ctag)
			} else {
				c.logger.Error("receive failed", "ctag", ctag, "error", err)
			}
			return err
		}
		if !c.events.push(Event{Kind: EventData, Tag: ctag, Data: payload, pool: c.pool}) {
			c.pool.put(payload)
			c.logger.Warn("event queue full, message dropped", "ctag", ctag, "bytes", len(payload))
		}
	}
}

// sendLoop is the send worker: it drains every queued message in one
// move, writes them as coalesced batches, and sleeps on the wake signal
// when the queue is empty. It exits on write failure or cancellation;
// its cleanup closes the stream but the Disconnected event belongs to
// the receive side.
func (c *Client) sendLoop(ctx context.Context, tr *transport, wake chan struct{}) error {
	defer func() { _ = tr.Close() }()

	fw := newFrameWriter()
	var pending [][]byte
	for {
		pending = c.sendQ.drain(pending[:0])
		if len(pending) > 0 {
			if err := fw.writeBatch(tr.stream, pending); err != nil {
				if !tr.stream.isClosed() {
					c.logger.Error("send failed", "error", err)
				}
				return err
			}
			continue
		}
		select {
		case <-wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

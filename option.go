package nenet

import (
	"time"
)

// AddressFamily selects which resolved addresses a connect attempt may
// use when the host is a DNS name.
type AddressFamily int

const (
	// Unspecified prefers an AAAA record when one exists, falling back
	// to A records otherwise.
	Unspecified AddressFamily = iota
	// V4Only restricts connects to A records.
	V4Only
	// V6Only restricts connects to AAAA records.
	V6Only
)

func (f AddressFamily) String() string {
	switch f {
	case V4Only:
		return "v4-only"
	case V6Only:
		return "v6-only"
	default:
		return "unspecified"
	}
}

// Default configuration values.
const (
	// defaultSendTimeout bounds each stream write.
	defaultSendTimeout = 5 * time.Second
	// defaultRecvQueueWarn is the event-queue depth that triggers a
	// rate-limited warning log.
	defaultRecvQueueWarn = 1000
	// defaultMaxRecvQueue is the hard event-queue cap; received
	// messages are dropped once it is reached.
	defaultMaxRecvQueue = 10000
	// defaultPoolBuffers is how many receive buffers the payload pool
	// retains.
	defaultPoolBuffers = 64
)

// options holds the configuration for a client.
type options struct {
	logger Logger

	noDelay       bool
	sendTimeout   time.Duration
	addressFamily AddressFamily
	recvQueueWarn int
	maxRecvQueue  int
	poolBuffers   int
	tls           *TLSOptions
}

// Option is a function that configures client options.
type Option func(*options)

// checkOptions validates and sets default values for client options.
func checkOptions(opts *options) error {
	if opts.logger == nil {
		opts.logger = defaultLogger()
	}
	if opts.sendTimeout <= 0 {
		opts.sendTimeout = defaultSendTimeout
	}
	if opts.recvQueueWarn <= 0 {
		opts.recvQueueWarn = defaultRecvQueueWarn
	}
	if opts.maxRecvQueue <= 0 {
		opts.maxRecvQueue = defaultMaxRecvQueue
	}
	if opts.poolBuffers <= 0 {
		opts.poolBuffers = defaultPoolBuffers
	}
	if opts.tls != nil {
		if err := opts.tls.validate(); err != nil {
			return err
		}
	}
	return nil
}

func defaultOptions() options {
	return options{noDelay: true}
}

// WithLogger returns an Option that sets the logger.
// If not set, the default slog logger will be used.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithNoDelay returns an Option that controls TCP_NODELAY on the
// connected socket. It defaults to true: the library already batches
// writes, so Nagle coalescing only adds latency.
func WithNoDelay(noDelay bool) Option {
	return func(o *options) {
		o.noDelay = noDelay
	}
}

// WithSendTimeout returns an Option that bounds each stream write.
func WithSendTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.sendTimeout = timeout
	}
}

// WithAddressFamily returns an Option that restricts address selection
// for DNS names.
func WithAddressFamily(family AddressFamily) Option {
	return func(o *options) {
		o.addressFamily = family
	}
}

// WithRecvQueueWarn returns an Option that sets the event-queue depth
// at which a warning is logged.
func WithRecvQueueWarn(depth int) Option {
	return func(o *options) {
		o.recvQueueWarn = depth
	}
}

// WithMaxRecvQueue returns an Option that sets the hard event-queue
// cap. Received messages are dropped, not buffered, beyond it.
func WithMaxRecvQueue(depth int) Option {
	return func(o *options) {
		o.maxRecvQueue = depth
	}
}

// WithTLS returns an Option that enables transport-layer TLS with the
// given settings. The options are validated when the client is created.
func WithTLS(tlsOpts *TLSOptions) Option {
	return func(o *options) {
		o.tls = tlsOpts
	}
}

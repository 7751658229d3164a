package nenet

import (
	"context"
	"crypto/tls"
	"net"
	"strconv"

	"github.com/pkg/errors"
)

// transport owns one connection attempt's socket and its optional TLS
// wrapper, exposed to the framing layer as a single stream.
type transport struct {
	stream *stream
}

func (t *transport) Close() error {
	return t.stream.Close()
}

func (t *transport) remoteAddr() net.Addr {
	return t.stream.raw.RemoteAddr()
}

// resolveHost turns host into one IP address. Numeric hosts connect
// directly; DNS names are resolved and filtered by the configured
// address family, preferring AAAA records when the family is
// Unspecified.
func resolveHost(ctx context.Context, host string, family AddressFamily) (net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		return ip, nil
	}
	ips, err := net.DefaultResolver.LookupIP(ctx, "ip", host)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %q", host)
	}
	ip, err := selectAddress(ips, family)
	if err != nil {
		return nil, errors.Wrapf(err, "host %q family %s", host, family)
	}
	return ip, nil
}

// selectAddress picks the first address matching family, in resolver
// order. For Unspecified the first AAAA record wins over any A record,
// even one listed earlier.
func selectAddress(ips []net.IP, family AddressFamily) (net.IP, error) {
	var firstV4, firstV6 net.IP
	for _, ip := range ips {
		if ip.To4() != nil {
			if firstV4 == nil {
				firstV4 = ip
			}
		} else if firstV6 == nil {
			firstV6 = ip
		}
	}
	switch family {
	case V4Only:
		if firstV4 != nil {
			return firstV4, nil
		}
	case V6Only:
		if firstV6 != nil {
			return firstV6, nil
		}
	default:
		if firstV6 != nil {
			return firstV6, nil
		}
		if firstV4 != nil {
			return firstV4, nil
		}
	}
	return nil, ErrNoSuitableAddress
}

// dialTransport connects, applies socket options, and performs the TLS
// handshake when configured. ctx aborts the dial and handshake; there
// is no connect timeout beyond what the OS and ctx provide.
func dialTransport(ctx context.Context, host string, port uint16, opts options) (*transport, error) {
	ip, err := resolveHost(ctx, host, opts.addressFamily)
	if err != nil {
		return nil, err
	}
	addr := net.JoinHostPort(ip.String(), strconv.Itoa(int(port)))

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", addr)
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(opts.noDelay)
	}

	raw := conn
	if opts.tls != nil {
		tlsConn := tls.Client(conn, opts.tls.clientConfig(host))
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			_ = raw.Close()
			return nil, errors.Wrap(err, "tls handshake")
		}
		if err := opts.tls.checkRevocation(tlsConn.ConnectionState()); err != nil {
			_ = tlsConn.Close()
			_ = raw.Close()
			return nil, err
		}
		conn = tlsConn
	}

	return &transport{stream: newStream(conn, raw, opts.sendTimeout)}, nil
}

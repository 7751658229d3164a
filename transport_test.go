package nenet

import (
	"context"
	"net"
	"testing"

	"github.com/pkg/errors"
)

func TestSelectAddress(t *testing.T) {
	v4a := net.ParseIP("192.0.2.1")
	v4b := net.ParseIP("192.0.2.2")
	v6a := net.ParseIP("2001:db8::1")
	v6b := net.ParseIP("2001:db8::2")

	cases := []struct {
		name   string
		ips    []net.IP
		family AddressFamily
		want   net.IP
		fail   bool
	}{
		{"prefers v6 when unspecified", []net.IP{v4a, v6a, v6b}, Unspecified, v6a, false},
		{"falls back to v4", []net.IP{v4a, v4b}, Unspecified, v4a, false},
		{"v4 only picks first a record", []net.IP{v6a, v4a, v4b}, V4Only, v4a, false},
		{"v6 only picks first aaaa record", []net.IP{v4a, v6a, v6b}, V6Only, v6a, false},
		{"v4 only with no a records", []net.IP{v6a}, V4Only, nil, true},
		{"v6 only with no aaaa records", []net.IP{v4a}, V6Only, nil, true},
		{"empty resolution", nil, Unspecified, nil, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := selectAddress(tc.ips, tc.family)
			if tc.fail {
				if !errors.Is(err, ErrNoSuitableAddress) {
					t.Errorf("expected ErrNoSuitableAddress, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("selectAddress failed: %v", err)
			}
			if !got.Equal(tc.want) {
				t.Errorf("selected %s, want %s", got, tc.want)
			}
		})
	}
}

func TestResolveHost_NumericBypassesDNS(t *testing.T) {
	ip, err := resolveHost(context.Background(), "127.0.0.1", Unspecified)
	if err != nil {
		t.Fatalf("resolveHost failed: %v", err)
	}
	if !ip.Equal(net.ParseIP("127.0.0.1")) {
		t.Errorf("resolved %s", ip)
	}

	ip, err = resolveHost(context.Background(), "::1", V6Only)
	if err != nil {
		t.Fatalf("resolveHost failed: %v", err)
	}
	if !ip.Equal(net.ParseIP("::1")) {
		t.Errorf("resolved %s", ip)
	}
}

func TestAddressFamily_String(t *testing.T) {
	cases := map[AddressFamily]string{
		Unspecified: "unspecified",
		V4Only:      "v4-only",
		V6Only:      "v6-only",
	}
	for f, want := range cases {
		if f.String() != want {
			t.Errorf("%d.String() = %q, want %q", f, f.String(), want)
		}
	}
}

func TestDialTransport_SetsUpStream(t *testing.T) {
	server := startEchoServer(t)
	host, port := server.hostPort(t)

	opts := defaultOptions()
	if err := checkOptions(&opts); err != nil {
		t.Fatalf("checkOptions failed: %v", err)
	}

	tr, err := dialTransport(context.Background(), host, port, opts)
	if err != nil {
		t.Fatalf("dialTransport failed: %v", err)
	}
	defer tr.Close()

	if tr.remoteAddr() == nil {
		t.Error("remoteAddr is nil")
	}

	// round trip a frame through the stream to prove read/write work
	fw := newFrameWriter()
	if err := fw.writeBatch(tr.stream, [][]byte{[]byte("ping")}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	pool := newBufferPool(2)
	payload, err := readFrame(tr.stream, pool)
	if err != nil {
		t.Fatalf("readFrame failed: %v", err)
	}
	if string(payload) != "ping" {
		t.Errorf("payload = %q", payload)
	}
	pool.put(payload)

	if err := tr.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := tr.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestDialTransport_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := defaultOptions()
	if err := checkOptions(&opts); err != nil {
		t.Fatalf("checkOptions failed: %v", err)
	}
	if _, err := dialTransport(ctx, "127.0.0.1", 9, opts); err == nil {
		t.Error("dial with cancelled context succeeded")
	}
}

// nenet-echo is a small interactive client for exercising a framed
// echo server: it connects, sends each stdin line as one message, and
// prints every event it polls. Messages can optionally be sealed with
// ChaCha20-Poly1305 using a hex key shared with the server.
package main

import (
	"bufio"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	nenet "github.com/leonliu/NENet"
	"github.com/leonliu/NENet/cipher"
)

var (
	flagPort    uint16
	flagTLS     bool
	flagCA      string
	flagKeyHex  string
	flagFamily  string
	flagTimeout time.Duration
)

func main() {
	cmd := &cobra.Command{
		Use:   "nenet-echo <host>",
		Short: "interactive framed echo client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0])
		},
		SilenceUsage: true,
	}
	cmd.Flags().Uint16Var(&flagPort, "port", 4000, "server port")
	cmd.Flags().BoolVar(&flagTLS, "tls", false, "wrap the connection in TLS")
	cmd.Flags().StringVar(&flagCA, "ca", "", "PEM file with additional root CAs")
	cmd.Flags().StringVar(&flagKeyHex, "key", "", "hex-encoded 32-byte key enabling chacha20-poly1305 messages")
	cmd.Flags().StringVar(&flagFamily, "family", "any", "address family: any, v4, v6")
	cmd.Flags().DurationVar(&flagTimeout, "send-timeout", 5*time.Second, "socket send timeout")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(host string) error {
	opts := []nenet.Option{
		nenet.WithSendTimeout(flagTimeout),
	}
	switch flagFamily {
	case "v4":
		opts = append(opts, nenet.WithAddressFamily(nenet.V4Only))
	case "v6":
		opts = append(opts, nenet.WithAddressFamily(nenet.V6Only))
	case "any":
	default:
		return fmt.Errorf("unknown address family %q", flagFamily)
	}
	if flagTLS {
		tlsOpts := &nenet.TLSOptions{MinVersion: tls.VersionTLS12}
		if flagCA != "" {
			pem, err := os.ReadFile(flagCA)
			if err != nil {
				return err
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(pem) {
				return fmt.Errorf("no certificates in %s", flagCA)
			}
			tlsOpts.RootCAs = pool
		}
		opts = append(opts, nenet.WithTLS(tlsOpts))
	}

	var codec *nenet.SecureCodec
	if flagKeyHex != "" {
		key, err := hex.DecodeString(flagKeyHex)
		if err != nil {
			return fmt.Errorf("decode key: %w", err)
		}
		aead, err := cipher.NewChaCha20Poly1305(key)
		if err != nil {
			return err
		}
		defer aead.Close()
		codec = nenet.NewSecureCodec(aead, slog.Default())
	}

	client, err := nenet.NewClient("nenet-echo", opts...)
	if err != nil {
		return err
	}
	if err := client.Connect(host, flagPort); err != nil {
		return err
	}
	defer client.Disconnect()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	var token uint64
	for {
		for {
			ev, ok := client.TryNextEvent()
			if !ok {
				break
			}
			switch ev.Kind {
			case nenet.EventConnected:
				fmt.Printf("[%s] connected\n", ev.Tag)
			case nenet.EventData:
				printData(codec, ev)
				ev.Release()
			case nenet.EventDisconnected:
				fmt.Printf("[%s] disconnected\n", ev.Tag)
				return nil
			}
		}

		select {
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			token++
			msg := []byte(line)
			if codec != nil {
				sealed, err := codec.Encode(nenet.Packet{Command: 1, Token: token, Body: msg})
				if err != nil {
					return err
				}
				msg = sealed
			}
			if !client.Send(msg) {
				fmt.Fprintln(os.Stderr, "send rejected")
			}
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func printData(codec *nenet.SecureCodec, ev nenet.Event) {
	if codec == nil {
		fmt.Printf("[%s] data: %q\n", ev.Tag, ev.Data)
		return
	}
	pkt, ok := codec.Decode(ev.Data)
	if !ok {
		fmt.Printf("[%s] dropped undecodable message\n", ev.Tag)
		return
	}
	fmt.Printf("[%s] cmd=%d token=%d body=%q\n", ev.Tag, pkt.Command, pkt.Token, pkt.Body)
}

package nenet

import (
	"crypto/tls"
	"crypto/x509"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/crypto/ocsp"
)

// TLS configuration errors, surfaced synchronously when the client is
// created.
var (
	// ErrClientCertNoKey is returned when a client certificate carries
	// no private key.
	ErrClientCertNoKey = errors.New("client certificate has no private key")
	// ErrClientCertNotValid is returned when a client certificate is
	// expired or not yet valid.
	ErrClientCertNotValid = errors.New("client certificate outside validity period")
	// ErrCertificateRevoked is returned when the server staples an OCSP
	// response that marks its certificate revoked.
	ErrCertificateRevoked = errors.New("server certificate revoked")
)

// TLSOptions configures the optional transport-layer TLS wrapper. The
// zero value requests TLS 1.2 or later, the host trust store, and
// verification of stapled OCSP responses.
type TLSOptions struct {
	// MinVersion is the minimum accepted protocol version. Zero means
	// TLS 1.2.
	MinVersion uint16

	// DisableRevocationCheck turns off verification of stapled OCSP
	// responses. Go's TLS stack performs no OCSP or CRL fetching of its
	// own, so with no staple present revocation falls to
	// CertificateValidator.
	DisableRevocationCheck bool

	// ClientCertificate, when set, is presented during the handshake.
	// It must carry a private key and be within its validity period.
	ClientCertificate *tls.Certificate

	// RootCAs overrides the host trust store for chain verification.
	RootCAs *x509.CertPool

	// CertificateValidator, when set, runs after standard chain
	// verification and may reject the connection with a custom policy.
	CertificateValidator func(verifiedChains [][]*x509.Certificate) error
}

// validate checks the settable pieces of the configuration. It runs
// when the client is created so misconfiguration fails before the first
// connect.
func (o *TLSOptions) validate() error {
	cert := o.ClientCertificate
	if cert == nil {
		return nil
	}
	if cert.PrivateKey == nil {
		return ErrClientCertNoKey
	}
	leaf := cert.Leaf
	if leaf == nil {
		if len(cert.Certificate) == 0 {
			return ErrClientCertNoKey
		}
		parsed, err := x509.ParseCertificate(cert.Certificate[0])
		if err != nil {
			return errors.Wrap(err, "parse client certificate")
		}
		leaf = parsed
	}
	now := time.Now()
	if now.Before(leaf.NotBefore) || now.After(leaf.NotAfter) {
		return errors.Wrapf(ErrClientCertNotValid, "valid %s to %s",
			leaf.NotBefore.Format(time.RFC3339), leaf.NotAfter.Format(time.RFC3339))
	}
	return nil
}

// clientConfig builds the tls.Config for one connect attempt. SNI is
// the host the caller dialed.
func (o *TLSOptions) clientConfig(serverName string) *tls.Config {
	minVersion := o.MinVersion
	if minVersion == 0 {
		minVersion = tls.VersionTLS12
	}
	cfg := &tls.Config{
		ServerName: serverName,
		MinVersion: minVersion,
		RootCAs:    o.RootCAs,
	}
	if o.ClientCertificate != nil {
		cfg.Certificates = []tls.Certificate{*o.ClientCertificate}
	}
	if o.CertificateValidator != nil {
		validator := o.CertificateValidator
		cfg.VerifyPeerCertificate = func(_ [][]byte, verifiedChains [][]*x509.Certificate) error {
			return validator(verifiedChains)
		}
	}
	return cfg
}

// checkRevocation verifies a stapled OCSP response against the served
// certificate. A handshake without a staple passes; a staple that fails
// to parse, or that marks the certificate revoked, fails the connect.
func (o *TLSOptions) checkRevocation(state tls.ConnectionState) error {
	if o.DisableRevocationCheck || len(state.OCSPResponse) == 0 {
		return nil
	}
	if len(state.PeerCertificates) == 0 {
		return nil
	}
	leaf := state.PeerCertificates[0]
	var issuer *x509.Certificate
	if len(state.PeerCertificates) > 1 {
		issuer = state.PeerCertificates[1]
	}
	resp, err := ocsp.ParseResponseForCert(state.OCSPResponse, leaf, issuer)
	if err != nil {
		return errors.Wrap(err, "parse stapled ocsp response")
	}
	if resp.Status == ocsp.Revoked {
		return errors.Wrapf(ErrCertificateRevoked, "revoked at %s", resp.RevokedAt.Format(time.RFC3339))
	}
	return nil
}

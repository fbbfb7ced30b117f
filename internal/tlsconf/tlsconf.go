// Package tlsconf builds the *tls.Config used for both the control channel and
// data connections, wrapping the vendored certificates.TLSConfig builder
// (spec.md §6: one X.509 chain PEM plus one PKCS#8 key PEM, fixed SNI
// "breaknet", no client auth).
package tlsconf

import (
	"crypto/tls"

	"github/sabouaram/breaknet/certificates"
	"github/sabouaram/breaknet/internal/errs"
)

// ServerName is the fixed SNI/certificate name used by both peers (spec.md §4.3/§6).
const ServerName = "breaknet"

// Server builds the listener-side *tls.Config from a certificate+key pair PEM file.
func Server(certFile, keyFile string) (*tls.Config, error) {
	cfg := certificates.New()

	if err := cfg.AddCertificatePairFile(keyFile, certFile); err != nil {
		return nil, errs.ErrTLSLoadMaterial.Error(err)
	}

	return cfg.TLS(ServerName), nil
}

// Client builds the dialer-side *tls.Config trusting the given root CA PEM file.
func Client(rootCAFile string) (*tls.Config, error) {
	cfg := certificates.New()

	if err := cfg.AddRootCAFile(rootCAFile); err != nil {
		return nil, errs.ErrTLSLoadMaterial.Error(err)
	}

	return cfg.TLS(ServerName), nil
}

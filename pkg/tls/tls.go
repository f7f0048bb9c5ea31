// Package tls builds TLS configurations for the forecaster HTTP service and
// its clients.
//
// Server side, a CA file switches on mutual TLS: clients must present a
// certificate signed by that CA. Client side, the CA file replaces the system
// roots and a certificate/key pair is presented when given. TLS 1.3 is the
// minimum in both directions.
package tls

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
)

// Config holds TLS certificate file paths for client or server configuration.
type Config struct {
	Enabled  bool
	CertFile string
	KeyFile  string
	// CAFile is optional. Servers use it to verify client certificates,
	// clients to verify the server.
	CAFile string
}

// Validate checks that the configured files exist. A server needs both
// CertFile and KeyFile; a client needs neither or both.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if (c.CertFile == "") != (c.KeyFile == "") {
		return errors.New("tls cert and key files must be set together")
	}
	return statFiles(c.CertFile, c.KeyFile, c.CAFile)
}

// NewServerTLSConfig returns the server configuration for c. The server
// certificate is loaded into the config, so the server can be started with
// empty file arguments.
func NewServerTLSConfig(c Config) (*tls.Config, error) {
	if c.CertFile == "" || c.KeyFile == "" {
		return nil, errors.New("server tls requires cert and key files")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("load server certificate: %w", err)
	}

	cfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS13,
	}

	if c.CAFile != "" {
		pool, err := loadCAPool(c.CAFile)
		if err != nil {
			return nil, err
		}
		cfg.ClientCAs = pool
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
	}

	return cfg, nil
}

// NewClientTLSConfig returns the client configuration for c.
func NewClientTLSConfig(c Config) (*tls.Config, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	cfg := &tls.Config{MinVersion: tls.VersionTLS13}

	if c.CertFile != "" {
		cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	if c.CAFile != "" {
		pool, err := loadCAPool(c.CAFile)
		if err != nil {
			return nil, err
		}
		cfg.RootCAs = pool
	}

	return cfg, nil
}

func loadCAPool(caFile string) (*x509.CertPool, error) {
	caCert, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("read CA certificate: %w", err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caCert) {
		return nil, errors.New("failed to parse CA certificate")
	}
	return pool, nil
}

func statFiles(paths ...string) error {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("tls file %q: %w", path, err)
		}
	}
	return nil
}

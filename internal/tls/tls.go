// Package tls builds crypto/tls and gRPC transport credentials from file
// based configuration.
package tls

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

// ServerConfig holds TLS configuration for the sink's listeners.
type ServerConfig struct {
	// Enabled enables TLS for the server.
	Enabled bool
	// CertFile is the path to the server certificate file.
	CertFile string
	// KeyFile is the path to the server private key file.
	KeyFile string
	// CAFile is the path to the CA used to verify client certificates.
	CAFile string
	// ClientAuth requires and verifies client certificates.
	ClientAuth bool
}

// ClientConfig holds TLS configuration for exporters.
type ClientConfig struct {
	// Enabled loads the files below; otherwise the system roots are used.
	Enabled bool
	// CertFile is the path to the client certificate file (mTLS).
	CertFile string
	// KeyFile is the path to the client private key file (mTLS).
	KeyFile string
	// CAFile is the path to the CA used to verify the collector.
	CAFile string
	// InsecureSkipVerify skips server certificate verification.
	InsecureSkipVerify bool
	// ServerName overrides the name used for verification.
	ServerName string
}

// NewServerTLSConfig returns nil when TLS is disabled.
func NewServerTLSConfig(cfg ServerConfig) (*tls.Config, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load server certificate: %w", err)
	}
	out := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
	if cfg.ClientAuth {
		pool, err := loadPool(cfg.CAFile)
		if err != nil {
			return nil, err
		}
		out.ClientCAs = pool
		out.ClientAuth = tls.RequireAndVerifyClientCert
	}
	return out, nil
}

// NewClientTLSConfig returns a TLS 1.2+ configuration. Without Enabled it
// verifies against the system roots.
func NewClientTLSConfig(cfg ClientConfig) (*tls.Config, error) {
	out := &tls.Config{MinVersion: tls.VersionTLS12}
	if !cfg.Enabled {
		return out, nil
	}
	out.InsecureSkipVerify = cfg.InsecureSkipVerify
	out.ServerName = cfg.ServerName

	if cfg.CertFile != "" || cfg.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		out.Certificates = []tls.Certificate{cert}
	}
	if cfg.CAFile != "" {
		pool, err := loadPool(cfg.CAFile)
		if err != nil {
			return nil, err
		}
		out.RootCAs = pool
	}
	return out, nil
}

// ClientCredentials returns gRPC transport credentials for an exporter.
// Plaintext is used when plaintext is true.
func ClientCredentials(cfg ClientConfig, plaintext bool) (credentials.TransportCredentials, error) {
	if plaintext {
		return insecure.NewCredentials(), nil
	}
	tc, err := NewClientTLSConfig(cfg)
	if err != nil {
		return nil, err
	}
	return credentials.NewTLS(tc), nil
}

// ServerCredentials returns gRPC transport credentials for the sink, or
// nil when TLS is disabled.
func ServerCredentials(cfg ServerConfig) (credentials.TransportCredentials, error) {
	tc, err := NewServerTLSConfig(cfg)
	if err != nil || tc == nil {
		return nil, err
	}
	return credentials.NewTLS(tc), nil
}

func loadPool(caFile string) (*x509.CertPool, error) {
	if caFile == "" {
		return nil, fmt.Errorf("CA file required")
	}
	pem, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("failed to parse CA certificate %s", caFile)
	}
	return pool, nil
}

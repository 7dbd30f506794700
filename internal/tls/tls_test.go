package tls

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writePair(t *testing.T) (certFile, keyFile string) {
	t.Helper()
	dir := t.TempDir()
	certFile = filepath.Join(dir, "cert.pem")
	keyFile = filepath.Join(dir, "key.pem")
	if err := generateSelfSignedCert(certFile, keyFile); err != nil {
		t.Fatalf("generate cert: %v", err)
	}
	return certFile, keyFile
}

func TestServerConfigDisabled(t *testing.T) {
	tc, err := NewServerTLSConfig(ServerConfig{})
	if err != nil || tc != nil {
		t.Fatalf("got %v, %v; want nil, nil", tc, err)
	}
	creds, err := ServerCredentials(ServerConfig{})
	if err != nil || creds != nil {
		t.Fatalf("got %v, %v; want nil, nil", creds, err)
	}
}

func TestClientConfigDefaultsToSystemRoots(t *testing.T) {
	tc, err := NewClientTLSConfig(ClientConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if tc.MinVersion != tls.VersionTLS12 || tc.RootCAs != nil || tc.InsecureSkipVerify {
		t.Errorf("unexpected default config: %+v", tc)
	}
}

func TestServerConfigValid(t *testing.T) {
	certFile, keyFile := writePair(t)
	tc, err := NewServerTLSConfig(ServerConfig{Enabled: true, CertFile: certFile, KeyFile: keyFile, CAFile: certFile, ClientAuth: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(tc.Certificates) != 1 || tc.ClientAuth != tls.RequireAndVerifyClientCert || tc.ClientCAs == nil {
		t.Errorf("unexpected server config: %+v", tc)
	}
	creds, err := ServerCredentials(ServerConfig{Enabled: true, CertFile: certFile, KeyFile: keyFile})
	if err != nil || creds == nil {
		t.Fatalf("ServerCredentials: %v, %v", creds, err)
	}
}

func TestServerConfigClientAuthNeedsCA(t *testing.T) {
	certFile, keyFile := writePair(t)
	if _, err := NewServerTLSConfig(ServerConfig{Enabled: true, CertFile: certFile, KeyFile: keyFile, ClientAuth: true}); err == nil {
		t.Error("expected error without CA file")
	}
}

func TestClientConfigValid(t *testing.T) {
	certFile, keyFile := writePair(t)
	tc, err := NewClientTLSConfig(ClientConfig{
		Enabled:    true,
		CertFile:   certFile,
		KeyFile:    keyFile,
		CAFile:     certFile,
		ServerName: "collector.local",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(tc.Certificates) != 1 || tc.RootCAs == nil || tc.ServerName != "collector.local" {
		t.Errorf("unexpected client config: %+v", tc)
	}
}

func TestClientConfigErrors(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.pem")
	if err := os.WriteFile(garbage, []byte("not a cert"), 0o600); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		cfg  ClientConfig
	}{
		{"missing cert", ClientConfig{Enabled: true, CertFile: filepath.Join(dir, "nope.pem"), KeyFile: filepath.Join(dir, "nope.key")}},
		{"missing CA", ClientConfig{Enabled: true, CAFile: filepath.Join(dir, "nope.pem")}},
		{"unparsable CA", ClientConfig{Enabled: true, CAFile: garbage}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewClientTLSConfig(tt.cfg); err == nil {
				t.Error("expected error")
			}
			if _, err := ClientCredentials(tt.cfg, false); err == nil {
				t.Error("expected error from ClientCredentials")
			}
		})
	}
}

func TestClientCredentials(t *testing.T) {
	creds, err := ClientCredentials(ClientConfig{}, true)
	if err != nil {
		t.Fatal(err)
	}
	if creds.Info().SecurityProtocol != "insecure" {
		t.Errorf("plaintext protocol = %q", creds.Info().SecurityProtocol)
	}
	creds, err = ClientCredentials(ClientConfig{}, false)
	if err != nil {
		t.Fatal(err)
	}
	if creds.Info().SecurityProtocol != "tls" {
		t.Errorf("tls protocol = %q", creds.Info().SecurityProtocol)
	}
}

// generateSelfSignedCert generates a self-signed certificate for testing.
func generateSelfSignedCert(certFile, keyFile string) error {
	// Generate key
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return err
	}

	// Create certificate template
	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			CommonName: "test-cert",
		},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	// Create certificate
	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &privateKey.PublicKey, privateKey)
	if err != nil {
		return err
	}

	// Write cert
	certOut, err := os.Create(certFile)
	if err != nil {
		return err
	}
	defer certOut.Close()
	if err := pem.Encode(certOut, &pem.Block{Type: "CERTIFICATE", Bytes: certDER}); err != nil {
		return err
	}

	// Write key
	keyOut, err := os.Create(keyFile)
	if err != nil {
		return err
	}
	defer keyOut.Close()
	keyDER, err := x509.MarshalECPrivateKey(privateKey)
	if err != nil {
		return err
	}
	return pem.Encode(keyOut, &pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
}

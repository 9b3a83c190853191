package server

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"io"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeCertPair writes a self-signed certificate for commonName into dir.
func writeCertPair(t *testing.T, dir, commonName string) (string, string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: commonName},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		DNSNames:     []string{commonName},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	certFile := filepath.Join(dir, "cert.pem")
	keyFile := filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600))
	require.NoError(t, os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600))
	return certFile, keyFile
}

func commonName(t *testing.T, cert *tls.Certificate) string {
	t.Helper()
	parsed, err := x509.ParseCertificate(cert.Certificate[0])
	require.NoError(t, err)
	return parsed.Subject.CommonName
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewCertLoader(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeCertPair(t, dir, "first.test")

	loader, err := NewCertLoader(certFile, keyFile, 0, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, DefaultCertCheckInterval, loader.interval)

	cert, err := loader.GetCertificate(nil)
	require.NoError(t, err)
	assert.Equal(t, "first.test", commonName(t, cert))

	cfg := loader.TLSConfig()
	assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
	assert.NotNil(t, cfg.GetCertificate)
}

func TestNewCertLoader_MissingFiles(t *testing.T) {
	dir := t.TempDir()
	_, err := NewCertLoader(filepath.Join(dir, "cert.pem"), filepath.Join(dir, "key.pem"), time.Minute, discardLogger())
	assert.Error(t, err)
}

func TestCertLoader_ReloadsChangedFiles(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeCertPair(t, dir, "first.test")

	loader, err := NewCertLoader(certFile, keyFile, time.Millisecond, discardLogger())
	require.NoError(t, err)

	writeCertPair(t, dir, "second.test")
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(certFile, future, future))
	time.Sleep(5 * time.Millisecond)

	cert, err := loader.GetCertificate(nil)
	require.NoError(t, err)
	assert.Equal(t, "second.test", commonName(t, cert))
}

func TestCertLoader_KeepsCertOnBrokenFiles(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeCertPair(t, dir, "first.test")

	loader, err := NewCertLoader(certFile, keyFile, time.Millisecond, discardLogger())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(certFile, []byte("not a certificate"), 0o600))
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(certFile, future, future))
	time.Sleep(5 * time.Millisecond)

	cert, err := loader.GetCertificate(nil)
	require.NoError(t, err)
	assert.Equal(t, "first.test", commonName(t, cert))
}

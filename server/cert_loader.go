package server

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// DefaultCertCheckInterval is how often the certificate files are checked
// for changes.
const DefaultCertCheckInterval = time.Minute

// CertLoader serves a TLS certificate pair and reloads it when either file
// changes on disk. Files are checked at most once per interval, during a
// handshake.
type CertLoader struct {
	certFile string
	keyFile  string
	interval time.Duration
	logger   *slog.Logger

	mu        sync.RWMutex
	cert      *tls.Certificate
	loadedAt  time.Time
	lastCheck time.Time
}

// NewCertLoader loads the pair once and fails if it cannot be read.
// A non-positive interval uses DefaultCertCheckInterval.
func NewCertLoader(certFile, keyFile string, interval time.Duration, logger *slog.Logger) (*CertLoader, error) {
	if interval <= 0 {
		interval = DefaultCertCheckInterval
	}
	loader := &CertLoader{
		certFile: certFile,
		keyFile:  keyFile,
		interval: interval,
		logger:   logger,
	}

	if err := loader.reload(); err != nil {
		return nil, err
	}
	loader.lastCheck = time.Now()

	return loader, nil
}

// TLSConfig returns a tls.Config that serves the loader's certificate.
func (l *CertLoader) TLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion:     tls.VersionTLS12,
		GetCertificate: l.GetCertificate,
	}
}

// GetCertificate is a callback for tls.Config.GetCertificate.
func (l *CertLoader) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	l.mu.RLock()
	if time.Since(l.lastCheck) < l.interval {
		defer l.mu.RUnlock()
		return l.cert, nil
	}
	l.mu.RUnlock()

	l.mu.Lock()
	defer l.mu.Unlock()

	if time.Since(l.lastCheck) < l.interval {
		return l.cert, nil
	}
	l.lastCheck = time.Now()

	if l.changed() {
		if err := l.reload(); err != nil {
			l.logger.Error("failed to reload certificate", "error", err)
		}
	}

	// The previous certificate is kept on any error.
	return l.cert, nil
}

// changed reports whether either file was modified after the last load.
// Callers hold l.mu.
func (l *CertLoader) changed() bool {
	for _, name := range []string{l.certFile, l.keyFile} {
		info, err := os.Stat(name)
		if err != nil {
			l.logger.Error("failed to stat certificate file", "file", name, "error", err)
			return false
		}
		if info.ModTime().After(l.loadedAt) {
			return true
		}
	}
	return false
}

func (l *CertLoader) reload() error {
	cert, err := tls.LoadX509KeyPair(l.certFile, l.keyFile)
	if err != nil {
		return fmt.Errorf("failed to load key pair: %w", err)
	}

	l.cert = &cert
	l.loadedAt = time.Now()
	l.logger.Info("loaded tls certificate", "cert", l.certFile, "key", l.keyFile)
	return nil
}

// Package config loads the activityd server configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nomis52/goactivity/logging"
	"github.com/nomis52/goactivity/server/cron"
)

const (
	defaultAddr          = ":8080"
	defaultReadTimeout   = 10 * time.Second
	defaultWriteTimeout  = 10 * time.Second
	defaultMetricsPrefix = "activityd"
	defaultJobName       = "activityd"

	redacted = "REDACTED"
)

// ServerConfig represents the server runtime configuration.
type ServerConfig struct {
	Listener   ListenerConfig   `yaml:"listener"`
	Logging    logging.Config   `yaml:"logging"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

// ListenerConfig holds HTTP server listener settings.
type ListenerConfig struct {
	// The listen address, defaults to :8080
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	TLS          TLSConfig     `yaml:"tls"`
}

// TLSConfig enables HTTPS when both files are set.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// Enabled reports whether a certificate pair is configured.
func (c TLSConfig) Enabled() bool {
	return c.CertFile != "" && c.KeyFile != ""
}

// MonitoringConfig controls pushing store metrics to a remote write endpoint.
// The /metrics scrape endpoint is always served.
type MonitoringConfig struct {
	// Base URL of a VictoriaMetrics/Prometheus remote write receiver.
	// Pushing is disabled when empty.
	PushURL string `yaml:"push_url"`
	// Cron spec (5 fields) for when to push.
	PushSchedule  string `yaml:"push_schedule"`
	MetricsPrefix string `yaml:"metrics_prefix"`
	JobName       string `yaml:"job_name"`
}

// PushEnabled reports whether metrics should be pushed.
func (c MonitoringConfig) PushEnabled() bool {
	return c.PushURL != ""
}

// Default returns the configuration used when no file is given.
func Default() *ServerConfig {
	cfg := &ServerConfig{}
	cfg.SetDefaults()
	return cfg
}

// LoadConfig reads the YAML config file at the given path and returns a ServerConfig struct.
func LoadConfig(path string) (*ServerConfig, error) {
	var cfg ServerConfig
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open server config file %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode YAML server config: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server config %s: %w", path, err)
	}

	return &cfg, nil
}

// SetDefaults sets reasonable default values for optional fields.
func (c *ServerConfig) SetDefaults() {
	if c.Listener.Addr == "" {
		c.Listener.Addr = defaultAddr
	}
	if c.Listener.ReadTimeout == 0 {
		c.Listener.ReadTimeout = defaultReadTimeout
	}
	if c.Listener.WriteTimeout == 0 {
		c.Listener.WriteTimeout = defaultWriteTimeout
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
	if c.Monitoring.MetricsPrefix == "" {
		c.Monitoring.MetricsPrefix = defaultMetricsPrefix
	}
	if c.Monitoring.JobName == "" {
		c.Monitoring.JobName = defaultJobName
	}
}

// Validate performs basic validation on the configuration.
func (c *ServerConfig) Validate() error {
	if c.Listener.ReadTimeout < 0 || c.Listener.WriteTimeout < 0 {
		return fmt.Errorf("listener timeouts must not be negative")
	}
	if (c.Listener.TLS.CertFile == "") != (c.Listener.TLS.KeyFile == "") {
		return fmt.Errorf("tls cert_file and key_file must be set together")
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if c.Monitoring.PushEnabled() {
		if c.Monitoring.PushSchedule == "" {
			return fmt.Errorf("monitoring push_schedule is required when push_url is set")
		}
		if _, err := url.Parse(c.Monitoring.PushURL); err != nil {
			return fmt.Errorf("monitoring push_url: %w", err)
		}
		if err := cron.ValidateSpec(c.Monitoring.PushSchedule); err != nil {
			return fmt.Errorf("monitoring push_schedule: %w", err)
		}
	}
	return nil
}

// Redacted returns a copy that is safe to display. A password embedded in
// the push URL is masked.
func (c *ServerConfig) Redacted() ServerConfig {
	out := *c
	if u, err := url.Parse(out.Monitoring.PushURL); err == nil && u.User != nil {
		if _, hasPassword := u.User.Password(); hasPassword {
			u.User = url.UserPassword(u.User.Username(), redacted)
			out.Monitoring.PushURL = u.String()
		}
	}
	return out
}

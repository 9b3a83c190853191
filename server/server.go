// Package server provides the activityd HTTP server.
//
// The server keeps every activity in memory and exposes them over a small
// JSON API. Nothing is persisted: a restart starts from an empty store with
// the id counter back at zero.
//
// # Endpoints
//
//   - GET / - Greeting, returns "Hello world!"
//   - GET /health - Simple health check, returns "ok"
//   - POST /activities - Creates an activity from a JSON body
//   - GET /activities - Reads all activities, one by id, or a category
//   - PATCH /activities?id=N - Updates an activity
//   - DELETE /activities - Deletes all activities, one by id, or a category
//   - GET /api/status - Build info, store counts and the next metrics push
//   - GET /config - Returns current configuration as YAML
//   - POST /reload - Reloads configuration from disk
//   - GET /metrics - Prometheus metrics
//
// # Configuration
//
// The listener and monitoring settings are read once at startup. A reload
// re-reads the file and applies the logging level; other changes take effect
// on the next start.
//
// # Example
//
//	srv, err := server.New("/etc/activityd/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/nomis52/goactivity/activity"
	"github.com/nomis52/goactivity/buildinfo"
	"github.com/nomis52/goactivity/logging"
	"github.com/nomis52/goactivity/metrics"
	"github.com/nomis52/goactivity/server/config"
	"github.com/nomis52/goactivity/server/cron"
	"github.com/nomis52/goactivity/server/handlers"
)

const (
	defaultShutdownTimeout = 5 * time.Second
	pushJobName            = "metrics_push"
)

// serverDeps holds config-derived state that is swapped atomically on reload.
type serverDeps struct {
	config *config.ServerConfig
}

// Server is the activityd HTTP server.
type Server struct {
	configPath string
	addr       string
	logOutput  io.Writer
	logger     *logging.Logger
	deps       atomic.Pointer[serverDeps]
	startedAt  time.Time
	hostname   string

	store        *activity.Store
	scrape       *metrics.ScrapeRegistry
	storeMetrics []*metrics.StoreMetrics
	push         *metrics.PushRegistry
	pushTrigger  *cron.CronTrigger
}

// Option configures a Server.
type Option func(*Server) error

// WithListenAddr overrides the configured listen address.
func WithListenAddr(addr string) Option {
	return func(s *Server) error {
		s.addr = addr
		return nil
	}
}

// WithLogOutput sends logs to w instead of the configured output.
func WithLogOutput(w io.Writer) Option {
	return func(s *Server) error {
		s.logOutput = w
		return nil
	}
}

// New creates a Server from the config file at configPath. An empty path
// runs with the default configuration.
func New(configPath string, opts ...Option) (*Server, error) {
	s := &Server{
		configPath: configPath,
		store:      activity.NewStore(),
		startedAt:  time.Now(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	cfg, err := s.loadConfig()
	if err != nil {
		return nil, err
	}
	if s.addr == "" {
		s.addr = cfg.Listener.Addr
	}

	if s.logOutput != nil {
		s.logger, err = logging.NewWithWriter(cfg.Logging, s.logOutput)
	} else {
		s.logger, err = logging.New(cfg.Logging)
	}
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	s.deps.Store(&serverDeps{config: cfg})

	s.hostname, err = os.Hostname()
	if err != nil {
		s.logger.Warn("failed to get hostname", "error", err)
		s.hostname = "unknown"
	}

	if err := s.setupMetrics(cfg.Monitoring); err != nil {
		return nil, err
	}
	s.recordStats()

	return s, nil
}

func (s *Server) loadConfig() (*config.ServerConfig, error) {
	if s.configPath == "" {
		return config.Default(), nil
	}
	return config.LoadConfig(s.configPath)
}

func (s *Server) setupMetrics(mon config.MonitoringConfig) error {
	scrape, err := metrics.NewScrapeRegistry()
	if err != nil {
		return fmt.Errorf("creating scrape registry: %w", err)
	}
	scrapeMetrics, err := metrics.NewStoreMetrics(scrape)
	if err != nil {
		return err
	}
	s.scrape = scrape
	s.storeMetrics = []*metrics.StoreMetrics{scrapeMetrics}

	if !mon.PushEnabled() {
		return nil
	}

	s.push = metrics.NewPushRegistry(metrics.PushConfig{
		URL:      mon.PushURL,
		Prefix:   mon.MetricsPrefix,
		Job:      mon.JobName,
		Instance: s.hostname,
	})
	pushMetrics, err := metrics.NewStoreMetrics(s.push)
	if err != nil {
		return err
	}
	s.storeMetrics = append(s.storeMetrics, pushMetrics)

	s.pushTrigger, err = cron.NewCronTrigger(pushJobName, mon.PushSchedule, s.push.Push, s.logger.Logger)
	if err != nil {
		return fmt.Errorf("creating push trigger: %w", err)
	}
	return nil
}

// Logger returns the server's logger.
func (s *Server) Logger() *slog.Logger {
	return s.logger.Logger
}

// Store returns the activity store.
func (s *Server) Store() *activity.Store {
	return s.store
}

// Reload re-reads the config file and applies the new log level.
func (s *Server) Reload() error {
	cfg, err := s.loadConfig()
	if err != nil {
		return err
	}
	if err := s.logger.SetLevel(cfg.Logging.Level); err != nil {
		return err
	}

	old := s.deps.Swap(&serverDeps{config: cfg})
	if old != nil && (old.config.Listener != cfg.Listener || old.config.Monitoring != cfg.Monitoring) {
		s.logger.Warn("listener and monitoring changes apply on restart")
	}

	s.logger.Info("configuration loaded", "config_path", s.configPath)
	return nil
}

// LogLevel returns the current log level name.
func (s *Server) LogLevel() string {
	return s.logger.Level().String()
}

// Config returns the current configuration.
func (s *Server) Config() *config.ServerConfig {
	return s.deps.Load().config
}

// Properties returns metadata about this server instance.
func (s *Server) Properties() handlers.ServerProperties {
	return handlers.ServerProperties{
		Build:     buildinfo.Get(),
		StartedAt: s.startedAt,
		Hostname:  s.hostname,
	}
}

// Stats returns a summary of the store.
func (s *Server) Stats() activity.Stats {
	return s.store.Stats()
}

// NextPush returns the next metrics push time, or nil if pushing is off.
func (s *Server) NextPush() *time.Time {
	if s.pushTrigger == nil {
		return nil
	}
	next := s.pushTrigger.NextRun()
	return &next
}

// ObserveOperation counts the operation and refreshes the store gauges.
func (s *Server) ObserveOperation(operation, result string) {
	for _, m := range s.storeMetrics {
		m.ObserveOperation(operation, result)
	}
	s.recordStats()
}

// ObserveDeleted counts records removed by a delete.
func (s *Server) ObserveDeleted(removed int) {
	for _, m := range s.storeMetrics {
		m.ObserveDeleted(removed)
	}
}

func (s *Server) recordStats() {
	stats := s.store.Stats()
	byCategory := make(map[string]int, len(stats.ByCategory))
	for c, n := range stats.ByCategory {
		byCategory[c.String()] = n
	}
	for _, m := range s.storeMetrics {
		m.SetActivities(byCategory, stats.NextID)
	}
}

// Handler returns the server's routes wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)

	return RequestLogger{
		Logger: s.logger.Logger,
		Skipper: func(r *http.Request) bool {
			return r.URL.Path == "/health" || r.URL.Path == "/metrics"
		},
	}.Wrap(mux)
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	activities := handlers.NewActivitiesHandler(s.logger.Logger, s.store, s)

	mux.HandleFunc("GET /{$}", handlers.HandleRoot)
	mux.HandleFunc("GET /health", handlers.HandleHealth)

	mux.HandleFunc("POST /activities", activities.Create)
	mux.HandleFunc("GET /activities", activities.Read)
	mux.HandleFunc("PATCH /activities", activities.Update)
	mux.HandleFunc("DELETE /activities", activities.Delete)

	mux.Handle("GET /api/status", handlers.NewAPIStatusHandler(s))
	mux.Handle("GET /config", handlers.NewConfigHandler(s))
	mux.Handle("POST /reload", handlers.NewReloadHandler(s.logger.Logger, s))
	mux.Handle("GET /metrics", s.scrape.Handler())
}

// Run serves until ctx is cancelled, then shuts down gracefully. A
// configured metrics push runs on its schedule and once more on shutdown.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	cfg := s.Config()
	httpServer := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  cfg.Listener.ReadTimeout,
		WriteTimeout: cfg.Listener.WriteTimeout,
		ErrorLog:     slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	tlsEnabled := cfg.Listener.TLS.Enabled()
	if tlsEnabled {
		loader, err := NewCertLoader(cfg.Listener.TLS.CertFile, cfg.Listener.TLS.KeyFile, DefaultCertCheckInterval, s.logger.Logger)
		if err != nil {
			ln.Close()
			return err
		}
		httpServer.TLSConfig = loader.TLSConfig()
	}

	if s.pushTrigger != nil {
		s.logger.Info("starting metrics push", "next_push", s.pushTrigger.NextRun())
		s.pushTrigger.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server",
			"addr", ln.Addr().String(),
			"tls", tlsEnabled,
			"config_path", s.configPath,
			"version", buildinfo.Get().Version,
		)
		var err error
		if tlsEnabled {
			err = httpServer.ServeTLS(ln, "", "")
		} else {
			err = httpServer.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		err := httpServer.Shutdown(shutdownCtx)
		s.finalPush(shutdownCtx)
		return err
	}
}

func (s *Server) finalPush(ctx context.Context) {
	if s.push == nil {
		return
	}
	<-s.pushTrigger.Done()
	if err := s.push.Push(ctx); err != nil {
		s.logger.Warn("final metrics push failed", "error", err, "pending", s.push.Pending())
	}
}

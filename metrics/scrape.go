package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ScrapeRegistry implements Registry for the /metrics endpoint. Besides the
// registered metrics it exposes Go runtime, process and uptime metrics.
type ScrapeRegistry struct {
	prom      *prometheus.Registry
	startTime time.Time
}

// NewScrapeRegistry creates a new ScrapeRegistry.
func NewScrapeRegistry() (*ScrapeRegistry, error) {
	r := &ScrapeRegistry{
		prom:      prometheus.NewRegistry(),
		startTime: time.Now(),
	}

	uptime := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "uptime_seconds",
		Help: "Seconds since the registry was created.",
	}, func() float64 {
		return time.Since(r.startTime).Seconds()
	})

	for name, c := range map[string]prometheus.Collector{
		"go":      collectors.NewGoCollector(),
		"process": collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		"uptime":  uptime,
	} {
		if err := r.prom.Register(c); err != nil {
			return nil, fmt.Errorf("registering %s collector: %w", name, err)
		}
	}
	return r, nil
}

// Handler returns an http.Handler for the /metrics endpoint.
func (r *ScrapeRegistry) Handler() http.Handler {
	return promhttp.HandlerFor(r.prom, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// register adds c to the registry. If an identical collector is already
// registered, that one is returned so both callers share its series.
func register[T prometheus.Collector](r *ScrapeRegistry, c T, kind, name string) (T, error) {
	err := r.prom.Register(c)
	if err == nil {
		return c, nil
	}
	var existing prometheus.AlreadyRegisteredError
	if errors.As(err, &existing) {
		if prev, ok := existing.ExistingCollector.(T); ok {
			return prev, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("registering %s %q: %w", kind, name, err)
}

// NewGauge creates and registers a new Gauge.
func (r *ScrapeRegistry) NewGauge(opts prometheus.GaugeOpts) (Gauge, error) {
	g, err := register(r, prometheus.NewGauge(opts), "gauge", opts.Name)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// NewGaugeVec creates and registers a new GaugeVec.
func (r *ScrapeRegistry) NewGaugeVec(opts prometheus.GaugeOpts, labels []string) (GaugeVec, error) {
	g, err := register(r, prometheus.NewGaugeVec(opts, labels), "gauge vec", opts.Name)
	if err != nil {
		return nil, err
	}
	return gaugeVec{g}, nil
}

// NewCounter creates and registers a new Counter.
func (r *ScrapeRegistry) NewCounter(opts prometheus.CounterOpts) (Counter, error) {
	c, err := register(r, prometheus.NewCounter(opts), "counter", opts.Name)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// NewCounterVec creates and registers a new CounterVec.
func (r *ScrapeRegistry) NewCounterVec(opts prometheus.CounterOpts, labels []string) (CounterVec, error) {
	c, err := register(r, prometheus.NewCounterVec(opts, labels), "counter vec", opts.Name)
	if err != nil {
		return nil, err
	}
	return counterVec{c}, nil
}

// prometheus.Gauge and prometheus.Counter satisfy Gauge and Counter as is.
// The vec types only need With narrowed to the package interfaces.

type gaugeVec struct {
	vec *prometheus.GaugeVec
}

func (g gaugeVec) With(labels prometheus.Labels) Gauge {
	return g.vec.With(labels)
}

type counterVec struct {
	vec *prometheus.CounterVec
}

func (c counterVec) With(labels prometheus.Labels) Counter {
	return c.vec.With(labels)
}

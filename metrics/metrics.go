// Package metrics collects Prometheus metrics for the HTTP surface and the
// upload pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the registry and the service's metric vectors.
type Collector struct {
	serviceName string
	registry    *prometheus.Registry

	requestCount     *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight prometheus.Gauge
	uploadsTotal     *prometheus.CounterVec
	uploadBytes      prometheus.Counter
}

// Option configures the Collector.
type Option func(*Collector)

// WithServiceName sets the service label attached to every metric.
func WithServiceName(name string) Option {
	return func(c *Collector) {
		c.serviceName = name
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(c *Collector) {
		c.registry = registry
	}
}

// NewCollector creates and registers the service metrics.
func NewCollector(options ...Option) *Collector {
	c := &Collector{
		serviceName: "imgvault",
		registry:    prometheus.NewRegistry(),
	}
	for _, option := range options {
		option(c)
	}

	c.requestCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Number of HTTP requests processed.",
	}, []string{"service", "method", "path", "status"})

	c.requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"service", "method", "path", "status"})

	c.requestsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_requests_in_flight",
		Help: "Number of HTTP requests currently being served.",
	})

	c.uploadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "uploads_total",
		Help: "Number of item uploads by outcome.",
	}, []string{"service", "outcome"})

	c.uploadBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "upload_bytes_total",
		Help: "Total bytes accepted for upload.",
	})

	c.registry.MustRegister(
		c.requestCount,
		c.requestDuration,
		c.requestsInFlight,
		c.uploadsTotal,
		c.uploadBytes,
	)
	return c
}

// ServiceName returns the service label value.
func (c *Collector) ServiceName() string {
	return c.serviceName
}

// RequestCount returns the HTTP request counter.
func (c *Collector) RequestCount() *prometheus.CounterVec {
	return c.requestCount
}

// RequestDuration returns the HTTP latency histogram.
func (c *Collector) RequestDuration() *prometheus.HistogramVec {
	return c.requestDuration
}

// RequestsInFlight returns the in-flight gauge.
func (c *Collector) RequestsInFlight() prometheus.Gauge {
	return c.requestsInFlight
}

// ObserveUpload records one settled item upload.
func (c *Collector) ObserveUpload(succeeded bool, sizeBytes int64) {
	outcome := "success"
	if !succeeded {
		outcome = "failure"
	}
	c.uploadsTotal.WithLabelValues(c.serviceName, outcome).Inc()
	if succeeded {
		c.uploadBytes.Add(float64(sizeBytes))
	}
}

// Handler serves the registry over HTTP.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

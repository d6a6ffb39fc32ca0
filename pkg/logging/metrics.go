package logging

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector provides performance metrics collection using Prometheus
type MetricsCollector struct {
	// Request metrics
	requestDuration *prometheus.HistogramVec
	requestCounter  *prometheus.CounterVec
	activeRequests  *prometheus.GaugeVec

	// Storage metrics
	storageOperations *prometheus.CounterVec
	storageLatency    *prometheus.HistogramVec

	// Import metrics
	importRows *prometheus.CounterVec

	registry *prometheus.Registry
	config   MetricsConfig
}

// MetricsConfig defines configuration for metrics collection
type MetricsConfig struct {
	Enabled       bool   `yaml:"enabled" json:"enabled"`
	Namespace     string `yaml:"namespace,omitempty" json:"namespace,omitempty"`
	EnableRuntime bool   `yaml:"enableRuntime" json:"enableRuntime"`
}

// DefaultMetricsConfig returns default metrics configuration
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:       true,
		Namespace:     "bed_occupancy",
		EnableRuntime: true,
	}
}

// NewMetricsCollector creates a collector backed by its own registry.
// It returns nil when metrics are disabled; every method is nil-safe.
func NewMetricsCollector(config MetricsConfig) *MetricsCollector {
	if !config.Enabled {
		return nil
	}

	registry := prometheus.NewRegistry()
	mc := &MetricsCollector{
		registry: registry,
		config:   config,
	}

	mc.initializeMetrics()

	registry.MustRegister(
		mc.requestDuration,
		mc.requestCounter,
		mc.activeRequests,
		mc.storageOperations,
		mc.storageLatency,
		mc.importRows,
	)

	if config.EnableRuntime {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	return mc
}

// initializeMetrics initializes all Prometheus metrics
func (mc *MetricsCollector) initializeMetrics() {
	ns := mc.config.Namespace

	mc.requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status_code"})

	mc.requestCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"method", "route", "status_code"})

	mc.activeRequests = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: ns,
		Subsystem: "http",
		Name:      "active_requests",
		Help:      "Number of HTTP requests currently being served",
	}, []string{"method"})

	mc.storageOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Subsystem: "storage",
		Name:      "operations_total",
		Help:      "Total number of storage operations by backend, operation and outcome",
	}, []string{"backend", "operation", "outcome"})

	mc.storageLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns,
		Subsystem: "storage",
		Name:      "operation_duration_seconds",
		Help:      "Duration of storage operations in seconds",
		Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"backend", "operation"})

	mc.importRows = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Subsystem: "etl",
		Name:      "rows_total",
		Help:      "Rows processed by the import pipeline by result",
	}, []string{"result"})
}

// RecordRequest records a finished HTTP request
func (mc *MetricsCollector) RecordRequest(method, route string, statusCode int, duration time.Duration) {
	if mc == nil {
		return
	}
	code := strconv.Itoa(statusCode)
	mc.requestCounter.WithLabelValues(method, route, code).Inc()
	mc.requestDuration.WithLabelValues(method, route, code).Observe(duration.Seconds())
}

// RecordStorageOperation records one storage call. outcome is "ok" or the
// error class (validation, unavailable, not_found, error).
func (mc *MetricsCollector) RecordStorageOperation(backend, operation, outcome string, duration time.Duration) {
	if mc == nil {
		return
	}
	mc.storageOperations.WithLabelValues(backend, operation, outcome).Inc()
	mc.storageLatency.WithLabelValues(backend, operation).Observe(duration.Seconds())
}

// RecordImportRows adds n rows with the given result (loaded, rejected)
func (mc *MetricsCollector) RecordImportRows(result string, n int) {
	if mc == nil || n <= 0 {
		return
	}
	mc.importRows.WithLabelValues(result).Add(float64(n))
}

// Gatherer exposes the collector's registry
func (mc *MetricsCollector) Gatherer() prometheus.Gatherer {
	if mc == nil {
		return prometheus.NewRegistry()
	}
	return mc.registry
}

// GetHTTPHandler returns the HTTP handler for metrics endpoint
func (mc *MetricsCollector) GetHTTPHandler() http.Handler {
	if mc == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(mc.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}

// Middleware returns HTTP middleware for automatic request metrics. The
// route label uses the matched ServeMux pattern so path parameters do not
// explode cardinality.
func (mc *MetricsCollector) Middleware() func(http.Handler) http.Handler {
	if mc == nil {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			active := mc.activeRequests.WithLabelValues(r.Method)
			active.Inc()
			defer active.Dec()

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			mc.RecordRequest(r.Method, route, wrapped.statusCode, time.Since(start))
		})
	}
}

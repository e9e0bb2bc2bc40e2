package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all pick terminal metrics
type Metrics struct {
	serviceName string
	registry    *prometheus.Registry

	// HTTP metrics (local terminal API)
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Pick server client metrics
	RemoteCallsTotal   *prometheus.CounterVec
	RemoteCallDuration *prometheus.HistogramVec

	// Scan cache metrics
	CacheOperations        *prometheus.CounterVec
	CacheOperationDuration *prometheus.HistogramVec

	// Business metrics
	PickDeltas      *prometheus.CounterVec
	UnitsPicked     prometheus.Counter
	ScanResolutions *prometheus.CounterVec
	CacheLookups    *prometheus.CounterVec
	Completions     *prometheus.CounterVec
	ActiveSessions  prometheus.Gauge

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
	CircuitBreakerTrips *prometheus.CounterVec
}

// Config holds metrics configuration
type Config struct {
	ServiceName string
	Namespace   string
}

// DefaultConfig returns default metrics configuration
func DefaultConfig(serviceName string) *Config {
	return &Config{
		ServiceName: serviceName,
		Namespace:   "wms",
	}
}

// New creates a new Metrics instance backed by its own registry
func New(config *Config) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		serviceName: config.ServiceName,
		registry:    registry,
	}
	ns := config.Namespace

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: ns, Name: "http_requests_total", Help: "Total number of HTTP requests"},
		[]string{"service", "method", "path", "status"},
	)
	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 15},
		},
		[]string{"service", "method", "path"},
	)
	m.HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   ns,
			Name:        "http_requests_in_flight",
			Help:        "Number of HTTP requests currently being processed",
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		},
	)

	m.RemoteCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: ns, Name: "pick_server_calls_total", Help: "Calls made to the pick server"},
		[]string{"service", "operation", "outcome"},
	)
	m.RemoteCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "pick_server_call_duration_seconds",
			Help:      "Pick server call duration in seconds",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 15},
		},
		[]string{"service", "operation"},
	)

	m.CacheOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: ns, Name: "scan_cache_operations_total", Help: "Scan cache reads and writes"},
		[]string{"service", "backend", "operation", "status"},
	)
	m.CacheOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "scan_cache_operation_duration_seconds",
			Help:      "Scan cache operation duration in seconds",
			Buckets:   []float64{.0001, .001, .005, .01, .025, .05, .1, .25, .5},
		},
		[]string{"service", "backend", "operation"},
	)

	m.PickDeltas = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: ns, Name: "pick_deltas_total", Help: "Pick quantity deltas by result"},
		[]string{"service", "direction", "result"},
	)
	m.UnitsPicked = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   ns,
			Name:        "units_picked_total",
			Help:        "Net units confirmed by the pick server",
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		},
	)
	m.ScanResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: ns, Name: "scan_resolutions_total", Help: "Barcode scans by outcome"},
		[]string{"service", "outcome"},
	)
	m.CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: ns, Name: "scan_cache_lookups_total", Help: "Fallback cache lookups by result"},
		[]string{"service", "result"},
	)
	m.Completions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: ns, Name: "document_completions_total", Help: "Document completion attempts by result"},
		[]string{"service", "result"},
	)
	m.ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   ns,
			Name:        "pick_sessions_active",
			Help:        "Pick sessions currently open on the terminal",
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		},
	)

	m.CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Namespace: ns, Name: "circuit_breaker_state", Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)"},
		[]string{"service", "name"},
	)
	m.CircuitBreakerTrips = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: ns, Name: "circuit_breaker_trips_total", Help: "Total number of circuit breaker trips"},
		[]string{"service", "name"},
	)

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.RemoteCallsTotal,
		m.RemoteCallDuration,
		m.CacheOperations,
		m.CacheOperationDuration,
		m.PickDeltas,
		m.UnitsPicked,
		m.ScanResolutions,
		m.CacheLookups,
		m.Completions,
		m.ActiveSessions,
		m.CircuitBreakerState,
		m.CircuitBreakerTrips,
	)

	return m
}

// Handler returns an HTTP handler for metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(m.serviceName, method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(m.serviceName, method, path).Observe(duration.Seconds())
}

// IncrementHTTPRequestsInFlight increments in-flight requests
func (m *Metrics) IncrementHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Inc()
}

// DecrementHTTPRequestsInFlight decrements in-flight requests
func (m *Metrics) DecrementHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Dec()
}

// RecordRemoteCall records a pick server call. outcome is "success" or an error kind.
func (m *Metrics) RecordRemoteCall(operation, outcome string, duration time.Duration) {
	m.RemoteCallsTotal.WithLabelValues(m.serviceName, operation, outcome).Inc()
	m.RemoteCallDuration.WithLabelValues(m.serviceName, operation).Observe(duration.Seconds())
}

// RecordCacheOperation records a scan cache backend operation
func (m *Metrics) RecordCacheOperation(backend, operation string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	m.CacheOperations.WithLabelValues(m.serviceName, backend, operation, status).Inc()
	m.CacheOperationDuration.WithLabelValues(m.serviceName, backend, operation).Observe(duration.Seconds())
}

// RecordPickDelta records the outcome of a single ±1 mutation
func (m *Metrics) RecordPickDelta(delta int, result string) {
	direction := "increment"
	if delta < 0 {
		direction = "decrement"
	}
	m.PickDeltas.WithLabelValues(m.serviceName, direction, result).Inc()
	if result == "committed" {
		m.UnitsPicked.Add(float64(delta))
	}
}

// RecordScanResolution records how a scan was resolved
func (m *Metrics) RecordScanResolution(outcome string) {
	m.ScanResolutions.WithLabelValues(m.serviceName, outcome).Inc()
}

// RecordCacheLookup records a fallback cache lookup (fresh, stale or miss)
func (m *Metrics) RecordCacheLookup(result string) {
	m.CacheLookups.WithLabelValues(m.serviceName, result).Inc()
}

// RecordCompletion records a completion attempt
func (m *Metrics) RecordCompletion(result string) {
	m.Completions.WithLabelValues(m.serviceName, result).Inc()
}

// SetActiveSessions sets the number of open pick sessions
func (m *Metrics) SetActiveSessions(count int) {
	m.ActiveSessions.Set(float64(count))
}

// SetCircuitBreakerState sets the circuit breaker state
func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	m.CircuitBreakerState.WithLabelValues(m.serviceName, name).Set(float64(state))
}

// RecordCircuitBreakerTrip records a circuit breaker trip
func (m *Metrics) RecordCircuitBreakerTrip(name string) {
	m.CircuitBreakerTrips.WithLabelValues(m.serviceName, name).Inc()
}

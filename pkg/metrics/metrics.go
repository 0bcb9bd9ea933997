package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the stock service collectors. A nil *Metrics is valid and
// records nothing, so components can be built without a registry in tests.
type Metrics struct {
	serviceName string
	registry    *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Kafka / outbox metrics
	KafkaEventsPublished *prometheus.CounterVec
	KafkaPublishDuration *prometheus.HistogramVec
	OutboxPending        prometheus.Gauge

	// Storage metrics
	DBOperations        *prometheus.CounterVec
	DBOperationDuration *prometheus.HistogramVec

	// Stock ledger metrics
	StockOperations           *prometheus.CounterVec
	StockOperationDuration    *prometheus.HistogramVec
	LockWaitDuration          *prometheus.HistogramVec
	ReservationsExpired       prometheus.Counter
	SweeperRuns               *prometheus.CounterVec
	SweeperDuration           prometheus.Histogram
	LowStockAlertsActive      prometheus.Gauge
	AlertTransitions          *prometheus.CounterVec
	AlertRecheckFailures      prometheus.Counter
	LedgerInvariantViolations prometheus.Counter

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
		Namespace:   "retail",
	}
}

// New creates a new Metrics instance backed by its own registry
func New(config *Config) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ns := config.Namespace
	m := &Metrics{
		serviceName: config.ServiceName,
		registry:    registry,
	}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: ns, Name: "http_requests_total", Help: "Total number of HTTP requests"},
		[]string{"service", "method", "path", "status"},
	)
	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"service", "method", "path"},
	)
	m.HTTPRequestsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   ns,
		Name:        "http_requests_in_flight",
		Help:        "Number of HTTP requests currently being processed",
		ConstLabels: prometheus.Labels{"service": config.ServiceName},
	})

	m.KafkaEventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: ns, Name: "kafka_events_published_total", Help: "Total number of Kafka events published"},
		[]string{"service", "topic", "event_type", "status"},
	)
	m.KafkaPublishDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "kafka_publish_duration_seconds",
			Help:      "Kafka publish duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"service", "topic"},
	)
	m.OutboxPending = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   ns,
		Name:        "outbox_pending_events",
		Help:        "Outbox events waiting to be published in the last poll",
		ConstLabels: prometheus.Labels{"service": config.ServiceName},
	})

	m.DBOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: ns, Name: "db_operations_total", Help: "Total number of storage operations"},
		[]string{"service", "collection", "operation", "status"},
	)
	m.DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "db_operation_duration_seconds",
			Help:      "Storage operation duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"service", "collection", "operation"},
	)

	m.StockOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: ns, Name: "stock_operations_total", Help: "Stock ledger operations by outcome"},
		[]string{"service", "operation", "status"},
	)
	m.StockOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "stock_operation_duration_seconds",
			Help:      "Duration of stock ledger operations including lock wait",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"service", "operation"},
	)
	m.LockWaitDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "stock_lock_wait_seconds",
			Help:      "Time spent waiting for a per-product lock",
			Buckets:   []float64{.0001, .001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"service", "status"},
	)
	m.ReservationsExpired = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   ns,
		Name:        "stock_reservations_expired_total",
		Help:        "Reservations expired by the sweeper",
		ConstLabels: prometheus.Labels{"service": config.ServiceName},
	})
	m.SweeperRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: ns, Name: "stock_sweeper_runs_total", Help: "Expiration sweeper runs"},
		[]string{"service", "status"},
	)
	m.SweeperDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace:   ns,
		Name:        "stock_sweeper_duration_seconds",
		Help:        "Expiration sweeper run duration",
		Buckets:     []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60},
		ConstLabels: prometheus.Labels{"service": config.ServiceName},
	})
	m.LowStockAlertsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   ns,
		Name:        "stock_low_stock_alerts_active",
		Help:        "Number of products with an open low-stock alert",
		ConstLabels: prometheus.Labels{"service": config.ServiceName},
	})
	m.AlertTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: ns, Name: "stock_alert_transitions_total", Help: "Low-stock alerts opened or resolved"},
		[]string{"service", "transition"},
	)
	m.AlertRecheckFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   ns,
		Name:        "stock_alert_recheck_failures_total",
		Help:        "Alert rechecks that failed after a committed ledger mutation",
		ConstLabels: prometheus.Labels{"service": config.ServiceName},
	})
	m.LedgerInvariantViolations = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   ns,
		Name:        "stock_ledger_invariant_violations_total",
		Help:        "Mutations rejected because physical != available + reserved afterwards",
		ConstLabels: prometheus.Labels{"service": config.ServiceName},
	})

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
		m.KafkaEventsPublished,
		m.KafkaPublishDuration,
		m.OutboxPending,
		m.DBOperations,
		m.DBOperationDuration,
		m.StockOperations,
		m.StockOperationDuration,
		m.LockWaitDuration,
		m.ReservationsExpired,
		m.SweeperRuns,
		m.SweeperDuration,
		m.LowStockAlertsActive,
		m.AlertTransitions,
		m.AlertRecheckFailures,
		m.LedgerInvariantViolations,
		m.CircuitBreakerState,
		m.CircuitBreakerTrips,
	)

	return m
}

// Handler returns an HTTP handler for metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(m.serviceName, method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(m.serviceName, method, path).Observe(duration.Seconds())
}

// IncrementHTTPRequestsInFlight increments in-flight requests
func (m *Metrics) IncrementHTTPRequestsInFlight() {
	if m == nil {
		return
	}
	m.HTTPRequestsInFlight.Inc()
}

// DecrementHTTPRequestsInFlight decrements in-flight requests
func (m *Metrics) DecrementHTTPRequestsInFlight() {
	if m == nil {
		return
	}
	m.HTTPRequestsInFlight.Dec()
}

// RecordKafkaPublish records a Kafka publish event
func (m *Metrics) RecordKafkaPublish(topic, eventType string, success bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.KafkaEventsPublished.WithLabelValues(m.serviceName, topic, eventType, statusLabel(success)).Inc()
	m.KafkaPublishDuration.WithLabelValues(m.serviceName, topic).Observe(duration.Seconds())
}

// SetOutboxPending sets the number of pending outbox events seen in the last poll
func (m *Metrics) SetOutboxPending(n int) {
	if m == nil {
		return
	}
	m.OutboxPending.Set(float64(n))
}

// RecordDBOperation records a storage operation
func (m *Metrics) RecordDBOperation(collection, operation string, success bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.DBOperations.WithLabelValues(m.serviceName, collection, operation, statusLabel(success)).Inc()
	m.DBOperationDuration.WithLabelValues(m.serviceName, collection, operation).Observe(duration.Seconds())
}

// RecordStockOperation records the outcome of a ledger operation.
// status is a short classification such as "success", "insufficient_stock" or "error".
func (m *Metrics) RecordStockOperation(operation, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.StockOperations.WithLabelValues(m.serviceName, operation, status).Inc()
	m.StockOperationDuration.WithLabelValues(m.serviceName, operation).Observe(duration.Seconds())
}

// RecordLockWait records how long a caller waited for a product lock
func (m *Metrics) RecordLockWait(acquired bool, duration time.Duration) {
	if m == nil {
		return
	}
	status := "acquired"
	if !acquired {
		status = "timeout"
	}
	m.LockWaitDuration.WithLabelValues(m.serviceName, status).Observe(duration.Seconds())
}

// RecordSweep records a sweeper run
func (m *Metrics) RecordSweep(expired, failed int, duration time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if failed > 0 {
		status = "partial"
	}
	m.SweeperRuns.WithLabelValues(m.serviceName, status).Inc()
	m.SweeperDuration.Observe(duration.Seconds())
	m.ReservationsExpired.Add(float64(expired))
}

// RecordAlertOpened records a newly opened low-stock alert
func (m *Metrics) RecordAlertOpened() {
	if m == nil {
		return
	}
	m.AlertTransitions.WithLabelValues(m.serviceName, "opened").Inc()
	m.LowStockAlertsActive.Inc()
}

// RecordAlertResolved records a resolved low-stock alert
func (m *Metrics) RecordAlertResolved() {
	if m == nil {
		return
	}
	m.AlertTransitions.WithLabelValues(m.serviceName, "resolved").Inc()
	m.LowStockAlertsActive.Dec()
}

// SetActiveAlerts overwrites the active alert gauge, used on startup
func (m *Metrics) SetActiveAlerts(n int) {
	if m == nil {
		return
	}
	m.LowStockAlertsActive.Set(float64(n))
}

// RecordAlertRecheckFailure counts a failed alert recheck
func (m *Metrics) RecordAlertRecheckFailure() {
	if m == nil {
		return
	}
	m.AlertRecheckFailures.Inc()
}

// RecordLedgerInvariantViolation counts a rejected mutation that broke the ledger identity
func (m *Metrics) RecordLedgerInvariantViolation() {
	if m == nil {
		return
	}
	m.LedgerInvariantViolations.Inc()
}

// SetCircuitBreakerState sets the circuit breaker state
func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.WithLabelValues(m.serviceName, name).Set(float64(state))
}

// RecordCircuitBreakerTrip records a circuit breaker trip
func (m *Metrics) RecordCircuitBreakerTrip(name string) {
	if m == nil {
		return
	}
	m.CircuitBreakerTrips.WithLabelValues(m.serviceName, name).Inc()
}

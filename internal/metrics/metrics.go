package metrics

import (
	"errors"
	"strconv"
	"time"

	"custody-bridge/pkg/apperror"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// OutcomeOK labels a successful operation. Failures are labelled with their error code.
const OutcomeOK = "ok"

// Metrics holds all Prometheus metrics for the bridge.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Conversions     *prometheus.CounterVec
	Registrations   *prometheus.CounterVec
	CustodyOps      *prometheus.CounterVec
	EventsPublished *prometheus.CounterVec
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
}

// New creates the bridge metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Conversions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "custody_bridge_conversions_total",
			Help: "Conversions handled, by component and outcome",
		}, []string{"component", "outcome"}),
		Registrations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "custody_bridge_registrations_total",
			Help: "Registry entries created, by entry point",
		}, []string{"source"}),
		CustodyOps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "custody_bridge_custody_operations_total",
			Help: "Vault custody operations, by operation and outcome",
		}, []string{"operation", "outcome"}),
		EventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "custody_bridge_events_published_total",
			Help: "Event deliveries, by sink and outcome",
		}, []string{"sink", "outcome"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "custody_bridge_http_requests_total",
			Help: "HTTP requests, by method, route and status",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "custody_bridge_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Outcome maps an error to a low-cardinality label.
func Outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "error"
}

// ObserveConversion records one conversion for component ("registry" or "vault").
func (m *Metrics) ObserveConversion(component string, err error) {
	if m == nil {
		return
	}
	m.Conversions.WithLabelValues(component, Outcome(err)).Inc()
}

// IncRegistration records a new registry entry.
func (m *Metrics) IncRegistration(source string) {
	if m == nil {
		return
	}
	m.Registrations.WithLabelValues(source).Inc()
}

// ObserveCustody records a deposit or withdrawal attempt.
func (m *Metrics) ObserveCustody(operation string, err error) {
	if m == nil {
		return
	}
	m.CustodyOps.WithLabelValues(operation, Outcome(err)).Inc()
}

// ObserveEvent records one sink delivery.
func (m *Metrics) ObserveEvent(sink string, err error) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(sink, Outcome(err)).Inc()
}

// ObserveHTTP records a finished request.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

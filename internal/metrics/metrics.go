// Package metrics exposes Prometheus instrumentation for the Cadence
// engine: inbound HTTP metrics plus domain counters for admission
// decisions, logged activity, and raised alerts.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/outboundlab/cadence/pkg/types"
)

// Collector registers and records all Cadence metrics on a private
// registry.
type Collector struct {
	registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	activityTotal  *prometheus.CounterVec
	admissionTotal *prometheus.CounterVec
	alertTotal     *prometheus.CounterVec
}

// NewCollector constructs a collector with default histograms and counters.
func NewCollector() (*Collector, error) {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cadence",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Latency distribution for inbound HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cadence",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of inbound HTTP requests.",
	}, []string{"method", "path", "status"})

	activityTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cadence",
		Subsystem: "safety",
		Name:      "activities_total",
		Help:      "Activities logged to the ledger by action type and outcome.",
	}, []string{"action_type", "success"})

	admissionTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cadence",
		Subsystem: "safety",
		Name:      "admission_decisions_total",
		Help:      "Admission decisions by action type and outcome.",
	}, []string{"action_type", "allowed"})

	alertTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cadence",
		Subsystem: "safety",
		Name:      "alerts_raised_total",
		Help:      "Safety alerts raised by alert type.",
	}, []string{"alert_type"})

	for _, c := range []prometheus.Collector{
		requestDuration, requestTotal, activityTotal, admissionTotal, alertTotal,
	} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return &Collector{
		registry:        registry,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		activityTotal:   activityTotal,
		admissionTotal:  admissionTotal,
		alertTotal:      alertTotal,
	}, nil
}

// Handler returns an HTTP handler exposing the metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ActivityLogged records one logged activity.
func (c *Collector) ActivityLogged(actionType types.ActionType, success bool) {
	c.activityTotal.WithLabelValues(string(actionType), strconv.FormatBool(success)).Inc()
}

// AdmissionDecided records one admission decision.
func (c *Collector) AdmissionDecided(actionType types.ActionType, allowed bool) {
	c.admissionTotal.WithLabelValues(string(actionType), strconv.FormatBool(allowed)).Inc()
}

// AlertRaised records one raised alert.
func (c *Collector) AlertRaised(alertType types.AlertType) {
	c.alertTotal.WithLabelValues(string(alertType)).Inc()
}

// InstrumentHandler wraps the provided handler to record HTTP metrics.
func (c *Collector) InstrumentHandler(path string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.status)
		c.requestDuration.WithLabelValues(r.Method, path, status).Observe(duration)
		c.requestTotal.WithLabelValues(r.Method, path, status).Inc()
	})
}

// responseWriter captures the status code written by a handler.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}

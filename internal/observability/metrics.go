package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce             sync.Once
	requestsTotal            *prometheus.CounterVec
	latencySeconds           *prometheus.HistogramVec
	errorsTotal              *prometheus.CounterVec
	tierSwitchesTotal        *prometheus.CounterVec
	recordTransitionsTotal   *prometheus.CounterVec
	progressionAttemptsTotal *prometheus.CounterVec
	recordChangeEventsTotal  *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors for the compliance API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "compliance_requests_total",
			Help: "Total number of compliance API requests served.",
		}, []string{"method", "route", "status"})

		latencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "compliance_latency_seconds",
			Help:    "Latency distribution for compliance API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		errorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "compliance_errors_total",
			Help: "Total number of error responses returned by compliance endpoints.",
		}, []string{"method", "route", "status"})

		tierSwitchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "compliance_tier_switches_total",
			Help: "Total number of applied tier switches.",
		}, []string{"tier"})

		recordTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "compliance_record_transitions_total",
			Help: "Total number of applied record status transitions.",
		}, []string{"from", "to"})

		progressionAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "compliance_progression_attempts_total",
			Help: "Total number of automated progression attempts by outcome.",
		}, []string{"outcome"})

		recordChangeEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "compliance_record_change_events_total",
			Help: "Total number of record change events published.",
		}, []string{"action"})

		prometheus.MustRegister(
			requestsTotal,
			latencySeconds,
			errorsTotal,
			tierSwitchesTotal,
			recordTransitionsTotal,
			progressionAttemptsTotal,
			recordChangeEventsTotal,
		)
	})
}

// Requests exposes the counter for API requests.
func Requests() *prometheus.CounterVec {
	RegisterMetrics()
	return requestsTotal
}

// Latency exposes the latency histogram for API requests.
func Latency() *prometheus.HistogramVec {
	RegisterMetrics()
	return latencySeconds
}

// Errors exposes the counter for API error responses.
func Errors() *prometheus.CounterVec {
	RegisterMetrics()
	return errorsTotal
}

// TierSwitchesTotal exposes the counter for applied tier switches.
func TierSwitchesTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return tierSwitchesTotal
}

// RecordTransitionsTotal exposes the counter for record transitions.
func RecordTransitionsTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return recordTransitionsTotal
}

// ProgressionAttemptsTotal exposes the counter for progression attempts.
func ProgressionAttemptsTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return progressionAttemptsTotal
}

// RecordChangeEventsTotal exposes the counter for published change events.
func RecordChangeEventsTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return recordChangeEventsTotal
}

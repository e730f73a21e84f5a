// Package metrics records request lifecycle metrics with Prometheus.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector records request outcomes. A nil *Collector is valid and records
// nothing. It is safe for concurrent use.
type Collector struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec
	errorsTotal      *prometheus.CounterVec
	progressReports  *prometheus.CounterVec
}

// New creates a collector on the default registerer.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a collector using the supplied registerer.
func NewWithRegistry(registry prometheus.Registerer) *Collector {
	factory := promauto.With(registry)

	return &Collector{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reqflow_requests_total",
				Help: "Total number of settled requests",
			},
			[]string{"method", "status_code", "outcome"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reqflow_request_duration_seconds",
				Help:    "Time from send until the request settled",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "outcome"},
		),
		requestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "reqflow_requests_in_flight",
				Help: "Number of requests sent but not yet settled",
			},
			[]string{"method"},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reqflow_errors_total",
				Help: "Total number of errors reported to the error callback",
			},
			[]string{"kind", "method"},
		),
		progressReports: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reqflow_progress_reports_total",
				Help: "Total number of progress values reported",
			},
			[]string{"method", "direction"},
		),
	}
}

// Outcome labels.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Direction labels.
const (
	DirectionUpload   = "upload"
	DirectionDownload = "download"
)

// RecordSent marks a request as in flight.
func (c *Collector) RecordSent(method string) {
	if c == nil {
		return
	}

	c.requestsInFlight.WithLabelValues(method).Inc()
}

// RecordSettled records the outcome of a request previously marked as sent.
func (c *Collector) RecordSettled(method string, status int, outcome string, duration time.Duration) {
	if c == nil {
		return
	}

	c.requestsInFlight.WithLabelValues(method).Dec()
	c.requestsTotal.WithLabelValues(method, strconv.Itoa(status), outcome).Inc()
	c.requestDuration.WithLabelValues(method, outcome).Observe(duration.Seconds())
}

// RecordError counts an error by kind.
func (c *Collector) RecordError(kind, method string) {
	if c == nil {
		return
	}

	c.errorsTotal.WithLabelValues(kind, method).Inc()
}

// RecordProgress counts a progress report.
func (c *Collector) RecordProgress(method string, upload bool) {
	if c == nil {
		return
	}

	direction := DirectionDownload
	if upload {
		direction = DirectionUpload
	}

	c.progressReports.WithLabelValues(method, direction).Inc()
}

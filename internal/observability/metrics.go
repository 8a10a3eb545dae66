// Package observability holds the Prometheus collectors exported on /metrics.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Estimate sources
const (
	SourceRemote   = "remote"
	SourceFallback = "fallback"
	SourceLocal    = "local"
)

var (
	estimatesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "carbon_tracker",
		Subsystem: "emissions",
		Name:      "estimates_total",
		Help:      "Emission estimates computed, by activity type and the source of the figure.",
	}, []string{"activity_type", "source"})

	remoteDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "carbon_tracker",
		Subsystem: "emissions",
		Name:      "remote_estimate_duration_seconds",
		Help:      "Latency of calls to the remote estimation service.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"activity_type", "outcome"})

	httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "carbon_tracker",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests served, by method, route template and status code.",
	}, []string{"method", "route", "status"})

	httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "carbon_tracker",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency, by method and route template.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)

func init() {
	prometheus.MustRegister(estimatesTotal, remoteDuration, httpRequestsTotal, httpRequestDuration)
}

// RecordEstimate counts an estimate for activityType produced from source
func RecordEstimate(activityType, source string) {
	estimatesTotal.WithLabelValues(activityType, source).Inc()
}

// ObserveRemoteEstimate records the latency of one remote call
func ObserveRemoteEstimate(activityType string, d time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	remoteDuration.WithLabelValues(activityType, outcome).Observe(d.Seconds())
}

// ObserveHTTPRequest records one served request
func ObserveHTTPRequest(method, route string, status int, d time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, statusLabel(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

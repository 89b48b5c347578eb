// Package metrics holds the process-wide Prometheus collectors
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "srcfp"

var (
	UnitsInflight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "units_inflight",
		Help:      "Repositories currently being fingerprinted",
	})
	UnitDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "unit_duration_seconds",
		Help:      "Time spent fingerprinting one repository",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"provider"})
	UnitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "units_total",
		Help:      "Finished units by outcome",
	}, []string{"provider", "outcome"})
	CandidatesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "candidates_total",
		Help:      "Descriptors listed by providers, split by filter decision",
	}, []string{"provider", "decision"})
	ProviderRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_requests_total",
		Help:      "HTTP requests sent to hosting providers by status class",
	}, []string{"provider", "status"})
	SinkWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sink_writes_total",
		Help:      "Records handed to output sinks",
	}, []string{"sink", "result"})
)

func init() {
	prometheus.MustRegister(
		UnitsInflight,
		UnitDuration,
		UnitsTotal,
		CandidatesTotal,
		ProviderRequests,
		SinkWrites,
	)
}

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}

// StatusClass folds an HTTP status into 2xx, 3xx, 4xx, 5xx or "error" when no response came back
func StatusClass(code int) string {
	switch {
	case code <= 0:
		return "error"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

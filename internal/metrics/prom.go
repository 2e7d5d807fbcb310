// Package metrics holds the prometheus collectors for the frame proxy and
// the process stats backing the state endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name:        "framehost_build_info",
			Help:        "Build information for the framehost server",
			ConstLabels: prometheus.Labels{"component": "server"},
		},
		[]string{"date", "sha", "version"},
	)

	parseTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "framehost_frame_parse_total",
			Help: "Frame parses by dialect and outcome",
		},
		[]string{"dialect", "status"},
	)

	proxyRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "framehost_proxy_requests_total",
			Help: "Requests served by the frame proxy endpoints",
		},
		[]string{"endpoint", "code"},
	)

	proxyDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "framehost_proxy_request_duration_seconds",
			Help:    "Upstream fetch duration for proxied frame requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "framehost_sessions_active",
			Help: "Number of live interaction sessions",
		},
	)
)

// Register registers all framehost collectors with r.
func Register(r prometheus.Registerer) {
	r.MustRegister(buildInfo, parseTotal, proxyRequestsTotal, proxyDuration, sessionsActive)
}

// SetServerBuildInfo sets the build info metric for the server.
func SetServerBuildInfo(version, sha, date string) {
	buildInfo.WithLabelValues(date, sha, version).Set(1)
}

// ObserveParse records one dialect parse outcome.
func ObserveParse(dialect, status string) {
	parseTotal.WithLabelValues(dialect, status).Inc()
}

// ObserveProxyRequest records one proxied request and its upstream duration.
func ObserveProxyRequest(endpoint, code string, seconds float64) {
	proxyRequestsTotal.WithLabelValues(endpoint, code).Inc()
	proxyDuration.WithLabelValues(endpoint).Observe(seconds)
}

// SessionOpened increments the live session gauge.
func SessionOpened() { sessionsActive.Inc() }

// SessionClosed decrements the live session gauge.
func SessionClosed() { sessionsActive.Dec() }

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crmproxy_http_requests_total",
			Help: "Total number of gateway requests by route and status",
		},
		[]string{"route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "crmproxy_http_request_duration_seconds",
			Help: "Duration of gateway requests in seconds",
		},
		[]string{"route"},
	)

	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crmproxy_upstream_requests_total",
			Help: "Total number of upstream calls by service, operation and status",
		},
		[]string{"service", "operation", "status"},
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "crmproxy_upstream_request_duration_seconds",
			Help: "Duration of upstream calls in seconds",
		},
		[]string{"service", "operation"},
	)

	InsightParseFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crmproxy_insight_parse_failures_total",
			Help: "Model responses that did not contain a usable insight object",
		},
	)
)

// ObserveUpstream records one upstream call. status 0 means the call failed
// before a response arrived.
func ObserveUpstream(service, operation string, status int, started time.Time) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	UpstreamRequests.WithLabelValues(service, operation, label).Inc()
	UpstreamDuration.WithLabelValues(service, operation).Observe(time.Since(started).Seconds())
}

// ObserveHTTP records one served request.
func ObserveHTTP(route string, status int, started time.Time) {
	HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(route).Observe(time.Since(started).Seconds())
}

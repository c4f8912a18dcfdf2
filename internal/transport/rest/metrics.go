package rest

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "turnero_http_request_duration_seconds",
		Help: "HTTP request latency by method, path and status.",
	}, []string{"method", "path", "status"})

	requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "turnero_http_requests_total",
		Help: "Total HTTP requests by method, path and status.",
	}, []string{"method", "path", "status"})
)

func init() {
	prometheus.MustRegister(requestDuration, requestsTotal)
}

func observeRequest(method, path string, status int, dur time.Duration) {
	statusStr := strconv.Itoa(status)
	requestDuration.WithLabelValues(method, path, statusStr).Observe(dur.Seconds())
	requestsTotal.WithLabelValues(method, path, statusStr).Inc()
}

// Package metrics provides Prometheus metrics for the task manager
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service
type Metrics struct {
	// HTTP metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	RateLimitHits       *prometheus.CounterVec

	// Auth metrics
	Signups prometheus.Counter
	Logins  *prometheus.CounterVec
	Logouts prometheus.Counter

	// Task metrics
	TaskOperations *prometheus.CounterVec
}

// New creates the metrics and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "primetrade_http_requests_total",
			Help: "Total number of HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "primetrade_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		RateLimitHits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "primetrade_rate_limit_hits_total",
			Help: "Requests rejected by the rate limiter",
		}, []string{"route"}),

		Signups: f.NewCounter(prometheus.CounterOpts{
			Name: "primetrade_signups_total",
			Help: "Total number of accounts created",
		}),
		Logins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "primetrade_logins_total",
			Help: "Login attempts by result",
		}, []string{"result"}),
		Logouts: f.NewCounter(prometheus.CounterOpts{
			Name: "primetrade_logouts_total",
			Help: "Total number of logouts",
		}),

		TaskOperations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "primetrade_task_operations_total",
			Help: "Task mutations by operation",
		}, []string{"operation"}),
	}
}

// NewNop returns metrics registered on a private registry, for tests and tools.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

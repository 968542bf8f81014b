package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts requests by method, route template and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gamehub_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	// HTTPRequestDuration records request latency by method and route template.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gamehub_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	RegistrationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gamehub_registrations_total",
		Help: "Total number of registered accounts",
	})

	// TokenRefreshesTotal counts refresh attempts by outcome (ok, invalid, reused).
	TokenRefreshesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gamehub_token_refreshes_total",
		Help: "Total number of refresh token exchanges by outcome",
	}, []string{"outcome"})

	NotificationsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gamehub_notifications_sent_total",
		Help: "Total number of notifications stored by type",
	}, []string{"type"})

	UploadsStoredBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gamehub_uploads_stored_bytes_total",
		Help: "Total number of bytes accepted by the upload endpoint",
	})

	RateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gamehub_rate_limited_total",
		Help: "Total number of requests rejected by a rate limit",
	}, []string{"limit"})
)

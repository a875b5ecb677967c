// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ember_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ember_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Matching
	LikesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ember_likes_total",
			Help: "Likes recorded by type",
		},
		[]string{"type"},
	)

	MatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ember_matches_total",
			Help: "Matches created",
		},
	)

	QuotaRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ember_quota_rejections_total",
			Help: "Actions rejected because a daily quota was exhausted",
		},
		[]string{"kind"},
	)

	// External dependencies
	DegradedCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ember_degraded_calls_total",
			Help: "External calls that fell back to a degraded result",
		},
		[]string{"dependency", "reason"},
	)

	// Realtime
	RealtimeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ember_realtime_connections",
			Help: "Live WebSocket connections on this instance",
		},
	)

	RealtimeDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ember_realtime_dropped_total",
			Help: "Realtime messages dropped because the user was offline or slow",
		},
	)

	JobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ember_job_runs_total",
			Help: "Scheduled job runs by job and result",
		},
		[]string{"job", "result"},
	)
)

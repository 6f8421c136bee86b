// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// Spotify Web API calls made on behalf of users.
	SpotifyRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spotify_requests_total",
			Help: "Total number of Spotify Web API calls",
		},
		[]string{"operation", "outcome"},
	)

	TokenRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_refresh_total",
			Help: "OAuth token refresh attempts by outcome",
		},
		[]string{"outcome"},
	)

	SessionsClearedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sessions_cleared_total",
			Help: "Sessions dropped, labelled by reason",
		},
		[]string{"reason"},
	)

	FeedbackWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedback_writes_total",
			Help: "Feedback upserts by rating",
		},
		[]string{"rating"},
	)

	RecommendationSeedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendation_seed_source_total",
			Help: "Seed source chosen by the recommendation fallback chain",
		},
		[]string{"source"},
	)
)

// Outcome label values.
const (
	OutcomeOK           = "ok"
	OutcomeError        = "error"
	OutcomeUnauthorized = "unauthorized"
)

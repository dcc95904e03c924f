// Package metrics exposes Prometheus instruments for the journal pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Sources label whether a result came from the language model or the heuristics.
const (
	SourceRemote    = "remote"
	SourceHeuristic = "heuristic"
)

var (
	RequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voicetwin_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "voicetwin_http_request_duration_seconds",
			Help: "HTTP request duration in seconds",
		},
		[]string{"method", "endpoint"},
	)

	StyleAnalyses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voicetwin_style_analyses_total",
			Help: "Style analyses produced, by source",
		},
		[]string{"source"},
	)

	Replies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voicetwin_replies_total",
			Help: "AI Twin replies produced, by source",
		},
		[]string{"source"},
	)

	RemoteFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voicetwin_remote_failures_total",
			Help: "Language model call failures, by operation and kind",
		},
		[]string{"operation", "kind"},
	)

	RemoteLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "voicetwin_remote_latency_seconds",
			Help: "Language model call latency in seconds",
		},
		[]string{"operation"},
	)

	ProfileUpdates = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "voicetwin_profile_updates_total",
			Help: "Voice profile writes (create or update)",
		},
	)
)

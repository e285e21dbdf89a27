// Package observability provides metrics capabilities for the plugin server.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics namespace for all plugin server metrics.
const metricsNamespace = "plugin_server"

// Plugin execution metrics.
var (
	// PluginExecutionsTotal counts plugin invocations by plugin and outcome.
	PluginExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "plugin_executions_total",
			Help:      "Total number of plugin executions",
		},
		[]string{"plugin", "status"},
	)

	// PluginExecutionDuration measures the duration of plugin invocations in seconds.
	PluginExecutionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "plugin_execution_duration_seconds",
			Help:      "Duration of plugin executions in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"plugin"},
	)
)

// OAuth token cache metrics.
var (
	// TokenRefreshesTotal counts OAuth refresh calls by provider and outcome.
	TokenRefreshesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "token_refreshes_total",
			Help:      "Total OAuth token refresh calls",
		},
		[]string{"provider", "status"},
	)

	// TokenCacheHitsTotal counts token cache lookups served without a refresh.
	TokenCacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "token_cache_hits_total",
			Help:      "Total OAuth token cache hits",
		},
		[]string{"provider"},
	)
)

// Request metrics.
var (
	// RequestsTotal counts total API requests by route and status code.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "requests_total",
			Help:      "Total API requests processed",
		},
		[]string{"route", "status"},
	)
)

func init() {
	// Register all metrics with the default registry.
	prometheus.MustRegister(
		PluginExecutionsTotal,
		PluginExecutionDuration,
		TokenRefreshesTotal,
		TokenCacheHitsTotal,
		RequestsTotal,
	)
}

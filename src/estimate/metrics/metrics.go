package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "estimate_requests_total",
		Help: "Estimate requests by outcome.",
	}, []string{"outcome"})

	RateLimitRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "estimate_rate_limit_rejections_total",
		Help: "Requests rejected at admission.",
	})

	ToolFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "estimate_tool_failures_total",
		Help: "Tool call failures by tool and kind.",
	}, []string{"tool", "kind"})

	ItemDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "estimate_item_duration_seconds",
		Help:    "Time for all tool calls of one item to settle.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})
)

// Package observability provides Prometheus metrics for the application.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dojo_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// NotificationFanout counts notifications created, by type.
	NotificationFanout = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dojo_notification_fanout_total",
		Help: "Total number of notifications created by type",
	}, []string{"type"})

	// MediaUploads counts media registrations by kind and outcome.
	MediaUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dojo_media_uploads_total",
		Help: "Total number of media uploads by kind and outcome",
	}, []string{"kind", "outcome"})

	// ModerationDecisions counts approve/reject decisions on posts.
	ModerationDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dojo_moderation_decisions_total",
		Help: "Total number of moderation decisions by action",
	}, []string{"action"})

	// CacheHits counts cache lookups by key family and result.
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dojo_cache_lookups_total",
		Help: "Total number of cache lookups by key family and result",
	}, []string{"family", "result"})
)

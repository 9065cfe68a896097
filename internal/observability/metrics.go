// Package observability provides metrics and tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atelier_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records latency of transactional units of work by operation.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "atelier_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// ModerationDecisions counts moderation calls by action and outcome.
	ModerationDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atelier_moderation_decisions_total",
		Help: "Moderation decisions by action and outcome",
	}, []string{"action", "outcome"})

	// PaymentConfirmations counts confirmation calls by result
	// (confirmed, duplicate, failed, rejected).
	PaymentConfirmations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atelier_payment_confirmations_total",
		Help: "Payment confirmation calls by result",
	}, []string{"result"})

	// VotesCast counts vote ledger mutations by target and effect.
	VotesCast = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atelier_votes_total",
		Help: "Vote ledger mutations by target and effect",
	}, []string{"target", "effect"})

	// CommentsCreated counts accepted comments.
	CommentsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "atelier_comments_created_total",
		Help: "Total number of comments created",
	})

	// PostsCreated counts created posts by type.
	PostsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atelier_posts_created_total",
		Help: "Total number of posts created by type",
	}, []string{"type"})
)

// TrackQuery returns a function that records latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

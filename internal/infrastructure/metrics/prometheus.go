// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "chunkstream"

var (
	// ChunkEncodesTotal tracks individual segment encode outcomes.
	// Labels:
	//   - quality: 144p ... 720p
	//   - status: success, error
	ChunkEncodesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunk_encodes_total",
			Help:      "Total number of segment encode attempts",
		},
		[]string{"quality", "status"},
	)

	// ChunkEncodeDuration observes how long one segment encode takes.
	ChunkEncodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chunk_encode_duration_seconds",
			Help:      "Duration of individual segment encodes",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		},
		[]string{"quality"},
	)

	// QualityJoinsTotal tracks per-quality join outcomes.
	// Labels:
	//   - quality
	//   - status: success, error
	QualityJoinsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quality_joins_total",
			Help:      "Total number of quality join attempts",
		},
		[]string{"quality", "status"},
	)

	// QualityPublishSeconds observes time from orchestration start to a
	// quality becoming publicly available. The smallest profile's value is
	// the user-visible time-to-first-playable-rendition.
	QualityPublishSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "quality_publish_seconds",
			Help:      "Seconds from dispatch until a quality is published",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		},
		[]string{"quality"},
	)

	// JobsPublishedTotal tracks fan-out volume per queue.
	// Labels:
	//   - queue: orchestrate, chunk_encode
	JobsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_published_total",
			Help:      "Total number of jobs published to the queue",
		},
		[]string{"queue"},
	)

	// VideosProcessedTotal tracks terminal video outcomes.
	// Labels:
	//   - outcome: completed, partial, failed, deleted
	VideosProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "videos_processed_total",
			Help:      "Total number of videos reaching a terminal outcome",
		},
		[]string{"outcome"},
	)

	// SegmentationDuration observes the copy-split phase duration.
	SegmentationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "segmentation_duration_seconds",
			Help:      "Duration of the copy-mode segmentation phase",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 8),
		},
	)

	// CacheOperationsTotal tracks video metadata cache operations.
	// Labels:
	//   - operation: get, set, delete
	//   - status: hit, miss, success, error
	CacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_operations_total",
			Help:      "Total number of cache operations",
		},
		[]string{"operation", "status"},
	)

	// SingleflightRequestsTotal tracks singleflight behavior.
	// Labels:
	//   - result: initiated (new execution), shared (reused result)
	SingleflightRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "singleflight_requests_total",
			Help:      "Total number of singleflight requests",
		},
		[]string{"result"},
	)
)

// Encode/join status constants.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Terminal outcome constants.
const (
	OutcomeCompleted = "completed"
	OutcomePartial   = "partial"
	OutcomeFailed    = "failed"
	OutcomeDeleted   = "deleted"
)

// Queue name constants.
const (
	QueueOrchestrate = "orchestrate"
	QueueChunkEncode = "chunk_encode"
)

// Cache operation status constants.
const (
	CacheStatusHit     = "hit"
	CacheStatusMiss    = "miss"
	CacheStatusSuccess = "success"
	CacheStatusError   = "error"
)

// Cache operation type constants.
const (
	CacheOpGet    = "get"
	CacheOpSet    = "set"
	CacheOpDelete = "delete"
)

// Singleflight result constants.
const (
	SingleflightInitiated = "initiated"
	SingleflightShared    = "shared"
)

package repository

import (
	"context"

	"github.com/google/uuid"
)

// OrchestrateJob is the per-upload orchestration message: one per video,
// processed with low concurrency since segmentation must fully precede
// the chunk fan-out.
type OrchestrateJob struct {
	VideoID      uuid.UUID `json:"video_id"`
	SourcePath   string    `json:"source_path"`
	OriginalName string    `json:"original_name"`
	MimeType     string    `json:"mime_type"`
	RetryCount   int       `json:"retry_count"`
}

// ChunkEncodeJob encodes one (segment, quality) pair. The payload carries
// everything a worker needs so jobs survive the dispatching process.
// Re-running a job overwrites the same deterministic output path, making
// it idempotent per (video, quality, segment index).
type ChunkEncodeJob struct {
	VideoID       uuid.UUID `json:"video_id"`
	Quality       string    `json:"quality"`
	SegmentIndex  int       `json:"segment_index"`
	SegmentPath   string    `json:"segment_path"`
	OutputDir     string    `json:"output_dir"`
	TotalSegments int       `json:"total_segments"`
	RetryCount    int       `json:"retry_count"`
}

// OrchestrateHandler processes one orchestration job. final is true when the
// job has exhausted its retry budget; the handler must then record permanent
// failure instead of doing the work.
type OrchestrateHandler func(job OrchestrateJob, final bool) error

// ChunkEncodeHandler processes one chunk encode job, with the same final
// semantics as OrchestrateHandler.
type ChunkEncodeHandler func(job ChunkEncodeJob, final bool) error

// JobQueue defines the interface for the job queue collaborator.
// Delivery is at-least-once with bounded retries; handlers must be idempotent.
type JobQueue interface {
	// PublishOrchestrateJob enqueues the per-video orchestration job.
	PublishOrchestrateJob(ctx context.Context, job OrchestrateJob) error

	// PublishChunkEncodeJob enqueues one segment x quality encode job.
	PublishChunkEncodeJob(ctx context.Context, job ChunkEncodeJob) error

	// ConsumeOrchestrateJobs consumes orchestration jobs one at a time.
	// Blocks until the context is cancelled or the connection fails.
	ConsumeOrchestrateJobs(ctx context.Context, handler OrchestrateHandler) error

	// ConsumeChunkEncodeJobs consumes chunk jobs with a bounded worker pool.
	// Blocks until the context is cancelled or the connection fails.
	ConsumeChunkEncodeJobs(ctx context.Context, handler ChunkEncodeHandler) error

	// Close gracefully closes the connection to the message queue.
	Close() error
}

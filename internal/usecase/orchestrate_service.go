package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/reelworks/chunkstream/internal/domain/model"
	"github.com/reelworks/chunkstream/internal/domain/repository"
	"github.com/reelworks/chunkstream/internal/infrastructure/metrics"
	"github.com/reelworks/chunkstream/internal/media"
)

// OrchestrateServiceConfig holds configuration for OrchestrateService.
type OrchestrateServiceConfig struct {
	// TempDir is the base directory for pipeline working files. It must be
	// on a volume shared with the chunk encode workers.
	TempDir string
	// SegmentSeconds is the fixed copy-split segment duration.
	SegmentSeconds int
	// MaxHeight caps the largest rendition produced.
	MaxHeight int
	// ThumbnailAtSeconds is the poster frame capture offset.
	ThumbnailAtSeconds float64
}

// DefaultOrchestrateServiceConfig returns the default configuration.
func DefaultOrchestrateServiceConfig() OrchestrateServiceConfig {
	return OrchestrateServiceConfig{
		TempDir:            filepath.Join(os.TempDir(), "chunkstream"),
		SegmentSeconds:     3,
		MaxHeight:          model.DefaultMaxHeight,
		ThumbnailAtSeconds: 1,
	}
}

// OrchestrateService defines the interface for per-video orchestration.
type OrchestrateService interface {
	// ProcessJob handles one orchestration job from the queue.
	// Returns nil on success or permanent failure (job is acked either way).
	// Returns error for transient failures that should trigger a retry.
	// final=true means the retry budget is exhausted; the job is only
	// recorded as failed, no work is attempted.
	ProcessJob(ctx context.Context, job repository.OrchestrateJob, final bool) error
}

type orchestrateService struct {
	repo    repository.VideoRepository
	storage repository.ObjectStorage
	queue   repository.JobQueue
	tracker repository.CompletionTracker
	engine  media.Engine

	cfg OrchestrateServiceConfig
}

// NewOrchestrateService creates a new OrchestrateService instance.
func NewOrchestrateService(
	repo repository.VideoRepository,
	storage repository.ObjectStorage,
	queue repository.JobQueue,
	tracker repository.CompletionTracker,
	engine media.Engine,
	cfg OrchestrateServiceConfig,
) OrchestrateService {
	if cfg.SegmentSeconds <= 0 {
		cfg.SegmentSeconds = 3
	}
	if cfg.MaxHeight <= 0 {
		cfg.MaxHeight = model.DefaultMaxHeight
	}
	return &orchestrateService{
		repo:    repo,
		storage: storage,
		queue:   queue,
		tracker: tracker,
		engine:  engine,
		cfg:     cfg,
	}
}

// ProcessJob probes the upload, publishes the poster frame and the original,
// splits the source into segments, and fans out one encode job per
// (segment, quality) pair.
func (s *orchestrateService) ProcessJob(ctx context.Context, job repository.OrchestrateJob, final bool) error {
	if final {
		slog.Error("orchestration exhausted retries",
			"video_id", job.VideoID,
			"retry_count", job.RetryCount,
		)
		s.failVideo(ctx, job.VideoID)
		s.removeSource(job)
		return nil
	}

	video, err := s.repo.GetByID(ctx, job.VideoID)
	if err != nil {
		return fmt.Errorf("get video: %w", err)
	}

	// Deleted or failed while queued: drop the upload, nothing to do.
	if video.Status.IsTerminal() {
		s.removeSource(job)
		return nil
	}

	probe, err := s.engine.Probe(ctx, job.SourcePath)
	if err != nil {
		// A source that cannot be probed will not probe better on retry.
		slog.Error("source probe failed",
			"video_id", job.VideoID,
			"source", job.SourcePath,
			"error", err,
		)
		s.failVideo(ctx, job.VideoID)
		s.removeSource(job)
		return nil
	}

	info, err := os.Stat(job.SourcePath)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	video.SetProbeMetadata(int(math.Round(probe.DurationSeconds)), probe.Width, probe.Height, info.Size())
	if video.Status == model.StatusPending {
		if err := video.TransitionTo(model.StatusProcessing); err != nil {
			return fmt.Errorf("transition to processing: %w", err)
		}
	}
	if err := s.repo.Update(ctx, video); err != nil {
		return fmt.Errorf("update video metadata: %w", err)
	}

	workDir := filepath.Join(s.cfg.TempDir, job.VideoID.String())
	segmentsDir := filepath.Join(workDir, "segments")
	if err := os.MkdirAll(segmentsDir, 0755); err != nil {
		return fmt.Errorf("create working directory: %w", err)
	}

	// Poster frame and original publish before any encoding so the video is
	// minimally presentable right away. Both are best effort.
	s.publishThumbnail(ctx, video, job.SourcePath, workDir, probe.DurationSeconds)
	s.publishOriginal(ctx, video, job)

	segStart := time.Now()
	segments, err := s.engine.Segment(ctx, job.SourcePath, s.cfg.SegmentSeconds, segmentsDir)
	if err != nil {
		return fmt.Errorf("segment source: %w", err)
	}
	metrics.SegmentationDuration.Observe(time.Since(segStart).Seconds())

	profiles := model.SelectProfiles(probe.Height, s.cfg.MaxHeight)
	qualities := model.QualityNames(profiles)

	if err := s.tracker.Init(ctx, job.VideoID, len(segments), qualities); err != nil {
		return fmt.Errorf("init completion tracker: %w", err)
	}

	encodedDir := filepath.Join(workDir, "encoded")
	// Smallest quality first so the fastest rendition reaches the front of
	// the queue and publishes earliest.
	for _, quality := range qualities {
		for i, segmentPath := range segments {
			chunkJob := repository.ChunkEncodeJob{
				VideoID:       job.VideoID,
				Quality:       quality,
				SegmentIndex:  i,
				SegmentPath:   segmentPath,
				OutputDir:     encodedDir,
				TotalSegments: len(segments),
			}
			if err := s.queue.PublishChunkEncodeJob(ctx, chunkJob); err != nil {
				return fmt.Errorf("publish chunk job %s/%d: %w", quality, i, err)
			}
			metrics.JobsPublishedTotal.WithLabelValues(metrics.QueueChunkEncode).Inc()
		}
	}

	// The segments carry everything the encoders need; the working directory
	// itself must outlive this job.
	_ = os.Remove(job.SourcePath)

	slog.Info("orchestration complete",
		"video_id", job.VideoID,
		"segments", len(segments),
		"qualities", qualities,
		"jobs", len(segments)*len(qualities),
	)
	return nil
}

// publishThumbnail captures and uploads the poster frame. Failures are logged
// and swallowed; a missing thumbnail never blocks the pipeline.
func (s *orchestrateService) publishThumbnail(ctx context.Context, video *model.Video, sourcePath, workDir string, durationSeconds float64) {
	if video.ThumbnailURL != "" {
		return
	}

	at := s.cfg.ThumbnailAtSeconds
	if at >= durationSeconds {
		at = 0
	}

	thumbPath := filepath.Join(workDir, "thumbnail.jpg")
	if err := s.engine.Thumbnail(ctx, sourcePath, at, thumbPath); err != nil {
		slog.Warn("thumbnail capture failed", "video_id", video.ID, "error", err)
		return
	}
	defer func() { _ = os.Remove(thumbPath) }()

	asset, err := s.storage.UploadFile(ctx, thumbPath, repository.FolderThumbnails, "image/jpeg")
	if err != nil {
		slog.Warn("thumbnail upload failed", "video_id", video.ID, "error", err)
		return
	}

	video.SetThumbnailURL(asset.URL)
	if err := s.repo.Update(ctx, video); err != nil {
		slog.Warn("failed to persist thumbnail URL", "video_id", video.ID, "error", err)
	}
}

// publishOriginal uploads the raw source so the video is playable before any
// rendition finishes. Failures are logged and swallowed.
func (s *orchestrateService) publishOriginal(ctx context.Context, video *model.Video, job repository.OrchestrateJob) {
	if video.OriginalURL != "" {
		return
	}

	contentType := job.MimeType
	if contentType == "" {
		contentType = "video/mp4"
	}

	asset, err := s.storage.UploadFile(ctx, job.SourcePath, repository.FolderOriginals, contentType)
	if err != nil {
		slog.Warn("original upload failed", "video_id", video.ID, "error", err)
		return
	}

	video.SetOriginalURL(asset.URL)
	if err := s.repo.Update(ctx, video); err != nil {
		slog.Warn("failed to persist original URL", "video_id", video.ID, "error", err)
	}
}

// failVideo marks the video FAILED unless it already reached a terminal state.
func (s *orchestrateService) failVideo(ctx context.Context, videoID uuid.UUID) {
	if err := markVideoFailed(ctx, s.repo, videoID); err != nil {
		slog.Error("failed to mark video as failed", "video_id", videoID, "error", err)
		return
	}
	metrics.VideosProcessedTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
}

// removeSource deletes the uploaded file and any working directory.
func (s *orchestrateService) removeSource(job repository.OrchestrateJob) {
	_ = os.Remove(job.SourcePath)
	_ = os.RemoveAll(filepath.Join(s.cfg.TempDir, job.VideoID.String()))
}

// markVideoFailed transitions a video to FAILED. Terminal states are left
// untouched and reported as success. The write touches only the status
// column; in-flight workers may still be merging quality URLs into the row.
func markVideoFailed(ctx context.Context, repo repository.VideoRepository, videoID uuid.UUID) error {
	video, err := repo.GetByID(ctx, videoID)
	if err != nil {
		return fmt.Errorf("get video: %w", err)
	}

	if video.Status.IsTerminal() {
		return nil
	}

	if err := repo.UpdateStatus(ctx, videoID, model.StatusFailed); err != nil {
		return fmt.Errorf("update video status: %w", err)
	}

	return nil
}

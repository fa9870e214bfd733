package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/reelworks/chunkstream/internal/domain/model"
	"github.com/reelworks/chunkstream/internal/domain/repository"
	"github.com/reelworks/chunkstream/internal/infrastructure/cache"
	"github.com/reelworks/chunkstream/internal/infrastructure/metrics"
	"github.com/reelworks/chunkstream/internal/media"
)

// ChunkService defines the interface for segment encode workers.
type ChunkService interface {
	// ProcessJob encodes one (segment, quality) pair and, when it completes
	// the quality's segment set, joins and publishes the rendition.
	// Returns nil on success or permanent failure (job is acked either way).
	// Returns error for transient failures that should trigger a retry.
	// final=true means the retry budget is exhausted; the quality is marked
	// failed and the video settled, no encoding is attempted.
	ProcessJob(ctx context.Context, job repository.ChunkEncodeJob, final bool) error
}

type chunkService struct {
	repo    repository.VideoRepository
	storage repository.ObjectStorage
	tracker repository.CompletionTracker
	engine  media.Engine
	joiner  *media.Joiner
	cache   cache.VideoCache
}

// NewChunkService creates a new ChunkService instance.
func NewChunkService(
	repo repository.VideoRepository,
	storage repository.ObjectStorage,
	tracker repository.CompletionTracker,
	engine media.Engine,
	videoCache cache.VideoCache,
) ChunkService {
	return &chunkService{
		repo:    repo,
		storage: storage,
		tracker: tracker,
		engine:  engine,
		joiner:  media.NewJoiner(engine),
		cache:   videoCache,
	}
}

// ProcessJob encodes one segment. The job that completes a quality's segment
// set wins the join claim and assembles and publishes the deliverable; every
// other job stops after its own segment.
func (s *chunkService) ProcessJob(ctx context.Context, job repository.ChunkEncodeJob, final bool) error {
	if final {
		slog.Error("chunk encode exhausted retries",
			"video_id", job.VideoID,
			"quality", job.Quality,
			"segment_index", job.SegmentIndex,
			"retry_count", job.RetryCount,
		)
		s.failQuality(ctx, job)
		return nil
	}

	video, err := s.repo.GetByID(ctx, job.VideoID)
	if err != nil {
		return fmt.Errorf("get video: %w", err)
	}

	// Deleted or failed while this job sat in the queue: skip the work.
	if video.Status.IsTerminal() {
		return nil
	}

	profile, ok := model.ProfileByName(job.Quality)
	if !ok {
		slog.Error("job names unknown quality, discarding",
			"video_id", job.VideoID,
			"quality", job.Quality,
		)
		return nil
	}

	outputPath := s.chunkOutputPath(job)
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("create quality directory: %w", err)
	}

	// Output path is deterministic per (video, quality, index), so a retried
	// job simply overwrites its own previous attempt.
	encodeStart := time.Now()
	if err := s.engine.Transcode(ctx, job.SegmentPath, outputPath, profile); err != nil {
		metrics.ChunkEncodesTotal.WithLabelValues(job.Quality, metrics.StatusError).Inc()
		return fmt.Errorf("transcode segment %d to %s: %w", job.SegmentIndex, job.Quality, err)
	}
	metrics.ChunkEncodesTotal.WithLabelValues(job.Quality, metrics.StatusSuccess).Inc()
	metrics.ChunkEncodeDuration.WithLabelValues(job.Quality).Observe(time.Since(encodeStart).Seconds())

	claimedJoin, err := s.tracker.MarkSegmentComplete(ctx, job.VideoID, job.Quality, job.SegmentIndex)
	if err != nil {
		if errors.Is(err, repository.ErrTrackerNotFound) {
			// Tracker already cleared: the video settled or was deleted.
			return nil
		}
		return fmt.Errorf("mark segment complete: %w", err)
	}

	if !claimedJoin {
		return nil
	}

	if err := s.joinAndPublish(ctx, job, video); err != nil {
		// Give the claim back so the retried job can win it again.
		if relErr := s.tracker.ReleaseJoinClaim(ctx, job.VideoID, job.Quality); relErr != nil {
			slog.Error("failed to release join claim",
				"video_id", job.VideoID,
				"quality", job.Quality,
				"error", relErr,
			)
		}
		metrics.QualityJoinsTotal.WithLabelValues(job.Quality, metrics.StatusError).Inc()
		return err
	}
	metrics.QualityJoinsTotal.WithLabelValues(job.Quality, metrics.StatusSuccess).Inc()
	metrics.QualityPublishSeconds.WithLabelValues(job.Quality).Observe(time.Since(video.CreatedAt).Seconds())

	return s.settleVideo(ctx, job)
}

// joinAndPublish assembles the quality's deliverable, uploads it, records its
// URL and marks the quality joined. Any error leaves the join claim to the
// caller to release.
func (s *chunkService) joinAndPublish(ctx context.Context, job repository.ChunkEncodeJob, video *model.Video) error {
	deliverableDir := filepath.Join(s.workDir(job), "deliverables")

	result, err := s.joiner.JoinQuality(ctx, job.OutputDir, job.Quality, deliverableDir, job.VideoID.String(), job.TotalSegments)
	if err != nil {
		return fmt.Errorf("join %s: %w", job.Quality, err)
	}
	defer func() { _ = os.Remove(result.OutputPath) }()

	folder := path.Join(repository.FolderProcessed, job.Quality)
	asset, err := s.storage.UploadFile(ctx, result.OutputPath, folder, "video/mp4")
	if err != nil {
		return fmt.Errorf("upload %s deliverable: %w", job.Quality, err)
	}

	if err := s.recordPublished(ctx, job, asset.URL); err != nil {
		// The retried job uploads under a fresh key; this object would stay
		// orphaned in the bucket.
		if delErr := s.storage.DeleteByURL(ctx, asset.URL); delErr != nil {
			slog.Warn("failed to remove unpublished deliverable",
				"video_id", job.VideoID,
				"quality", job.Quality,
				"url", asset.URL,
				"error", delErr,
			)
		}
		return err
	}

	s.invalidateCache(ctx, job.VideoID)

	if err := s.joiner.CleanupQuality(job.OutputDir, job.Quality); err != nil {
		slog.Warn("failed to remove encoded chunks",
			"video_id", job.VideoID,
			"quality", job.Quality,
			"error", err,
		)
	}

	slog.Info("quality published",
		"video_id", job.VideoID,
		"quality", job.Quality,
		"size_bytes", asset.Size,
		"url", asset.URL,
	)
	return nil
}

// recordPublished records the rendition URL, promotes the video on its first
// publish and marks the quality joined in the tracker.
func (s *chunkService) recordPublished(ctx context.Context, job repository.ChunkEncodeJob, url string) error {
	if err := s.repo.AddQualityURL(ctx, job.VideoID, job.Quality, url); err != nil {
		return fmt.Errorf("record %s URL: %w", job.Quality, err)
	}

	// First published rendition makes the video watchable.
	if err := s.promoteToReady(ctx, job.VideoID); err != nil {
		return err
	}

	if err := s.tracker.MarkQualityJoined(ctx, job.VideoID, job.Quality); err != nil {
		return fmt.Errorf("mark quality joined: %w", err)
	}
	return nil
}

// promoteToReady transitions PROCESSING to READY. Qualities publishing after
// the first leave the status alone. The write touches only the status column;
// other workers merge their quality URLs into the same row concurrently.
func (s *chunkService) promoteToReady(ctx context.Context, videoID uuid.UUID) error {
	video, err := s.repo.GetByID(ctx, videoID)
	if err != nil {
		return fmt.Errorf("get video: %w", err)
	}
	if video.Status != model.StatusProcessing {
		return nil
	}

	if err := s.repo.UpdateStatus(ctx, videoID, model.StatusReady); err != nil {
		return fmt.Errorf("promote to ready: %w", err)
	}
	return nil
}

// failQuality records a permanently failed quality and settles the video.
// Remaining qualities keep encoding; the video is only failed when none of
// them publishes.
func (s *chunkService) failQuality(ctx context.Context, job repository.ChunkEncodeJob) {
	if err := s.tracker.MarkQualityFailed(ctx, job.VideoID, job.Quality); err != nil {
		if errors.Is(err, repository.ErrTrackerNotFound) {
			return
		}
		slog.Error("failed to mark quality failed",
			"video_id", job.VideoID,
			"quality", job.Quality,
			"error", err,
		)
		return
	}

	if err := s.settleVideo(ctx, job); err != nil {
		slog.Error("failed to settle video after quality failure",
			"video_id", job.VideoID,
			"error", err,
		)
	}
}

// settleVideo finishes the video once every quality reached an outcome:
// all joined is COMPLETED, some joined stays READY, none joined is FAILED.
// Until then it is a no-op.
func (s *chunkService) settleVideo(ctx context.Context, job repository.ChunkEncodeJob) error {
	snapshot, err := s.tracker.Snapshot(ctx, job.VideoID)
	if err != nil {
		if errors.Is(err, repository.ErrTrackerNotFound) {
			return nil
		}
		return fmt.Errorf("tracker snapshot: %w", err)
	}

	if !snapshot.AllSettled() {
		return nil
	}

	switch {
	case snapshot.AllJoined():
		if err := s.completeVideo(ctx, job.VideoID); err != nil {
			return err
		}
		metrics.VideosProcessedTotal.WithLabelValues(metrics.OutcomeCompleted).Inc()
	case snapshot.JoinedCount() > 0:
		// Published renditions exist: the video stays READY with a gap in
		// its quality ladder.
		metrics.VideosProcessedTotal.WithLabelValues(metrics.OutcomePartial).Inc()
		slog.Warn("video settled with missing qualities",
			"video_id", job.VideoID,
			"joined", snapshot.JoinedCount(),
			"tracked", len(snapshot.Qualities),
		)
	default:
		if err := markVideoFailed(ctx, s.repo, job.VideoID); err != nil {
			return err
		}
		metrics.VideosProcessedTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
	}

	if err := s.tracker.Clear(ctx, job.VideoID); err != nil {
		slog.Warn("failed to clear completion tracker", "video_id", job.VideoID, "error", err)
	}
	if err := os.RemoveAll(s.workDir(job)); err != nil {
		slog.Warn("failed to remove working directory", "video_id", job.VideoID, "error", err)
	}
	s.invalidateCache(ctx, job.VideoID)

	return nil
}

// completeVideo transitions READY to COMPLETED. Status-only write, same as
// promoteToReady.
func (s *chunkService) completeVideo(ctx context.Context, videoID uuid.UUID) error {
	video, err := s.repo.GetByID(ctx, videoID)
	if err != nil {
		return fmt.Errorf("get video: %w", err)
	}
	if video.Status != model.StatusReady {
		return nil
	}

	if err := s.repo.UpdateStatus(ctx, videoID, model.StatusCompleted); err != nil {
		return fmt.Errorf("complete video: %w", err)
	}

	slog.Info("video completed", "video_id", videoID)
	return nil
}

func (s *chunkService) invalidateCache(ctx context.Context, videoID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, videoID); err != nil {
		slog.Warn("failed to invalidate video cache", "video_id", videoID, "error", err)
	}
}

// chunkOutputPath is {outputDir}/{quality}/chunk_NNNN_{quality}.ts, matching
// what the joiner sorts on.
func (s *chunkService) chunkOutputPath(job repository.ChunkEncodeJob) string {
	name := fmt.Sprintf("chunk_%04d_%s.ts", job.SegmentIndex, job.Quality)
	return filepath.Join(job.OutputDir, job.Quality, name)
}

// workDir is the per-video working directory, the parent of the encoded
// chunks directory.
func (s *chunkService) workDir(job repository.ChunkEncodeJob) string {
	return filepath.Dir(job.OutputDir)
}

package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/reelworks/chunkstream/internal/domain/model"
	"github.com/reelworks/chunkstream/internal/domain/repository"
	"github.com/reelworks/chunkstream/internal/infrastructure/metrics"
)

// IngestVideoInput contains the input parameters for ingesting a video.
type IngestVideoInput struct {
	UserID uuid.UUID
	// PostID optionally associates the video with a post.
	PostID *uuid.UUID
	Title  string
	// SourcePath is the local path of the uploaded file, on a volume shared
	// with the workers.
	SourcePath   string
	OriginalName string
	MimeType     string
}

// VideoService defines the interface for video business logic operations.
type VideoService interface {
	// IngestVideo creates the video record in PENDING status and enqueues
	// the orchestration job. Processing happens asynchronously; the returned
	// video reflects the initial state.
	IngestVideo(ctx context.Context, input IngestVideoInput) (*model.Video, error)

	// GetVideo retrieves video information by ID.
	GetVideo(ctx context.Context, videoID uuid.UUID) (*model.Video, error)

	// ListUserVideos retrieves a user's videos, newest first.
	ListUserVideos(ctx context.Context, userID uuid.UUID) ([]*model.Video, error)

	// DeleteVideo soft-deletes the video and cleans up its published assets.
	// In-flight pipeline jobs observe the DELETED status and no-op.
	DeleteVideo(ctx context.Context, videoID uuid.UUID) error
}

type videoService struct {
	repo    repository.VideoRepository
	storage repository.ObjectStorage
	queue   repository.JobQueue
	tracker repository.CompletionTracker
}

// NewVideoService creates a new VideoService instance.
func NewVideoService(
	repo repository.VideoRepository,
	storage repository.ObjectStorage,
	queue repository.JobQueue,
	tracker repository.CompletionTracker,
) VideoService {
	return &videoService{
		repo:    repo,
		storage: storage,
		queue:   queue,
		tracker: tracker,
	}
}

// IngestVideo creates the video record and hands the upload to the pipeline.
func (s *videoService) IngestVideo(ctx context.Context, input IngestVideoInput) (*model.Video, error) {
	video, err := model.NewVideo(input.UserID, input.PostID, input.Title)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, video); err != nil {
		return nil, fmt.Errorf("create video: %w", err)
	}

	job := repository.OrchestrateJob{
		VideoID:      video.ID,
		SourcePath:   input.SourcePath,
		OriginalName: input.OriginalName,
		MimeType:     input.MimeType,
	}
	if err := s.queue.PublishOrchestrateJob(ctx, job); err != nil {
		// The record stays PENDING; a reaper or manual requeue can recover it.
		return nil, fmt.Errorf("publish orchestrate job: %w", err)
	}
	metrics.JobsPublishedTotal.WithLabelValues(metrics.QueueOrchestrate).Inc()

	return video, nil
}

// GetVideo retrieves video information by ID.
func (s *videoService) GetVideo(ctx context.Context, videoID uuid.UUID) (*model.Video, error) {
	return s.repo.GetByID(ctx, videoID)
}

// ListUserVideos retrieves a user's videos, newest first.
func (s *videoService) ListUserVideos(ctx context.Context, userID uuid.UUID) ([]*model.Video, error) {
	if userID == uuid.Nil {
		return nil, model.ErrInvalidUserID
	}
	return s.repo.GetByUserID(ctx, userID)
}

// DeleteVideo soft-deletes the video record, then removes its published
// objects and tracker state. Asset cleanup is best effort: the record is
// already DELETED, so orphaned objects only cost storage, not correctness.
func (s *videoService) DeleteVideo(ctx context.Context, videoID uuid.UUID) error {
	video, err := s.repo.GetByID(ctx, videoID)
	if err != nil {
		return err
	}

	if video.Status == model.StatusDeleted {
		return nil
	}

	if err := s.repo.SoftDelete(ctx, videoID); err != nil {
		return fmt.Errorf("soft delete video: %w", err)
	}
	metrics.VideosProcessedTotal.WithLabelValues(metrics.OutcomeDeleted).Inc()

	urls := make([]string, 0, len(video.QualityURLs)+2)
	urls = append(urls, video.ThumbnailURL, video.OriginalURL)
	for _, u := range video.QualityURLs {
		urls = append(urls, u)
	}
	for _, u := range urls {
		if err := s.storage.DeleteByURL(ctx, u); err != nil {
			slog.Warn("failed to delete video asset",
				"video_id", videoID,
				"url", u,
				"error", err,
			)
		}
	}

	if err := s.tracker.Clear(ctx, videoID); err != nil {
		slog.Warn("failed to clear completion tracker",
			"video_id", videoID,
			"error", err,
		)
	}

	return nil
}

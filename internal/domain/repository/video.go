package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/reelworks/chunkstream/internal/domain/model"
)

// VideoRepository defines the interface for video persistence operations.
// Implementations should be provided by the infrastructure layer (e.g., PostgreSQL).
type VideoRepository interface {
	// Create persists a new video entity.
	// Returns error if the video already exists or persistence fails.
	Create(ctx context.Context, video *model.Video) error

	// GetByID retrieves a video by its unique identifier.
	// Soft-deleted videos are still returned so in-flight jobs can observe
	// the DELETED status. Returns ErrVideoNotFound if the video does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Video, error)

	// GetByUserID retrieves all videos owned by a user, newest first.
	// Soft-deleted videos are excluded. Returns an empty slice when the
	// user has no videos.
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]*model.Video, error)

	// Update persists changes to an existing video entity.
	// Returns ErrVideoNotFound if the video does not exist.
	Update(ctx context.Context, video *model.Video) error

	// UpdateStatus updates only the status field of a video.
	// This is optimized for status transitions without full entity update.
	// Returns ErrVideoNotFound if the video does not exist.
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.Status) error

	// AddQualityURL merges one rendition URL into the video's quality map.
	// Safe to call concurrently from multiple workers publishing different
	// qualities of the same video.
	AddQualityURL(ctx context.Context, id uuid.UUID, quality, url string) error

	// SoftDelete marks the video deleted without removing the row.
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

package cache

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/reelworks/chunkstream/internal/domain/model"
)

// VideoCache defines the interface for caching video metadata.
// Get returns (nil, nil) on a cache miss.
type VideoCache interface {
	Get(ctx context.Context, videoID uuid.UUID) (*model.Video, error)
	Set(ctx context.Context, video *model.Video, ttl time.Duration) error
	Delete(ctx context.Context, videoID uuid.UUID) error
}

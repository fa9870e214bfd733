package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/reelworks/chunkstream/internal/domain/model"
	"github.com/reelworks/chunkstream/internal/infrastructure/metrics"
)

const (
	// videoCacheKeyPrefix is the prefix for video cache keys in Redis.
	videoCacheKeyPrefix = "video:"
)

// videoJSON is the JSON representation of a Video for caching.
// Using explicit struct avoids coupling to domain model's JSON tags.
type videoJSON struct {
	ID              string            `json:"id"`
	UserID          string            `json:"user_id"`
	PostID          string            `json:"post_id,omitempty"`
	Title           string            `json:"title"`
	Status          string            `json:"status"`
	DurationSeconds int               `json:"duration_seconds"`
	Width           int               `json:"width"`
	Height          int               `json:"height"`
	ThumbnailURL    string            `json:"thumbnail_url"`
	OriginalURL     string            `json:"original_url"`
	QualityURLs     map[string]string `json:"quality_urls"`
	FileSizeBytes   int64             `json:"file_size_bytes"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// RedisVideoCache implements VideoCache using Redis as the backing store.
type RedisVideoCache struct {
	client *redis.Client
}

// Compile-time verification that RedisVideoCache implements VideoCache.
var _ VideoCache = (*RedisVideoCache)(nil)

// NewRedisVideoCache creates a new Redis-backed video cache.
func NewRedisVideoCache(client *redis.Client) *RedisVideoCache {
	return &RedisVideoCache{
		client: client,
	}
}

// Get retrieves a video from Redis cache.
// Returns nil, nil on cache miss.
func (c *RedisVideoCache) Get(ctx context.Context, videoID uuid.UUID) (*model.Video, error) {
	key := c.buildKey(videoID)

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusMiss).Inc()
			return nil, nil // Cache miss
		}
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusError).Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	video, err := c.deserialize(data)
	if err != nil {
		return nil, fmt.Errorf("deserialize video: %w", err)
	}

	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusHit).Inc()
	return video, nil
}

// Set stores a video in Redis cache with the given TTL.
func (c *RedisVideoCache) Set(ctx context.Context, video *model.Video, ttl time.Duration) error {
	key := c.buildKey(video.ID)

	data, err := c.serialize(video)
	if err != nil {
		return fmt.Errorf("serialize video: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpSet, metrics.CacheStatusError).Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpSet, metrics.CacheStatusSuccess).Inc()
	return nil
}

// Delete removes a video from Redis cache.
// Used for invalidation when video state changes.
func (c *RedisVideoCache) Delete(ctx context.Context, videoID uuid.UUID) error {
	key := c.buildKey(videoID)

	if err := c.client.Del(ctx, key).Err(); err != nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpDelete, metrics.CacheStatusError).Inc()
		return fmt.Errorf("redis del: %w", err)
	}

	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpDelete, metrics.CacheStatusSuccess).Inc()
	return nil
}

func (c *RedisVideoCache) buildKey(videoID uuid.UUID) string {
	return videoCacheKeyPrefix + videoID.String()
}

func (c *RedisVideoCache) serialize(video *model.Video) ([]byte, error) {
	v := videoJSON{
		ID:              video.ID.String(),
		UserID:          video.UserID.String(),
		Title:           video.Title,
		Status:          video.Status.String(),
		DurationSeconds: video.DurationSeconds,
		Width:           video.Width,
		Height:          video.Height,
		ThumbnailURL:    video.ThumbnailURL,
		OriginalURL:     video.OriginalURL,
		QualityURLs:     video.QualityURLs,
		FileSizeBytes:   video.FileSizeBytes,
		CreatedAt:       video.CreatedAt,
		UpdatedAt:       video.UpdatedAt,
	}
	if video.PostID != nil {
		v.PostID = video.PostID.String()
	}
	return json.Marshal(v)
}

func (c *RedisVideoCache) deserialize(data []byte) (*model.Video, error) {
	var v videoJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(v.ID)
	if err != nil {
		return nil, fmt.Errorf("parse video ID: %w", err)
	}
	userID, err := uuid.Parse(v.UserID)
	if err != nil {
		return nil, fmt.Errorf("parse user ID: %w", err)
	}

	video := &model.Video{
		ID:              id,
		UserID:          userID,
		Title:           v.Title,
		Status:          model.Status(v.Status),
		DurationSeconds: v.DurationSeconds,
		Width:           v.Width,
		Height:          v.Height,
		ThumbnailURL:    v.ThumbnailURL,
		OriginalURL:     v.OriginalURL,
		QualityURLs:     v.QualityURLs,
		FileSizeBytes:   v.FileSizeBytes,
		CreatedAt:       v.CreatedAt,
		UpdatedAt:       v.UpdatedAt,
	}
	if video.QualityURLs == nil {
		video.QualityURLs = make(map[string]string)
	}
	if v.PostID != "" {
		postID, err := uuid.Parse(v.PostID)
		if err != nil {
			return nil, fmt.Errorf("parse post ID: %w", err)
		}
		video.PostID = &postID
	}

	return video, nil
}

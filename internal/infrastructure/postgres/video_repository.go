package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/reelworks/chunkstream/internal/domain/model"
	"github.com/reelworks/chunkstream/internal/domain/repository"
)

// DBTX is an interface that abstracts pgxpool.Pool and pgx.Tx for testability.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// VideoRepository implements repository.VideoRepository using PostgreSQL.
type VideoRepository struct {
	db DBTX
}

// NewVideoRepository creates a new VideoRepository instance.
func NewVideoRepository(db DBTX) *VideoRepository {
	return &VideoRepository{db: db}
}

const videoColumns = `id, user_id, post_id, title, status, duration_seconds, width, height,
		thumbnail_url, original_url, quality_urls, file_size_bytes, created_at, updated_at, deleted_at`

// Create persists a new video entity.
func (r *VideoRepository) Create(ctx context.Context, video *model.Video) error {
	const query = `
		INSERT INTO videos (id, user_id, post_id, title, status, duration_seconds, width, height,
			thumbnail_url, original_url, quality_urls, file_size_bytes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	qualityURLs, err := marshalQualityURLs(video.QualityURLs)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, query,
		video.ID,
		video.UserID,
		video.PostID,
		video.Title,
		video.Status.String(),
		video.DurationSeconds,
		video.Width,
		video.Height,
		nullString(video.ThumbnailURL),
		nullString(video.OriginalURL),
		qualityURLs,
		video.FileSizeBytes,
		video.CreatedAt,
		video.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return repository.ErrDuplicateVideo
		}
		return fmt.Errorf("failed to create video: %w", err)
	}

	return nil
}

// GetByID retrieves a video by its unique identifier.
// Soft-deleted rows are returned too: in-flight jobs need to observe DELETED.
func (r *VideoRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE id = $1`

	video, err := scanVideo(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrVideoNotFound
		}
		return nil, fmt.Errorf("failed to get video by ID: %w", err)
	}

	return video, nil
}

// GetByUserID retrieves all live videos owned by a user, newest first.
func (r *VideoRepository) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*model.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE user_id = $1 AND deleted_at IS NULL ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get videos by user ID: %w", err)
	}
	defer rows.Close()

	videos := make([]*model.Video, 0)
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		videos = append(videos, video)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate videos: %w", err)
	}

	return videos, nil
}

// Update persists changes to an existing video entity.
func (r *VideoRepository) Update(ctx context.Context, video *model.Video) error {
	const query = `
		UPDATE videos
		SET title = $2, status = $3, duration_seconds = $4, width = $5, height = $6,
			thumbnail_url = $7, original_url = $8, quality_urls = $9,
			file_size_bytes = $10, updated_at = $11, deleted_at = $12
		WHERE id = $1
	`

	qualityURLs, err := marshalQualityURLs(video.QualityURLs)
	if err != nil {
		return err
	}

	video.UpdatedAt = time.Now()

	tag, err := r.db.Exec(ctx, query,
		video.ID,
		video.Title,
		video.Status.String(),
		video.DurationSeconds,
		video.Width,
		video.Height,
		nullString(video.ThumbnailURL),
		nullString(video.OriginalURL),
		qualityURLs,
		video.FileSizeBytes,
		video.UpdatedAt,
		video.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update video: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return repository.ErrVideoNotFound
	}

	return nil
}

// UpdateStatus updates only the status field of a video.
func (r *VideoRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.Status) error {
	const query = `
		UPDATE videos
		SET status = $2, updated_at = $3
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, id, status.String(), time.Now())
	if err != nil {
		return fmt.Errorf("failed to update video status: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return repository.ErrVideoNotFound
	}

	return nil
}

// AddQualityURL merges one rendition URL into the quality_urls JSONB map.
// The merge happens in SQL so workers publishing different qualities of the
// same video never clobber each other's entries.
func (r *VideoRepository) AddQualityURL(ctx context.Context, id uuid.UUID, quality, url string) error {
	const query = `
		UPDATE videos
		SET quality_urls = COALESCE(quality_urls, '{}'::jsonb) || jsonb_build_object($2::text, $3::text),
			updated_at = $4
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, id, quality, url, time.Now())
	if err != nil {
		return fmt.Errorf("failed to add quality URL: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return repository.ErrVideoNotFound
	}

	return nil
}

// SoftDelete marks the video deleted without removing the row.
func (r *VideoRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	const query = `
		UPDATE videos
		SET status = $2, deleted_at = $3, updated_at = $3
		WHERE id = $1 AND deleted_at IS NULL
	`

	tag, err := r.db.Exec(ctx, query, id, model.StatusDeleted.String(), time.Now())
	if err != nil {
		return fmt.Errorf("failed to soft delete video: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return repository.ErrVideoNotFound
	}

	return nil
}

// scanVideo scans a single row into a Video model.
func scanVideo(row pgx.Row) (*model.Video, error) {
	var (
		video        model.Video
		status       string
		thumbnailURL *string
		originalURL  *string
		qualityURLs  []byte
	)

	err := row.Scan(
		&video.ID,
		&video.UserID,
		&video.PostID,
		&video.Title,
		&status,
		&video.DurationSeconds,
		&video.Width,
		&video.Height,
		&thumbnailURL,
		&originalURL,
		&qualityURLs,
		&video.FileSizeBytes,
		&video.CreatedAt,
		&video.UpdatedAt,
		&video.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	video.Status = model.Status(status)
	if thumbnailURL != nil {
		video.ThumbnailURL = *thumbnailURL
	}
	if originalURL != nil {
		video.OriginalURL = *originalURL
	}
	video.QualityURLs = make(map[string]string)
	if len(qualityURLs) > 0 {
		if err := json.Unmarshal(qualityURLs, &video.QualityURLs); err != nil {
			return nil, fmt.Errorf("failed to decode quality_urls: %w", err)
		}
	}

	return &video, nil
}

// marshalQualityURLs encodes the quality map as JSONB, defaulting to {}.
func marshalQualityURLs(urls map[string]string) ([]byte, error) {
	if urls == nil {
		urls = map[string]string{}
	}
	data, err := json.Marshal(urls)
	if err != nil {
		return nil, fmt.Errorf("failed to encode quality_urls: %w", err)
	}
	return data, nil
}

// nullString returns nil for empty strings, otherwise returns a pointer to the string.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Compile-time verification that VideoRepository implements repository.VideoRepository.
var _ repository.VideoRepository = (*VideoRepository)(nil)

package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/reelworks/chunkstream/internal/domain/model"
	"github.com/reelworks/chunkstream/internal/domain/repository"
	"github.com/reelworks/chunkstream/internal/usecase"
)

// DefaultMaxUploadBytes caps multipart uploads at 2 GiB.
const DefaultMaxUploadBytes = 2 << 30

type VideoResponse struct {
	ID              string            `json:"id"`
	UserID          string            `json:"user_id"`
	PostID          string            `json:"post_id,omitempty"`
	Title           string            `json:"title"`
	Status          string            `json:"status"`
	DurationSeconds int               `json:"duration_seconds,omitempty"`
	Width           int               `json:"width,omitempty"`
	Height          int               `json:"height,omitempty"`
	ThumbnailURL    string            `json:"thumbnail_url,omitempty"`
	OriginalURL     string            `json:"original_url,omitempty"`
	QualityURLs     map[string]string `json:"quality_urls,omitempty"`
	FileSizeBytes   int64             `json:"file_size_bytes,omitempty"`
	CreatedAt       string            `json:"created_at"`
	UpdatedAt       string            `json:"updated_at"`
}

// VideoHandler handles video-related HTTP requests.
type VideoHandler struct {
	svc usecase.VideoService

	// uploadDir receives incoming files; it must be on the volume shared
	// with the workers.
	uploadDir      string
	maxUploadBytes int64
}

// NewVideoHandler creates a new VideoHandler.
func NewVideoHandler(svc usecase.VideoService, uploadDir string, maxUploadBytes int64) *VideoHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &VideoHandler{
		svc:            svc,
		uploadDir:      uploadDir,
		maxUploadBytes: maxUploadBytes,
	}
}

// Ingest handles POST /v1/videos (multipart/form-data).
// Fields: user_id, title, file; optional post_id.
// The upload is spooled to the shared volume and processing continues
// asynchronously; the response carries the PENDING video.
func (h *VideoHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	// 32 MiB in memory, the rest spools to disk.
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		Error(w, http.StatusBadRequest, "invalid_request", "Expected multipart form with a file field")
		return
	}

	userID, err := uuid.Parse(r.FormValue("user_id"))
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid_user_id", "User ID must be a valid UUID")
		return
	}

	var postID *uuid.UUID
	if raw := r.FormValue("post_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			Error(w, http.StatusBadRequest, "invalid_post_id", "Post ID must be a valid UUID")
			return
		}
		postID = &id
	}

	title := r.FormValue("title")
	if title == "" {
		Error(w, http.StatusBadRequest, "invalid_title", "Title is required")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		Error(w, http.StatusBadRequest, "missing_file", "A video file is required")
		return
	}
	defer func() { _ = file.Close() }()

	sourcePath, err := h.spoolUpload(file, header.Filename)
	if err != nil {
		Error(w, http.StatusInternalServerError, "upload_failed", "Failed to store uploaded file")
		return
	}

	video, err := h.svc.IngestVideo(r.Context(), usecase.IngestVideoInput{
		UserID:       userID,
		PostID:       postID,
		Title:        title,
		SourcePath:   sourcePath,
		OriginalName: header.Filename,
		MimeType:     header.Header.Get("Content-Type"),
	})
	if err != nil {
		_ = os.Remove(sourcePath)
		h.handleServiceError(w, err)
		return
	}

	JSON(w, http.StatusAccepted, toVideoResponse(video))
}

// Get handles GET /v1/videos/{id}
func (h *VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	videoID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid_video_id", "Video ID must be a valid UUID")
		return
	}

	video, err := h.svc.GetVideo(r.Context(), videoID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	if video.Status == model.StatusDeleted {
		Error(w, http.StatusNotFound, "video_not_found", "Video not found")
		return
	}

	JSON(w, http.StatusOK, toVideoResponse(video))
}

// List handles GET /v1/users/{userID}/videos
func (h *VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid_user_id", "User ID must be a valid UUID")
		return
	}

	videos, err := h.svc.ListUserVideos(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	resp := make([]VideoResponse, 0, len(videos))
	for _, v := range videos {
		resp = append(resp, toVideoResponse(v))
	}
	JSON(w, http.StatusOK, resp)
}

// Delete handles DELETE /v1/videos/{id}
func (h *VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	videoID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid_video_id", "Video ID must be a valid UUID")
		return
	}

	if err := h.svc.DeleteVideo(r.Context(), videoID); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// spoolUpload writes the multipart file to the shared upload directory under
// a collision-free name.
func (h *VideoHandler) spoolUpload(src io.Reader, originalName string) (string, error) {
	if err := os.MkdirAll(h.uploadDir, 0755); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}

	name := fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), uuid.NewString(), filepath.Ext(originalName))
	dstPath := filepath.Join(h.uploadDir, name)

	dst, err := os.Create(dstPath)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(dstPath)
		return "", fmt.Errorf("write upload file: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(dstPath)
		return "", fmt.Errorf("close upload file: %w", err)
	}

	return dstPath, nil
}

func (h *VideoHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrVideoNotFound):
		Error(w, http.StatusNotFound, "video_not_found", "Video not found")
	case errors.Is(err, model.ErrInvalidUserID):
		Error(w, http.StatusBadRequest, "invalid_user_id", "User ID cannot be empty")
	case errors.Is(err, model.ErrEmptyTitle):
		Error(w, http.StatusBadRequest, "invalid_title", "Title cannot be empty")
	case errors.Is(err, model.ErrTitleTooLong):
		Error(w, http.StatusBadRequest, "invalid_title", "Title exceeds maximum length")
	case errors.Is(err, model.ErrInvalidTransition):
		Error(w, http.StatusConflict, "invalid_state", "Video is not in a state that allows this operation")
	default:
		Error(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

func toVideoResponse(v *model.Video) VideoResponse {
	resp := VideoResponse{
		ID:              v.ID.String(),
		UserID:          v.UserID.String(),
		Title:           v.Title,
		Status:          v.Status.String(),
		DurationSeconds: v.DurationSeconds,
		Width:           v.Width,
		Height:          v.Height,
		ThumbnailURL:    v.ThumbnailURL,
		OriginalURL:     v.OriginalURL,
		QualityURLs:     v.QualityURLs,
		FileSizeBytes:   v.FileSizeBytes,
		CreatedAt:       v.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       v.UpdatedAt.Format(time.RFC3339),
	}
	if v.PostID != nil {
		resp.PostID = v.PostID.String()
	}
	return resp
}

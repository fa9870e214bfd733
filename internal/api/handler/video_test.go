package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/reelworks/chunkstream/internal/domain/model"
	"github.com/reelworks/chunkstream/internal/domain/repository"
	"github.com/reelworks/chunkstream/internal/usecase"
)

// Mock VideoService

type mockVideoService struct {
	ingestVideoFn func(ctx context.Context, input usecase.IngestVideoInput) (*model.Video, error)
	getVideoFn    func(ctx context.Context, videoID uuid.UUID) (*model.Video, error)
	listVideosFn  func(ctx context.Context, userID uuid.UUID) ([]*model.Video, error)
	deleteVideoFn func(ctx context.Context, videoID uuid.UUID) error
}

func (m *mockVideoService) IngestVideo(ctx context.Context, input usecase.IngestVideoInput) (*model.Video, error) {
	if m.ingestVideoFn != nil {
		return m.ingestVideoFn(ctx, input)
	}
	return nil, nil
}

func (m *mockVideoService) GetVideo(ctx context.Context, videoID uuid.UUID) (*model.Video, error) {
	if m.getVideoFn != nil {
		return m.getVideoFn(ctx, videoID)
	}
	return nil, repository.ErrVideoNotFound
}

func (m *mockVideoService) ListUserVideos(ctx context.Context, userID uuid.UUID) ([]*model.Video, error) {
	if m.listVideosFn != nil {
		return m.listVideosFn(ctx, userID)
	}
	return []*model.Video{}, nil
}

func (m *mockVideoService) DeleteVideo(ctx context.Context, videoID uuid.UUID) error {
	if m.deleteVideoFn != nil {
		return m.deleteVideoFn(ctx, videoID)
	}
	return nil
}

func newTestRouter(svc usecase.VideoService, uploadDir string) *chi.Mux {
	h := NewVideoHandler(svc, uploadDir, 0)
	r := chi.NewRouter()
	r.Post("/v1/videos", h.Ingest)
	r.Get("/v1/videos/{id}", h.Get)
	r.Delete("/v1/videos/{id}", h.Delete)
	r.Get("/v1/users/{userID}/videos", h.List)
	return r
}

// multipartUpload builds a multipart body with the given form fields and one
// file field carrying fileContent.
func multipartUpload(t *testing.T, fields map[string]string, fileName, fileContent string) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("write field %s: %v", key, err)
		}
	}
	if fileName != "" {
		part, err := writer.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatalf("create file part: %v", err)
		}
		if _, err := io.WriteString(part, fileContent); err != nil {
			t.Fatalf("write file part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func TestVideoHandler_Ingest(t *testing.T) {
	userID := uuid.New()
	postID := uuid.New()

	tests := []struct {
		name           string
		fields         map[string]string
		fileName       string
		setupMock      func(m *mockVideoService)
		wantStatusCode int
		checkResponse  func(t *testing.T, body []byte)
	}{
		{
			name: "successful ingest",
			fields: map[string]string{
				"user_id": userID.String(),
				"post_id": postID.String(),
				"title":   "Test Video",
			},
			fileName: "video.mp4",
			setupMock: func(m *mockVideoService) {
				m.ingestVideoFn = func(ctx context.Context, input usecase.IngestVideoInput) (*model.Video, error) {
					if input.UserID != userID {
						t.Errorf("user ID: got %s, want %s", input.UserID, userID)
					}
					if input.PostID == nil || *input.PostID != postID {
						t.Errorf("post ID: got %v, want %s", input.PostID, postID)
					}
					if input.OriginalName != "video.mp4" {
						t.Errorf("original name: got %s", input.OriginalName)
					}
					// The upload must already be spooled to disk when the
					// service is invoked.
					if _, err := os.Stat(input.SourcePath); err != nil {
						t.Errorf("source path %s not on disk: %v", input.SourcePath, err)
					}
					video, _ := model.NewVideo(input.UserID, input.PostID, input.Title)
					return video, nil
				}
			},
			wantStatusCode: http.StatusAccepted,
			checkResponse: func(t *testing.T, body []byte) {
				var resp VideoResponse
				if err := json.Unmarshal(body, &resp); err != nil {
					t.Fatalf("failed to unmarshal response: %v", err)
				}
				if resp.Status != "PENDING" {
					t.Errorf("status: got %s, want PENDING", resp.Status)
				}
				if resp.Title != "Test Video" {
					t.Errorf("title: got %s", resp.Title)
				}
			},
		},
		{
			name: "invalid user ID",
			fields: map[string]string{
				"user_id": "not-a-uuid",
				"title":   "Test Video",
			},
			fileName:       "video.mp4",
			setupMock:      func(m *mockVideoService) {},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "invalid post ID",
			fields: map[string]string{
				"user_id": userID.String(),
				"post_id": "not-a-uuid",
				"title":   "Test Video",
			},
			fileName:       "video.mp4",
			setupMock:      func(m *mockVideoService) {},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "empty title",
			fields: map[string]string{
				"user_id": userID.String(),
				"title":   "",
			},
			fileName:       "video.mp4",
			setupMock:      func(m *mockVideoService) {},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "missing file",
			fields: map[string]string{
				"user_id": userID.String(),
				"title":   "Test Video",
			},
			setupMock:      func(m *mockVideoService) {},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "service validation error",
			fields: map[string]string{
				"user_id": userID.String(),
				"title":   "Test Video",
			},
			fileName: "video.mp4",
			setupMock: func(m *mockVideoService) {
				m.ingestVideoFn = func(ctx context.Context, input usecase.IngestVideoInput) (*model.Video, error) {
					return nil, model.ErrTitleTooLong
				}
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "service internal error",
			fields: map[string]string{
				"user_id": userID.String(),
				"title":   "Test Video",
			},
			fileName: "video.mp4",
			setupMock: func(m *mockVideoService) {
				m.ingestVideoFn = func(ctx context.Context, input usecase.IngestVideoInput) (*model.Video, error) {
					return nil, context.DeadlineExceeded
				}
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockVideoService{}
			tt.setupMock(svc)
			router := newTestRouter(svc, t.TempDir())

			body, contentType := multipartUpload(t, tt.fields, tt.fileName, "fake video bytes")
			req := httptest.NewRequest(http.MethodPost, "/v1/videos", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatusCode {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.wantStatusCode, rec.Body.String())
			}
			if tt.checkResponse != nil {
				tt.checkResponse(t, rec.Body.Bytes())
			}
		})
	}
}

func TestVideoHandler_Ingest_CleansSpoolOnServiceError(t *testing.T) {
	uploadDir := t.TempDir()
	var spooledPath string
	svc := &mockVideoService{
		ingestVideoFn: func(ctx context.Context, input usecase.IngestVideoInput) (*model.Video, error) {
			spooledPath = input.SourcePath
			return nil, model.ErrTitleTooLong
		},
	}
	router := newTestRouter(svc, uploadDir)

	body, contentType := multipartUpload(t, map[string]string{
		"user_id": uuid.New().String(),
		"title":   "Test Video",
	}, "video.mp4", "fake video bytes")
	req := httptest.NewRequest(http.MethodPost, "/v1/videos", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if spooledPath == "" {
		t.Fatal("service was not invoked")
	}
	if _, err := os.Stat(spooledPath); !os.IsNotExist(err) {
		t.Error("spooled upload should be removed when the service rejects it")
	}
}

func TestVideoHandler_Get(t *testing.T) {
	videoID := uuid.New()

	tests := []struct {
		name           string
		path           string
		setupMock      func(m *mockVideoService)
		wantStatusCode int
		checkResponse  func(t *testing.T, body []byte)
	}{
		{
			name: "successful retrieval",
			path: "/v1/videos/" + videoID.String(),
			setupMock: func(m *mockVideoService) {
				m.getVideoFn = func(ctx context.Context, id uuid.UUID) (*model.Video, error) {
					return &model.Video{
						ID:     id,
						UserID: uuid.New(),
						Title:  "Test Video",
						Status: model.StatusReady,
						QualityURLs: map[string]string{
							"144p": "https://cdn.example.com/processed/144p/v.mp4",
						},
						CreatedAt: time.Now(),
						UpdatedAt: time.Now(),
					}, nil
				}
			},
			wantStatusCode: http.StatusOK,
			checkResponse: func(t *testing.T, body []byte) {
				var resp VideoResponse
				if err := json.Unmarshal(body, &resp); err != nil {
					t.Fatalf("failed to unmarshal response: %v", err)
				}
				if resp.ID != videoID.String() {
					t.Errorf("ID: got %s, want %s", resp.ID, videoID)
				}
				if resp.QualityURLs["144p"] == "" {
					t.Error("quality URLs should be included")
				}
			},
		},
		{
			name:           "invalid video ID",
			path:           "/v1/videos/not-a-uuid",
			setupMock:      func(m *mockVideoService) {},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "video not found",
			path: "/v1/videos/" + videoID.String(),
			setupMock: func(m *mockVideoService) {
				m.getVideoFn = func(ctx context.Context, id uuid.UUID) (*model.Video, error) {
					return nil, repository.ErrVideoNotFound
				}
			},
			wantStatusCode: http.StatusNotFound,
		},
		{
			name: "deleted video reads as not found",
			path: "/v1/videos/" + videoID.String(),
			setupMock: func(m *mockVideoService) {
				m.getVideoFn = func(ctx context.Context, id uuid.UUID) (*model.Video, error) {
					return &model.Video{ID: id, Status: model.StatusDeleted}, nil
				}
			},
			wantStatusCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockVideoService{}
			tt.setupMock(svc)
			router := newTestRouter(svc, t.TempDir())

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatusCode {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.wantStatusCode, rec.Body.String())
			}
			if tt.checkResponse != nil {
				tt.checkResponse(t, rec.Body.Bytes())
			}
		})
	}
}

func TestVideoHandler_List(t *testing.T) {
	userID := uuid.New()

	t.Run("returns the user's videos", func(t *testing.T) {
		svc := &mockVideoService{
			listVideosFn: func(ctx context.Context, id uuid.UUID) ([]*model.Video, error) {
				if id != userID {
					t.Errorf("user ID: got %s, want %s", id, userID)
				}
				return []*model.Video{
					{ID: uuid.New(), UserID: id, Title: "Newest", Status: model.StatusCompleted},
					{ID: uuid.New(), UserID: id, Title: "Oldest", Status: model.StatusReady},
				}, nil
			},
		}
		router := newTestRouter(svc, t.TempDir())

		req := httptest.NewRequest(http.MethodGet, "/v1/users/"+userID.String()+"/videos", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
		}

		var resp []VideoResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
		if len(resp) != 2 {
			t.Fatalf("got %d videos, want 2", len(resp))
		}
		if resp[0].Title != "Newest" {
			t.Errorf("order: got %s first, want Newest", resp[0].Title)
		}
	})

	t.Run("empty list is a JSON array", func(t *testing.T) {
		router := newTestRouter(&mockVideoService{}, t.TempDir())

		req := httptest.NewRequest(http.MethodGet, "/v1/users/"+userID.String()+"/videos", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
			t.Errorf("body = %s, want []", body)
		}
	})

	t.Run("invalid user ID", func(t *testing.T) {
		router := newTestRouter(&mockVideoService{}, t.TempDir())

		req := httptest.NewRequest(http.MethodGet, "/v1/users/not-a-uuid/videos", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestVideoHandler_Delete(t *testing.T) {
	videoID := uuid.New()

	tests := []struct {
		name           string
		path           string
		setupMock      func(m *mockVideoService)
		wantStatusCode int
	}{
		{
			name: "successful deletion",
			path: "/v1/videos/" + videoID.String(),
			setupMock: func(m *mockVideoService) {
				m.deleteVideoFn = func(ctx context.Context, id uuid.UUID) error {
					if id != videoID {
						t.Errorf("video ID: got %s, want %s", id, videoID)
					}
					return nil
				}
			},
			wantStatusCode: http.StatusNoContent,
		},
		{
			name:           "invalid video ID",
			path:           "/v1/videos/not-a-uuid",
			setupMock:      func(m *mockVideoService) {},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "video not found",
			path: "/v1/videos/" + videoID.String(),
			setupMock: func(m *mockVideoService) {
				m.deleteVideoFn = func(ctx context.Context, id uuid.UUID) error {
					return repository.ErrVideoNotFound
				}
			},
			wantStatusCode: http.StatusNotFound,
		},
		{
			name: "failed video cannot be deleted",
			path: "/v1/videos/" + videoID.String(),
			setupMock: func(m *mockVideoService) {
				m.deleteVideoFn = func(ctx context.Context, id uuid.UUID) error {
					return model.ErrInvalidTransition
				}
			},
			wantStatusCode: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockVideoService{}
			tt.setupMock(svc)
			router := newTestRouter(svc, t.TempDir())

			req := httptest.NewRequest(http.MethodDelete, tt.path, nil)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatusCode {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.wantStatusCode, rec.Body.String())
			}
		})
	}
}

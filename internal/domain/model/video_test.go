package model

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNewVideo(t *testing.T) {
	userID := uuid.New()
	postID := uuid.New()

	tests := []struct {
		name    string
		userID  uuid.UUID
		postID  *uuid.UUID
		title   string
		wantErr error
	}{
		{
			name:   "valid video",
			userID: userID,
			title:  "My Video",
		},
		{
			name:   "valid video with post",
			userID: userID,
			postID: &postID,
			title:  "My Video",
		},
		{
			name:    "nil user ID",
			userID:  uuid.Nil,
			title:   "My Video",
			wantErr: ErrInvalidUserID,
		},
		{
			name:    "empty title",
			userID:  userID,
			title:   "",
			wantErr: ErrEmptyTitle,
		},
		{
			name:    "title too long",
			userID:  userID,
			title:   strings.Repeat("a", 256),
			wantErr: ErrTitleTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			video, err := NewVideo(tt.userID, tt.postID, tt.title)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if video.Status != StatusPending {
				t.Errorf("status: got %s, expected %s", video.Status, StatusPending)
			}
			if video.ID == uuid.Nil {
				t.Error("ID should be generated")
			}
			if video.QualityURLs == nil {
				t.Error("quality URL map should be initialized")
			}
		})
	}
}

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
		want bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusPending, StatusFailed, true},
		{StatusPending, StatusDeleted, true},
		{StatusPending, StatusReady, false},
		{StatusPending, StatusCompleted, false},
		{StatusProcessing, StatusReady, true},
		{StatusProcessing, StatusFailed, true},
		{StatusProcessing, StatusCompleted, false},
		{StatusReady, StatusCompleted, true},
		{StatusReady, StatusFailed, true},
		{StatusReady, StatusDeleted, true},
		{StatusReady, StatusProcessing, false},
		{StatusCompleted, StatusDeleted, true},
		{StatusCompleted, StatusFailed, false},
		{StatusFailed, StatusProcessing, false},
		{StatusFailed, StatusDeleted, false},
		{StatusDeleted, StatusPending, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("%s -> %s: got %v, expected %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	terminal := map[Status]bool{
		StatusPending:    false,
		StatusProcessing: false,
		StatusReady:      false,
		StatusCompleted:  false,
		StatusFailed:     true,
		StatusDeleted:    true,
	}
	for status, want := range terminal {
		if got := status.IsTerminal(); got != want {
			t.Errorf("%s.IsTerminal(): got %v, expected %v", status, got, want)
		}
	}
}

func TestVideo_TransitionTo(t *testing.T) {
	video, err := NewVideo(uuid.New(), nil, "Test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := video.TransitionTo(StatusReady); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("PENDING -> READY should be rejected, got %v", err)
	}
	if err := video.TransitionTo(StatusProcessing); err != nil {
		t.Fatalf("PENDING -> PROCESSING: %v", err)
	}
	if err := video.TransitionTo(StatusReady); err != nil {
		t.Fatalf("PROCESSING -> READY: %v", err)
	}
	if err := video.TransitionTo(StatusCompleted); err != nil {
		t.Fatalf("READY -> COMPLETED: %v", err)
	}
	if err := video.TransitionTo(Status("BOGUS")); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("invalid status should be rejected, got %v", err)
	}
}

func TestVideo_SoftDelete(t *testing.T) {
	video, err := NewVideo(uuid.New(), nil, "Test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := video.SoftDelete(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if video.Status != StatusDeleted {
		t.Errorf("status: got %s, expected %s", video.Status, StatusDeleted)
	}
	if video.DeletedAt == nil {
		t.Error("DeletedAt should be set")
	}

	// Idempotent
	if err := video.SoftDelete(); err != nil {
		t.Errorf("repeated soft delete should be a no-op, got %v", err)
	}
}

func TestVideo_SoftDelete_FailedVideo(t *testing.T) {
	video := &Video{ID: uuid.New(), Status: StatusFailed}
	if err := video.SoftDelete(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("FAILED videos cannot be deleted, got %v", err)
	}
}

func TestVideo_AddQualityURL(t *testing.T) {
	video := &Video{ID: uuid.New(), Status: StatusProcessing}

	video.AddQualityURL("144p", "https://cdn.example.com/a.mp4")
	video.AddQualityURL("360p", "https://cdn.example.com/b.mp4")

	if len(video.QualityURLs) != 2 {
		t.Fatalf("quality URLs: got %d entries, expected 2", len(video.QualityURLs))
	}
	if video.QualityURLs["144p"] != "https://cdn.example.com/a.mp4" {
		t.Errorf("144p URL: got %s", video.QualityURLs["144p"])
	}
}

func TestVideo_IsWatchable(t *testing.T) {
	for _, tt := range []struct {
		status Status
		want   bool
	}{
		{StatusPending, false},
		{StatusProcessing, false},
		{StatusReady, true},
		{StatusCompleted, true},
		{StatusFailed, false},
		{StatusDeleted, false},
	} {
		video := &Video{Status: tt.status}
		if got := video.IsWatchable(); got != tt.want {
			t.Errorf("%s: got %v, expected %v", tt.status, got, tt.want)
		}
	}
}

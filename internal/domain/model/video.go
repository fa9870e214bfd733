package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status represents the processing state of a video.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusReady      Status = "READY"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	StatusDeleted    Status = "DELETED"
)

// Valid status transitions:
// PENDING -> PROCESSING -> READY -> COMPLETED
// FAILED and DELETED are reachable from any non-terminal state and absorbing.
var validTransitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusFailed, StatusDeleted},
	StatusProcessing: {StatusReady, StatusFailed, StatusDeleted},
	StatusReady:      {StatusCompleted, StatusFailed, StatusDeleted},
	StatusCompleted:  {StatusDeleted},
	StatusFailed:     {},
	StatusDeleted:    {},
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusReady, StatusCompleted, StatusFailed, StatusDeleted:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further pipeline work should happen for a
// video in this status. Late chunk completions must no-op on terminal statuses.
func (s Status) IsTerminal() bool {
	return s == StatusFailed || s == StatusDeleted
}

func (s Status) CanTransitionTo(next Status) bool {
	allowed, exists := validTransitions[s]
	if !exists {
		return false
	}
	for _, status := range allowed {
		if status == next {
			return true
		}
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// Video represents a video entity in the domain.
// QualityURLs fills in progressively: each joined quality adds one entry,
// possibly long before the remaining qualities finish encoding.
type Video struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	PostID          *uuid.UUID
	Title           string
	Status          Status
	DurationSeconds int
	Width           int
	Height          int
	ThumbnailURL    string
	OriginalURL     string
	QualityURLs     map[string]string
	FileSizeBytes   int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeletedAt       *time.Time
}

var (
	ErrEmptyTitle        = errors.New("title cannot be empty")
	ErrInvalidUserID     = errors.New("user ID cannot be nil")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrTitleTooLong      = errors.New("title exceeds maximum length of 255 characters")
)

const maxTitleLength = 255

// NewVideo creates a new Video in PENDING status.
func NewVideo(userID uuid.UUID, postID *uuid.UUID, title string) (*Video, error) {
	if userID == uuid.Nil {
		return nil, ErrInvalidUserID
	}
	if title == "" {
		return nil, ErrEmptyTitle
	}
	if len(title) > maxTitleLength {
		return nil, ErrTitleTooLong
	}

	now := time.Now()
	return &Video{
		ID:          uuid.New(),
		UserID:      userID,
		PostID:      postID,
		Title:       title,
		Status:      StatusPending,
		QualityURLs: make(map[string]string),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// TransitionTo attempts to change the video status.
// Returns error if the transition is not allowed.
func (v *Video) TransitionTo(next Status) error {
	if !next.IsValid() {
		return ErrInvalidTransition
	}
	if !v.Status.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	v.Status = next
	v.UpdatedAt = time.Now()
	return nil
}

// SetProbeMetadata records the probed source characteristics.
func (v *Video) SetProbeMetadata(durationSeconds, width, height int, fileSizeBytes int64) {
	v.DurationSeconds = durationSeconds
	v.Width = width
	v.Height = height
	v.FileSizeBytes = fileSizeBytes
	v.UpdatedAt = time.Now()
}

// SetThumbnailURL sets the thumbnail URL once the poster frame is published.
func (v *Video) SetThumbnailURL(url string) {
	v.ThumbnailURL = url
	v.UpdatedAt = time.Now()
}

// SetOriginalURL sets the URL of the raw upload published for instant playback.
func (v *Video) SetOriginalURL(url string) {
	v.OriginalURL = url
	v.UpdatedAt = time.Now()
}

// AddQualityURL records the public URL of one joined quality rendition.
func (v *Video) AddQualityURL(quality, url string) {
	if v.QualityURLs == nil {
		v.QualityURLs = make(map[string]string)
	}
	v.QualityURLs[quality] = url
	v.UpdatedAt = time.Now()
}

// SoftDelete marks the video as deleted. The record is kept so in-flight
// jobs can observe the terminal status and no-op.
func (v *Video) SoftDelete() error {
	if v.Status == StatusDeleted {
		return nil
	}
	if !v.Status.CanTransitionTo(StatusDeleted) {
		return ErrInvalidTransition
	}
	now := time.Now()
	v.Status = StatusDeleted
	v.DeletedAt = &now
	v.UpdatedAt = now
	return nil
}

// IsWatchable returns true if at least one rendition is published.
func (v *Video) IsWatchable() bool {
	return v.Status == StatusReady || v.Status == StatusCompleted
}

// IsFailed returns true if the video processing failed.
func (v *Video) IsFailed() bool {
	return v.Status == StatusFailed
}

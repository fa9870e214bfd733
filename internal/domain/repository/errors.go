package repository

import "errors"

var (
	// ErrVideoNotFound is returned when a video cannot be found.
	ErrVideoNotFound = errors.New("video not found")

	// ErrDuplicateVideo is returned when attempting to create a video that already exists.
	ErrDuplicateVideo = errors.New("video already exists")

	// ErrObjectNotFound is returned when a storage object does not exist.
	ErrObjectNotFound = errors.New("object not found")

	// ErrBucketNotFound is returned when the configured bucket does not exist.
	ErrBucketNotFound = errors.New("bucket not found")

	// ErrTrackerNotFound is returned when no completion tracker exists for a video.
	ErrTrackerNotFound = errors.New("completion tracker not found")

	// ErrUnknownQuality is returned when a tracker operation names a quality
	// that was never initialized for the video.
	ErrUnknownQuality = errors.New("quality not tracked for video")
)

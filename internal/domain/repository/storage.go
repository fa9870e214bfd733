package repository

import (
	"context"
	"io"
)

// Asset describes one uploaded storage object.
type Asset struct {
	// URL is the stable public URL (CDN host when configured).
	URL string
	// Key is the object path within the bucket, kept for later deletion.
	Key string
	// Size is the object size in bytes.
	Size int64
}

// Storage folder categories. Keys are built as {folder}/{timestamp}-{uuid}{ext}.
const (
	FolderThumbnails = "videos/thumbnails"
	FolderOriginals  = "videos/originals"
	FolderProcessed  = "videos/processed" // per-quality subfolder appended
)

// ObjectStorage defines the interface for durable object storage.
// Implementations should be provided by the infrastructure layer (e.g., MinIO, S3).
type ObjectStorage interface {
	// UploadFile streams a local file into the given folder and returns its
	// public asset. The file is never buffered whole in memory.
	UploadFile(ctx context.Context, localPath, folder, contentType string) (*Asset, error)

	// Upload stores an object from a reader under an explicit key.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// Download retrieves an object from the storage.
	// Caller is responsible for closing the returned ReadCloser.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// DeleteByURL removes the object behind a previously returned public URL.
	// Deleting a missing object is not an error: already-gone is fine.
	DeleteByURL(ctx context.Context, url string) error

	// Exists checks if an object exists in the storage.
	Exists(ctx context.Context, key string) (bool, error)
}

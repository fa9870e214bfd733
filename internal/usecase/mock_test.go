package usecase

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/reelworks/chunkstream/internal/domain/model"
	"github.com/reelworks/chunkstream/internal/domain/repository"
	"github.com/reelworks/chunkstream/internal/media"
)

// mockVideoRepository provides a configurable mock for VideoRepository.
type mockVideoRepository struct {
	createFn        func(ctx context.Context, video *model.Video) error
	getByIDFn       func(ctx context.Context, id uuid.UUID) (*model.Video, error)
	getByUserIDFn   func(ctx context.Context, userID uuid.UUID) ([]*model.Video, error)
	updateFn        func(ctx context.Context, video *model.Video) error
	updateStatusFn  func(ctx context.Context, id uuid.UUID, status model.Status) error
	addQualityURLFn func(ctx context.Context, id uuid.UUID, quality, url string) error
	softDeleteFn    func(ctx context.Context, id uuid.UUID) error
}

func (m *mockVideoRepository) Create(ctx context.Context, video *model.Video) error {
	if m.createFn != nil {
		return m.createFn(ctx, video)
	}
	return nil
}

func (m *mockVideoRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Video, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, repository.ErrVideoNotFound
}

func (m *mockVideoRepository) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*model.Video, error) {
	if m.getByUserIDFn != nil {
		return m.getByUserIDFn(ctx, userID)
	}
	return []*model.Video{}, nil
}

func (m *mockVideoRepository) Update(ctx context.Context, video *model.Video) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, video)
	}
	return nil
}

func (m *mockVideoRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.Status) error {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, id, status)
	}
	return nil
}

func (m *mockVideoRepository) AddQualityURL(ctx context.Context, id uuid.UUID, quality, url string) error {
	if m.addQualityURLFn != nil {
		return m.addQualityURLFn(ctx, id, quality, url)
	}
	return nil
}

func (m *mockVideoRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	if m.softDeleteFn != nil {
		return m.softDeleteFn(ctx, id)
	}
	return nil
}

// mockObjectStorage provides a configurable mock for ObjectStorage.
type mockObjectStorage struct {
	uploadFileFn  func(ctx context.Context, localPath, folder, contentType string) (*repository.Asset, error)
	uploadFn      func(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	downloadFn    func(ctx context.Context, key string) (io.ReadCloser, error)
	deleteByURLFn func(ctx context.Context, url string) error
	existsFn      func(ctx context.Context, key string) (bool, error)
}

func (m *mockObjectStorage) UploadFile(ctx context.Context, localPath, folder, contentType string) (*repository.Asset, error) {
	if m.uploadFileFn != nil {
		return m.uploadFileFn(ctx, localPath, folder, contentType)
	}
	return &repository.Asset{URL: "https://cdn.example.com/" + folder + "/object", Key: folder + "/object"}, nil
}

func (m *mockObjectStorage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	if m.uploadFn != nil {
		return m.uploadFn(ctx, key, reader, size, contentType)
	}
	return nil
}

func (m *mockObjectStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	if m.downloadFn != nil {
		return m.downloadFn(ctx, key)
	}
	return nil, repository.ErrObjectNotFound
}

func (m *mockObjectStorage) DeleteByURL(ctx context.Context, url string) error {
	if m.deleteByURLFn != nil {
		return m.deleteByURLFn(ctx, url)
	}
	return nil
}

func (m *mockObjectStorage) Exists(ctx context.Context, key string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, key)
	}
	return false, nil
}

// mockJobQueue provides a configurable mock for JobQueue.
type mockJobQueue struct {
	publishOrchestrateFn func(ctx context.Context, job repository.OrchestrateJob) error
	publishChunkFn       func(ctx context.Context, job repository.ChunkEncodeJob) error
}

func (m *mockJobQueue) PublishOrchestrateJob(ctx context.Context, job repository.OrchestrateJob) error {
	if m.publishOrchestrateFn != nil {
		return m.publishOrchestrateFn(ctx, job)
	}
	return nil
}

func (m *mockJobQueue) PublishChunkEncodeJob(ctx context.Context, job repository.ChunkEncodeJob) error {
	if m.publishChunkFn != nil {
		return m.publishChunkFn(ctx, job)
	}
	return nil
}

func (m *mockJobQueue) ConsumeOrchestrateJobs(ctx context.Context, handler repository.OrchestrateHandler) error {
	return nil
}

func (m *mockJobQueue) ConsumeChunkEncodeJobs(ctx context.Context, handler repository.ChunkEncodeHandler) error {
	return nil
}

func (m *mockJobQueue) Close() error {
	return nil
}

// mockTracker provides a configurable mock for CompletionTracker.
type mockTracker struct {
	initFn              func(ctx context.Context, videoID uuid.UUID, totalSegments int, qualities []string) error
	markSegmentFn       func(ctx context.Context, videoID uuid.UUID, quality string, index int) (bool, error)
	releaseJoinClaimFn  func(ctx context.Context, videoID uuid.UUID, quality string) error
	markQualityJoinedFn func(ctx context.Context, videoID uuid.UUID, quality string) error
	markQualityFailedFn func(ctx context.Context, videoID uuid.UUID, quality string) error
	isQualityCompleteFn func(ctx context.Context, videoID uuid.UUID, quality string) (bool, error)
	snapshotFn          func(ctx context.Context, videoID uuid.UUID) (*repository.TrackerSnapshot, error)
	clearFn             func(ctx context.Context, videoID uuid.UUID) error
}

func (m *mockTracker) Init(ctx context.Context, videoID uuid.UUID, totalSegments int, qualities []string) error {
	if m.initFn != nil {
		return m.initFn(ctx, videoID, totalSegments, qualities)
	}
	return nil
}

func (m *mockTracker) MarkSegmentComplete(ctx context.Context, videoID uuid.UUID, quality string, index int) (bool, error) {
	if m.markSegmentFn != nil {
		return m.markSegmentFn(ctx, videoID, quality, index)
	}
	return false, nil
}

func (m *mockTracker) ReleaseJoinClaim(ctx context.Context, videoID uuid.UUID, quality string) error {
	if m.releaseJoinClaimFn != nil {
		return m.releaseJoinClaimFn(ctx, videoID, quality)
	}
	return nil
}

func (m *mockTracker) MarkQualityJoined(ctx context.Context, videoID uuid.UUID, quality string) error {
	if m.markQualityJoinedFn != nil {
		return m.markQualityJoinedFn(ctx, videoID, quality)
	}
	return nil
}

func (m *mockTracker) MarkQualityFailed(ctx context.Context, videoID uuid.UUID, quality string) error {
	if m.markQualityFailedFn != nil {
		return m.markQualityFailedFn(ctx, videoID, quality)
	}
	return nil
}

func (m *mockTracker) IsQualityComplete(ctx context.Context, videoID uuid.UUID, quality string) (bool, error) {
	if m.isQualityCompleteFn != nil {
		return m.isQualityCompleteFn(ctx, videoID, quality)
	}
	return false, nil
}

func (m *mockTracker) Snapshot(ctx context.Context, videoID uuid.UUID) (*repository.TrackerSnapshot, error) {
	if m.snapshotFn != nil {
		return m.snapshotFn(ctx, videoID)
	}
	return nil, repository.ErrTrackerNotFound
}

func (m *mockTracker) Clear(ctx context.Context, videoID uuid.UUID) error {
	if m.clearFn != nil {
		return m.clearFn(ctx, videoID)
	}
	return nil
}

// mockEngine provides a configurable mock for media.Engine.
type mockEngine struct {
	probeFn     func(ctx context.Context, inputPath string) (*media.ProbeResult, error)
	thumbnailFn func(ctx context.Context, inputPath string, atSeconds float64, outputPath string) error
	segmentFn   func(ctx context.Context, inputPath string, segmentSeconds int, outputDir string) ([]string, error)
	transcodeFn func(ctx context.Context, inputPath, outputPath string, profile model.QualityProfile) error
	concatFn    func(ctx context.Context, manifestPath, outputPath string) error
}

func (m *mockEngine) Probe(ctx context.Context, inputPath string) (*media.ProbeResult, error) {
	if m.probeFn != nil {
		return m.probeFn(ctx, inputPath)
	}
	return &media.ProbeResult{DurationSeconds: 10, Width: 1280, Height: 720}, nil
}

func (m *mockEngine) Thumbnail(ctx context.Context, inputPath string, atSeconds float64, outputPath string) error {
	if m.thumbnailFn != nil {
		return m.thumbnailFn(ctx, inputPath, atSeconds, outputPath)
	}
	return nil
}

func (m *mockEngine) Segment(ctx context.Context, inputPath string, segmentSeconds int, outputDir string) ([]string, error) {
	if m.segmentFn != nil {
		return m.segmentFn(ctx, inputPath, segmentSeconds, outputDir)
	}
	return nil, nil
}

func (m *mockEngine) Transcode(ctx context.Context, inputPath, outputPath string, profile model.QualityProfile) error {
	if m.transcodeFn != nil {
		return m.transcodeFn(ctx, inputPath, outputPath, profile)
	}
	return nil
}

func (m *mockEngine) Concat(ctx context.Context, manifestPath, outputPath string) error {
	if m.concatFn != nil {
		return m.concatFn(ctx, manifestPath, outputPath)
	}
	return nil
}

// mockVideoCache provides a configurable mock for cache.VideoCache.
type mockVideoCache struct {
	getFn    func(ctx context.Context, videoID uuid.UUID) (*model.Video, error)
	setFn    func(ctx context.Context, video *model.Video, ttl time.Duration) error
	deleteFn func(ctx context.Context, videoID uuid.UUID) error
}

func (m *mockVideoCache) Get(ctx context.Context, videoID uuid.UUID) (*model.Video, error) {
	if m.getFn != nil {
		return m.getFn(ctx, videoID)
	}
	return nil, nil
}

func (m *mockVideoCache) Set(ctx context.Context, video *model.Video, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, video, ttl)
	}
	return nil
}

func (m *mockVideoCache) Delete(ctx context.Context, videoID uuid.UUID) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, videoID)
	}
	return nil
}

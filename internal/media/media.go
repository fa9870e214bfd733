package media

import (
	"context"

	"github.com/reelworks/chunkstream/internal/domain/model"
)

// ProbeResult contains the source characteristics needed to drive the pipeline.
type ProbeResult struct {
	// DurationSeconds is the container duration, fractional.
	DurationSeconds float64
	// Width and Height are taken from the first video stream.
	Width  int
	Height int
}

// Engine wraps the external command-line encoder/prober. All operations are
// synchronous-blocking and must only be invoked from queue workers, never
// from a request path.
type Engine interface {
	// Probe inspects the source and returns duration and resolution.
	Probe(ctx context.Context, inputPath string) (*ProbeResult, error)

	// Thumbnail captures a single poster frame at the given offset and
	// writes it as JPEG to outputPath.
	Thumbnail(ctx context.Context, inputPath string, atSeconds float64, outputPath string) error

	// Segment splits the source into fixed-duration segments using stream
	// copy (no re-encode) and returns the generated segment paths in index
	// order. The last segment may be shorter than segmentSeconds.
	Segment(ctx context.Context, inputPath string, segmentSeconds int, outputDir string) ([]string, error)

	// Transcode encodes one segment into one quality rendition at outputPath.
	Transcode(ctx context.Context, inputPath, outputPath string, profile model.QualityProfile) error

	// Concat stream-copies the files listed in the manifest (concat demuxer
	// format) into a single deliverable at outputPath.
	Concat(ctx context.Context, manifestPath, outputPath string) error
}

package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// ErrNoSegments is returned when a join is attempted against an empty or
// missing quality directory. A join with an incomplete segment set is a
// tracker inconsistency and must never be papered over.
var ErrNoSegments = errors.New("no encoded segments found for quality")

// JoinResult describes one assembled deliverable.
type JoinResult struct {
	Quality    string
	OutputPath string
	FileSize   int64
}

// Joiner concatenates a quality's encoded segments, in segment-index order,
// into a single deliverable file.
type Joiner struct {
	engine Engine
}

// NewJoiner creates a Joiner backed by the given engine.
func NewJoiner(engine Engine) *Joiner {
	return &Joiner{engine: engine}
}

// JoinQuality assembles {videoID}_{quality}.mp4 from the encoded segments in
// {encodedDir}/{quality}. Segment files are re-sorted by their embedded index
// so completion order never affects join order. expectedSegments guards
// against joining an incomplete set; pass 0 to skip the check.
func (j *Joiner) JoinQuality(ctx context.Context, encodedDir, quality, outputDir, videoID string, expectedSegments int) (*JoinResult, error) {
	qualityDir := filepath.Join(encodedDir, quality)

	segments, err := listEncodedSegments(qualityDir, quality)
	if err != nil {
		return nil, err
	}
	if expectedSegments > 0 && len(segments) != expectedSegments {
		return nil, fmt.Errorf("quality %s has %d segments on disk, expected %d: %w",
			quality, len(segments), expectedSegments, ErrNoSegments)
	}

	manifestPath, err := writeConcatManifest(qualityDir, quality, segments)
	if err != nil {
		return nil, fmt.Errorf("write concat manifest: %w", err)
	}
	defer func() { _ = os.Remove(manifestPath) }()

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	outputPath := filepath.Join(outputDir, fmt.Sprintf("%s_%s.mp4", videoID, quality))
	if err := j.engine.Concat(ctx, manifestPath, outputPath); err != nil {
		return nil, fmt.Errorf("concat %s: %w", quality, err)
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return nil, fmt.Errorf("deliverable not written: %w", err)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("deliverable is empty: %s", outputPath)
	}

	return &JoinResult{
		Quality:    quality,
		OutputPath: outputPath,
		FileSize:   info.Size(),
	}, nil
}

// CleanupQuality removes the per-quality chunk directory once its
// deliverable is published, freeing disk before the video finishes.
func (j *Joiner) CleanupQuality(encodedDir, quality string) error {
	return os.RemoveAll(filepath.Join(encodedDir, quality))
}

// listEncodedSegments returns the quality's encoded chunk files sorted by
// the segment index embedded in their filename (chunk_NNNN_{quality}.ts).
func listEncodedSegments(qualityDir, quality string) ([]string, error) {
	entries, err := os.ReadDir(qualityDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSegments
		}
		return nil, fmt.Errorf("read quality directory: %w", err)
	}

	suffix := fmt.Sprintf("_%s.ts", quality)
	type indexed struct {
		index int
		name  string
	}

	var segments []indexed
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), suffix) {
			continue
		}
		idx, err := segmentIndexFromName(entry.Name())
		if err != nil {
			return nil, fmt.Errorf("unexpected segment filename %q: %w", entry.Name(), err)
		}
		segments = append(segments, indexed{index: idx, name: entry.Name()})
	}

	if len(segments) == 0 {
		return nil, ErrNoSegments
	}

	sort.Slice(segments, func(i, k int) bool { return segments[i].index < segments[k].index })

	paths := make([]string, len(segments))
	for i, s := range segments {
		paths[i] = filepath.Join(qualityDir, s.name)
	}
	return paths, nil
}

// segmentIndexFromName extracts NNNN from chunk_NNNN_{quality}.ts.
func segmentIndexFromName(name string) (int, error) {
	parts := strings.Split(name, "_")
	if len(parts) < 3 || parts[0] != "chunk" {
		return 0, fmt.Errorf("not a chunk segment name")
	}
	return strconv.Atoi(parts[1])
}

// writeConcatManifest creates the concat demuxer file list next to the
// segments, entries relative to the manifest directory.
func writeConcatManifest(qualityDir, quality string, segments []string) (string, error) {
	var sb strings.Builder
	for _, seg := range segments {
		sb.WriteString(fmt.Sprintf("file '%s'\n", filepath.Base(seg)))
	}

	manifestPath := filepath.Join(qualityDir, fmt.Sprintf("concat_%s.txt", quality))
	if err := os.WriteFile(manifestPath, []byte(sb.String()), 0644); err != nil {
		return "", err
	}
	return manifestPath, nil
}

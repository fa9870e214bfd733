package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/reelworks/chunkstream/internal/domain/model"
)

// FFmpegConfig holds configuration for the FFmpeg-backed engine.
type FFmpegConfig struct {
	// FFmpegPath is the path to the ffmpeg binary.
	// If empty, "ffmpeg" will be used (assumes it's in PATH).
	FFmpegPath string

	// FFprobePath is the path to the ffprobe binary.
	// If empty, "ffprobe" will be used.
	FFprobePath string

	// VideoCodec is the video codec for transcode operations.
	// Default: libx264
	VideoCodec string

	// AudioCodec is the audio codec for transcode operations.
	// Default: aac
	AudioCodec string

	// AudioSampleRate is the output audio sample rate in Hz.
	// Default: 44100
	AudioSampleRate int
}

// DefaultFFmpegConfig returns an FFmpegConfig with production-ready defaults.
func DefaultFFmpegConfig() FFmpegConfig {
	return FFmpegConfig{
		FFmpegPath:      "ffmpeg",
		FFprobePath:     "ffprobe",
		VideoCodec:      "libx264",
		AudioCodec:      "aac",
		AudioSampleRate: 44100,
	}
}

// FFmpegEngine implements Engine using the ffmpeg and ffprobe CLIs.
type FFmpegEngine struct {
	config FFmpegConfig
}

// Compile-time verification that FFmpegEngine implements Engine.
var _ Engine = (*FFmpegEngine)(nil)

// NewFFmpegEngine creates a new FFmpeg-based engine.
func NewFFmpegEngine(cfg FFmpegConfig) *FFmpegEngine {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = "ffprobe"
	}
	if cfg.VideoCodec == "" {
		cfg.VideoCodec = "libx264"
	}
	if cfg.AudioCodec == "" {
		cfg.AudioCodec = "aac"
	}
	if cfg.AudioSampleRate <= 0 {
		cfg.AudioSampleRate = 44100
	}
	return &FFmpegEngine{config: cfg}
}

// segmentPattern matches the ffmpeg segment muxer output filenames.
// Zero-padding keeps lexicographic order equal to index order.
const segmentFilePattern = "chunk_%04d.ts"

// ffprobe JSON output subset.
type probeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe inspects the source via ffprobe and returns duration and resolution.
func (e *FFmpegEngine) Probe(ctx context.Context, inputPath string) (*ProbeResult, error) {
	if err := e.validateInput(inputPath); err != nil {
		return nil, err
	}

	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		inputPath,
	}

	cmd := exec.CommandContext(ctx, e.config.FFprobePath, args...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = nil

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("probe cancelled: %w", ctx.Err())
		}
		return nil, fmt.Errorf("ffprobe execution failed: %w", err)
	}

	return parseProbeOutput(stdout.Bytes())
}

// parseProbeOutput extracts duration and the first video stream's resolution.
func parseProbeOutput(data []byte) (*ProbeResult, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	duration, err := strconv.ParseFloat(out.Format.Duration, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid duration %q in ffprobe output: %w", out.Format.Duration, err)
	}
	if duration <= 0 {
		return nil, fmt.Errorf("invalid duration: %.2f seconds", duration)
	}

	for _, s := range out.Streams {
		if s.CodecType == "video" {
			if s.Width <= 0 || s.Height <= 0 {
				return nil, fmt.Errorf("video stream has invalid resolution %dx%d", s.Width, s.Height)
			}
			return &ProbeResult{
				DurationSeconds: duration,
				Width:           s.Width,
				Height:          s.Height,
			}, nil
		}
	}

	return nil, fmt.Errorf("no video stream found")
}

// Thumbnail captures one frame at the given offset as JPEG.
func (e *FFmpegEngine) Thumbnail(ctx context.Context, inputPath string, atSeconds float64, outputPath string) error {
	if err := e.validateInput(inputPath); err != nil {
		return err
	}

	args := []string{
		"-ss", strconv.FormatFloat(atSeconds, 'f', 2, 64),
		"-i", inputPath,
		"-vframes", "1",
		"-q:v", "3",
		"-y",
		outputPath,
	}

	if err := e.run(ctx, args); err != nil {
		return fmt.Errorf("thumbnail: %w", err)
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return fmt.Errorf("thumbnail not written: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("thumbnail is empty: %s", outputPath)
	}

	return nil
}

// Segment splits the source into fixed-duration chunks using stream copy.
// A 10-minute source splits in low single-digit seconds since nothing is
// re-encoded.
func (e *FFmpegEngine) Segment(ctx context.Context, inputPath string, segmentSeconds int, outputDir string) ([]string, error) {
	if err := e.validateInput(inputPath); err != nil {
		return nil, err
	}
	if err := e.validateOutputDir(outputDir); err != nil {
		return nil, err
	}
	if segmentSeconds <= 0 {
		return nil, fmt.Errorf("segment duration must be positive, got %d", segmentSeconds)
	}

	args := e.buildSegmentArgs(inputPath, segmentSeconds, outputDir)
	if err := e.run(ctx, args); err != nil {
		return nil, fmt.Errorf("segment: %w", err)
	}

	segments, err := collectSegments(outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to collect segments: %w", err)
	}

	return segments, nil
}

// buildSegmentArgs constructs the copy-mode split command.
func (e *FFmpegEngine) buildSegmentArgs(inputPath string, segmentSeconds int, outputDir string) []string {
	return []string{
		"-i", inputPath,
		"-c", "copy",
		"-map", "0",
		"-segment_time", strconv.Itoa(segmentSeconds),
		"-f", "segment",
		"-reset_timestamps", "1",
		"-y",
		filepath.Join(outputDir, segmentFilePattern),
	}
}

// Transcode encodes one segment into one quality rendition.
func (e *FFmpegEngine) Transcode(ctx context.Context, inputPath, outputPath string, profile model.QualityProfile) error {
	if err := e.validateInput(inputPath); err != nil {
		return err
	}

	args := e.buildTranscodeArgs(inputPath, outputPath, profile)
	if err := e.run(ctx, args); err != nil {
		return fmt.Errorf("transcode %s: %w", profile.Name, err)
	}

	return nil
}

// buildTranscodeArgs constructs the per-chunk encode command for a profile.
func (e *FFmpegEngine) buildTranscodeArgs(inputPath, outputPath string, profile model.QualityProfile) []string {
	// Scale filter: -2 ensures width is divisible by 2 (required by many codecs)
	scaleFilter := fmt.Sprintf("scale=-2:%d", profile.Height)
	// Buffer twice the target bitrate smooths out rate spikes.
	bufsize := fmt.Sprintf("%dk", parseBitrateK(profile.VideoBitrate)*2)

	return []string{
		"-i", inputPath,
		"-c:v", e.config.VideoCodec,
		"-preset", profile.Preset,
		"-crf", strconv.Itoa(profile.CRF),
		"-b:v", profile.VideoBitrate,
		"-maxrate", profile.VideoBitrate,
		"-bufsize", bufsize,
		"-vf", scaleFilter,
		"-c:a", e.config.AudioCodec,
		"-b:a", profile.AudioBitrate,
		"-ar", strconv.Itoa(e.config.AudioSampleRate),
		"-y",
		outputPath,
	}
}

// Concat stream-copies the manifest entries into a single deliverable.
// The manifest uses the concat demuxer format: one "file 'name'" per line,
// paths relative to the manifest's directory.
func (e *FFmpegEngine) Concat(ctx context.Context, manifestPath, outputPath string) error {
	if err := e.validateInput(manifestPath); err != nil {
		return err
	}

	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", manifestPath,
		"-c", "copy",
		"-movflags", "+faststart",
		"-y",
		outputPath,
	}

	cmd := exec.CommandContext(ctx, e.config.FFmpegPath, args...)
	// Manifest entries are relative to their own directory.
	cmd.Dir = filepath.Dir(manifestPath)
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("concat cancelled: %w", ctx.Err())
		}
		return fmt.Errorf("ffmpeg concat failed: %w", err)
	}

	return nil
}

// run executes ffmpeg with the given args, mapping cancellation.
func (e *FFmpegEngine) run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, e.config.FFmpegPath, args...)
	cmd.Stdout = nil // Discard stdout
	cmd.Stderr = nil // Discard stderr (FFmpeg outputs progress to stderr)

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("cancelled: %w", ctx.Err())
		}
		return fmt.Errorf("ffmpeg execution failed: %w", err)
	}
	return nil
}

// validateInput checks if the input file exists and is readable.
func (e *FFmpegEngine) validateInput(inputPath string) error {
	info, err := os.Stat(inputPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("input file does not exist: %s", inputPath)
		}
		return fmt.Errorf("failed to access input file: %w", err)
	}

	if info.IsDir() {
		return fmt.Errorf("input path is a directory, expected a file: %s", inputPath)
	}

	return nil
}

// validateOutputDir checks if the output directory exists.
func (e *FFmpegEngine) validateOutputDir(outputDir string) error {
	info, err := os.Stat(outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("output directory does not exist: %s", outputDir)
		}
		return fmt.Errorf("failed to access output directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("output path is not a directory: %s", outputDir)
	}

	return nil
}

// collectSegments lists generated chunk files in index order.
// The zero-padded naming makes the sorted directory listing the index order.
func collectSegments(outputDir string) ([]string, error) {
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}

	var segments []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, "chunk_") && strings.HasSuffix(name, ".ts") {
			segments = append(segments, filepath.Join(outputDir, name))
		}
	}

	if len(segments) == 0 {
		return nil, fmt.Errorf("no segments generated in output directory")
	}

	// os.ReadDir returns entries sorted by name.
	return segments, nil
}

// parseBitrateK parses the numeric part of an ffmpeg bitrate like "800k".
func parseBitrateK(bitrate string) int {
	n, err := strconv.Atoi(strings.TrimSuffix(bitrate, "k"))
	if err != nil {
		return 0
	}
	return n
}

// Package tracker implements the per-video completion tracker on Redis.
//
// The tracker is the only mutable state shared by concurrent chunk workers.
// Everything else (segment files, per-quality directories) is partitioned by
// (video, quality) and owned by a single job at a time.
package tracker

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/reelworks/chunkstream/internal/domain/repository"
)

const keyPrefix = "tracker:"

// DefaultTTL bounds how long tracker state lives when a video is abandoned
// mid-pipeline (e.g. its worker host died).
const DefaultTTL = 48 * time.Hour

// markCompleteScript adds a segment index and, when that addition fills the
// set, atomically claims the join for the calling worker. Exactly one caller
// observes 1 even when the last two completions race.
var markCompleteScript = redis.NewScript(`
redis.call('SADD', KEYS[1], ARGV[1])
redis.call('EXPIRE', KEYS[1], ARGV[3])
if redis.call('SCARD', KEYS[1]) >= tonumber(ARGV[2]) then
	if redis.call('SETNX', KEYS[2], '1') == 1 then
		redis.call('EXPIRE', KEYS[2], ARGV[3])
		return 1
	end
end
return 0
`)

// RedisTracker implements repository.CompletionTracker backed by Redis.
type RedisTracker struct {
	client *redis.Client
	ttl    time.Duration
}

// Compile-time verification that RedisTracker implements repository.CompletionTracker.
var _ repository.CompletionTracker = (*RedisTracker)(nil)

// NewRedisTracker creates a Redis-backed completion tracker.
func NewRedisTracker(client *redis.Client, ttl time.Duration) *RedisTracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisTracker{client: client, ttl: ttl}
}

// Init creates the tracker for a video: totalSegments slots for each of the
// given qualities, all empty, none joined.
func (t *RedisTracker) Init(ctx context.Context, videoID uuid.UUID, totalSegments int, qualities []string) error {
	if totalSegments <= 0 {
		return fmt.Errorf("total segments must be positive, got %d", totalSegments)
	}
	if len(qualities) == 0 {
		return fmt.Errorf("at least one quality is required")
	}

	key := t.metaKey(videoID)
	pipe := t.client.TxPipeline()
	pipe.HSet(ctx, key,
		"total", totalSegments,
		"qualities", strings.Join(qualities, ","),
	)
	pipe.Expire(ctx, key, t.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("init tracker: %w", err)
	}
	return nil
}

// MarkSegmentComplete records one encoded segment. Adding an already-present
// index is a no-op (delivery is at-least-once). Returns claimedJoin=true for
// exactly the one call that completes the set and wins the join claim.
func (t *RedisTracker) MarkSegmentComplete(ctx context.Context, videoID uuid.UUID, quality string, index int) (bool, error) {
	total, err := t.totalFor(ctx, videoID, quality)
	if err != nil {
		return false, err
	}

	res, err := markCompleteScript.Run(ctx, t.client,
		[]string{t.doneKey(videoID, quality), t.claimKey(videoID, quality)},
		index, total, int(t.ttl.Seconds()),
	).Int()
	if err != nil {
		return false, fmt.Errorf("mark segment complete: %w", err)
	}

	return res == 1, nil
}

// ReleaseJoinClaim gives up a won claim so a retried job can claim again.
func (t *RedisTracker) ReleaseJoinClaim(ctx context.Context, videoID uuid.UUID, quality string) error {
	if err := t.client.Del(ctx, t.claimKey(videoID, quality)).Err(); err != nil {
		return fmt.Errorf("release join claim: %w", err)
	}
	return nil
}

// MarkQualityJoined records that the quality's deliverable is published.
func (t *RedisTracker) MarkQualityJoined(ctx context.Context, videoID uuid.UUID, quality string) error {
	if err := t.client.Set(ctx, t.joinedKey(videoID, quality), "1", t.ttl).Err(); err != nil {
		return fmt.Errorf("mark quality joined: %w", err)
	}
	return nil
}

// MarkQualityFailed records that the quality can never complete. Returns
// ErrTrackerNotFound once the tracker is cleared, so a late exhausted job for
// a settled or deleted video leaves no stray keys behind.
func (t *RedisTracker) MarkQualityFailed(ctx context.Context, videoID uuid.UUID, quality string) error {
	if _, err := t.totalFor(ctx, videoID, quality); err != nil {
		return err
	}
	if err := t.client.Set(ctx, t.failedKey(videoID, quality), "1", t.ttl).Err(); err != nil {
		return fmt.Errorf("mark quality failed: %w", err)
	}
	return nil
}

// IsQualityComplete reports whether all segment indices are present.
func (t *RedisTracker) IsQualityComplete(ctx context.Context, videoID uuid.UUID, quality string) (bool, error) {
	total, err := t.totalFor(ctx, videoID, quality)
	if err != nil {
		return false, err
	}

	count, err := t.client.SCard(ctx, t.doneKey(videoID, quality)).Result()
	if err != nil {
		return false, fmt.Errorf("count completed segments: %w", err)
	}
	return count >= int64(total), nil
}

// Snapshot returns the current tracker state for a video.
func (t *RedisTracker) Snapshot(ctx context.Context, videoID uuid.UUID) (*repository.TrackerSnapshot, error) {
	meta, err := t.client.HGetAll(ctx, t.metaKey(videoID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read tracker meta: %w", err)
	}
	if len(meta) == 0 {
		return nil, repository.ErrTrackerNotFound
	}

	total, err := strconv.Atoi(meta["total"])
	if err != nil {
		return nil, fmt.Errorf("corrupt tracker meta for %s: %w", videoID, err)
	}
	qualities := strings.Split(meta["qualities"], ",")

	snapshot := &repository.TrackerSnapshot{
		VideoID:       videoID,
		TotalSegments: total,
		Qualities:     make(map[string]repository.QualityProgress, len(qualities)),
	}

	for _, q := range qualities {
		count, err := t.client.SCard(ctx, t.doneKey(videoID, q)).Result()
		if err != nil {
			return nil, fmt.Errorf("count completed segments for %s: %w", q, err)
		}
		joined, err := t.client.Exists(ctx, t.joinedKey(videoID, q)).Result()
		if err != nil {
			return nil, fmt.Errorf("check joined flag for %s: %w", q, err)
		}
		failed, err := t.client.Exists(ctx, t.failedKey(videoID, q)).Result()
		if err != nil {
			return nil, fmt.Errorf("check failed flag for %s: %w", q, err)
		}

		snapshot.Qualities[q] = repository.QualityProgress{
			CompletedSegments: int(count),
			Joined:            joined == 1,
			Failed:            failed == 1,
		}
	}

	return snapshot, nil
}

// Clear removes all tracker state for a video.
func (t *RedisTracker) Clear(ctx context.Context, videoID uuid.UUID) error {
	meta, err := t.client.HGetAll(ctx, t.metaKey(videoID)).Result()
	if err != nil {
		return fmt.Errorf("read tracker meta: %w", err)
	}

	keys := []string{t.metaKey(videoID)}
	if qualities := meta["qualities"]; qualities != "" {
		for _, q := range strings.Split(qualities, ",") {
			keys = append(keys,
				t.doneKey(videoID, q),
				t.claimKey(videoID, q),
				t.joinedKey(videoID, q),
				t.failedKey(videoID, q),
			)
		}
	}

	if err := t.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("clear tracker: %w", err)
	}
	return nil
}

// totalFor returns the segment count, verifying the quality is tracked.
func (t *RedisTracker) totalFor(ctx context.Context, videoID uuid.UUID, quality string) (int, error) {
	meta, err := t.client.HGetAll(ctx, t.metaKey(videoID)).Result()
	if err != nil {
		return 0, fmt.Errorf("read tracker meta: %w", err)
	}
	if len(meta) == 0 {
		return 0, repository.ErrTrackerNotFound
	}

	tracked := false
	for _, q := range strings.Split(meta["qualities"], ",") {
		if q == quality {
			tracked = true
			break
		}
	}
	if !tracked {
		return 0, fmt.Errorf("%w: %s", repository.ErrUnknownQuality, quality)
	}

	total, err := strconv.Atoi(meta["total"])
	if err != nil {
		return 0, fmt.Errorf("corrupt tracker meta for %s: %w", videoID, err)
	}
	return total, nil
}

func (t *RedisTracker) metaKey(videoID uuid.UUID) string {
	return keyPrefix + videoID.String() + ":meta"
}

func (t *RedisTracker) doneKey(videoID uuid.UUID, quality string) string {
	return keyPrefix + videoID.String() + ":done:" + quality
}

func (t *RedisTracker) claimKey(videoID uuid.UUID, quality string) string {
	return keyPrefix + videoID.String() + ":claim:" + quality
}

func (t *RedisTracker) joinedKey(videoID uuid.UUID, quality string) string {
	return keyPrefix + videoID.String() + ":joined:" + quality
}

func (t *RedisTracker) failedKey(videoID uuid.UUID, quality string) string {
	return keyPrefix + videoID.String() + ":failed:" + quality
}

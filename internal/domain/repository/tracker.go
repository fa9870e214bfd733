package repository

import (
	"context"

	"github.com/google/uuid"
)

// QualityProgress is a read-only view of one quality's completion state.
type QualityProgress struct {
	CompletedSegments int
	Joined            bool
	Failed            bool
}

// TrackerSnapshot is a read-only view of a video's completion tracker.
type TrackerSnapshot struct {
	VideoID       uuid.UUID
	TotalSegments int
	Qualities     map[string]QualityProgress
}

// AllJoined reports whether every tracked quality has been joined.
func (s TrackerSnapshot) AllJoined() bool {
	if len(s.Qualities) == 0 {
		return false
	}
	for _, q := range s.Qualities {
		if !q.Joined {
			return false
		}
	}
	return true
}

// AllSettled reports whether every tracked quality reached a terminal
// outcome (joined or permanently failed).
func (s TrackerSnapshot) AllSettled() bool {
	if len(s.Qualities) == 0 {
		return false
	}
	for _, q := range s.Qualities {
		if !q.Joined && !q.Failed {
			return false
		}
	}
	return true
}

// JoinedCount returns how many qualities have been joined.
func (s TrackerSnapshot) JoinedCount() int {
	n := 0
	for _, q := range s.Qualities {
		if q.Joined {
			n++
		}
	}
	return n
}

// CompletionTracker is the single piece of mutable shared state touched by
// concurrent chunk workers. It records, per quality, which segment indices
// have been encoded and whether the quality has been joined.
//
// MarkSegmentComplete must be atomic: of all concurrent callers whose
// completion fills the segment set, exactly one receives claimedJoin=true
// and owns the join for that quality. Marking an already-present index is
// a no-op (delivery is at-least-once).
type CompletionTracker interface {
	// Init creates the tracker for a video: totalSegments slots for each
	// of the given qualities, all empty, none joined.
	Init(ctx context.Context, videoID uuid.UUID, totalSegments int, qualities []string) error

	// MarkSegmentComplete adds a completed segment index. Returns
	// claimedJoin=true for exactly the one call that both completes the
	// segment set and wins the join claim.
	MarkSegmentComplete(ctx context.Context, videoID uuid.UUID, quality string, index int) (claimedJoin bool, err error)

	// ReleaseJoinClaim gives up a previously won join claim so a retried
	// job can claim it again. Called when the join or upload fails.
	ReleaseJoinClaim(ctx context.Context, videoID uuid.UUID, quality string) error

	// MarkQualityJoined records that the quality's deliverable is published.
	MarkQualityJoined(ctx context.Context, videoID uuid.UUID, quality string) error

	// MarkQualityFailed records that the quality can never complete
	// (a segment exhausted its retry budget). Returns ErrTrackerNotFound
	// when the tracker no longer exists.
	MarkQualityFailed(ctx context.Context, videoID uuid.UUID, quality string) error

	// IsQualityComplete reports whether all segment indices are present.
	IsQualityComplete(ctx context.Context, videoID uuid.UUID, quality string) (bool, error)

	// Snapshot returns the current tracker state.
	Snapshot(ctx context.Context, videoID uuid.UUID) (*TrackerSnapshot, error)

	// Clear removes all tracker state for a video.
	Clear(ctx context.Context, videoID uuid.UUID) error
}

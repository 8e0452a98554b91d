package index

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"time"

	"segment-sync/core/kvstore"

	"go.uber.org/zap"
)

// DefaultChangeTTL bounds how long undrained change queue entries survive.
const DefaultChangeTTL = 7 * 24 * time.Hour

// Store owns the Live Sets, the Member Index and the Change Queue.
//
// The invariant "m in segment:{s} iff s in member:{m}" is maintained eventually, not
// transactionally. Point mutations are best-effort and report failure as false.
type Store struct {
	client    kvstore.Client
	keys      Keys
	logger    *zap.Logger
	changeTTL time.Duration
}

// New creates a new index store.
// A non-positive changeTTL falls back to DefaultChangeTTL.
func New(client kvstore.Client, keys Keys, logger *zap.Logger, changeTTL time.Duration) *Store {
	if changeTTL <= 0 {
		changeTTL = DefaultChangeTTL
	}
	return &Store{
		client:    client,
		keys:      keys,
		logger:    logger,
		changeTTL: changeTTL,
	}
}

// Keys returns the key builder used by the store.
func (s *Store) Keys() Keys {
	return s.keys
}

// ChangeTTL returns the retention window of the change queue.
func (s *Store) ChangeTTL() time.Duration {
	return s.changeTTL
}

// HasMember reports whether memberID belongs to segmentID according to the Member Index.
// Store errors are logged and reported as false.
func (s *Store) HasMember(ctx context.Context, segmentID, memberID string) bool {
	ok, err := s.client.SIsMember(ctx, s.keys.Member(memberID), segmentID)
	if err != nil {
		s.logger.Error("Segment membership check failed",
			zap.String("segment_id", segmentID),
			zap.String("member_id", memberID),
			zap.Error(err),
		)
		return false
	}
	return ok
}

// AddMembership adds memberID to segmentID in both indices and queues the member as changed.
// It returns false if the writes may not have been applied.
func (s *Store) AddMembership(ctx context.Context, segmentID, memberID string) bool {
	p := s.client.Pipeline()
	p.SAdd(ctx, s.keys.Member(memberID), segmentID)
	p.SAdd(ctx, s.keys.Live(segmentID), memberID)
	p.SAdd(ctx, s.keys.Changes(), memberID)
	if err := p.Exec(ctx); err != nil {
		s.logger.Error("Add segment membership failed",
			zap.String("segment_id", segmentID),
			zap.String("member_id", memberID),
			zap.Error(err),
		)
		return false
	}
	return true
}

// RemoveMembership removes memberID from segmentID in both indices and queues the member as changed.
// It returns false if the writes may not have been applied.
func (s *Store) RemoveMembership(ctx context.Context, segmentID, memberID string) bool {
	p := s.client.Pipeline()
	p.SRem(ctx, s.keys.Member(memberID), segmentID)
	p.SRem(ctx, s.keys.Live(segmentID), memberID)
	p.SAdd(ctx, s.keys.Changes(), memberID)
	if err := p.Exec(ctx); err != nil {
		s.logger.Error("Remove segment membership failed",
			zap.String("segment_id", segmentID),
			zap.String("member_id", memberID),
			zap.Error(err),
		)
		return false
	}
	return true
}

// MemberSegments returns the segments memberID currently belongs to, sorted.
func (s *Store) MemberSegments(ctx context.Context, memberID string) ([]string, error) {
	segments, err := s.client.SMembers(ctx, s.keys.Member(memberID))
	if err != nil {
		return nil, fmt.Errorf("failed to load segments for member %s: %w", memberID, err)
	}
	sort.Strings(segments)
	return segments, nil
}

// SegmentMembers streams the Live Set of segmentID.
func (s *Store) SegmentMembers(ctx context.Context, segmentID string) iter.Seq2[string, error] {
	return s.client.Scan(ctx, s.keys.Live(segmentID))
}

// SegmentCardinality returns the size of the Live Set of segmentID.
func (s *Store) SegmentCardinality(ctx context.Context, segmentID string) (int64, error) {
	n, err := s.client.SCard(ctx, s.keys.Live(segmentID))
	if err != nil {
		return 0, fmt.Errorf("failed to count members of segment %s: %w", segmentID, err)
	}
	return n, nil
}

// DrainChanged streams the members whose memberships changed since they were last acknowledged.
// Entries are not removed; call AckChanged once an entry has been processed. The stream may
// contain duplicates and stale entries, so consumers must be idempotent.
func (s *Store) DrainChanged(ctx context.Context) iter.Seq2[string, error] {
	return s.client.Scan(ctx, s.keys.Changes())
}

// AckChanged removes memberID from the change queue.
// A concurrent refresh may re-add it immediately; that entry is then delivered again.
func (s *Store) AckChanged(ctx context.Context, memberID string) error {
	if err := s.client.SRem(ctx, s.keys.Changes(), memberID); err != nil {
		return fmt.Errorf("failed to acknowledge member %s: %w", memberID, err)
	}
	return nil
}

// TouchChanges refreshes the change queue's retention window.
func (s *Store) TouchChanges(ctx context.Context) error {
	return s.client.Expire(ctx, s.keys.Changes(), s.changeTTL)
}

package reconcile

import (
	"context"
	"fmt"

	"segment-sync/core/kvstore"
	"segment-sync/core/metrics"

	"go.uber.org/zap"
)

// Delete removes segmentID from the index.
//
// Each current member is queued as changed in the same batch that retracts the segment from
// its Member Index entry, then the Live Set is deleted. It returns the number of members the
// segment had. A failure part-way keeps the Live Set, so a retry finishes the remaining members.
func (e *Engine) Delete(ctx context.Context, segmentID string) (int64, error) {
	keys := e.index.Keys()
	live := keys.Live(segmentID)
	changes := keys.Changes()
	l := e.logger.With(zap.String("segment_id", segmentID))

	count, err := e.client.SCard(ctx, live)
	if err != nil {
		return 0, fmt.Errorf("delete segment %s: %w", segmentID, err)
	}

	if count > 0 {
		n, err := e.batch.Run(ctx, e.client.Scan(ctx, live), func(ctx context.Context, p kvstore.Pipeline, member string) {
			p.SRem(ctx, keys.Member(member), segmentID)
			p.SAdd(ctx, changes, member)
		})
		metrics.MembershipChanges.WithLabelValues("remove").Add(float64(n))
		if err != nil {
			l.Error("Failed to retract segment from member index", zap.Int("retracted", n), zap.Error(err))
			return 0, fmt.Errorf("delete segment %s: retract members: %w", segmentID, err)
		}
	}

	if err := e.client.Del(ctx, live); err != nil {
		return 0, fmt.Errorf("delete segment %s: %w", segmentID, err)
	}
	if err := e.index.TouchChanges(ctx); err != nil {
		l.Error("Failed to refresh change queue expiry", zap.Error(err))
	}

	metrics.Teardowns.Inc()
	l.Info("Segment deleted", zap.Int64("members", count))
	return count, nil
}

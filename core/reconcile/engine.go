package reconcile

import (
	"context"
	"fmt"
	"time"

	"segment-sync/core/batch"
	"segment-sync/core/index"
	"segment-sync/core/kvstore"
	"segment-sync/core/metrics"
	"segment-sync/core/rows"

	"go.uber.org/zap"
)

// Engine converges segment Live Sets and the Member Index onto freshly computed desired sets.
// It holds no locks; concurrent refreshes of one segment race and the last writer wins.
type Engine struct {
	client kvstore.Client
	index  *index.Store
	batch  *batch.Executor
	logger *zap.Logger
	opts   Options
}

// NewEngine creates a new synchronization engine.
func NewEngine(client kvstore.Client, store *index.Store, executor *batch.Executor, logger *zap.Logger, opts Options) *Engine {
	if opts.FailurePolicy == "" {
		opts.FailurePolicy = PolicyPreserve
	}
	return &Engine{
		client: client,
		index:  store,
		batch:  executor,
		logger: logger,
		opts:   opts,
	}
}

// Index returns the index store the engine writes through.
func (e *Engine) Index() *index.Store {
	return e.index
}

// Refresh recomputes the membership of segmentID from definition and converges the indices.
//
// The steps run strictly in order: stage the desired set, diff additions, diff removals,
// publish the Live Set, propagate additions, propagate removals. Staging keys are always
// deleted and the cardinality is always read back, even on failure; the Result is populated
// as far as the refresh got. See FailurePolicy for what an ingestion failure does to the Live Set.
func (e *Engine) Refresh(ctx context.Context, segmentID, definition string, src rows.Source) (res Result, err error) {
	start := time.Now()
	res.SegmentID = segmentID
	l := e.logger.With(zap.String("segment_id", segmentID))

	defer func() {
		// Cleanup must survive a cancelled caller.
		cctx := context.WithoutCancel(ctx)
		e.cleanup(cctx, l, segmentID)

		card, cerr := e.index.SegmentCardinality(cctx, segmentID)
		if cerr != nil {
			l.Error("Segment cardinality read failed", zap.Error(cerr))
			if err == nil {
				err = cerr
			}
		}
		res.Cardinality = card
		res.Duration = time.Since(start)

		status := "success"
		if err != nil {
			status = "failed"
		}
		metrics.RefreshesTotal.WithLabelValues(status).Inc()
		metrics.RefreshDuration.Observe(res.Duration.Seconds())
	}()

	// Leftovers from a crashed or half-cleaned run would leak into the desired set.
	keys := e.index.Keys()
	if err := e.client.Del(ctx, keys.StageAdd(segmentID), keys.StageNew(segmentID), keys.StageDel(segmentID)); err != nil {
		l.Error("Failed to clear staging keys", zap.Error(err))
		return res, fmt.Errorf("refresh segment %s: clear staging: %w", segmentID, err)
	}

	// 1. Stage
	stageKey := keys.StageAdd(segmentID)
	staged, ingestErr := e.batch.Run(ctx, rows.Validate(ctx, src, definition, l), func(ctx context.Context, p kvstore.Pipeline, id string) {
		p.SAdd(ctx, stageKey, id)
	})
	res.Staged = staged

	if ingestErr != nil {
		l.Error("Segment refresh ingestion failed",
			zap.String("query", definition),
			zap.Int("staged", staged),
			zap.String("policy", string(e.opts.FailurePolicy)),
			zap.Error(ingestErr),
		)
		if e.opts.FailurePolicy != PolicyTruncate {
			return res, fmt.Errorf("refresh segment %s: %w", segmentID, ingestErr)
		}
	}

	if err := e.sync(ctx, segmentID, &res); err != nil {
		l.Error("Segment refresh sync failed", zap.String("query", definition), zap.Error(err))
		return res, fmt.Errorf("refresh segment %s: %w", segmentID, err)
	}

	if ingestErr != nil {
		return res, fmt.Errorf("refresh segment %s: %w", segmentID, ingestErr)
	}

	l.Info("Segment refreshed",
		zap.Int("staged", res.Staged),
		zap.Int64("added", res.Added),
		zap.Int64("removed", res.Removed),
	)
	return res, nil
}

// sync runs steps 2 to 6 against an already staged desired set.
func (e *Engine) sync(ctx context.Context, segmentID string, res *Result) error {
	keys := e.index.Keys()
	live := keys.Live(segmentID)
	addKey := keys.StageAdd(segmentID)
	newKey := keys.StageNew(segmentID)
	delKey := keys.StageDel(segmentID)
	changes := keys.Changes()

	// 2. Diff additions: desired - live
	added, err := e.client.SDiffStore(ctx, newKey, addKey, live)
	if err != nil {
		return fmt.Errorf("diff additions: %w", err)
	}
	res.Added = added

	// 3. Diff removals: live - desired
	removed, err := e.client.SDiffStore(ctx, delKey, live, addKey)
	if err != nil {
		return fmt.Errorf("diff removals: %w", err)
	}
	res.Removed = removed

	// 4. Publish: (live ∩ desired) ∪ additions == desired
	if _, err := e.client.SInterStore(ctx, live, live, addKey); err != nil {
		return fmt.Errorf("publish live set: %w", err)
	}
	if _, err := e.client.SUnionStore(ctx, live, live, newKey); err != nil {
		return fmt.Errorf("publish live set: %w", err)
	}
	res.Published = true

	// 5. Propagate additions
	if added > 0 {
		n, err := e.batch.Run(ctx, e.client.Scan(ctx, newKey), func(ctx context.Context, p kvstore.Pipeline, member string) {
			p.SAdd(ctx, keys.Member(member), segmentID)
			p.SAdd(ctx, changes, member)
		})
		metrics.MembershipChanges.WithLabelValues("add").Add(float64(n))
		if err != nil {
			return fmt.Errorf("propagate additions: %w", err)
		}
	}

	// 6. Propagate removals
	if removed > 0 {
		n, err := e.batch.Run(ctx, e.client.Scan(ctx, delKey), func(ctx context.Context, p kvstore.Pipeline, member string) {
			p.SRem(ctx, keys.Member(member), segmentID)
			p.SAdd(ctx, changes, member)
		})
		metrics.MembershipChanges.WithLabelValues("remove").Add(float64(n))
		if err != nil {
			return fmt.Errorf("propagate removals: %w", err)
		}
	}

	return nil
}

// cleanup deletes the staging keys and refreshes the change queue expiry.
// Failures are logged only; the next refresh clears the staging keys before staging.
func (e *Engine) cleanup(ctx context.Context, l *zap.Logger, segmentID string) {
	keys := e.index.Keys()
	if err := e.client.Del(ctx, keys.StageAdd(segmentID), keys.StageNew(segmentID), keys.StageDel(segmentID)); err != nil {
		l.Error("Failed to delete staging keys", zap.Error(err))
	}
	if err := e.index.TouchChanges(ctx); err != nil {
		l.Error("Failed to refresh change queue expiry", zap.Error(err))
	}
}

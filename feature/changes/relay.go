package changes

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"segment-sync/core/broker"
	"segment-sync/core/index"
	"segment-sync/core/metrics"

	"go.uber.org/zap"
)

// flushEvery is how many messages are published between broker flushes and queue acks.
const flushEvery = 100

// Message announces the current memberships of a changed member.
type Message struct {
	MemberID string   `json:"member_id"`
	Segments []string `json:"segments"`
}

func newMessage(member string, segments []string) Message {
	if segments == nil {
		segments = []string{}
	}
	return Message{MemberID: member, Segments: segments}
}

// Relay drains the change queue into a broker subject.
// Entries are acknowledged only after the broker confirmed the messages, so a crash
// redelivers rather than loses them.
type Relay struct {
	store     *index.Store
	publisher broker.Publisher
	subject   string
	interval  time.Duration
	logger    *zap.Logger
}

// NewRelay creates a relay publishing to cfg.Subject every cfg.Interval.
func NewRelay(store *index.Store, publisher broker.Publisher, cfg broker.Config, logger *zap.Logger) *Relay {
	return &Relay{
		store:     store,
		publisher: publisher,
		subject:   cfg.Subject,
		interval:  cfg.Interval,
		logger:    logger,
	}
}

// Flush publishes one message per queued member and acknowledges the published entries.
// It returns the number of acknowledged entries.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	acked := 0
	pending := make([]string, 0, flushEvery)

	commit := func() error {
		if len(pending) == 0 {
			return nil
		}
		if err := r.publisher.FlushTimeout(5 * time.Second); err != nil {
			metrics.ChangesPublished.WithLabelValues("failed").Add(float64(len(pending)))
			return fmt.Errorf("failed to flush broker: %w", err)
		}
		for _, m := range pending {
			if err := r.store.AckChanged(ctx, m); err != nil {
				return err
			}
			acked++
		}
		metrics.ChangesPublished.WithLabelValues("success").Add(float64(len(pending)))
		pending = pending[:0]
		return nil
	}

	for member, err := range r.store.DrainChanged(ctx) {
		if err != nil {
			return acked, fmt.Errorf("failed to read change queue: %w", err)
		}

		segments, err := r.store.MemberSegments(ctx, member)
		if err != nil {
			return acked, err
		}

		data, err := json.Marshal(newMessage(member, segments))
		if err != nil {
			return acked, fmt.Errorf("failed to encode change for member %s: %w", member, err)
		}

		if err := r.publisher.Publish(r.subject, data); err != nil {
			metrics.ChangesPublished.WithLabelValues("failed").Inc()
			return acked, fmt.Errorf("failed to publish change for member %s: %w", member, err)
		}
		pending = append(pending, member)

		if len(pending) >= flushEvery {
			if err := commit(); err != nil {
				return acked, err
			}
		}
	}

	if err := commit(); err != nil {
		return acked, err
	}
	return acked, nil
}

// Run flushes the queue every interval until ctx is done.
func (r *Relay) Run(ctx context.Context) {
	if r.interval <= 0 {
		r.logger.Warn("Change relay disabled", zap.Duration("interval", r.interval))
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		n, err := r.Flush(ctx)
		if err != nil && ctx.Err() == nil {
			r.logger.Error("Change relay flush failed", zap.Int("published", n), zap.Error(err))
			continue
		}
		if n > 0 {
			r.logger.Info("Published membership changes", zap.Int("members", n), zap.String("subject", r.subject))
		}
	}
}

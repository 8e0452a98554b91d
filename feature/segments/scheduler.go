package segments

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Summary reports a refresh-all run.
type Summary struct {
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

// Scheduler refreshes the whole catalog, once or periodically.
type Scheduler struct {
	service     *Service
	logger      *zap.Logger
	concurrency int
	interval    time.Duration
}

// NewScheduler creates a scheduler. concurrency bounds parallel refreshes.
func NewScheduler(service *Service, logger *zap.Logger, concurrency int, interval time.Duration) *Scheduler {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Scheduler{
		service:     service,
		logger:      logger,
		concurrency: concurrency,
		interval:    interval,
	}
}

// RefreshAll refreshes every segment, highest priority first.
// A failing segment is counted and logged; the others still run.
func (s *Scheduler) RefreshAll(ctx context.Context) (Summary, error) {
	start := time.Now()

	list, err := s.service.List(ctx)
	if err != nil {
		return Summary{}, err
	}

	var failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, seg := range list {
		g.Go(func() error {
			segStart := time.Now()
			_, err := s.service.refresh(gctx, &seg)

			l := s.logger.With(
				zap.Uint("segment_id", seg.ID),
				zap.String("name", seg.Name),
				zap.Int64("duration_ms", time.Since(segStart).Milliseconds()),
			)
			if err != nil {
				failed.Add(1)
				l.Error("Failed to refresh segment", zap.Error(err))
				return nil
			}
			l.Info("Refreshed segment")
			return nil
		})
	}
	_ = g.Wait()

	sum := Summary{
		Total:    len(list),
		Failed:   int(failed.Load()),
		Duration: time.Since(start),
	}
	sum.Succeeded = sum.Total - sum.Failed

	s.logger.Info("Segments refreshed",
		zap.Int("succeeded", sum.Succeeded),
		zap.Int("failed", sum.Failed),
		zap.Duration("duration", sum.Duration),
	)
	return sum, ctx.Err()
}

// Run refreshes the catalog immediately and then every interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Warn("Segment scheduler disabled", zap.Duration("interval", s.interval))
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.RefreshAll(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("Scheduled refresh failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

package segments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"segment-sync/core/database"
	"segment-sync/core/reconcile"
	"segment-sync/core/rows"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

var (
	// ErrInvalidMember is returned when a member id is not a positive integer.
	ErrInvalidMember = errors.New("invalid member id")
	// ErrInvalidInput is returned when a segment is missing required fields.
	ErrInvalidInput = errors.New("invalid segment")
)

// Service manages the segment catalog and keeps the membership index in step with it.
type Service struct {
	repo   *Repository
	engine *reconcile.Engine
	source rows.Source
	db     *gorm.DB
	logger *zap.Logger
	cfg    reconcile.Config

	// refreshes collapses concurrent refresh triggers of the same segment in this process.
	refreshes singleflight.Group
}

// NewService creates a new segments service.
func NewService(repo *Repository, engine *reconcile.Engine, source rows.Source, db *gorm.DB, logger *zap.Logger, cfg reconcile.Config) *Service {
	return &Service{
		repo:   repo,
		engine: engine,
		source: source,
		db:     db,
		logger: logger,
		cfg:    cfg,
	}
}

// List returns the catalog, highest priority first.
func (s *Service) List(ctx context.Context) ([]Segment, error) {
	return s.repo.List(ctx)
}

// Get returns a single segment.
func (s *Service) Get(ctx context.Context, id uint) (*Segment, error) {
	return s.repo.Get(ctx, id)
}

// ValidateDefinition proves a definition is a query that executes.
// Failures wrap rows.ErrInvalidDefinition.
func (s *Service) ValidateDefinition(ctx context.Context, definition string) (database.QueryProbe, error) {
	if err := rows.CheckDefinition(definition); err != nil {
		return database.QueryProbe{}, err
	}
	probe, err := database.ProbeQuery(ctx, s.db, definition)
	if err != nil {
		return probe, fmt.Errorf("%w: %v", rows.ErrInvalidDefinition, err)
	}
	if len(probe.Columns) == 0 {
		return probe, fmt.Errorf("%w: query returns no columns", rows.ErrInvalidDefinition)
	}
	return probe, nil
}

// Create validates and stores a new segment, then builds its membership.
// A failed initial refresh is logged; the segment is still created.
func (s *Service) Create(ctx context.Context, in Input) (*Segment, error) {
	seg := &Segment{
		Name:       strings.TrimSpace(in.Name),
		Slug:       in.Slug,
		Priority:   in.Priority,
		Definition: in.Definition,
	}
	if err := s.check(ctx, seg); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, seg); err != nil {
		return nil, err
	}
	s.logger.Info("Segment created", zap.Uint("segment_id", seg.ID), zap.String("name", seg.Name))

	s.refreshOnSave(ctx, seg.ID)
	return s.repo.Get(ctx, seg.ID)
}

// Update changes a segment. With refresh_on_save enabled the membership is rebuilt.
func (s *Service) Update(ctx context.Context, id uint, in Input) (*Segment, error) {
	seg, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	seg.Name = strings.TrimSpace(in.Name)
	seg.Slug = in.Slug
	seg.Priority = in.Priority
	seg.Definition = in.Definition
	if err := s.check(ctx, seg); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, seg); err != nil {
		return nil, err
	}

	if s.cfg.RefreshOnSave {
		s.refreshOnSave(ctx, seg.ID)
	}
	return s.repo.Get(ctx, seg.ID)
}

// Delete tears the segment down in the index and removes it from the catalog.
// If teardown fails the catalog row is kept so the delete can be retried.
func (s *Service) Delete(ctx context.Context, id uint) error {
	seg, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	n, err := s.engine.Delete(ctx, seg.Key())
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Segment removed", zap.Uint("segment_id", id), zap.Int64("members", n))
	return nil
}

// Refresh rebuilds the membership of one segment.
func (s *Service) Refresh(ctx context.Context, id uint) (reconcile.Result, error) {
	seg, err := s.repo.Get(ctx, id)
	if err != nil {
		return reconcile.Result{}, err
	}
	return s.refresh(ctx, seg)
}

// refresh runs the engine and records the new cardinality in the catalog.
// Concurrent calls for the same segment share one run. The shared run is detached from the
// caller that started it; each caller stops waiting when its own context ends.
func (s *Service) refresh(ctx context.Context, seg *Segment) (reconcile.Result, error) {
	runCtx := context.WithoutCancel(ctx)
	ch := s.refreshes.DoChan(seg.Key(), func() (any, error) {
		res, err := s.engine.Refresh(runCtx, seg.Key(), seg.Definition, s.source)
		if err != nil {
			// A failed refresh may still have rewritten the Live Set.
			if res.Published {
				if rerr := s.repo.RecordCount(runCtx, seg.ID, res.Cardinality); rerr != nil {
					s.logger.Error("Failed to record segment count", zap.Uint("segment_id", seg.ID), zap.Error(rerr))
				}
			}
			return res, err
		}

		if err := s.repo.MarkRefreshed(runCtx, seg.ID, res.Cardinality, time.Now()); err != nil {
			s.logger.Error("Failed to record segment refresh", zap.Uint("segment_id", seg.ID), zap.Error(err))
		}
		return res, nil
	})

	select {
	case r := <-ch:
		if r.Shared {
			s.logger.Debug("Joined in-flight segment refresh", zap.Uint("segment_id", seg.ID))
		}
		return r.Val.(reconcile.Result), r.Err
	case <-ctx.Done():
		return reconcile.Result{SegmentID: seg.Key()}, ctx.Err()
	}
}

func (s *Service) refreshOnSave(ctx context.Context, id uint) {
	if _, err := s.Refresh(ctx, id); err != nil {
		s.logger.Warn("Refresh after save failed", zap.Uint("segment_id", id), zap.Error(err))
	}
}

func (s *Service) check(ctx context.Context, seg *Segment) error {
	if seg.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if seg.Slug == "" {
		seg.Slug = Slugify(seg.Name)
	}
	_, err := s.ValidateDefinition(ctx, seg.Definition)
	return err
}

// Members returns up to limit members of a segment. A non-positive limit returns all of them.
func (s *Service) Members(ctx context.Context, id uint, limit int) ([]string, error) {
	seg, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	out := []string{}
	for m, err := range s.engine.Index().SegmentMembers(ctx, seg.Key()) {
		if err != nil {
			return nil, fmt.Errorf("failed to list members of segment %d: %w", id, err)
		}
		out = append(out, m)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Count returns the live cardinality of a segment.
func (s *Service) Count(ctx context.Context, id uint) (int64, error) {
	seg, err := s.repo.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	return s.engine.Index().SegmentCardinality(ctx, seg.Key())
}

// MemberSegments returns the ids of the segments a member belongs to.
func (s *Service) MemberSegments(ctx context.Context, member string) ([]string, error) {
	id, ok := rows.IsValidMemberID(member)
	if !ok {
		return nil, ErrInvalidMember
	}
	return s.engine.Index().MemberSegments(ctx, id)
}

// HasMember reports whether a member belongs to a segment. Store failures read as false.
func (s *Service) HasMember(ctx context.Context, id uint, member string) (bool, error) {
	m, ok := rows.IsValidMemberID(member)
	if !ok {
		return false, ErrInvalidMember
	}
	seg, err := s.repo.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return s.engine.Index().HasMember(ctx, seg.Key(), m), nil
}

package segments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a segment does not exist.
var ErrNotFound = errors.New("segment not found")

// Repository persists the segment catalog.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates or updates the segments table.
func (r *Repository) Migrate() error {
	return r.db.AutoMigrate(&Segment{})
}

// List returns every segment, highest priority first.
func (r *Repository) List(ctx context.Context) ([]Segment, error) {
	var list []Segment
	if err := r.db.WithContext(ctx).Order("priority desc").Order("id asc").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list segments: %w", err)
	}
	return list, nil
}

// Get returns the segment with the given id.
func (r *Repository) Get(ctx context.Context, id uint) (*Segment, error) {
	var s Segment
	err := r.db.WithContext(ctx).First(&s, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load segment %d: %w", id, err)
	}
	return &s, nil
}

// Create inserts s and fills its id and timestamps.
func (r *Repository) Create(ctx context.Context, s *Segment) error {
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		return fmt.Errorf("failed to create segment: %w", err)
	}
	return nil
}

// Update writes the editable columns of s.
func (r *Repository) Update(ctx context.Context, s *Segment) error {
	res := r.db.WithContext(ctx).Model(s).Select("name", "slug", "priority", "definition").Updates(s)
	if res.Error != nil {
		return fmt.Errorf("failed to update segment %d: %w", s.ID, res.Error)
	}
	return nil
}

// Delete removes the segment with the given id.
func (r *Repository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&Segment{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete segment %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkRefreshed records the outcome of a refresh.
func (r *Repository) MarkRefreshed(ctx context.Context, id uint, count int64, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&Segment{}).Where("id = ?", id).
		UpdateColumns(map[string]any{"members_count": count, "recalculated_at": at})
	if res.Error != nil {
		return fmt.Errorf("failed to record refresh of segment %d: %w", id, res.Error)
	}
	return nil
}

// RecordCount updates the member count without marking the segment as recalculated.
func (r *Repository) RecordCount(ctx context.Context, id uint, count int64) error {
	res := r.db.WithContext(ctx).Model(&Segment{}).Where("id = ?", id).UpdateColumn("members_count", count)
	if res.Error != nil {
		return fmt.Errorf("failed to record member count of segment %d: %w", id, res.Error)
	}
	return nil
}

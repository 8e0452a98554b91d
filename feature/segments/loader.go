package segments

import (
	"segment-sync/core/reconcile"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	service   *Service
	scheduler *Scheduler
	handler   *Handler
}

// NewFeature creates the segments feature. A nil db disables it.
func NewFeature(db *gorm.DB, engine *reconcile.Engine, logger *zap.Logger, cfg reconcile.Config) *Feature {
	f := &Feature{}
	if db == nil {
		return f
	}

	svc := NewService(NewRepository(db), engine, NewSQLSource(db), db, logger, cfg)
	f.service = svc
	f.scheduler = NewScheduler(svc, logger, cfg.Concurrency, cfg.RefreshInterval)
	f.handler = NewHandler(svc, f.scheduler)
	return f
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "segments"
}

// IsEnabled checks if the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return f.service != nil
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	if err := f.service.repo.Migrate(); err != nil {
		return err
	}
	f.handler.RegisterRoutes(app)
	return nil
}

// Service returns the segments service, or nil when the feature is disabled.
func (f *Feature) Service() *Service {
	return f.service
}

// Scheduler returns the refresh scheduler, or nil when the feature is disabled.
func (f *Feature) Scheduler() *Scheduler {
	return f.scheduler
}

package changes

import (
	"segment-sync/core/index"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	relay   *Relay
	handler *Handler
}

// NewFeature creates the changes feature. relay may be nil when no broker is configured.
func NewFeature(store *index.Store, relay *Relay, logger *zap.Logger) *Feature {
	return &Feature{relay: relay, handler: NewHandler(store, relay, logger)}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "changes"
}

// IsEnabled checks if the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return true
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}

// Relay returns the change relay, or nil when publishing is disabled.
func (f *Feature) Relay() *Relay {
	return f.relay
}

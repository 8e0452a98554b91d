package snapshots

import (
	"github.com/gofiber/fiber/v2"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	exporter *Exporter
	handler  *Handler
}

// NewFeature creates the snapshots feature. A nil exporter disables it.
func NewFeature(exporter *Exporter) *Feature {
	f := &Feature{exporter: exporter}
	if exporter != nil {
		f.handler = NewHandler(exporter)
	}
	return f
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "snapshots"
}

// IsEnabled checks if the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return f.exporter != nil
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}

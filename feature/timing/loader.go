package timing

import (
	"race-timing/core/realtime"

	"github.com/gofiber/fiber/v2"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	service *Service
	handler *Handler
}

// NewFeature creates the timing feature.
func NewFeature(service *Service, hub *realtime.Hub, production bool) *Feature {
	return &Feature{service: service, handler: NewHandler(service, hub, production)}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "timing"
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

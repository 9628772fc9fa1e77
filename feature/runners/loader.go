package runners

import "github.com/gofiber/fiber/v2"

// Feature implements the loader.Feature interface.
type Feature struct {
	handler *Handler
}

// NewFeature creates the runners feature.
func NewFeature(service *Service, production bool) *Feature {
	return &Feature{handler: NewHandler(service, production)}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "runners"
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

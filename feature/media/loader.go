package media

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	service *Service
	handler *Handler
}

// NewFeature creates a new media search feature around an existing service.
func NewFeature(svc *Service, timeout time.Duration) *Feature {
	return &Feature{service: svc, handler: NewHandler(svc, timeout)}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "media"
}

// IsEnabled checks if the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return f.service != nil
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}

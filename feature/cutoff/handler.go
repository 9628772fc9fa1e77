package cutoff

import (
	"race-timing/core/apperr"
	"race-timing/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for cutoff checks.
type Handler struct {
	monitor    *Monitor
	production bool
}

// NewHandler creates a new HTTP handler.
func NewHandler(monitor *Monitor, production bool) *Handler {
	return &Handler{monitor: monitor, production: production}
}

// RegisterRoutes registers the cutoff routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	app.Group("/cutoffs").Post("/check", h.HandleCheck)
}

// HandleCheck runs one cutoff check on demand.
// @Summary Check Cutoffs
// @Description Marks in_progress runners without a recorded checkpoint DNF for every passed cutoff.
// @Tags cutoffs
// @Produce json
// @Success 200 {object} Result
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /cutoffs/check [post]
func (h *Handler) HandleCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.monitor.logger, c)
	res, err := h.monitor.Check(c.Context())
	if err != nil {
		l.Error("Cutoff check failed", zap.Error(err))
		return apperr.Respond(c, err, h.production)
	}
	l.Info("Cutoff check completed", zap.Int("processed", res.Processed), zap.Int64("dnf", res.DNFCount))
	return c.JSON(res)
}

// Feature implements the loader.Feature interface.
type Feature struct {
	handler *Handler
}

// NewFeature creates the cutoff feature.
func NewFeature(monitor *Monitor, production bool) *Feature {
	return &Feature{handler: NewHandler(monitor, production)}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "cutoffs"
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

package runners

import (
	"race-timing/core/apperr"
	"race-timing/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for runners.
type Handler struct {
	service    *Service
	production bool
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service, production bool) *Handler {
	return &Handler{service: service, production: production}
}

// RegisterRoutes registers the runner routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/runners")
	group.Get("/", h.HandleList)
	group.Get("/stats", h.HandleStats)
	group.Get("/lookup", h.HandleLookup)
}

func (h *Handler) fail(c *fiber.Ctx, msg string, err error) error {
	if apperr.KindOf(err) == "" {
		logger.WithRayID(h.service.logger, c).Error(msg, zap.Error(err))
	}
	return apperr.Respond(c, err, h.production)
}

// HandleList lists runners.
// @Summary List Runners
// @Description Lists runners ordered by event and bib. The limit is capped by the server.
// @Tags runners
// @Produce json
// @Param eventId query string false "Event ID"
// @Param status query string false "Race status"
// @Param category query string false "Category"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} Page
// @Failure 400 {object} map[string]string "Invalid filter"
// @Router /runners [get]
func (h *Handler) HandleList(c *fiber.Ctx) error {
	page, err := h.service.List(c.Context(), ListQuery{
		EventID:  c.Query("eventId"),
		Status:   c.Query("status"),
		Category: c.Query("category"),
		Limit:    c.QueryInt("limit"),
		Offset:   c.QueryInt("offset"),
	})
	if err != nil {
		return h.fail(c, "Failed to list runners", err)
	}
	return c.JSON(page)
}

// HandleStats returns runner counts.
// @Summary Runner Stats
// @Tags runners
// @Produce json
// @Param eventId query string false "Event ID"
// @Success 200 {object} Stats
// @Router /runners/stats [get]
func (h *Handler) HandleStats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.Context(), c.Query("eventId"))
	if err != nil {
		return h.fail(c, "Failed to count runners", err)
	}
	return c.JSON(stats)
}

// HandleLookup finds one runner by bib or chip.
// @Summary Lookup Runner
// @Tags runners
// @Produce json
// @Param eventId query string true "Event ID"
// @Param bib query string false "Bib"
// @Param chip query string false "Chip code or RFID tag"
// @Success 200 {object} store.Runner
// @Failure 400 {object} map[string]string "Missing parameters"
// @Failure 404 {object} map[string]string "Runner not found"
// @Router /runners/lookup [get]
func (h *Handler) HandleLookup(c *fiber.Ctx) error {
	runner, err := h.service.Lookup(c.Context(), c.Query("eventId"), c.Query("bib"), c.Query("chip"))
	if err != nil {
		return h.fail(c, "Runner lookup failed", err)
	}
	return c.JSON(runner)
}

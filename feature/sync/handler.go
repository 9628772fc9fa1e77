package sync

import (
	"race-timing/core/apperr"
	"race-timing/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for provider reconciliation.
type Handler struct {
	service    *Service
	scheduler  *Scheduler
	production bool
}

// NewHandler creates a new HTTP handler. scheduler may be nil when scheduled sync is off.
func NewHandler(service *Service, scheduler *Scheduler, production bool) *Handler {
	return &Handler{service: service, scheduler: scheduler, production: production}
}

// RegisterRoutes registers the sync routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/sync")
	group.Get("/errors", h.HandleErrors)
	group.Get("/scheduler", h.HandleSchedulerStats)

	campaign := group.Group("/campaigns/:id")
	campaign.Post("/import", h.HandleImport)
	campaign.Post("/timing", h.HandleTiming)
	campaign.Get("/preview", h.HandlePreview)
	campaign.Get("/logs", h.HandleLogs)
	campaign.Get("/latest-payload", h.HandleLatestPayload)
	campaign.Put("/auto-sync", h.HandleAutoSync)
}

func (h *Handler) fail(c *fiber.Ctx, msg string, err error) error {
	if apperr.KindOf(err) == "" {
		logger.WithRayID(h.service.logger, c).Error(msg, zap.String("campaign_id", c.Params("id")), zap.Error(err))
	}
	return apperr.Respond(c, err, h.production)
}

// HandleImport runs a full runner import.
// @Summary Import Runners
// @Description Imports events, checkpoints and runners from the timing provider, then merges scores.
// @Tags sync
// @Accept json
// @Produce json
// @Param id path string true "Campaign ID"
// @Param options body ImportOptions false "Import options"
// @Success 200 {object} ImportResult
// @Failure 400 {object} map[string]string "Sync disabled or credentials missing"
// @Failure 404 {object} map[string]string "Campaign not found"
// @Failure 502 {object} map[string]string "Provider unavailable"
// @Router /sync/campaigns/{id}/import [post]
func (h *Handler) HandleImport(c *fiber.Ctx) error {
	var opts ImportOptions
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&opts); err != nil {
			return apperr.Respond(c, apperr.Invalid("invalid import options"), h.production)
		}
	}
	if c.QueryBool("update") {
		opts.UpdateExisting = true
	}

	res, err := h.service.ImportFromProvider(c.Context(), c.Params("id"), opts)
	if err != nil {
		return h.fail(c, "Import failed", err)
	}
	return c.JSON(res)
}

// HandleTiming merges provider scores into stored runners.
// @Summary Sync Timing
// @Tags sync
// @Produce json
// @Param id path string true "Campaign ID"
// @Success 200 {object} TimingResult
// @Failure 400 {object} map[string]string "Sync disabled or credentials missing"
// @Failure 404 {object} map[string]string "Campaign not found"
// @Failure 502 {object} map[string]string "Provider unavailable"
// @Router /sync/campaigns/{id}/timing [post]
func (h *Handler) HandleTiming(c *fiber.Ctx) error {
	res, err := h.service.SyncTimingOnly(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, "Timing sync failed", err)
	}
	return c.JSON(res)
}

// HandlePreview fetches one provider page for diagnostics.
// @Summary Preview Provider Data
// @Tags sync
// @Produce json
// @Param id path string true "Campaign ID"
// @Param type query string false "info, bio, score or split" default(bio)
// @Param page query int false "Page" default(1)
// @Success 200 {object} Preview
// @Failure 400 {object} map[string]string "Invalid type"
// @Failure 502 {object} map[string]string "Provider unavailable"
// @Router /sync/campaigns/{id}/preview [get]
func (h *Handler) HandlePreview(c *fiber.Ctx) error {
	preview, err := h.service.PreviewProviderData(c.Context(), c.Params("id"), c.Query("type", "bio"), c.QueryInt("page", 1))
	if err != nil {
		return h.fail(c, "Preview failed", err)
	}
	return c.JSON(preview)
}

// HandleLogs returns a campaign's recent sync history.
// @Summary Sync Logs
// @Tags sync
// @Produce json
// @Param id path string true "Campaign ID"
// @Success 200 {object} SyncData
// @Failure 404 {object} map[string]string "Campaign not found"
// @Router /sync/campaigns/{id}/logs [get]
func (h *Handler) HandleLogs(c *fiber.Ctx) error {
	data, err := h.service.SyncData(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, "Failed to load sync logs", err)
	}
	return c.JSON(data)
}

// HandleLatestPayload returns the newest stored run detail.
// @Summary Latest Sync Payload
// @Tags sync
// @Produce json
// @Param id path string true "Campaign ID"
// @Success 200 {object} store.SyncLog
// @Failure 404 {object} map[string]string "No payload recorded"
// @Router /sync/campaigns/{id}/latest-payload [get]
func (h *Handler) HandleLatestPayload(c *fiber.Ctx) error {
	entry, err := h.service.LatestPayload(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, "Failed to load latest payload", err)
	}
	return c.JSON(entry)
}

// HandleErrors lists campaigns whose last sync failed.
// @Summary Campaign Sync Errors
// @Tags sync
// @Produce json
// @Success 200 {array} store.SyncLog
// @Router /sync/errors [get]
func (h *Handler) HandleErrors(c *fiber.Ctx) error {
	logs, err := h.service.CampaignSyncErrors(c.Context())
	if err != nil {
		return h.fail(c, "Failed to list sync errors", err)
	}
	return c.JSON(logs)
}

type autoSyncBody struct {
	Enabled *bool `json:"enabled"`
}

// HandleAutoSync toggles scheduled sync for a campaign.
// @Summary Set Auto Sync
// @Tags sync
// @Accept json
// @Produce json
// @Param id path string true "Campaign ID"
// @Param body body autoSyncBody true "Toggle"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Invalid body"
// @Failure 404 {object} map[string]string "Campaign not found"
// @Router /sync/campaigns/{id}/auto-sync [put]
func (h *Handler) HandleAutoSync(c *fiber.Ctx) error {
	var body autoSyncBody
	if err := c.BodyParser(&body); err != nil || body.Enabled == nil {
		return apperr.Respond(c, apperr.Invalid("enabled is required"), h.production)
	}
	if err := h.service.SetAutoSync(c.Context(), c.Params("id"), *body.Enabled); err != nil {
		return h.fail(c, "Failed to update auto sync", err)
	}
	logger.WithRayID(h.service.logger, c).Info("Auto sync updated",
		zap.String("campaign_id", c.Params("id")), zap.Bool("enabled", *body.Enabled))
	return c.JSON(fiber.Map{"campaignId": c.Params("id"), "autoSync": *body.Enabled})
}

// HandleSchedulerStats reports the scheduler state.
// @Summary Scheduler Stats
// @Tags sync
// @Produce json
// @Success 200 {object} SchedulerStats
// @Router /sync/scheduler [get]
func (h *Handler) HandleSchedulerStats(c *fiber.Ctx) error {
	if h.scheduler == nil {
		return c.JSON(SchedulerStats{})
	}
	return c.JSON(h.scheduler.Stats())
}

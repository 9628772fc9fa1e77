package timing

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"race-timing/core/apperr"
	"race-timing/core/logger"
	"race-timing/core/realtime"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

const streamHeartbeat = 15 * time.Second

// Handler handles HTTP requests for scan ingestion.
type Handler struct {
	service    *Service
	hub        *realtime.Hub
	production bool
}

// NewHandler creates a new HTTP handler. hub may be nil, which disables streaming.
func NewHandler(service *Service, hub *realtime.Hub, production bool) *Handler {
	return &Handler{service: service, hub: hub, production: production}
}

// RegisterRoutes registers the timing routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/timing")
	group.Post("/scan", h.HandleScan)
	group.Get("/runners/:runnerId/scans", h.HandleRunnerScans)
	group.Get("/events/:eventId/scans", h.HandleEventScans)
	group.Get("/events/:eventId/stream", h.HandleStream)
	group.Post("/events/:eventId/status", h.HandleEventStatus)
}

// HandleScan records a checkpoint scan.
// @Summary Record Scan
// @Description Appends a scan for the runner identified by bib (or chip) and applies its race state effect.
// @Tags timing
// @Accept json
// @Produce json
// @Param scan body ScanInput true "Scan"
// @Success 201 {object} store.ScanRecord
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 404 {object} map[string]string "Runner not found"
// @Router /timing/scan [post]
func (h *Handler) HandleScan(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	var in ScanInput
	if err := c.BodyParser(&in); err != nil {
		return apperr.Respond(c, apperr.Invalid("invalid scan body"), h.production)
	}

	record, err := h.service.ProcessScan(c.Context(), in)
	if err != nil {
		if apperr.KindOf(err) == "" {
			l.Error("Scan failed", zap.Error(err))
		}
		return apperr.Respond(c, err, h.production)
	}
	return c.Status(fiber.StatusCreated).JSON(record)
}

// HandleRunnerScans lists a runner's scans.
// @Summary List Runner Scans
// @Tags timing
// @Produce json
// @Param runnerId path string true "Runner ID"
// @Success 200 {array} store.ScanRecord
// @Failure 404 {object} map[string]string "Runner not found"
// @Router /timing/runners/{runnerId}/scans [get]
func (h *Handler) HandleRunnerScans(c *fiber.Ctx) error {
	scans, err := h.service.RunnerScans(c.Context(), c.Params("runnerId"))
	if err != nil {
		return apperr.Respond(c, err, h.production)
	}
	return c.JSON(scans)
}

// HandleEventScans lists an event's scans, newest first.
// @Summary List Event Scans
// @Tags timing
// @Produce json
// @Param eventId path string true "Event ID"
// @Param limit query int false "Page size (capped)"
// @Param offset query int false "Offset"
// @Success 200 {array} store.ScanRecord
// @Router /timing/events/{eventId}/scans [get]
func (h *Handler) HandleEventScans(c *fiber.Ctx) error {
	scans, err := h.service.EventScans(c.Context(), c.Params("eventId"), c.QueryInt("limit"), c.QueryInt("offset"))
	if err != nil {
		return apperr.Respond(c, err, h.production)
	}
	return c.JSON(scans)
}

// HandleEventStatus stores and broadcasts an event status.
// @Summary Set Event Status
// @Tags timing
// @Accept json
// @Produce json
// @Param eventId path string true "Event ID"
// @Param body body map[string]string true "{\"status\": \"live\"}"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string "Event not found"
// @Router /timing/events/{eventId}/status [post]
func (h *Handler) HandleEventStatus(c *fiber.Ctx) error {
	var body struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&body); err != nil {
		return apperr.Respond(c, apperr.Invalid("invalid status body"), h.production)
	}
	if err := h.service.SetEventStatus(c.Context(), c.Params("eventId"), body.Status); err != nil {
		return apperr.Respond(c, err, h.production)
	}
	return c.JSON(fiber.Map{"eventId": c.Params("eventId"), "status": body.Status})
}

// HandleStream streams the event room as server-sent events.
// @Summary Stream Event Updates
// @Description Server-sent events carrying runnerUpdate, newScan and eventStatus messages.
// @Tags timing
// @Produce text/event-stream
// @Param eventId path string true "Event ID"
// @Success 200 {string} string "event stream"
// @Router /timing/events/{eventId}/stream [get]
func (h *Handler) HandleStream(c *fiber.Ctx) error {
	if h.hub == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "streaming disabled"})
	}
	l := logger.WithRayID(h.service.logger, c)
	room := realtime.EventRoom(c.Params("eventId"))
	sub := h.hub.Subscribe(room)

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer sub.Close()
		heartbeat := time.NewTicker(streamHeartbeat)
		defer heartbeat.Stop()

		fmt.Fprintf(w, ": subscribed %s\n\n", room)
		if err := w.Flush(); err != nil {
			return
		}
		for {
			select {
			case msg, ok := <-sub.C:
				if !ok {
					return
				}
				data, err := json.Marshal(msg.Payload)
				if err != nil {
					l.Warn("Dropping unencodable stream message", zap.String("event", msg.Event), zap.Error(err))
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Event, data)
			case <-heartbeat.C:
				fmt.Fprint(w, ": ping\n\n")
			}
			if err := w.Flush(); err != nil {
				// Client went away
				return
			}
		}
	}))
	return nil
}

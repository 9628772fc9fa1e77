package health

import (
	"sort"

	"race-timing/core/logger"
	"race-timing/feature/health/checks"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for health checks.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the health routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/health")
	group.Get("/", h.HandleHealth)
	group.Get("/schema", h.HandleSchemaCheck)
	group.Get("/storage", h.HandleStorageCheck)
}

// HandleHealth runs every check.
// @Summary Run All Health Checks
// @Description Checks the database connection, the schema of the core tables and the snapshot bucket.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{} "Combined Report"
// @Failure 503 {object} map[string]interface{} "Combined Report with failures"
// @Router /health [get]
func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	report, healthy := h.service.Report(c.Context())
	if !healthy {
		logger.WithRayID(h.service.logger, c).Warn("Health check failed")
		return c.Status(fiber.StatusServiceUnavailable).JSON(report)
	}
	return c.JSON(report)
}

// HandleSchemaCheck checks the schema of the core tables.
// @Summary Check Schema
// @Description Checks that every table behind the store models exists with all of its columns.
// @Tags health
// @Produce json
// @Success 200 {object} checks.SchemaReport "Schema Report"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /health/schema [get]
func (h *Handler) HandleSchemaCheck(c *fiber.Ctx) error {
	report, err := h.service.CheckSchema()
	if err != nil {
		logger.WithRayID(h.service.logger, c).Error("Schema check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if bad := unhealthyTables(report); len(bad) > 0 {
		logger.WithRayID(h.service.logger, c).Warn("Schema drift detected", zap.Strings("tables", bad))
	}
	return c.JSON(report)
}

func unhealthyTables(report *checks.SchemaReport) []string {
	var bad []string
	for name, table := range report.Tables {
		if table.Status != "ok" {
			bad = append(bad, name)
		}
	}
	sort.Strings(bad)
	return bad
}

// HandleStorageCheck checks and optionally fixes the snapshot bucket.
// @Summary Check Storage
// @Description Checks that the snapshot bucket exists and holds the snapshot folder. Optionally creates the folder.
// @Tags health
// @Produce json
// @Param fix query boolean false "Create missing folders"
// @Success 200 {object} map[string]interface{} "Storage Report"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /health/storage [get]
func (h *Handler) HandleStorageCheck(c *fiber.Ctx) error {
	if !h.service.StorageEnabled() {
		return c.JSON(fiber.Map{"status": StatusDisabled})
	}

	l := logger.WithRayID(h.service.logger, c)
	missing, err := h.service.CheckStorage(c.Context())
	if err != nil {
		l.Error("Storage check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	if len(missing) > 0 {
		l.Warn("Missing folders detected", zap.Strings("missing", missing))
		if c.QueryBool("fix") {
			if err := h.service.FixStorage(c.Context(), missing); err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error":   "Failed to fix storage",
					"details": err.Error(),
					"missing": missing,
				})
			}
			return c.JSON(fiber.Map{"status": "fixed", "fixed": missing})
		}
	}

	return c.JSON(fiber.Map{"status": "checked", "missing": missing})
}

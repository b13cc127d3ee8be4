package integrity

import (
	"errors"

	"media-reconciler/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for integrity checks.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the integrity routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/integrity")
	group.Get("/", h.HandleIntegrityCheck)
	group.Get("/storage", h.HandleStorageCheck)
	group.Get("/database", h.HandleDatabaseCheck)
	group.Get("/upstream", h.HandleUpstreamCheck)
}

// section renders one check result for the combined report.
func section(report any, err error) map[string]any {
	switch {
	case errors.Is(err, ErrDisabled):
		return map[string]any{"status": "disabled"}
	case err != nil:
		return map[string]any{"status": "error", "error": err.Error()}
	default:
		return map[string]any{"status": "ok", "report": report}
	}
}

// HandleIntegrityCheck triggers all integrity checks.
// @Summary Run All Integrity Checks
// @Description Checks the archive bucket, the known-media table and the search API.
// @Tags integrity
// @Produce json
// @Success 200 {object} map[string]interface{} "Combined Report"
// @Router /integrity [get]
func (h *Handler) HandleIntegrityCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	l.Info("Triggering all integrity checks")

	ctx := c.UserContext()
	report := make(map[string]any)

	storageReport, err := h.service.CheckStorage(ctx)
	report["storage"] = section(storageReport, err)

	dbReport, err := h.service.CheckDatabase()
	report["database"] = section(dbReport, err)

	upstream, err := h.service.CheckUpstream(ctx)
	if err == nil && !upstream.Reachable {
		report["upstream"] = map[string]any{"status": "error", "report": upstream}
	} else {
		report["upstream"] = section(upstream, err)
	}

	return c.JSON(report)
}

// HandleStorageCheck checks and optionally creates the archive bucket.
// @Summary Check Storage
// @Description Checks that the fixture archive bucket exists. Optionally creates it.
// @Tags integrity
// @Produce json
// @Param fix query boolean false "Create the bucket if missing"
// @Success 200 {object} checks.StorageReport "Storage Report"
// @Failure 503 {object} map[string]string "Storage disabled"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /integrity/storage [get]
func (h *Handler) HandleStorageCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	ctx := c.UserContext()

	report, err := h.service.CheckStorage(ctx)
	if err != nil {
		return h.fail(c, l, "Storage check failed", err)
	}

	if !report.Exists && c.QueryBool("fix") {
		if err := h.service.FixStorage(ctx); err != nil {
			return h.fail(c, l, "Failed to create bucket", err)
		}
		report.Exists = true
	}

	return c.JSON(report)
}

// HandleDatabaseCheck checks the known-media table schema.
// @Summary Check Database
// @Description Validates that the known-media table has the columns searches read.
// @Tags integrity
// @Produce json
// @Success 200 {object} checks.DatabaseReport "Database Report"
// @Failure 503 {object} map[string]string "Database disabled"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /integrity/database [get]
func (h *Handler) HandleDatabaseCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	report, err := h.service.CheckDatabase()
	if err != nil {
		return h.fail(c, l, "Database check failed", err)
	}
	if !report.Matches {
		l.Warn("Known-media schema mismatch", zap.Strings("missing", report.Missing))
	}
	return c.JSON(report)
}

// HandleUpstreamCheck pings the search API.
// @Summary Check Upstream
// @Description Sends a trivial query to the search API and reports latency.
// @Tags integrity
// @Produce json
// @Success 200 {object} checks.UpstreamReport "Upstream Report"
// @Failure 502 {object} checks.UpstreamReport "Upstream unreachable"
// @Router /integrity/upstream [get]
func (h *Handler) HandleUpstreamCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	report, err := h.service.CheckUpstream(c.UserContext())
	if err != nil {
		return h.fail(c, l, "Upstream check failed", err)
	}
	if !report.Reachable {
		l.Warn("Search API unreachable", zap.String("endpoint", report.Endpoint), zap.String("error", report.Error))
		return c.Status(fiber.StatusBadGateway).JSON(report)
	}
	return c.JSON(report)
}

func (h *Handler) fail(c *fiber.Ctx, l *zap.Logger, msg string, err error) error {
	status := fiber.StatusInternalServerError
	if errors.Is(err, ErrDisabled) {
		status = fiber.StatusServiceUnavailable
	} else {
		l.Error(msg, zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

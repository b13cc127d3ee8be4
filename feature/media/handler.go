package media

import (
	"context"
	"errors"
	"time"

	"media-reconciler/core/logger"
	"media-reconciler/core/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for media search.
type Handler struct {
	service *Service
	timeout time.Duration
}

// NewHandler creates a new HTTP handler. A zero timeout leaves requests
// bounded only by the client.
func NewHandler(service *Service, timeout time.Duration) *Handler {
	return &Handler{service: service, timeout: timeout}
}

// RegisterRoutes registers the media routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/media")
	group.Get("/page/:title/entity", h.HandleResolveEntity)
	group.Get("/:entity", h.HandleSearch)
	group.Delete("/:entity/cache", h.HandleInvalidate)
}

// HandleSearch returns images of an entity that are used on other wikis.
// @Summary Search Media
// @Description Search files depicting an entity, keeping only files used on other wikis.
// @Tags media
// @Accept json
// @Produce json
// @Param entity path string true "Entity ID (e.g. 'Q84')"
// @Param lang query string false "Label language"
// @Param limit query int false "Number of images"
// @Param exclude query string false "File titles to skip, '|' separated or repeated"
// @Param page query string false "Page whose recorded files are skipped"
// @Success 200 {object} ImageResult "Search result"
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 502 {object} map[string]string "Upstream failure"
// @Failure 504 {object} map[string]interface{} "Upstream timeout, with the partial result"
// @Router /media/{entity} [get]
func (h *Handler) HandleSearch(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	params := SearchParams{
		EntityID: c.Params("entity"),
		Language: c.Query("lang"),
		Exclude:  queryList(c, "exclude"),
		Page:     c.Query("page"),
	}
	if raw := c.Query("limit"); raw != "" {
		params.Limit = utils.ToInt(raw, -1)
		if params.Limit < 1 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "limit must be a positive integer",
			})
		}
	}

	ctx, cancel := h.context(c)
	defer cancel()

	result, err := h.service.SearchImages(ctx, params)
	if err != nil {
		l.Error("Media search failed", zap.Stringer("params", params), zap.Error(err))
		body := fiber.Map{"error": err.Error()}
		if result != nil {
			body["result"] = result
		}
		return c.Status(statusFor(err)).JSON(body)
	}

	return c.JSON(result)
}

// HandleResolveEntity returns the entity linked to a page.
// @Summary Resolve Entity
// @Description Look up the entity a page of the illustrated wiki is about.
// @Tags media
// @Produce json
// @Param title path string true "Page title (e.g. 'London')"
// @Success 200 {object} map[string]string "Entity"
// @Failure 404 {object} map[string]string "Page has no entity"
// @Failure 502 {object} map[string]string "Upstream failure"
// @Router /media/page/{title}/entity [get]
func (h *Handler) HandleResolveEntity(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	title := c.Params("title")

	ctx, cancel := h.context(c)
	defer cancel()

	id, err := h.service.ResolveEntity(ctx, title)
	if err != nil {
		l.Error("Entity lookup failed", zap.String("title", title), zap.Error(err))
		return c.Status(statusFor(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"title":     title,
		"entity_id": id,
	})
}

// HandleInvalidate drops cached searches of an entity.
// @Summary Invalidate Cache
// @Description Drop cached search results of an entity.
// @Tags media
// @Produce json
// @Param entity path string true "Entity ID (e.g. 'Q84')"
// @Success 200 {object} map[string]int "Removed entries"
// @Failure 400 {object} map[string]string "Invalid entity"
// @Router /media/{entity}/cache [delete]
func (h *Handler) HandleInvalidate(c *fiber.Ctx) error {
	entity := c.Params("entity")
	if err := ValidateEntityID(entity); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	removed := h.service.Invalidate(entity)
	logger.WithRayID(h.service.logger, c).Info("Media cache invalidated",
		zap.String("entity_id", entity), zap.Int("removed", removed))

	return c.JSON(fiber.Map{"removed": removed})
}

func (h *Handler) context(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(c.UserContext())
	}
	return context.WithTimeout(c.UserContext(), h.timeout)
}

// queryList collects a list parameter given repeated or '|' separated.
func queryList(c *fiber.Ctx, key string) []string {
	var out []string
	for _, raw := range c.Context().QueryArgs().PeekMulti(key) {
		out = append(out, utils.SplitList(string(raw), "|")...)
	}
	return out
}

// statusFor maps a search error to an HTTP status.
func statusFor(err error) int {
	if errors.Is(err, context.DeadlineExceeded) {
		return fiber.StatusGatewayTimeout
	}
	switch ErrorKind(err) {
	case "invalid":
		return fiber.StatusBadRequest
	case "not_found":
		return fiber.StatusNotFound
	case "upstream":
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

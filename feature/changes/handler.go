package changes

import (
	"segment-sync/core/index"
	"segment-sync/core/logger"
	"segment-sync/core/rows"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler exposes the change queue to pull-based consumers.
type Handler struct {
	store  *index.Store
	relay  *Relay
	logger *zap.Logger
}

// NewHandler creates a new HTTP handler. relay may be nil.
func NewHandler(store *index.Store, relay *Relay, logger *zap.Logger) *Handler {
	return &Handler{store: store, relay: relay, logger: logger}
}

// RegisterRoutes registers the change queue routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/changes")
	group.Get("/", h.HandleList)
	group.Post("/publish", h.HandlePublish)
	group.Delete("/:member", h.HandleAck)
}

// HandleList returns queued members with their current segments. ?limit= caps the
// response (default 1000). Entries stay queued until acknowledged.
// @Router /changes [get]
func (h *Handler) HandleList(c *fiber.Ctx) error {
	ctx := c.Context()
	limit := c.QueryInt("limit", 1000)
	l := logger.WithRayID(h.logger, c)

	out := []Message{}
	for member, err := range h.store.DrainChanged(ctx) {
		if err != nil {
			l.Error("Read change queue failed", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		segments, err := h.store.MemberSegments(ctx, member)
		if err != nil {
			l.Error("Read member segments failed", zap.String("member_id", member), zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		out = append(out, newMessage(member, segments))
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return c.JSON(fiber.Map{"changes": out})
}

// HandleAck removes a member from the change queue.
// @Router /changes/{member} [delete]
func (h *Handler) HandleAck(c *fiber.Ctx) error {
	member, ok := rows.IsValidMemberID(c.Params("member"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid member id"})
	}
	if err := h.store.AckChanged(c.Context(), member); err != nil {
		logger.WithRayID(h.logger, c).Error("Acknowledge change failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandlePublish drains the queue into the broker now instead of waiting for the next tick.
// @Router /changes/publish [post]
func (h *Handler) HandlePublish(c *fiber.Ctx) error {
	if h.relay == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "change relay is not configured"})
	}
	n, err := h.relay.Flush(c.Context())
	if err != nil {
		logger.WithRayID(h.logger, c).Error("Change relay flush failed", zap.Int("published", n), zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error(), "published": n})
	}
	return c.JSON(fiber.Map{"published": n})
}

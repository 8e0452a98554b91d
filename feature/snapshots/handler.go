package snapshots

import (
	"errors"

	"segment-sync/core/logger"
	"segment-sync/core/rows"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for segment snapshots.
type Handler struct {
	exporter *Exporter
}

// NewHandler creates a new HTTP handler.
func NewHandler(exporter *Exporter) *Handler {
	return &Handler{exporter: exporter}
}

// RegisterRoutes registers the snapshot routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/snapshots")
	group.Post("/:id", h.HandleExport)
	group.Get("/:id", h.HandleList)
	group.Get("/:id/latest", h.HandleDownload)
	group.Delete("/:id", h.HandleDelete)
}

// HandleExport writes a new snapshot of the segment.
// @Router /snapshots/{id} [post]
func (h *Handler) HandleExport(c *fiber.Ctx) error {
	id, ok := rows.IsValidMemberID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid segment id"})
	}

	snap, err := h.exporter.Export(c.Context(), id)
	if err != nil {
		logger.WithRayID(h.exporter.logger, c).Error("Snapshot export failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(snap)
}

// HandleList returns the stored snapshots, newest first.
// @Router /snapshots/{id} [get]
func (h *Handler) HandleList(c *fiber.Ctx) error {
	id, ok := rows.IsValidMemberID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid segment id"})
	}

	list, err := h.exporter.List(c.Context(), id)
	if err != nil {
		logger.WithRayID(h.exporter.logger, c).Error("Snapshot listing failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if list == nil {
		list = []Snapshot{}
	}
	return c.JSON(list)
}

// HandleDownload streams the newest snapshot.
// @Router /snapshots/{id}/latest [get]
func (h *Handler) HandleDownload(c *fiber.Ctx) error {
	id, ok := rows.IsValidMemberID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid segment id"})
	}

	r, snap, err := h.exporter.Open(c.Context(), id)
	if errors.Is(err, ErrNoSnapshot) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		logger.WithRayID(h.exporter.logger, c).Error("Snapshot download failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	c.Set("X-Snapshot-Object", snap.Object)
	// fasthttp closes r once the body is written.
	return c.SendStream(r)
}

// HandleDelete removes every snapshot of the segment.
// @Router /snapshots/{id} [delete]
func (h *Handler) HandleDelete(c *fiber.Ctx) error {
	id, ok := rows.IsValidMemberID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid segment id"})
	}

	n, err := h.exporter.Prune(c.Context(), id, 0)
	if err != nil {
		logger.WithRayID(h.exporter.logger, c).Error("Snapshot removal failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error(), "removed": n})
	}
	return c.JSON(fiber.Map{"removed": n})
}

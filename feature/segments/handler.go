package segments

import (
	"errors"
	"strconv"

	"segment-sync/core/logger"
	"segment-sync/core/rows"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for segments.
type Handler struct {
	service   *Service
	scheduler *Scheduler
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service, scheduler *Scheduler) *Handler {
	return &Handler{service: service, scheduler: scheduler}
}

// RegisterRoutes registers the segment and member routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/segments")
	group.Get("/", h.HandleList)
	group.Post("/", h.HandleCreate)
	group.Post("/refresh", h.HandleRefreshAll)
	group.Post("/validate", h.HandleValidate)
	group.Get("/:id", h.HandleGet)
	group.Put("/:id", h.HandleUpdate)
	group.Delete("/:id", h.HandleDelete)
	group.Post("/:id/refresh", h.HandleRefresh)
	group.Get("/:id/members", h.HandleMembers)
	group.Get("/:id/count", h.HandleCount)

	members := app.Group("/members")
	members.Get("/:member/segments", h.HandleMemberSegments)
	members.Get("/:member/segments/:id", h.HandleMemberInSegment)
}

// HandleList returns the segment catalog.
// @Router /segments [get]
func (h *Handler) HandleList(c *fiber.Ctx) error {
	list, err := h.service.List(c.Context())
	if err != nil {
		return h.fail(c, "List segments failed", err)
	}
	return c.JSON(list)
}

// HandleCreate stores a new segment and builds its membership.
// @Router /segments [post]
func (h *Handler) HandleCreate(c *fiber.Ctx) error {
	var in Input
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	seg, err := h.service.Create(c.Context(), in)
	if err != nil {
		return h.fail(c, "Create segment failed", err)
	}
	return c.Status(fiber.StatusCreated).JSON(seg)
}

// HandleValidate checks a definition without saving it.
// @Router /segments/validate [post]
func (h *Handler) HandleValidate(c *fiber.Ctx) error {
	var in Input
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	probe, err := h.service.ValidateDefinition(c.Context(), in.Definition)
	if err != nil {
		return h.fail(c, "Definition rejected", err)
	}
	return c.JSON(probe)
}

// HandleGet returns one segment.
// @Router /segments/{id} [get]
func (h *Handler) HandleGet(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	seg, err := h.service.Get(c.Context(), id)
	if err != nil {
		return h.fail(c, "Get segment failed", err)
	}
	return c.JSON(seg)
}

// HandleUpdate changes a segment.
// @Router /segments/{id} [put]
func (h *Handler) HandleUpdate(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var in Input
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	seg, err := h.service.Update(c.Context(), id, in)
	if err != nil {
		return h.fail(c, "Update segment failed", err)
	}
	return c.JSON(seg)
}

// HandleDelete tears a segment down and removes it.
// @Router /segments/{id} [delete]
func (h *Handler) HandleDelete(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.Context(), id); err != nil {
		return h.fail(c, "Delete segment failed", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleRefresh rebuilds one segment's membership.
// @Router /segments/{id}/refresh [post]
func (h *Handler) HandleRefresh(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	res, err := h.service.Refresh(c.Context(), id)
	if err != nil {
		return h.fail(c, "Refresh segment failed", err)
	}
	return c.JSON(res)
}

// HandleRefreshAll rebuilds every segment. This may take a long time.
// @Router /segments/refresh [post]
func (h *Handler) HandleRefreshAll(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	l.Info("Triggering refresh of all segments")

	sum, err := h.scheduler.RefreshAll(c.Context())
	if err != nil {
		return h.fail(c, "Refresh all segments failed", err)
	}
	return c.JSON(sum)
}

// HandleMembers lists a segment's members. ?limit= caps the response (default 1000, 0 for all).
// @Router /segments/{id}/members [get]
func (h *Handler) HandleMembers(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	limit := c.QueryInt("limit", 1000)

	members, err := h.service.Members(c.Context(), id, limit)
	if err != nil {
		return h.fail(c, "List segment members failed", err)
	}
	return c.JSON(fiber.Map{"segment_id": id, "members": members})
}

// HandleCount returns a segment's live cardinality.
// @Router /segments/{id}/count [get]
func (h *Handler) HandleCount(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	n, err := h.service.Count(c.Context(), id)
	if err != nil {
		return h.fail(c, "Count segment members failed", err)
	}
	return c.JSON(fiber.Map{"segment_id": id, "count": n})
}

// HandleMemberSegments lists the segments a member belongs to.
// @Router /members/{member}/segments [get]
func (h *Handler) HandleMemberSegments(c *fiber.Ctx) error {
	member := c.Params("member")
	list, err := h.service.MemberSegments(c.Context(), member)
	if err != nil {
		return h.fail(c, "List member segments failed", err)
	}
	return c.JSON(fiber.Map{"member_id": member, "segments": list})
}

// HandleMemberInSegment reports whether a member belongs to a segment.
// @Router /members/{member}/segments/{id} [get]
func (h *Handler) HandleMemberInSegment(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	member := c.Params("member")
	ok, err := h.service.HasMember(c.Context(), id, member)
	if err != nil {
		return h.fail(c, "Member check failed", err)
	}
	return c.JSON(fiber.Map{"member_id": member, "segment_id": id, "member": ok})
}

// fail maps service errors onto HTTP statuses.
func (h *Handler) fail(c *fiber.Ctx, msg string, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, rows.ErrInvalidDefinition),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrInvalidMember):
		status = fiber.StatusBadRequest
	}

	l := logger.WithRayID(h.service.logger, c)
	if status == fiber.StatusInternalServerError {
		l.Error(msg, zap.Error(err))
	} else {
		l.Info(msg, zap.Error(err))
	}

	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func parseID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid segment id")
	}
	return uint(id), nil
}

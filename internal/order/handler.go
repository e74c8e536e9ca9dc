package order

import (
	"github.com/gofiber/fiber/v2"

	"github.com/wichananm65/storefront-backend/internal/apperror"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterAdminRoutes mounts order management on an already gated router.
func (h *Handler) RegisterAdminRoutes(r fiber.Router) {
	r.Get("/orders", h.getOrders)
	r.Get("/orders/:id", h.getOrder)
	r.Post("/orders/:id/status", h.setStatus)
	r.Post("/orders/:id/confirm", h.transitionTo(StatusConfirmed))
	r.Post("/orders/:id/cancel", h.transitionTo(StatusCancelled))
}

func (h *Handler) getOrders(c *fiber.Ctx) error {
	f := ListFilter{Limit: c.QueryInt("limit", 0)}
	if v := c.Query("status"); v != "" && v != "all" {
		st, ok := ParseStatus(v)
		if !ok {
			return apperror.Respond(c, apperror.InvalidFields("invalid query", map[string]string{"status": "unknown status " + v}))
		}
		f.Status = st
	}
	if f.Limit < 0 {
		return apperror.Respond(c, apperror.InvalidFields("invalid query", map[string]string{"limit": "limit must not be negative"}))
	}

	orders, err := h.service.List(c.UserContext(), f)
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "orders": orders, "count": len(orders)})
}

func (h *Handler) getOrder(c *fiber.Ctx) error {
	o, err := h.service.FindByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "order": o})
}

type statusPayload struct {
	Status string `json:"status"`
}

func (h *Handler) setStatus(c *fiber.Ctx) error {
	payload := new(statusPayload)
	if err := c.BodyParser(payload); err != nil {
		return apperror.Respond(c, apperror.InvalidInput(err.Error()))
	}
	if payload.Status == "" {
		return apperror.Respond(c, apperror.InvalidFields("invalid status", map[string]string{"status": "status is required"}))
	}
	return h.applyStatus(c, payload.Status)
}

func (h *Handler) transitionTo(status Status) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return h.applyStatus(c, string(status))
	}
}

func (h *Handler) applyStatus(c *fiber.Ctx, status string) error {
	o, err := h.service.SetStatus(c.UserContext(), c.Params("id"), status)
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "order": o})
}

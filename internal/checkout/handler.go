package checkout

import (
	"github.com/gofiber/fiber/v2"

	"github.com/wichananm65/storefront-backend/internal/apperror"
	"github.com/wichananm65/storefront-backend/internal/session"
)

// Handler serves the checkout flow. Routes must be mounted behind the session
// resolver.
type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterSessionRoutes(r fiber.Router) {
	r.Get("/api/v1/checkout", h.preview)
	r.Post("/api/v1/checkout/process", h.process)
	r.Get("/api/v1/checkout/confirmation/:orderId", h.confirmation)
}

func (h *Handler) preview(c *fiber.Ctx) error {
	sess, err := session.FromCtx(c)
	if err != nil {
		return apperror.Respond(c, apperror.Unauthorized("no session"))
	}
	view, err := h.service.Preview(c.UserContext(), sess)
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "cart": view, "pricing": view.Pricing})
}

func (h *Handler) process(c *fiber.Ctx) error {
	sess, err := session.FromCtx(c)
	if err != nil {
		return apperror.Respond(c, apperror.Unauthorized("no session"))
	}
	req := new(Request)
	if err := c.BodyParser(req); err != nil {
		return apperror.Respond(c, apperror.InvalidInput("invalid request body"))
	}
	o, err := h.service.Place(c.UserContext(), sess, *req)
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":     true,
		"message":     "Order placed successfully",
		"orderId":     o.ID,
		"orderNumber": o.OrderNumber,
		"order":       o,
	})
}

func (h *Handler) confirmation(c *fiber.Ctx) error {
	o, err := h.service.Confirmation(c.UserContext(), c.Params("orderId"))
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "order": o})
}

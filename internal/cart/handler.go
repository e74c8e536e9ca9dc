package cart

import (
	"github.com/gofiber/fiber/v2"

	"github.com/wichananm65/storefront-backend/internal/apperror"
	"github.com/wichananm65/storefront-backend/internal/pricing"
	"github.com/wichananm65/storefront-backend/internal/session"
)

// Handler delegates cart operations to the cart service.
// Routes must be mounted behind the session resolver.
type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterSessionRoutes(r fiber.Router) {
	r.Get("/api/v1/cart", h.getCart)
	r.Post("/api/v1/cart/add/:productId", h.addItem)
	r.Post("/api/v1/cart/update/:productId", h.updateItem)
	r.Post("/api/v1/cart/remove/:productId", h.removeItem)
	r.Post("/api/v1/cart/clear", h.clear)
}

type quantityRequest struct {
	Quantity *int `json:"quantity" form:"quantity"`
}

// parseQuantity reads the body quantity; fallback applies when it is absent.
func parseQuantity(c *fiber.Ctx, fallback int) (int, error) {
	payload := new(quantityRequest)
	if len(c.Body()) > 0 {
		if err := c.BodyParser(payload); err != nil {
			return 0, apperror.InvalidInput("invalid request body")
		}
	}
	if payload.Quantity == nil {
		return fallback, nil
	}
	return *payload.Quantity, nil
}

func (h *Handler) getCart(c *fiber.Ctx) error {
	sess, err := session.FromCtx(c)
	if err != nil {
		return apperror.Respond(c, apperror.Unauthorized("no session"))
	}
	view, err := h.service.View(c.UserContext(), sess)
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "cart": view})
}

func (h *Handler) addItem(c *fiber.Ctx) error {
	sess, err := session.FromCtx(c)
	if err != nil {
		return apperror.Respond(c, apperror.Unauthorized("no session"))
	}
	qty, err := parseQuantity(c, 1)
	if err != nil {
		return apperror.Respond(c, err)
	}
	view, err := h.service.AddItem(c.UserContext(), sess, c.Params("productId"), qty)
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(fiber.Map{
		"success":    true,
		"message":    "Product added to cart",
		"totalItems": view.TotalItems,
		"cart":       view,
	})
}

func (h *Handler) updateItem(c *fiber.Ctx) error {
	sess, err := session.FromCtx(c)
	if err != nil {
		return apperror.Respond(c, apperror.Unauthorized("no session"))
	}
	qty, err := parseQuantity(c, 0)
	if err != nil {
		return apperror.Respond(c, err)
	}
	view, itemTotal, err := h.service.UpdateItemQuantity(c.UserContext(), sess, c.Params("productId"), qty)
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(fiber.Map{
		"success":    true,
		"totalPrice": pricing.Amount(view.Pricing.Subtotal),
		"totalItems": view.TotalItems,
		"itemTotal":  pricing.Amount(itemTotal),
		"cart":       view,
	})
}

func (h *Handler) removeItem(c *fiber.Ctx) error {
	sess, err := session.FromCtx(c)
	if err != nil {
		return apperror.Respond(c, apperror.Unauthorized("no session"))
	}
	view, err := h.service.RemoveItem(c.UserContext(), sess, c.Params("productId"))
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(fiber.Map{
		"success":    true,
		"totalPrice": pricing.Amount(view.Pricing.Subtotal),
		"totalItems": view.TotalItems,
		"cart":       view,
	})
}

func (h *Handler) clear(c *fiber.Ctx) error {
	sess, err := session.FromCtx(c)
	if err != nil {
		return apperror.Respond(c, apperror.Unauthorized("no session"))
	}
	if _, err := h.service.Clear(c.UserContext(), sess); err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

package product

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/wichananm65/storefront-backend/internal/apperror"
)

type Handler struct {
	service    *Service
	allowReset bool
}

// NewHandler builds the catalog handler. allowReset enables the dev-only
// /dev/reset-products endpoint.
func NewHandler(service *Service, allowReset bool) *Handler {
	return &Handler{service: service, allowReset: allowReset}
}

func (h *Handler) RegisterPublicRoutes(r fiber.Router) {
	r.Get("/api/v1/products", h.getProducts)
	r.Get("/api/v1/products/categories", h.getCategories)
	r.Get("/api/v1/products/:id", h.getProduct)

	// dev-only: enabled when ALLOW_RESET_PRODUCTS=1
	r.Post("/dev/reset-products", h.resetProducts)
}

// RegisterAdminRoutes mounts product management on an already gated router.
func (h *Handler) RegisterAdminRoutes(r fiber.Router) {
	r.Get("/products", h.getProducts)
	r.Post("/products", h.createProduct)
	r.Get("/products/:id", h.getProduct)
	r.Put("/products/:id", h.updateProduct)
	r.Delete("/products/:id", h.deleteProduct)
}

// productPayload is the admin create/update body.
type productPayload struct {
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Stock       int             `json:"stock"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
}

func (p productPayload) product() Product {
	return Product{
		Name:        p.Name,
		Price:       p.Price,
		Category:    p.Category,
		Stock:       p.Stock,
		Description: p.Description,
		Image:       p.Image,
	}
}

func parseFilter(c *fiber.Ctx) (Filter, error) {
	f := Filter{
		Category: c.Query("category"),
		Search:   c.Query("search"),
		Page:     c.QueryInt("page", 1),
		Limit:    c.QueryInt("limit", DefaultLimit),
	}
	details := map[string]string{}
	if v := c.Query("minPrice"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			details["minPrice"] = "minPrice must be a number"
		} else {
			f.MinPrice = &d
		}
	}
	if v := c.Query("maxPrice"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			details["maxPrice"] = "maxPrice must be a number"
		} else {
			f.MaxPrice = &d
		}
	}
	if len(details) > 0 {
		return Filter{}, apperror.InvalidFields("invalid query", details)
	}
	return f, nil
}

func (h *Handler) getProducts(c *fiber.Ctx) error {
	f, err := parseFilter(c)
	if err != nil {
		return apperror.Respond(c, err)
	}
	page, err := h.service.List(c.UserContext(), f)
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(fiber.Map{
		"success":    true,
		"products":   page.Products,
		"total":      page.Total,
		"page":       page.Page,
		"limit":      page.Limit,
		"totalPages": page.TotalPages,
		"filters": fiber.Map{
			"category": c.Query("category", "all"),
			"minPrice": c.Query("minPrice"),
			"maxPrice": c.Query("maxPrice"),
			"search":   c.Query("search"),
		},
	})
}

func (h *Handler) getCategories(c *fiber.Ctx) error {
	cats, err := h.service.Categories(c.UserContext())
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "categories": cats})
}

func (h *Handler) getProduct(c *fiber.Ctx) error {
	p, err := h.service.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "product": p})
}

// resetProducts replaces the catalog with the posted list, or with the sample
// catalog when the body is missing or unparsable. An explicit empty array
// clears the catalog.
func (h *Handler) resetProducts(c *fiber.Ctx) error {
	if !h.allowReset {
		return apperror.Respond(c, apperror.Forbidden("reset not allowed"))
	}

	var payload []productPayload
	var products []Product
	if err := c.BodyParser(&payload); err != nil || payload == nil {
		products = SampleCatalog(time.Now().UTC())
	} else {
		products = make([]Product, 0, len(payload))
		details := map[string]string{}
		for _, p := range payload {
			pr := p.product()
			for k, v := range Validate(pr) {
				details[k] = v
			}
			products = append(products, pr)
		}
		if len(details) > 0 {
			return apperror.Respond(c, apperror.InvalidFields("invalid product", details))
		}
	}

	out, err := h.service.ResetProducts(c.UserContext(), products)
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "products": out})
}

func (h *Handler) createProduct(c *fiber.Ctx) error {
	payload := new(productPayload)
	if err := c.BodyParser(payload); err != nil {
		return apperror.Respond(c, apperror.InvalidInput(err.Error()))
	}
	created, err := h.service.Create(c.UserContext(), payload.product())
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "product": created})
}

func (h *Handler) updateProduct(c *fiber.Ctx) error {
	payload := new(productPayload)
	if err := c.BodyParser(payload); err != nil {
		return apperror.Respond(c, apperror.InvalidInput(err.Error()))
	}
	updated, err := h.service.Update(c.UserContext(), c.Params("id"), payload.product())
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "product": updated})
}

func (h *Handler) deleteProduct(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), c.Params("id")); err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Product deleted"})
}

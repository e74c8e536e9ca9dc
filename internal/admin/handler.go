package admin

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"

	"github.com/wichananm65/storefront-backend/internal/apperror"
	"github.com/wichananm65/storefront-backend/internal/order"
	"github.com/wichananm65/storefront-backend/internal/product"
)

const (
	dashboardLowStock = 5
	dashboardRecent   = 5
)

type ProductStats interface {
	Count(ctx context.Context) (int64, error)
	Categories(ctx context.Context) ([]string, error)
	LowStock(ctx context.Context, limit int) ([]product.Product, error)
}

type OrderStats interface {
	CountByStatus(ctx context.Context) (map[order.Status]int64, error)
	List(ctx context.Context, f order.ListFilter) ([]order.Order, error)
}

// RouteRegistrar mounts routes on the gated admin group.
type RouteRegistrar interface {
	RegisterAdminRoutes(r fiber.Router)
}

type Handler struct {
	auth     *Authenticator
	products ProductStats
	orders   OrderStats
}

func NewHandler(auth *Authenticator, products ProductStats, orders OrderStats) *Handler {
	return &Handler{auth: auth, products: products, orders: orders}
}

// Dashboard summarizes the catalog and order pipeline.
type Dashboard struct {
	TotalProducts   int64                  `json:"totalProducts"`
	TotalCategories int                    `json:"totalCategories"`
	LowStock        []product.Product      `json:"lowStockProducts"`
	OrdersByStatus  map[order.Status]int64 `json:"ordersByStatus"`
	TotalOrders     int64                  `json:"totalOrders"`
	RecentOrders    []order.Order          `json:"recentOrders"`
}

// Register mounts sign-in publicly and everything else under /api/v1/admin
// behind RequireAdmin.
func (h *Handler) Register(app fiber.Router, modules ...RouteRegistrar) {
	app.Post("/api/v1/admin/sign-in", h.signIn)

	group := app.Group("/api/v1/admin", h.auth.RequireAdmin())
	group.Get("/", h.dashboard)
	for _, m := range modules {
		m.RegisterAdminRoutes(group)
	}
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) signIn(c *fiber.Ctx) error {
	payload := new(signInRequest)
	if err := c.BodyParser(payload); err != nil {
		return apperror.Respond(c, apperror.InvalidInput("invalid request body"))
	}
	token, exp, err := h.auth.SignIn(payload.Email, payload.Password)
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "token": token, "expiresAt": exp.UTC()})
}

// BuildDashboard gathers the dashboard figures concurrently.
func (h *Handler) BuildDashboard(ctx context.Context) (Dashboard, error) {
	var d Dashboard
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := h.products.Count(gctx)
		d.TotalProducts = n
		return err
	})
	g.Go(func() error {
		cats, err := h.products.Categories(gctx)
		d.TotalCategories = len(cats)
		return err
	})
	g.Go(func() error {
		low, err := h.products.LowStock(gctx, dashboardLowStock)
		d.LowStock = low
		return err
	})
	g.Go(func() error {
		counts, err := h.orders.CountByStatus(gctx)
		d.OrdersByStatus = counts
		return err
	})
	g.Go(func() error {
		recent, err := h.orders.List(gctx, order.ListFilter{Limit: dashboardRecent})
		d.RecentOrders = recent
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	full := make(map[order.Status]int64, len(order.Statuses))
	for _, st := range order.Statuses {
		full[st] = d.OrdersByStatus[st]
		d.TotalOrders += d.OrdersByStatus[st]
	}
	d.OrdersByStatus = full
	return d, nil
}

func (h *Handler) dashboard(c *fiber.Ctx) error {
	d, err := h.BuildDashboard(c.UserContext())
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "dashboard": d})
}

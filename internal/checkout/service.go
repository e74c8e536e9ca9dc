// Package checkout turns a session's cart into an order.
package checkout

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/wichananm65/storefront-backend/internal/apperror"
	"github.com/wichananm65/storefront-backend/internal/cart"
	"github.com/wichananm65/storefront-backend/internal/inventory"
	"github.com/wichananm65/storefront-backend/internal/logger"
	"github.com/wichananm65/storefront-backend/internal/messaging"
	"github.com/wichananm65/storefront-backend/internal/order"
	"github.com/wichananm65/storefront-backend/internal/pricing"
)

type Service struct {
	carts     *cart.Service
	stock     *inventory.Reconciler
	orders    *order.Service
	pricing   pricing.Engine
	publisher messaging.Publisher
	log       *zap.Logger
}

func NewService(carts *cart.Service, stock *inventory.Reconciler, orders *order.Service, engine pricing.Engine, publisher messaging.Publisher, log *zap.Logger) *Service {
	log = logger.OrNop(log)
	if publisher == nil {
		publisher = messaging.NewLogPublisher(log)
	}
	return &Service{carts: carts, stock: stock, orders: orders, pricing: engine, publisher: publisher, log: log}
}

// Preview is the cart as it would be ordered.
func (s *Service) Preview(ctx context.Context, session string) (cart.View, error) {
	v, err := s.carts.View(ctx, session)
	if err != nil {
		return cart.View{}, err
	}
	if len(v.Items) == 0 {
		return cart.View{}, apperror.InvalidInput("cart is empty")
	}
	return v, nil
}

// Place validates req, re-checks stock for every cart line under the product
// locks, records the order and decrements stock. Placement is all-or-nothing
// up to order creation; a decrement failure after that is logged only.
func (s *Service) Place(ctx context.Context, session string, req Request) (order.Order, error) {
	if err := req.Validate(); err != nil {
		return order.Order{}, err
	}

	var placed order.Order
	err := s.carts.Checkout(ctx, session, func(v cart.View) error {
		if len(v.Items) == 0 {
			return apperror.InvalidInput("cart is empty")
		}
		lines := make([]inventory.Line, 0, len(v.Items))
		ids := make([]string, 0, len(v.Items))
		for _, l := range v.Items {
			lines = append(lines, inventory.Line{ProductID: l.ProductID, Quantity: l.Quantity})
			ids = append(ids, l.ProductID)
		}

		defer s.stock.Lock(ids)()
		fresh, err := s.stock.Validate(ctx, lines)
		if err != nil {
			return err
		}

		items := make([]order.Line, 0, len(lines))
		priced := make([]pricing.Line, 0, len(lines))
		for _, l := range lines {
			p := fresh[l.ProductID]
			items = append(items, order.Line{
				ProductID: p.ID,
				Name:      p.Name,
				Price:     p.Price,
				Quantity:  l.Quantity,
				LineTotal: pricing.LineTotal(p.Price, l.Quantity),
			})
			priced = append(priced, pricing.Line{ProductID: p.ID, Price: p.Price, Quantity: l.Quantity})
		}

		o, err := s.orders.Create(ctx, order.NewOrder{
			Customer:      req.Customer,
			Shipping:      req.Shipping,
			Billing:       req.Billing,
			Items:         items,
			Pricing:       s.pricing.Compute(priced, decimal.Zero),
			PaymentMethod: req.PaymentMethod,
		})
		if err != nil {
			return err
		}
		if errs := s.stock.Decrement(ctx, lines); len(errs) > 0 {
			s.log.Warn("order placed with incomplete stock decrement",
				zap.String("order_id", o.ID),
				zap.Int("failed_lines", len(errs)),
			)
		}
		placed = o
		return nil
	})
	if err != nil {
		return order.Order{}, err
	}

	if err := s.publisher.PublishEvent(ctx, messaging.TopicOrderPlaced, placed.ID, placed); err != nil {
		s.log.Error("publish order placed", zap.String("order_id", placed.ID), zap.Error(err))
	}
	return placed, nil
}

func (s *Service) Confirmation(ctx context.Context, orderID string) (order.Order, error) {
	return s.orders.FindByID(ctx, orderID)
}

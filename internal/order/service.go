package order

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wichananm65/storefront-backend/internal/apperror"
	"github.com/wichananm65/storefront-backend/internal/logger"
	"github.com/wichananm65/storefront-backend/internal/messaging"
)

// order numbers carry 32 random bits per day; a collision is retried a few
// times before giving up.
const maxNumberAttempts = 3

// StatusChanged is the payload of an orders.status_changed event.
type StatusChanged struct {
	OrderID     string    `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`
	From        Status    `json:"from"`
	To          Status    `json:"to"`
	At          time.Time `json:"at"`
}

type Service struct {
	repo      Repository
	publisher messaging.Publisher
	log       *zap.Logger
	now       func() time.Time
}

func NewService(repo Repository, publisher messaging.Publisher, log *zap.Logger) *Service {
	log = logger.OrNop(log)
	if publisher == nil {
		publisher = messaging.NewLogPublisher(log)
	}
	return &Service{repo: repo, publisher: publisher, log: log, now: func() time.Time { return time.Now().UTC() }}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return apperror.NotFound("order not found")
	case errors.Is(err, ErrStatusConflict):
		return apperror.InvalidTransition("order status changed concurrently, reload and retry")
	default:
		return apperror.Storage(err)
	}
}

// Create stamps identity, Pending status and the initial payment status onto
// n and persists it.
func (s *Service) Create(ctx context.Context, n NewOrder) (Order, error) {
	if len(n.Items) == 0 {
		return Order{}, apperror.InvalidInput("order has no items")
	}
	if !n.PaymentMethod.Valid() {
		return Order{}, apperror.InvalidInput("invalid payment method")
	}

	now := s.now()
	o := Order{
		ID:        uuid.NewString(),
		Customer:  n.Customer,
		Shipping:  n.Shipping,
		Billing:   n.Billing,
		Items:     n.Items,
		Pricing:   n.Pricing,
		Payment:   Payment{Method: n.PaymentMethod, Status: InitialPaymentStatus(n.PaymentMethod)},
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if o.Billing.SameAsShipping {
		o.Billing.Address = o.Shipping
	}

	for attempt := 1; ; attempt++ {
		number, err := NewOrderNumber(now)
		if err != nil {
			return Order{}, apperror.Wrap(apperror.KindInternal, err, "could not generate order number")
		}
		o.OrderNumber = number
		created, err := s.repo.Create(ctx, o)
		if errors.Is(err, ErrDuplicate) && attempt < maxNumberAttempts {
			s.log.Warn("order number collision", zap.String("order_number", number), zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return Order{}, translate(err)
		}
		s.log.Info("order created",
			zap.String("order_id", created.ID),
			zap.String("order_number", created.OrderNumber),
			zap.String("total", created.Pricing.Total.StringFixed(2)),
		)
		return created, nil
	}
}

func (s *Service) FindByID(ctx context.Context, idOrNumber string) (Order, error) {
	if idOrNumber == "" {
		return Order{}, apperror.InvalidInput("order id is required")
	}
	o, err := s.repo.GetByID(ctx, idOrNumber)
	return o, translate(err)
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]Order, error) {
	orders, err := s.repo.List(ctx, f)
	return orders, translate(err)
}

func (s *Service) CountByStatus(ctx context.Context) (map[Status]int64, error) {
	counts, err := s.repo.CountByStatus(ctx)
	return counts, translate(err)
}

// SetStatus moves an order along the lifecycle. status is matched
// case-insensitively.
func (s *Service) SetStatus(ctx context.Context, idOrNumber, status string) (Order, error) {
	to, ok := ParseStatus(status)
	if !ok {
		return Order{}, apperror.InvalidFields("invalid status", map[string]string{"status": "unknown status " + status})
	}
	o, err := s.FindByID(ctx, idOrNumber)
	if err != nil {
		return Order{}, err
	}
	if !o.Status.CanTransitionTo(to) {
		return Order{}, apperror.Newf(apperror.KindInvalidTransition, "cannot change order status from %s to %s", o.Status, to)
	}

	from, at := o.Status, s.now()
	if err := s.repo.UpdateStatus(ctx, o.ID, from, to, at); err != nil {
		return Order{}, translate(err)
	}
	o.Status, o.UpdatedAt = to, at

	event := StatusChanged{OrderID: o.ID, OrderNumber: o.OrderNumber, From: from, To: to, At: at}
	if err := s.publisher.PublishEvent(ctx, messaging.TopicOrderStatusChanged, o.ID, event); err != nil {
		s.log.Error("publish status change", zap.String("order_id", o.ID), zap.Error(err))
	}
	s.log.Info("order status changed", zap.String("order_id", o.ID), zap.String("from", string(from)), zap.String("to", string(to)))
	return o, nil
}

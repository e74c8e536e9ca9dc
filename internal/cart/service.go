package cart

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/wichananm65/storefront-backend/internal/apperror"
	"github.com/wichananm65/storefront-backend/internal/inventory"
	"github.com/wichananm65/storefront-backend/internal/keylock"
	"github.com/wichananm65/storefront-backend/internal/logger"
	"github.com/wichananm65/storefront-backend/internal/pricing"
	"github.com/wichananm65/storefront-backend/internal/product"
)

// Catalog resolves product references held by carts.
type Catalog interface {
	GetByID(ctx context.Context, id string) (product.Product, error)
	GetMany(ctx context.Context, ids []string) (map[string]product.Product, error)
}

// Service orchestrates cart operations. Every operation on one session runs
// under that session's lock.
type Service struct {
	repo    Repository
	catalog Catalog
	pricing pricing.Engine
	locks   *keylock.Locker
	ttl     time.Duration
	log     *zap.Logger
	now     func() time.Time
}

func NewService(repo Repository, catalog Catalog, engine pricing.Engine, ttl time.Duration, log *zap.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		repo:    repo,
		catalog: catalog,
		pricing: engine,
		locks:   keylock.New(),
		ttl:     ttl,
		log:     logger.OrNop(log),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) lock(session string) func() {
	return s.locks.Lock("cart:" + session)
}

func (s *Service) save(ctx context.Context, c *Cart) error {
	c.UpdatedAt = s.now()
	if err := s.repo.Save(ctx, *c); err != nil {
		return apperror.Storage(err)
	}
	return nil
}

// load fetches the cart, restarts it when expired and drops lines whose
// product no longer exists. Cleanup is persisted before returning.
func (s *Service) load(ctx context.Context, session string) (Cart, map[string]product.Product, error) {
	c, err := s.repo.GetOrCreate(ctx, session)
	if err != nil {
		return Cart{}, nil, apperror.Storage(err)
	}
	dirty := false
	if c.expired(s.now(), s.ttl) {
		c = newCart(session, s.now())
		dirty = true
	}

	ids := make([]string, 0, len(c.Items))
	for _, it := range c.Items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.catalog.GetMany(ctx, ids)
	if err != nil {
		return Cart{}, nil, err
	}
	if products == nil {
		products = map[string]product.Product{}
	}

	kept := make([]Item, 0, len(c.Items))
	for _, it := range c.Items {
		if _, ok := products[it.ProductID]; ok {
			kept = append(kept, it)
		}
	}
	if len(kept) != len(c.Items) {
		s.log.Info("dropped dangling cart lines",
			zap.String("session", session),
			zap.Int("dropped", len(c.Items)-len(kept)),
		)
		c.Items = kept
		dirty = true
	}

	if dirty {
		if err := s.save(ctx, &c); err != nil {
			return Cart{}, nil, err
		}
	}
	return c, products, nil
}

func (s *Service) view(c Cart, products map[string]product.Product) View {
	lines := make([]Line, 0, len(c.Items))
	for _, it := range c.Items {
		p, ok := products[it.ProductID]
		if !ok {
			continue
		}
		lines = append(lines, Line{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Image:     p.Image,
			Stock:     p.Stock,
			Quantity:  it.Quantity,
			LineTotal: pricing.LineTotal(p.Price, it.Quantity),
		})
	}
	v := View{SessionID: c.SessionID, Items: lines}
	for _, l := range lines {
		v.TotalItems += l.Quantity
	}
	v.Pricing = s.pricing.Compute(v.PricingLines(), decimal.Zero)
	return v
}

// View returns the cleaned cart priced at current product prices.
func (s *Service) View(ctx context.Context, session string) (View, error) {
	defer s.lock(session)()
	c, products, err := s.load(ctx, session)
	if err != nil {
		return View{}, err
	}
	return s.view(c, products), nil
}

// AddItem adds qty of a product, merging into an existing line.
func (s *Service) AddItem(ctx context.Context, session, productID string, qty int) (View, error) {
	if !product.ValidID(productID) {
		return View{}, apperror.InvalidInput("invalid product id")
	}
	if qty < 1 {
		return View{}, apperror.InvalidInput("quantity must be at least 1")
	}

	defer s.lock(session)()
	p, err := s.catalog.GetByID(ctx, productID)
	if err != nil {
		return View{}, err
	}
	if err := inventory.CheckLine(p, qty); err != nil {
		return View{}, err
	}

	c, products, err := s.load(ctx, session)
	if err != nil {
		return View{}, err
	}
	if i := c.indexOf(productID); i >= 0 {
		if err := inventory.CheckMerge(p, c.Items[i].Quantity, qty); err != nil {
			return View{}, err
		}
		c.Items[i].Quantity += qty
	} else {
		c.Items = append(c.Items, Item{ProductID: productID, Quantity: qty})
	}
	products[p.ID] = p

	if err := s.save(ctx, &c); err != nil {
		return View{}, err
	}
	return s.view(c, products), nil
}

// UpdateItemQuantity sets an existing line to qty and returns the new view
// together with that line's total.
func (s *Service) UpdateItemQuantity(ctx context.Context, session, productID string, qty int) (View, decimal.Decimal, error) {
	if qty < 1 {
		return View{}, decimal.Zero, apperror.InvalidInput("quantity must be at least 1")
	}

	defer s.lock(session)()
	c, products, err := s.load(ctx, session)
	if err != nil {
		return View{}, decimal.Zero, err
	}
	i := c.indexOf(productID)
	if i < 0 {
		return View{}, decimal.Zero, apperror.NotFound("item not found in cart")
	}
	p := products[productID]
	if err := inventory.CheckLine(p, qty); err != nil {
		return View{}, decimal.Zero, err
	}
	c.Items[i].Quantity = qty

	if err := s.save(ctx, &c); err != nil {
		return View{}, decimal.Zero, err
	}
	return s.view(c, products), pricing.LineTotal(p.Price, qty), nil
}

// RemoveItem drops the line for productID. Removing an absent line is not an
// error.
func (s *Service) RemoveItem(ctx context.Context, session, productID string) (View, error) {
	defer s.lock(session)()
	c, products, err := s.load(ctx, session)
	if err != nil {
		return View{}, err
	}
	if i := c.indexOf(productID); i >= 0 {
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
		if err := s.save(ctx, &c); err != nil {
			return View{}, err
		}
	}
	return s.view(c, products), nil
}

// Clear empties the cart. The cart record itself is kept.
func (s *Service) Clear(ctx context.Context, session string) (View, error) {
	defer s.lock(session)()
	return s.clear(ctx, session)
}

// Reset empties the cart after an order was placed from it.
func (s *Service) Reset(ctx context.Context, session string) error {
	defer s.lock(session)()
	_, err := s.clear(ctx, session)
	return err
}

func (s *Service) clear(ctx context.Context, session string) (View, error) {
	c, err := s.repo.GetOrCreate(ctx, session)
	if err != nil {
		return View{}, apperror.Storage(err)
	}
	if c.expired(s.now(), s.ttl) {
		c = newCart(session, s.now())
	}
	c.Items = []Item{}
	if err := s.save(ctx, &c); err != nil {
		return View{}, err
	}
	return s.view(c, nil), nil
}

// Checkout runs place against the cleaned cart while holding the session
// lock. When place succeeds the cart is emptied; a failure to empty it is
// logged and does not fail the checkout.
func (s *Service) Checkout(ctx context.Context, session string, place func(View) error) error {
	defer s.lock(session)()
	c, products, err := s.load(ctx, session)
	if err != nil {
		return err
	}
	if err := place(s.view(c, products)); err != nil {
		return err
	}
	if _, err := s.clear(ctx, session); err != nil {
		s.log.Error("cart reset after checkout failed", zap.String("session", session), zap.Error(err))
	}
	return nil
}

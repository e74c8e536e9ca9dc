package product

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wichananm65/storefront-backend/internal/apperror"
	"github.com/wichananm65/storefront-backend/internal/logger"
)

// Service wraps a Repository and translates its errors into apperror kinds.
type Service struct {
	repo Repository
	log  *zap.Logger
	now  func() time.Time
}

func NewService(repo Repository, log *zap.Logger) *Service {
	return &Service{repo: repo, log: logger.OrNop(log), now: func() time.Time { return time.Now().UTC() }}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return apperror.NotFound("product not found")
	case errors.Is(err, ErrInsufficientStock):
		return apperror.InsufficientStock("insufficient stock")
	default:
		return apperror.Storage(err)
	}
}

func (s *Service) List(ctx context.Context, f Filter) (Page, error) {
	f = f.Normalize()
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return Page{}, apperror.InvalidInput("minPrice must not exceed maxPrice")
	}
	products, total, err := s.repo.List(ctx, f)
	if err != nil {
		return Page{}, translate(err)
	}
	return newPage(products, total, f), nil
}

func (s *Service) Categories(ctx context.Context) ([]string, error) {
	cats, err := s.repo.Categories(ctx)
	return cats, translate(err)
}

func (s *Service) GetByID(ctx context.Context, id string) (Product, error) {
	if !ValidID(id) {
		return Product{}, apperror.InvalidInput("invalid product id")
	}
	p, err := s.repo.GetByID(ctx, id)
	return p, translate(err)
}

// GetMany resolves ids; malformed ids are treated as absent.
func (s *Service) GetMany(ctx context.Context, ids []string) (map[string]Product, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if ValidID(id) {
			valid = append(valid, id)
		}
	}
	found, err := s.repo.GetMany(ctx, valid)
	if err != nil {
		return nil, translate(err)
	}
	return found, nil
}

func (s *Service) Create(ctx context.Context, p Product) (Product, error) {
	if errs := Validate(p); len(errs) > 0 {
		return Product{}, apperror.InvalidFields("invalid product", errs)
	}
	now := s.now()
	p.ID = uuid.NewString()
	p.CreatedAt, p.UpdatedAt = now, now
	created, err := s.repo.Create(ctx, p)
	if err != nil {
		return Product{}, translate(err)
	}
	s.log.Info("product created", zap.String("product_id", created.ID), zap.String("name", created.Name))
	return created, nil
}

func (s *Service) Update(ctx context.Context, id string, p Product) (Product, error) {
	if !ValidID(id) {
		return Product{}, apperror.InvalidInput("invalid product id")
	}
	if errs := Validate(p); len(errs) > 0 {
		return Product{}, apperror.InvalidFields("invalid product", errs)
	}
	p.ID = id
	p.UpdatedAt = s.now()
	updated, err := s.repo.Update(ctx, p)
	if err != nil {
		return Product{}, translate(err)
	}
	s.log.Info("product updated", zap.String("product_id", id))
	return updated, nil
}

// Delete removes the product. Carts and orders that reference it keep their
// lines; readers treat them as dangling.
func (s *Service) Delete(ctx context.Context, id string) error {
	if !ValidID(id) {
		return apperror.InvalidInput("invalid product id")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return translate(err)
	}
	s.log.Info("product deleted", zap.String("product_id", id))
	return nil
}

func (s *Service) LowStock(ctx context.Context, limit int) ([]Product, error) {
	products, err := s.repo.LowStock(ctx, LowStockThreshold, limit)
	return products, translate(err)
}

func (s *Service) Count(ctx context.Context) (int64, error) {
	n, err := s.repo.Count(ctx)
	return n, translate(err)
}

// DecrementStock subtracts qty when enough stock remains.
func (s *Service) DecrementStock(ctx context.Context, id string, qty int) error {
	return translate(s.repo.DecrementStock(ctx, id, qty))
}

// ResetProducts replaces all products with the given list (used for dev / seeding).
func (s *Service) ResetProducts(ctx context.Context, products []Product) ([]Product, error) {
	now := s.now()
	for i := range products {
		if products[i].ID == "" {
			products[i].ID = uuid.NewString()
		}
		if products[i].CreatedAt.IsZero() {
			products[i].CreatedAt = now
		}
		if products[i].UpdatedAt.IsZero() {
			products[i].UpdatedAt = now
		}
	}
	if err := s.repo.Reset(ctx, products); err != nil {
		return nil, translate(err)
	}
	s.log.Warn("product catalog reset", zap.Int("count", len(products)))
	return products, nil
}

// Package inventory checks requested quantities against live stock and
// decrements stock once an order is recorded.
package inventory

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wichananm65/storefront-backend/internal/apperror"
	"github.com/wichananm65/storefront-backend/internal/keylock"
	"github.com/wichananm65/storefront-backend/internal/logger"
	"github.com/wichananm65/storefront-backend/internal/product"
)

// Catalog is the slice of the product service the reconciler needs.
type Catalog interface {
	GetMany(ctx context.Context, ids []string) (map[string]product.Product, error)
	DecrementStock(ctx context.Context, id string, qty int) error
}

// Line is a requested quantity of one product.
type Line struct {
	ProductID string
	Quantity  int
}

type Reconciler struct {
	catalog Catalog
	locks   *keylock.Locker
	log     *zap.Logger
}

func NewReconciler(catalog Catalog, log *zap.Logger) *Reconciler {
	return &Reconciler{catalog: catalog, locks: keylock.New(), log: logger.OrNop(log)}
}

// CheckLine fails with InsufficientStock when p cannot cover qty.
func CheckLine(p product.Product, qty int) error {
	if p.Stock < qty {
		return apperror.InsufficientStock(fmt.Sprintf("insufficient stock for %s: %d available", p.Name, p.Stock))
	}
	return nil
}

// CheckMerge fails with InsufficientStock when p cannot cover qty more units
// on top of have already reserved in a cart line. have + qty is never formed,
// so it cannot wrap.
func CheckMerge(p product.Product, have, qty int) error {
	if qty > p.Stock-have {
		return apperror.InsufficientStock(fmt.Sprintf("insufficient stock for %s: %d available, %d already in cart", p.Name, p.Stock, have))
	}
	return nil
}

// Lock serializes stock checks and decrements for the given products inside
// this process. Keys are taken in sorted order.
func (r *Reconciler) Lock(productIDs []string) (unlock func()) {
	keys := make([]string, len(productIDs))
	for i, id := range productIDs {
		keys[i] = "product:" + id
	}
	return r.locks.LockAll(keys)
}

// Validate re-reads every product and checks all lines before anything is
// written. It returns the fresh products keyed by id.
func (r *Reconciler) Validate(ctx context.Context, lines []Line) (map[string]product.Product, error) {
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	found, err := r.catalog.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, l := range lines {
		p, ok := found[l.ProductID]
		if !ok {
			return nil, apperror.NotFound("product no longer available")
		}
		if err := CheckLine(p, l.Quantity); err != nil {
			return nil, err
		}
	}
	return found, nil
}

// Decrement subtracts every line from stock. It keeps going after a failure;
// nothing is rolled back and the caller gets every error that occurred.
func (r *Reconciler) Decrement(ctx context.Context, lines []Line) []error {
	var errs []error
	for _, l := range lines {
		if err := r.catalog.DecrementStock(ctx, l.ProductID, l.Quantity); err != nil {
			r.log.Error("stock decrement failed",
				zap.String("product_id", l.ProductID),
				zap.Int("quantity", l.Quantity),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("decrement %s: %w", l.ProductID, err))
		}
	}
	return errs
}

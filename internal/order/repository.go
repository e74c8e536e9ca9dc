package order

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

var (
	ErrNotFound = errors.New("order not found")
	// ErrStatusConflict means the order's status changed between read and
	// conditional update.
	ErrStatusConflict = errors.New("order status changed concurrently")
	ErrDuplicate      = errors.New("order already exists")
)

type Repository interface {
	Create(ctx context.Context, o Order) (Order, error)
	// GetByID looks an order up by id or by order number.
	GetByID(ctx context.Context, idOrNumber string) (Order, error)
	// List returns orders newest first.
	List(ctx context.Context, f ListFilter) ([]Order, error)
	// UpdateStatus sets to only while the stored status still equals from.
	UpdateStatus(ctx context.Context, id string, from, to Status, at time.Time) error
	CountByStatus(ctx context.Context) (map[Status]int64, error)
}

// InMemoryRepository is used for tests and local scenarios.
type InMemoryRepository struct {
	mu     sync.RWMutex
	orders []Order
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{orders: make([]Order, 0)}
}

func cloneOrder(o Order) Order {
	items := make([]Line, len(o.Items))
	copy(items, o.Items)
	o.Items = items
	return o
}

func (r *InMemoryRepository) Create(_ context.Context, o Order) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.orders {
		if existing.ID == o.ID || existing.OrderNumber == o.OrderNumber {
			return Order{}, ErrDuplicate
		}
	}
	r.orders = append(r.orders, cloneOrder(o))
	return o, nil
}

func (r *InMemoryRepository) GetByID(_ context.Context, idOrNumber string) (Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, o := range r.orders {
		if o.ID == idOrNumber || o.OrderNumber == idOrNumber {
			return cloneOrder(o), nil
		}
	}
	return Order{}, ErrNotFound
}

func (r *InMemoryRepository) List(_ context.Context, f ListFilter) ([]Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Order, 0, len(r.orders))
	for _, o := range r.orders {
		if f.Status == "" || o.Status == f.Status {
			out = append(out, cloneOrder(o))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *InMemoryRepository) UpdateStatus(_ context.Context, id string, from, to Status, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.orders {
		if r.orders[i].ID != id {
			continue
		}
		if r.orders[i].Status != from {
			return ErrStatusConflict
		}
		r.orders[i].Status = to
		r.orders[i].UpdatedAt = at
		return nil
	}
	return ErrNotFound
}

func (r *InMemoryRepository) CountByStatus(_ context.Context) (map[Status]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[Status]int64)
	for _, o := range r.orders {
		out[o.Status]++
	}
	return out, nil
}

package cart

import (
	"context"
	"sync"
	"time"
)

// Repository stores carts by session token.
type Repository interface {
	// GetOrCreate returns the stored cart or persists and returns an empty one.
	GetOrCreate(ctx context.Context, session string) (Cart, error)
	Save(ctx context.Context, c Cart) error
	// DeleteExpired removes carts created before the cutoff. Stores with
	// native expiry report zero.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// InMemoryRepository is used for tests and local scenarios.
type InMemoryRepository struct {
	mu    sync.RWMutex
	carts map[string]Cart
	now   func() time.Time
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		carts: make(map[string]Cart),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func cloneItems(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}

func (r *InMemoryRepository) GetOrCreate(_ context.Context, session string) (Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[session]
	if !ok {
		c = newCart(session, r.now())
		r.carts[session] = c
	}
	c.Items = cloneItems(c.Items)
	return c, nil
}

func (r *InMemoryRepository) Save(_ context.Context, c Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.Items = cloneItems(c.Items)
	r.carts[c.SessionID] = c
	return nil
}

func (r *InMemoryRepository) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, c := range r.carts {
		if c.CreatedAt.Before(before) {
			delete(r.carts, k)
			n++
		}
	}
	return n, nil
}

// Len reports how many carts are stored.
func (r *InMemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.carts)
}

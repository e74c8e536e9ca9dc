package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wichananm65/storefront-backend/internal/apperror"
	"github.com/wichananm65/storefront-backend/internal/cart"
	"github.com/wichananm65/storefront-backend/internal/inventory"
	"github.com/wichananm65/storefront-backend/internal/messaging"
	"github.com/wichananm65/storefront-backend/internal/order"
	"github.com/wichananm65/storefront-backend/internal/pricing"
	"github.com/wichananm65/storefront-backend/internal/product"
)

const (
	prodA = "7a1e0c52-3b4d-4f6a-8c9d-0e1f2a3b4c01"
	prodB = "7a1e0c52-3b4d-4f6a-8c9d-0e1f2a3b4c02"
)

type fixture struct {
	svc       *Service
	carts     *cart.Service
	products  *product.InMemoryRepository
	orders    *order.InMemoryRepository
	publisher *messaging.MemoryPublisher
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	products := product.NewInMemoryRepository([]product.Product{
		{ID: prodA, Name: "A", Price: decimal.RequireFromString("10.00"), Category: "c", Stock: 5},
		{ID: prodB, Name: "B", Price: decimal.RequireFromString("2.50"), Category: "c", Stock: 100},
	})
	catalog := product.NewService(products, nil)
	carts := cart.NewService(cart.NewInMemoryRepository(), catalog, pricing.Default, cart.DefaultTTL, nil)
	orders := order.NewInMemoryRepository()
	pub := messaging.NewMemoryPublisher()
	svc := NewService(
		carts,
		inventory.NewReconciler(catalog, nil),
		order.NewService(orders, pub, nil),
		pricing.Default,
		pub,
		nil,
	)
	return fixture{svc: svc, carts: carts, products: products, orders: orders, publisher: pub}
}

func validRequest() Request {
	return Request{
		Customer:      order.Customer{FullName: "Jane Doe", Email: "Jane@Example.com ", Phone: "081-234-5678"},
		Shipping:      order.Address{Address: "1 Main St", City: "Bangkok", PostalCode: "10110", Country: "TH"},
		Billing:       order.Billing{SameAsShipping: true},
		PaymentMethod: "card",
	}
}

func stockOf(t *testing.T, repo *product.InMemoryRepository, id string) int {
	t.Helper()
	p, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func TestPlace_CreatesOrderAndDecrementsStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.carts.AddItem(ctx, "s1", prodA, 2)
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, "s1", prodB, 4)
	require.NoError(t, err)

	o, err := f.svc.Place(ctx, "s1", validRequest())
	require.NoError(t, err)

	assert.Equal(t, order.StatusPending, o.Status)
	assert.Equal(t, order.PaymentCompleted, o.Payment.Status)
	assert.Equal(t, "jane@example.com", o.Customer.Email)
	assert.Equal(t, "30", o.Pricing.Subtotal.String())
	assert.Equal(t, "3", o.Pricing.Tax.String())
	assert.Equal(t, "43", o.Pricing.Total.String())
	require.Len(t, o.Items, 2)

	assert.Equal(t, 3, stockOf(t, f.products, prodA))
	assert.Equal(t, 96, stockOf(t, f.products, prodB))

	v, err := f.carts.View(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, v.Items)

	placed := f.publisher.Messages(messaging.TopicOrderPlaced)
	require.Len(t, placed, 1)
	assert.Equal(t, o.ID, placed[0].Key)
}

func TestPlace_AllOrNothingOnShortStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.carts.AddItem(ctx, "s1", prodB, 1)
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, "s1", prodA, 2)
	require.NoError(t, err)

	a, err := f.products.GetByID(ctx, prodA)
	require.NoError(t, err)
	a.Stock = 1
	_, err = f.products.Update(ctx, a)
	require.NoError(t, err)

	_, err = f.svc.Place(ctx, "s1", validRequest())
	assert.True(t, apperror.Is(err, apperror.KindInsufficientStock), "got %v", err)

	orders, err := f.orders.List(ctx, order.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Equal(t, 100, stockOf(t, f.products, prodB))
	assert.Equal(t, 1, stockOf(t, f.products, prodA))

	v, err := f.carts.View(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, v.Items, 2)
	assert.Empty(t, f.publisher.Messages(messaging.TopicOrderPlaced))
}

func TestPlace_EmptyCartAndInvalidRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Place(ctx, "empty", validRequest())
	assert.True(t, apperror.Is(err, apperror.KindInvalidInput))

	bad := validRequest()
	bad.Customer.FullName = "J"
	bad.Customer.Email = "not-an-email"
	bad.Billing = order.Billing{}
	bad.PaymentMethod = "cheque"
	_, err = f.svc.Place(ctx, "empty", bad)

	var appErr *apperror.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperror.KindInvalidInput, appErr.Kind)
	for _, field := range []string{"customer.fullName", "customer.email", "billing.address", "billing.city", "paymentMethod"} {
		assert.Contains(t, appErr.Details, field)
	}
}

func TestPlace_CODLeavesPaymentPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.carts.AddItem(ctx, "s1", prodA, 1)
	require.NoError(t, err)

	req := validRequest()
	req.PaymentMethod = "COD"
	o, err := f.svc.Place(ctx, "s1", req)
	require.NoError(t, err)
	assert.Equal(t, order.PaymentPending, o.Payment.Status)
}

func TestConfirmation_KeepsPriceSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.carts.AddItem(ctx, "s1", prodA, 1)
	require.NoError(t, err)
	o, err := f.svc.Place(ctx, "s1", validRequest())
	require.NoError(t, err)

	a, err := f.products.GetByID(ctx, prodA)
	require.NoError(t, err)
	a.Price = decimal.RequireFromString("20.00")
	_, err = f.products.Update(ctx, a)
	require.NoError(t, err)

	got, err := f.svc.Confirmation(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, got.Items[0].Price.Equal(decimal.RequireFromString("10.00")))

	_, err = f.svc.Confirmation(ctx, "ORD-00000000-00000000")
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestPreview_DropsDeletedProducts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.carts.AddItem(ctx, "s1", prodA, 1)
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, "s1", prodB, 2)
	require.NoError(t, err)
	require.NoError(t, f.products.Delete(ctx, prodA))

	v, err := f.svc.Preview(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, v.Items, 1)
	assert.Equal(t, "5", v.Pricing.Subtotal.String())

	require.NoError(t, f.products.Delete(ctx, prodB))
	_, err = f.svc.Preview(ctx, "s1")
	assert.True(t, apperror.Is(err, apperror.KindInvalidInput))
}

func TestPlace_ConcurrentCheckoutsDoNotOversell(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sessions := []string{"s1", "s2", "s3"}
	for _, s := range sessions {
		_, err := f.carts.AddItem(ctx, s, prodA, 3)
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(sessions))
	for i, s := range sessions {
		wg.Add(1)
		go func(i int, s string) {
			defer wg.Done()
			_, errs[i] = f.svc.Place(ctx, s, validRequest())
		}(i, s)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, apperror.Is(err, apperror.KindInsufficientStock), "got %v", err)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 2, stockOf(t, f.products, prodA))
}

package cart

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wichananm65/storefront-backend/internal/pricing"
)

// DefaultTTL is how long a cart lives after creation, regardless of activity.
const DefaultTTL = 7 * 24 * time.Hour

// Item is one cart line. A product appears at most once per cart.
type Item struct {
	ProductID string `json:"productId" bson:"productId"`
	Quantity  int    `json:"quantity" bson:"quantity"`
}

// Cart is keyed by session token. CreatedAt anchors expiry; UpdatedAt is
// informational.
type Cart struct {
	SessionID string    `json:"sessionId"`
	Items     []Item    `json:"items"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func newCart(session string, now time.Time) Cart {
	return Cart{SessionID: session, Items: []Item{}, CreatedAt: now, UpdatedAt: now}
}

func (c *Cart) indexOf(productID string) int {
	for i, it := range c.Items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}

func (c Cart) expired(now time.Time, ttl time.Duration) bool {
	return !now.Before(c.CreatedAt.Add(ttl))
}

// TotalItems is the sum of line quantities.
func (c Cart) TotalItems() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

// Line is a cart item joined with live product data.
type Line struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
	Stock     int             `json:"stock"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

func (l Line) MarshalJSON() ([]byte, error) {
	type line Line
	return json.Marshal(struct {
		line
		Price     string `json:"price"`
		LineTotal string `json:"lineTotal"`
	}{line(l), pricing.Amount(l.Price), pricing.Amount(l.LineTotal)})
}

// View is what clients see: resolved lines priced at current prices.
type View struct {
	SessionID  string            `json:"sessionId"`
	Items      []Line            `json:"items"`
	TotalItems int               `json:"totalItems"`
	Pricing    pricing.Breakdown `json:"pricing"`
}

// PricingLines converts the view back into pricing input.
func (v View) PricingLines() []pricing.Line {
	out := make([]pricing.Line, 0, len(v.Items))
	for _, l := range v.Items {
		out = append(out, pricing.Line{ProductID: l.ProductID, Price: l.Price, Quantity: l.Quantity})
	}
	return out
}

package pricing

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Line is one resolved cart or order line. Missing lines reference a product
// that no longer exists and never contribute to the subtotal.
type Line struct {
	ProductID string
	Price     decimal.Decimal
	Quantity  int
	Missing   bool
}

// Breakdown is the priced result of a set of lines.
type Breakdown struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
}

// Amount formats a money value with two decimals ("32.00").
func Amount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// MarshalJSON writes every amount with two decimals. Decoding uses the
// default decimal parsing, so stored breakdowns read back unchanged.
func (b Breakdown) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Subtotal string `json:"subtotal"`
		Shipping string `json:"shipping"`
		Tax      string `json:"tax"`
		Discount string `json:"discount"`
		Total    string `json:"total"`
	}{Amount(b.Subtotal), Amount(b.Shipping), Amount(b.Tax), Amount(b.Discount), Amount(b.Total)})
}

// Engine prices lines with a flat shipping fee and a single tax rate.
type Engine struct {
	ShippingFlat decimal.Decimal
	TaxRate      decimal.Decimal
}

// Default is 10.00 flat shipping and 10% tax.
var Default = Engine{
	ShippingFlat: decimal.New(1000, -2),
	TaxRate:      decimal.New(10, -2),
}

func New(shippingFlat, taxRate decimal.Decimal) Engine {
	return Engine{ShippingFlat: shippingFlat, TaxRate: taxRate}
}

// LineTotal is price × qty.
func LineTotal(price decimal.Decimal, qty int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(qty)))
}

// Compute prices lines against the given discount. The discount is clamped
// to [0, subtotal]; an empty set of priced lines carries no shipping.
func (e Engine) Compute(lines []Line, discount decimal.Decimal) Breakdown {
	subtotal := decimal.Zero
	priced := 0
	for _, l := range lines {
		if l.Missing || l.Quantity <= 0 {
			continue
		}
		subtotal = subtotal.Add(LineTotal(l.Price, l.Quantity))
		priced++
	}

	shipping := decimal.Zero
	if priced > 0 {
		shipping = e.ShippingFlat
	}
	tax := subtotal.Mul(e.TaxRate).Round(2)

	if discount.IsNegative() {
		discount = decimal.Zero
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}

	return Breakdown{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Discount: discount,
		Total:    subtotal.Add(shipping).Add(tax).Sub(discount),
	}
}

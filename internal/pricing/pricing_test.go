package pricing

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCompute(t *testing.T) {
	tests := []struct {
		name     string
		lines    []Line
		discount decimal.Decimal
		want     Breakdown
	}{
		{
			name: "empty cart",
			want: Breakdown{Subtotal: d("0"), Shipping: d("0"), Tax: d("0"), Discount: d("0"), Total: d("0")},
		},
		{
			name:  "single line",
			lines: []Line{{ProductID: "a", Price: d("10.00"), Quantity: 3}},
			want:  Breakdown{Subtotal: d("30"), Shipping: d("10"), Tax: d("3"), Discount: d("0"), Total: d("43")},
		},
		{
			name: "missing line excluded",
			lines: []Line{
				{ProductID: "a", Price: d("19.99"), Quantity: 2},
				{ProductID: "gone", Price: d("500"), Quantity: 1, Missing: true},
			},
			want: Breakdown{Subtotal: d("39.98"), Shipping: d("10"), Tax: d("4"), Discount: d("0"), Total: d("53.98")},
		},
		{
			name:     "discount clamped to subtotal",
			lines:    []Line{{ProductID: "a", Price: d("5"), Quantity: 1}},
			discount: d("20"),
			want:     Breakdown{Subtotal: d("5"), Shipping: d("10"), Tax: d("0.5"), Discount: d("5"), Total: d("10.5")},
		},
		{
			name:     "negative discount ignored",
			lines:    []Line{{ProductID: "a", Price: d("5"), Quantity: 1}},
			discount: d("-3"),
			want:     Breakdown{Subtotal: d("5"), Shipping: d("10"), Tax: d("0.5"), Discount: d("0"), Total: d("15.5")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Default.Compute(tt.lines, tt.discount)
			assert.True(t, tt.want.Subtotal.Equal(got.Subtotal), "subtotal: %s", got.Subtotal)
			assert.True(t, tt.want.Shipping.Equal(got.Shipping), "shipping: %s", got.Shipping)
			assert.True(t, tt.want.Tax.Equal(got.Tax), "tax: %s", got.Tax)
			assert.True(t, tt.want.Discount.Equal(got.Discount), "discount: %s", got.Discount)
			assert.True(t, tt.want.Total.Equal(got.Total), "total: %s", got.Total)
		})
	}
}

func TestCompute_Idempotent(t *testing.T) {
	lines := []Line{{ProductID: "a", Price: d("79.99"), Quantity: 2}, {ProductID: "b", Price: d("9.99"), Quantity: 5}}
	first := Default.Compute(lines, decimal.Zero)
	second := Default.Compute(lines, decimal.Zero)
	assert.True(t, first.Total.Equal(second.Total))
	assert.Equal(t, "20.99", first.Tax.StringFixed(2))
}

func TestLineTotal(t *testing.T) {
	assert.True(t, d("30.00").Equal(LineTotal(d("10.00"), 3)))
}

func TestBreakdown_JSONAmounts(t *testing.T) {
	b := Default.Compute([]Line{{ProductID: "a", Price: d("10.00"), Quantity: 2}}, decimal.Zero)

	raw, err := json.Marshal(b)
	require.NoError(t, err)
	assert.JSONEq(t, `{"subtotal":"20.00","shipping":"10.00","tax":"2.00","discount":"0.00","total":"32.00"}`, string(raw))

	var back Breakdown
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.True(t, back.Total.Equal(b.Total))
	assert.True(t, back.Tax.Equal(b.Tax))
}

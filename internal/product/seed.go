package product

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type sample struct {
	name, price, category, description string
	stock                              int
}

var samples = []sample{
	{"Wireless Headphones", "79.99", "Electronics", "High-quality wireless headphones with noise cancellation", 25},
	{"Smart Watch", "299.99", "Electronics", "Feature-rich smartwatch with fitness tracking", 15},
	{"USB-C Cable", "9.99", "Accessories", "Durable USB-C charging cable, 6 feet", 100},
	{"Laptop Stand", "49.99", "Accessories", "Ergonomic aluminum laptop stand", 30},
	{"Mechanical Keyboard", "129.99", "Electronics", "RGB mechanical keyboard with Cherry MX switches", 20},
	{"Wireless Mouse", "39.99", "Accessories", "Ergonomic wireless mouse with long battery life", 45},
	{"Webcam HD", "79.99", "Electronics", "1080p HD webcam with auto-focus", 35},
	{"Phone Case", "19.99", "Accessories", "Protective phone case with shock absorption", 80},
	{"Power Bank", "34.99", "Accessories", "10000mAh portable power bank", 50},
	{"Bluetooth Speaker", "59.99", "Electronics", "Portable Bluetooth speaker with 360-degree sound", 28},
}

// SampleCatalog returns the development catalog. IDs are left empty so the
// store assigns them.
func SampleCatalog(now time.Time) []Product {
	out := make([]Product, 0, len(samples))
	for i, s := range samples {
		// stagger timestamps so newest-first ordering is stable
		at := now.Add(time.Duration(i) * time.Second)
		out = append(out, Product{
			Name:        s.name,
			Price:       decimal.RequireFromString(s.price),
			Category:    s.category,
			Stock:       s.stock,
			Description: s.description,
			Image:       "https://via.placeholder.com/300?text=" + strings.ReplaceAll(s.name, " ", "+"),
			CreatedAt:   at,
			UpdatedAt:   at,
		})
	}
	return out
}


package product

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a catalog entry. IDs are UUID strings in every store.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Stock       int             `json:"stock"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

const (
	DefaultLimit = 10
	MaxLimit     = 100

	// LowStockThreshold marks products shown on the admin dashboard.
	LowStockThreshold = 10

	// MaxStock matches the INT stock column.
	MaxStock = math.MaxInt32
)

// Filter narrows a catalog listing. Zero values mean "no constraint".
type Filter struct {
	Category string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Search   string
	Page     int
	Limit    int
}

// Normalize applies paging defaults and treats category "all" as unset.
func (f Filter) Normalize() Filter {
	f.Category = strings.TrimSpace(f.Category)
	if strings.EqualFold(f.Category, "all") {
		f.Category = ""
	}
	f.Search = strings.TrimSpace(f.Search)
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	return f
}

func (f Filter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// Matches applies the filter to a single product. Stores that cannot push the
// filter down to the database use it directly.
func (f Filter) Matches(p Product) bool {
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(p.Name), q) && !strings.Contains(strings.ToLower(p.Description), q) {
			return false
		}
	}
	return true
}

// Page is one slice of a filtered listing.
type Page struct {
	Products   []Product `json:"products"`
	Total      int64     `json:"total"`
	Page       int       `json:"page"`
	Limit      int       `json:"limit"`
	TotalPages int       `json:"totalPages"`
}

func newPage(products []Product, total int64, f Filter) Page {
	pages := int((total + int64(f.Limit) - 1) / int64(f.Limit))
	return Page{Products: products, Total: total, Page: f.Page, Limit: f.Limit, TotalPages: pages}
}

// ValidID reports whether id is a well-formed product identifier.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Validate returns field errors for an admin create or update payload.
func Validate(p Product) map[string]string {
	errs := map[string]string{}
	if strings.TrimSpace(p.Name) == "" {
		errs["name"] = "name is required"
	}
	if p.Price.IsNegative() {
		errs["price"] = "price must be >= 0"
	}
	switch {
	case p.Stock < 0:
		errs["stock"] = "stock must be >= 0"
	case p.Stock > MaxStock:
		errs["stock"] = fmt.Sprintf("stock must be <= %d", MaxStock)
	}
	if strings.TrimSpace(p.Category) == "" {
		errs["category"] = "category is required"
	}
	return errs
}

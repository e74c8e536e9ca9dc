package checkout

import (
	"regexp"
	"strings"

	"github.com/wichananm65/storefront-backend/internal/apperror"
	"github.com/wichananm65/storefront-backend/internal/order"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9][0-9\s()-]{6,19}$`)
)

// Request is the body of POST /api/v1/checkout/process.
type Request struct {
	Customer      order.Customer      `json:"customer"`
	Shipping      order.Address       `json:"shipping"`
	Billing       order.Billing       `json:"billing"`
	PaymentMethod order.PaymentMethod `json:"paymentMethod"`
}

func (r *Request) normalize() {
	trim := func(s *string) { *s = strings.TrimSpace(*s) }
	for _, s := range []*string{
		&r.Customer.FullName, &r.Customer.Email, &r.Customer.Phone,
		&r.Shipping.Address, &r.Shipping.City, &r.Shipping.PostalCode, &r.Shipping.Country,
		&r.Billing.Address.Address, &r.Billing.City, &r.Billing.PostalCode, &r.Billing.Country,
	} {
		trim(s)
	}
	r.Customer.Email = strings.ToLower(r.Customer.Email)
	r.PaymentMethod = order.PaymentMethod(strings.ToLower(strings.TrimSpace(string(r.PaymentMethod))))
}

func requireAddress(details map[string]string, prefix string, a order.Address) {
	if a.Address == "" {
		details[prefix+".address"] = "address is required"
	}
	if a.City == "" {
		details[prefix+".city"] = "city is required"
	}
	if a.PostalCode == "" {
		details[prefix+".postalCode"] = "postal code is required"
	}
	if a.Country == "" {
		details[prefix+".country"] = "country is required"
	}
}

// Validate normalizes r in place and reports every invalid field at once.
func (r *Request) Validate() error {
	r.normalize()
	details := map[string]string{}

	if len([]rune(r.Customer.FullName)) < 2 {
		details["customer.fullName"] = "full name must be at least 2 characters"
	}
	if !emailPattern.MatchString(r.Customer.Email) {
		details["customer.email"] = "a valid email is required"
	}
	if !phonePattern.MatchString(r.Customer.Phone) {
		details["customer.phone"] = "a valid phone number is required"
	}
	requireAddress(details, "shipping", r.Shipping)
	if !r.Billing.SameAsShipping {
		requireAddress(details, "billing", r.Billing.Address)
	}
	if !r.PaymentMethod.Valid() {
		details["paymentMethod"] = "payment method must be card, cod or wallet"
	}

	if len(details) > 0 {
		return apperror.InvalidFields("invalid checkout details", details)
	}
	return nil
}

package order

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wichananm65/storefront-backend/internal/pricing"
)

type Status string

const (
	StatusPending    Status = "Pending"
	StatusConfirmed  Status = "Confirmed"
	StatusProcessing Status = "Processing"
	StatusShipped    Status = "Shipped"
	StatusDelivered  Status = "Delivered"
	StatusCancelled  Status = "Cancelled"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusPending, StatusConfirmed, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled}

var transitions = map[Status][]Status{
	StatusPending:    {StatusConfirmed, StatusProcessing, StatusCancelled},
	StatusConfirmed:  {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
}

// ParseStatus accepts any casing of a known status name.
func ParseStatus(s string) (Status, bool) {
	for _, st := range Statuses {
		if strings.EqualFold(string(st), strings.TrimSpace(s)) {
			return st, true
		}
	}
	return "", false
}

func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

func (s Status) CanTransitionTo(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

type PaymentMethod string

const (
	PaymentCard   PaymentMethod = "card"
	PaymentCOD    PaymentMethod = "cod"
	PaymentWallet PaymentMethod = "wallet"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCard, PaymentCOD, PaymentWallet:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
)

// InitialPaymentStatus is completed for prepaid methods and pending for cash
// on delivery.
func InitialPaymentStatus(m PaymentMethod) PaymentStatus {
	if m == PaymentCOD {
		return PaymentPending
	}
	return PaymentCompleted
}

type Customer struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

type Address struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

type Billing struct {
	SameAsShipping bool `json:"sameAsShipping"`
	Address
}

type Payment struct {
	Method PaymentMethod `json:"method"`
	Status PaymentStatus `json:"status"`
}

// Line is a purchase-time snapshot; it is never recomputed from the catalog.
type Line struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
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

// Order is immutable after creation except for Status and UpdatedAt.
type Order struct {
	ID          string            `json:"id"`
	OrderNumber string            `json:"orderNumber"`
	Customer    Customer          `json:"customer"`
	Shipping    Address           `json:"shipping"`
	Billing     Billing           `json:"billing"`
	Items       []Line            `json:"items"`
	Pricing     pricing.Breakdown `json:"pricing"`
	Payment     Payment           `json:"payment"`
	Status      Status            `json:"status"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// NewOrder is what checkout hands to Service.Create.
type NewOrder struct {
	Customer      Customer
	Shipping      Address
	Billing       Billing
	Items         []Line
	Pricing       pricing.Breakdown
	PaymentMethod PaymentMethod
}

// ListFilter narrows an admin listing. Zero values mean all statuses and no
// limit.
type ListFilter struct {
	Status Status
	Limit  int
}

// NewOrderNumber renders ORD-YYYYMMDD-XXXXXXXX with a random uppercase hex
// suffix.
func NewOrderNumber(at time.Time) (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "ORD-" + at.UTC().Format("20060102") + "-" + strings.ToUpper(hex.EncodeToString(b)), nil
}

package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// Type identifies the channel an order is created from.
type Type string

const (
	TypeCheckout     Type = "checkout"
	TypePrescription Type = "prescription"
	TypeBackoffice   Type = "backoffice"
)

// Valid reports whether t is a recognised order type.
func (t Type) Valid() bool {
	switch t {
	case TypeCheckout, TypePrescription, TypeBackoffice:
		return true
	default:
		return false
	}
}

// Order is the persisted order header.
type Order struct {
	ID      int64
	Number  string
	Token   string
	Type    Type
	Status  Status
	UserID  *int64
	StoreID *int64

	Email string
	Phone string

	Shipping      AddressSnapshot
	Billing       AddressSnapshot
	BillingNIF    string
	BillingSimple bool

	ShippingPrice         decimal.Decimal
	OriginalShippingPrice decimal.Decimal
	ShippingCause         string
	CardUsedBalance       decimal.Decimal

	PrescriptionID *int64
	Notes          string

	Lines []Line

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AddressSnapshot is the copy of an address stored on the order header.
type AddressSnapshot struct {
	FirstName  string
	LastName   string
	CountryID  string
	PostalCode string
	City       string
	Address    string
}

// LineRole separates lines of the same product that must not be merged: the
// normally priced purchase, the promotional split of it, and free gifts.
type LineRole string

const (
	RoleRegular LineRole = "regular"
	RolePromo   LineRole = "promo"
	RoleGift    LineRole = "gift"
)

// Line is a persisted order line. Lines are unique per (order, product, role,
// variant).
type Line struct {
	ID      int64
	OrderID int64
	Role    LineRole
	// Variant tells promotional splits of the same product apart; it holds the
	// campaign amount of the split and is empty for regular and gift lines.
	Variant string

	ProductType   string
	ProductID     int64
	Name          string
	OriginalPrice decimal.Decimal
	CostPrice     decimal.Decimal
	VATRate       decimal.Decimal
	// Stock is the product stock observed when the line was materialised.
	Stock int

	Quantity int
	// Price is the resolved unit price after adjustments.
	Price decimal.Decimal

	IntervalDiscount decimal.Decimal
	StoreDiscount    decimal.Decimal
	DirectDiscount   decimal.Decimal
	CampaignDiscount decimal.Decimal
	CouponDiscount   decimal.Decimal

	// DiscountID and CouponID reference the originating definitions; 0 means none.
	DiscountID int64
	CouponID   int64
}

// Total returns Price × Quantity.
func (l *Line) Total() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// FeeTypePackagingBag is the fee type recorded for packaging fee adjustments.
const FeeTypePackagingBag = "packaging_bag"

// Fee is a standalone fee row attached to an order.
type Fee struct {
	ID      int64
	OrderID int64
	Type    string
	Value   decimal.Decimal
}

// EventType names an outbox event.
type EventType string

const (
	EventOrderCreated           EventType = "order.created"
	EventSearchReindexRequested EventType = "search.reindex_requested"
)

// Event is a domain event recorded in the outbox alongside the order.
type Event struct {
	ID      string
	Type    EventType
	OrderID int64
	Number  string
	// ProductIDs lists products whose availability changed, for reindex events.
	ProductIDs []int64
	CreatedAt  time.Time
}

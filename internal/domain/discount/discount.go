// Package discount holds campaign discount definitions and the per-order
// discount ledger rows.
package discount

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a discount definition does not exist.
var ErrNotFound = errors.New("discount not found")

// Discount is a campaign discount definition.
type Discount struct {
	ID              int64
	TypeTag         string
	TypeName        string
	Name            string
	LabelName       string
	StartDate       *time.Time
	EndDate         *time.Time
	DiscountType    string
	Value           decimal.Decimal
	TypeCard        string
	ValueCard       decimal.Decimal
	TypeCoupon      string
	ValueCoupon     decimal.Decimal
	StartDateCoupon *time.Time
	EndDateCoupon   *time.Time
	OfferNumber     int
	PurchaseNumber  int
	Reference       string
	Properties      []byte
	MinBuyCount     int
	MinimumValue    decimal.Decimal
	Description     string
	CanStackDirect  bool
}

// Association is the ledger row linking an order to a discount. It carries a
// snapshot of the definition and the per-order sequence number used on
// invoices and labels.
type Association struct {
	OrderID    int64
	DiscountID int64
	Snapshot   Discount
	// Sequence is unique per order and increases with each distinct discount.
	Sequence  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewAssociation snapshots d for order orderID.
func NewAssociation(orderID int64, d *Discount, seq int) *Association {
	return &Association{
		OrderID:    orderID,
		DiscountID: d.ID,
		Snapshot:   *d,
		Sequence:   seq,
	}
}

// Repository resolves discount definitions and maintains the ledger.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Discount, error)
	// FindAssociation returns (nil, nil) when the order has no row for the discount.
	FindAssociation(ctx context.Context, orderID, discountID int64) (*Association, error)
	// MaxSequence returns the highest sequence recorded for the order, or 0.
	MaxSequence(ctx context.Context, orderID int64) (int, error)
	UpsertAssociation(ctx context.Context, a *Association) error
}

package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Type enumerates the supported coupon discount strategies.
type Type string

const (
	// TypePercentage applies a percentage-based discount.
	TypePercentage Type = "percentage"
	// TypeFixed applies a fixed monetary discount.
	TypeFixed Type = "fixed"
	// TypeFreeShipping cancels the shipping charge.
	TypeFreeShipping Type = "free_shipping"
)

// Kind distinguishes one-off registration coupons from regular codes.
type Kind string

const (
	KindRegular Kind = "regular"
	// KindRegister coupons are redeemable once per account; redeeming one
	// flags the purchasing identity.
	KindRegister Kind = "register"
)

// ErrNotFound is returned when a coupon definition does not exist.
var ErrNotFound = errors.New("coupon not found")

// Coupon is a coupon definition.
type Coupon struct {
	ID                 int64
	Name               string
	Code               string
	Type               Type
	Kind               Kind
	Value              decimal.Decimal
	Accumulative       bool
	AssociatedProducts []byte
}

// IsRegister reports whether redeeming the coupon flags the identity.
func (c *Coupon) IsRegister() bool {
	return c.Kind == KindRegister
}

// Association is the ledger row recording a coupon redemption on an order.
// Rows are unique per (order, coupon): coupons may stack.
type Association struct {
	OrderID            int64
	CouponID           int64
	Name               string
	Code               string
	Type               Type
	Value              decimal.Decimal
	Accumulative       bool
	AssociatedProducts []byte
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// NewAssociation snapshots c for order orderID.
func NewAssociation(orderID int64, c *Coupon) *Association {
	return &Association{
		OrderID:            orderID,
		CouponID:           c.ID,
		Name:               c.Name,
		Code:               c.Code,
		Type:               c.Type,
		Value:              c.Value,
		Accumulative:       c.Accumulative,
		AssociatedProducts: c.AssociatedProducts,
	}
}

// Repository resolves coupon definitions and maintains the coupon ledger.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Coupon, error)
	UpsertAssociation(ctx context.Context, a *Association) error
}

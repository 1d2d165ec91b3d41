package order

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/xenking/order-factory/internal/domain/coupon"
	"github.com/xenking/order-factory/internal/domain/discount"
	"github.com/xenking/order-factory/internal/domain/product"
)

// UnitOfWork runs fn inside a single atomic transaction. If fn returns an
// error every write made through tx is rolled back and the error is returned
// unchanged.
type UnitOfWork interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx exposes the repositories bound to one transaction.
type Tx interface {
	Orders() Repository
	Lines() LineRepository
	Products() product.Repository
	Discounts() discount.Repository
	Coupons() coupon.Repository
	Cards() CardRepository
	Fees() FeeRepository
	Addresses() AddressRepository
	Users() UserRepository
	Prescriptions() PrescriptionRepository
	Outbox() OutboxRepository
}

// Repository persists order headers.
type Repository interface {
	// Get returns ErrNotFound when the order does not exist.
	Get(ctx context.Context, id int64) (*Order, error)
	// Create inserts the header and assigns o.ID.
	Create(ctx context.Context, o *Order) error
	Update(ctx context.Context, o *Order) error
}

// LineRepository persists order lines.
type LineRepository interface {
	// Upsert inserts l, or updates the existing line with the same
	// (order, product, role, variant) key, and assigns l.ID.
	Upsert(ctx context.Context, l *Line) error
	ListByOrder(ctx context.Context, orderID int64) ([]Line, error)
}

// CardRepository mutates loyalty card balances.
type CardRepository interface {
	// DebitTempBalance subtracts amount from the card's temporary balance.
	DebitTempBalance(ctx context.Context, cardID int64, amount decimal.Decimal) error
}

// FeeRepository records order fees.
type FeeRepository interface {
	// Upsert inserts f or replaces the fee of the same (order, type).
	Upsert(ctx context.Context, f *Fee) error
}

// AddressType distinguishes address book entries.
type AddressType string

const (
	AddressShipping AddressType = "shipping"
	AddressBilling  AddressType = "billing"
)

// AddressRepository saves addresses to a user's address book.
type AddressRepository interface {
	Create(ctx context.Context, userID int64, typ AddressType, a AddressInput) error
}

// UserRepository updates account flags.
type UserRepository interface {
	// MarkCouponUsed sets the one-way "used registration coupon" flag.
	MarkCouponUsed(ctx context.Context, userID int64) error
}

// PrescriptionRepository creates prescription records.
type PrescriptionRepository interface {
	CreateEmpty(ctx context.Context) (int64, error)
}

// OutboxRepository appends events that are published once the transaction
// commits.
type OutboxRepository interface {
	Append(ctx context.Context, e Event) error
}

// NumberGenerator assigns display numbers to new orders.
type NumberGenerator interface {
	Generate(ctx context.Context, o *Order) (string, error)
}

// Identity is the authenticated caller.
type Identity struct {
	UserID int64
}

// IdentityProvider resolves the caller of the current request.
type IdentityProvider interface {
	// Current returns false for anonymous callers.
	Current(ctx context.Context) (Identity, bool)
}

package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Availability is the stock policy of a product.
type Availability string

const (
	// AvailabilityUnlimited products are always purchasable; stock is not tracked.
	AvailabilityUnlimited Availability = "unlimited"
	// AvailabilityLimited products are sold on request; stock is not tracked.
	AvailabilityLimited Availability = "limited"
	// AvailabilityStock products have a finite stock counter.
	AvailabilityStock Availability = "stock"
)

// State is the sellable state of a product.
type State string

const (
	StateActive      State = "active"
	StateUnavailable State = "unavailable"
)

// Product is the catalog snapshot the order factory copies onto order lines.
type Product struct {
	ID   int64
	SKU  string
	Type string
	Name string
	// PriceVAT is the display price including VAT.
	PriceVAT     decimal.Decimal
	CostPrice    decimal.Decimal
	VATRate      decimal.Decimal
	Stock        int
	Availability Availability
	State        State
}

// TracksStock reports whether materialising a line decrements this product's
// stock counter.
func (p *Product) TracksStock() bool {
	return p.Availability != AvailabilityUnlimited && p.Availability != AvailabilityLimited
}

// StockChange is the outcome of a stock decrement.
type StockChange struct {
	ProductID int64
	Before    int
	After     int
	State     State
	// BecameUnavailable is true when this decrement moved the product from a
	// sellable state to StateUnavailable.
	BecameUnavailable bool
}

// Repository provides catalog lookups and stock mutation inside the caller's
// transaction.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Product, error)
	GetByIDs(ctx context.Context, ids []int64) ([]Product, error)
	// GetBySKU returns ErrNotFound when no product carries the SKU.
	GetBySKU(ctx context.Context, sku string) (*Product, error)
	// DecrementStock subtracts qty from the stock counter and marks the
	// product unavailable once the counter reaches zero. Implementations
	// must serialise concurrent decrements of the same product.
	DecrementStock(ctx context.Context, id int64, qty int) (StockChange, error)
}

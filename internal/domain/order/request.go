package order

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/order-factory/internal/domain/adjustment"
)

// Special address identifiers sent by the checkout.
const (
	// AddressNone means the customer only gave a name and country.
	AddressNone = "no-address"
	// AddressNew means the address should also be saved to the address book.
	AddressNew = "new-address"
	// AddressSimplifiedInvoice marks a billpayer that wants a simplified
	// invoice with no billing details.
	AddressSimplifiedInvoice = "simplified-invoice"
)

// CreateRequest is the checkout payload consumed by Factory.Create.
type CreateRequest struct {
	Header      Header
	Lines       []LineInput
	Adjustments adjustment.Set
}

// Header carries the order header fields.
type Header struct {
	Type Type
	// ExistingOrderID re-materialises lines onto an existing order.
	ExistingOrderID *int64
	StoreID         *int64
	UserID          *int64
	// Number overrides the generated order number.
	Number string
	Status Status
	// TotalWithCard is the amount left to pay after card redemption; an
	// explicit zero marks the order as paid.
	TotalWithCard   *decimal.Decimal
	ShippingAddress *AddressInput
	Billpayer       *AddressInput
	Notes           string
}

// AddressInput is an address as submitted by the checkout.
type AddressInput struct {
	// ID is an address book id or one of AddressNone, AddressNew,
	// AddressSimplifiedInvoice.
	ID         string
	FirstName  string
	LastName   string
	CountryID  string
	PostalCode string
	City       string
	Address    string
	Email      string
	Phone      string
	NIF        string
}

// LineKind is the tagged variant of a candidate line: either a purchasable
// product or a free-text prescription line.
type LineKind interface {
	lineKind()
}

// ProductRef is a line backed by a catalog product.
type ProductRef struct {
	ProductID int64
}

// FreeText is a prescription line without a purchasable product.
type FreeText struct {
	PrescriptionID int64
	Info           string
}

func (ProductRef) lineKind() {}
func (FreeText) lineKind()   {}

// LineInput is a candidate order line.
type LineInput struct {
	// ID is the cart item id referenced by item_id in adjustment payloads.
	ID   string
	Kind LineKind
	// Quantity defaults to 1 when nil.
	Quantity *int
	// Price is the resolved unit price from the cart. Defaults to the product
	// display price.
	Price *decimal.Decimal
	// ModPrice is a manual price override; only positive values apply.
	ModPrice    decimal.Decimal
	Adjustments adjustment.Set
}

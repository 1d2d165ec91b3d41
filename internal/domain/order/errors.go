package order

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Sentinel errors for order creation.
var (
	ErrInvalidOrderType = errors.New("invalid order type")
	ErrEmptyOrder       = errors.New("can not create an order without items")
	ErrNotFound         = errors.New("order not found")
)

// AddressDataError indicates a malformed address payload where an address
// object was expected.
type AddressDataError struct {
	Field string
}

func (e *AddressDataError) Error() string {
	return fmt.Sprintf("address data missing or malformed: %s", e.Field)
}

// ProductNotFoundError indicates a product line references an unknown product.
type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %d not found", e.ProductID)
}

// PersistenceError wraps a storage failure with the operation that failed.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

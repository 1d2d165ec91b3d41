package postgres

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/xenking/order-factory/internal/domain/order"
)

const (
	debitCardSQL = `UPDATE cards SET temp_balance = temp_balance - $2 WHERE id = $1`

	upsertFeeSQL = `INSERT INTO order_fees (order_id, type, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (order_id, type) DO UPDATE SET value = EXCLUDED.value
		RETURNING id`

	createAddressSQL = `INSERT INTO addresses (user_id, type, first_name, last_name, country_id,
		postal_code, city, address, email, phone, nif)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	markCouponUsedSQL = `UPDATE users SET used_coupon = TRUE WHERE id = $1`

	createPrescriptionSQL = `INSERT INTO prescriptions DEFAULT VALUES RETURNING id`
)

var (
	_ order.CardRepository         = (*CardRepository)(nil)
	_ order.FeeRepository          = (*FeeRepository)(nil)
	_ order.AddressRepository      = (*AddressRepository)(nil)
	_ order.UserRepository         = (*UserRepository)(nil)
	_ order.PrescriptionRepository = (*PrescriptionRepository)(nil)
)

// CardRepository implements order.CardRepository backed by PostgreSQL.
type CardRepository struct {
	q querier
}

// DebitTempBalance subtracts amount from the card's temporary balance. An
// unknown card is not an error; the debit is simply not applied.
func (r *CardRepository) DebitTempBalance(ctx context.Context, cardID int64, amount decimal.Decimal) error {
	if _, err := r.q.Exec(ctx, debitCardSQL, cardID, amount); err != nil {
		return persistErr("debit card balance", err)
	}
	return nil
}

// FeeRepository implements order.FeeRepository backed by PostgreSQL.
type FeeRepository struct {
	q querier
}

// Upsert records the fee, replacing any fee of the same type on the order.
func (r *FeeRepository) Upsert(ctx context.Context, f *order.Fee) error {
	if err := r.q.QueryRow(ctx, upsertFeeSQL, f.OrderID, f.Type, f.Value).Scan(&f.ID); err != nil {
		return persistErr("upsert order fee", err)
	}
	return nil
}

// AddressRepository implements order.AddressRepository backed by PostgreSQL.
type AddressRepository struct {
	q querier
}

// Create adds the address to the user's address book.
func (r *AddressRepository) Create(ctx context.Context, userID int64, typ order.AddressType, a order.AddressInput) error {
	_, err := r.q.Exec(ctx, createAddressSQL,
		userID, string(typ), a.FirstName, a.LastName, a.CountryID,
		a.PostalCode, a.City, a.Address, a.Email, a.Phone, a.NIF,
	)
	if err != nil {
		return persistErr("create address", err)
	}
	return nil
}

// UserRepository implements order.UserRepository backed by PostgreSQL.
type UserRepository struct {
	q querier
}

// MarkCouponUsed sets the registration coupon flag on the user.
func (r *UserRepository) MarkCouponUsed(ctx context.Context, userID int64) error {
	if _, err := r.q.Exec(ctx, markCouponUsedSQL, userID); err != nil {
		return persistErr("mark coupon used", err)
	}
	return nil
}

// PrescriptionRepository implements order.PrescriptionRepository backed by
// PostgreSQL.
type PrescriptionRepository struct {
	q querier
}

// CreateEmpty inserts a prescription record with no content.
func (r *PrescriptionRepository) CreateEmpty(ctx context.Context) (int64, error) {
	var id int64
	if err := r.q.QueryRow(ctx, createPrescriptionSQL).Scan(&id); err != nil {
		return 0, persistErr("create prescription", err)
	}
	return id, nil
}

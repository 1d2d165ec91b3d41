package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/order-factory/internal/domain/order"
)

const (
	orderColumns = `id, number, token, type, status, user_id, store_id, email, phone,
		shipping_first_name, shipping_last_name, shipping_country_id, shipping_postal_code, shipping_city, shipping_address,
		billing_first_name, billing_last_name, billing_country_id, billing_postal_code, billing_city, billing_address,
		billing_nif, billing_simple, shipping_price, original_shipping_price, shipping_cause, card_used_balance,
		prescription_id, notes, created_at, updated_at`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	createOrderSQL = `INSERT INTO orders (number, token, type, status, user_id, store_id, email, phone,
		shipping_first_name, shipping_last_name, shipping_country_id, shipping_postal_code, shipping_city, shipping_address,
		billing_first_name, billing_last_name, billing_country_id, billing_postal_code, billing_city, billing_address,
		billing_nif, billing_simple, shipping_price, original_shipping_price, shipping_cause, card_used_balance,
		prescription_id, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
		$21, $22, $23, $24, $25, $26, $27, $28)
		RETURNING id, created_at, updated_at`

	updateOrderSQL = `UPDATE orders SET
		type = $2, status = $3, user_id = $4, store_id = $5, email = $6, phone = $7,
		shipping_first_name = $8, shipping_last_name = $9, shipping_country_id = $10,
		shipping_postal_code = $11, shipping_city = $12, shipping_address = $13,
		billing_first_name = $14, billing_last_name = $15, billing_country_id = $16,
		billing_postal_code = $17, billing_city = $18, billing_address = $19,
		billing_nif = $20, billing_simple = $21, shipping_price = $22, original_shipping_price = $23,
		shipping_cause = $24, card_used_balance = $25, prescription_id = $26, notes = $27,
		updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	q querier
}

// Get loads an order header. The row is locked for the rest of the
// transaction so concurrent re-materialisations of one order serialise.
func (r *OrderRepository) Get(ctx context.Context, id int64) (*order.Order, error) {
	rows, err := r.q.Query(ctx, getOrderSQL+` FOR UPDATE`, id)
	if err != nil {
		return nil, persistErr("get order", err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, persistErr("get order", order.ErrNotFound)
		}
		return nil, persistErr("get order", err)
	}
	return o, nil
}

// Create inserts the header and assigns its id and timestamps.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	err := r.q.QueryRow(ctx, createOrderSQL,
		o.Number, o.Token, string(o.Type), string(o.Status), o.UserID, o.StoreID, o.Email, o.Phone,
		o.Shipping.FirstName, o.Shipping.LastName, o.Shipping.CountryID,
		o.Shipping.PostalCode, o.Shipping.City, o.Shipping.Address,
		o.Billing.FirstName, o.Billing.LastName, o.Billing.CountryID,
		o.Billing.PostalCode, o.Billing.City, o.Billing.Address,
		o.BillingNIF, o.BillingSimple, o.ShippingPrice, o.OriginalShippingPrice, o.ShippingCause, o.CardUsedBalance,
		o.PrescriptionID, o.Notes,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return persistErr("create order", err)
	}
	return nil
}

// Update overwrites the mutable header fields.
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	err := r.q.QueryRow(ctx, updateOrderSQL,
		o.ID, string(o.Type), string(o.Status), o.UserID, o.StoreID, o.Email, o.Phone,
		o.Shipping.FirstName, o.Shipping.LastName, o.Shipping.CountryID,
		o.Shipping.PostalCode, o.Shipping.City, o.Shipping.Address,
		o.Billing.FirstName, o.Billing.LastName, o.Billing.CountryID,
		o.Billing.PostalCode, o.Billing.City, o.Billing.Address,
		o.BillingNIF, o.BillingSimple, o.ShippingPrice, o.OriginalShippingPrice,
		o.ShippingCause, o.CardUsedBalance, o.PrescriptionID, o.Notes,
	).Scan(&o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return persistErr("update order", order.ErrNotFound)
		}
		return persistErr("update order", err)
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (*order.Order, error) {
	var (
		o      order.Order
		typ    string
		status string
	)
	err := row.Scan(
		&o.ID, &o.Number, &o.Token, &typ, &status, &o.UserID, &o.StoreID, &o.Email, &o.Phone,
		&o.Shipping.FirstName, &o.Shipping.LastName, &o.Shipping.CountryID,
		&o.Shipping.PostalCode, &o.Shipping.City, &o.Shipping.Address,
		&o.Billing.FirstName, &o.Billing.LastName, &o.Billing.CountryID,
		&o.Billing.PostalCode, &o.Billing.City, &o.Billing.Address,
		&o.BillingNIF, &o.BillingSimple, &o.ShippingPrice, &o.OriginalShippingPrice, &o.ShippingCause, &o.CardUsedBalance,
		&o.PrescriptionID, &o.Notes, &o.CreatedAt, &o.UpdatedAt,
	)
	o.Type = order.Type(typ)
	o.Status = order.Status(status)
	return &o, err
}

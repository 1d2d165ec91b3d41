package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/order-factory/internal/domain/discount"
)

const (
	getDiscountSQL = `SELECT id, type_tag, type_name, name, label_name, start_date, end_date,
		discount_type, value, type_card, value_card, type_coupon, value_coupon,
		start_date_coupon, end_date_coupon, offer_number, purchase_number, reference,
		properties, min_buy_count, minimum_value, description, can_stack_direct
		FROM discounts WHERE id = $1`

	findDiscountAssociationSQL = `SELECT order_id, discount_id, snapshot, sequence, created_at, updated_at
		FROM order_discounts WHERE order_id = $1 AND discount_id = $2`

	maxDiscountSequenceSQL = `SELECT COALESCE(MAX(sequence), 0) FROM order_discounts WHERE order_id = $1`

	upsertDiscountAssociationSQL = `INSERT INTO order_discounts (order_id, discount_id, snapshot, sequence)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (order_id, discount_id) DO UPDATE SET
			snapshot = EXCLUDED.snapshot,
			sequence = EXCLUDED.sequence,
			updated_at = NOW()
		RETURNING created_at, updated_at`
)

var _ discount.Repository = (*DiscountRepository)(nil)

// DiscountRepository implements discount.Repository backed by PostgreSQL.
type DiscountRepository struct {
	q querier
}

// GetByID returns discount.ErrNotFound when the definition does not exist.
func (r *DiscountRepository) GetByID(ctx context.Context, id int64) (*discount.Discount, error) {
	var d discount.Discount
	err := r.q.QueryRow(ctx, getDiscountSQL, id).Scan(
		&d.ID, &d.TypeTag, &d.TypeName, &d.Name, &d.LabelName, &d.StartDate, &d.EndDate,
		&d.DiscountType, &d.Value, &d.TypeCard, &d.ValueCard, &d.TypeCoupon, &d.ValueCoupon,
		&d.StartDateCoupon, &d.EndDateCoupon, &d.OfferNumber, &d.PurchaseNumber, &d.Reference,
		&d.Properties, &d.MinBuyCount, &d.MinimumValue, &d.Description, &d.CanStackDirect,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, discount.ErrNotFound
		}
		return nil, persistErr("get discount", err)
	}
	return &d, nil
}

// FindAssociation returns (nil, nil) when the order has no row for the discount.
func (r *DiscountRepository) FindAssociation(ctx context.Context, orderID, discountID int64) (*discount.Association, error) {
	var a discount.Association
	err := r.q.QueryRow(ctx, findDiscountAssociationSQL, orderID, discountID).Scan(
		&a.OrderID, &a.DiscountID, &a.Snapshot, &a.Sequence, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, persistErr("find discount association", err)
	}
	return &a, nil
}

// MaxSequence returns the highest sequence recorded for the order, or 0.
func (r *DiscountRepository) MaxSequence(ctx context.Context, orderID int64) (int, error) {
	var seq int
	if err := r.q.QueryRow(ctx, maxDiscountSequenceSQL, orderID).Scan(&seq); err != nil {
		return 0, persistErr("max discount sequence", err)
	}
	return seq, nil
}

// UpsertAssociation writes the ledger row. The snapshot is stored as JSONB.
func (r *DiscountRepository) UpsertAssociation(ctx context.Context, a *discount.Association) error {
	err := r.q.QueryRow(ctx, upsertDiscountAssociationSQL, a.OrderID, a.DiscountID, a.Snapshot, a.Sequence).
		Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return persistErr("upsert discount association", err)
	}
	return nil
}

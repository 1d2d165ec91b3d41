package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/order-factory/internal/domain/coupon"
)

const (
	getCouponSQL = `SELECT id, name, code, type, kind, value, accumulative, associated_products
		FROM coupons WHERE id = $1`

	upsertCouponAssociationSQL = `INSERT INTO order_coupons (order_id, coupon_id, name, code, type, value,
		accumulative, associated_products)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (order_id, coupon_id) DO UPDATE SET
			name = EXCLUDED.name,
			code = EXCLUDED.code,
			type = EXCLUDED.type,
			value = EXCLUDED.value,
			accumulative = EXCLUDED.accumulative,
			associated_products = EXCLUDED.associated_products,
			updated_at = NOW()
		RETURNING created_at, updated_at`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	q querier
}

// GetByID returns coupon.ErrNotFound when the coupon does not exist.
func (r *CouponRepository) GetByID(ctx context.Context, id int64) (*coupon.Coupon, error) {
	var (
		c    coupon.Coupon
		typ  string
		kind string
	)
	err := r.q.QueryRow(ctx, getCouponSQL, id).Scan(
		&c.ID, &c.Name, &c.Code, &typ, &kind, &c.Value, &c.Accumulative, &c.AssociatedProducts,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, persistErr("get coupon", err)
	}
	c.Type = coupon.Type(typ)
	c.Kind = coupon.Kind(kind)
	return &c, nil
}

// UpsertAssociation writes the coupon ledger row for (order, coupon).
func (r *CouponRepository) UpsertAssociation(ctx context.Context, a *coupon.Association) error {
	err := r.q.QueryRow(ctx, upsertCouponAssociationSQL,
		a.OrderID, a.CouponID, a.Name, a.Code, string(a.Type), a.Value, a.Accumulative, a.AssociatedProducts,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return persistErr("upsert coupon association", err)
	}
	return nil
}

package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/xenking/order-factory/internal/domain/order"
)

const (
	upsertLineSQL = `INSERT INTO order_lines (order_id, product_id, role, variant, product_type, name,
		original_price, cost_price, vat_rate, stock, quantity, price,
		interval_discount, store_discount, direct_discount, campaign_discount, coupon_discount,
		discount_id, coupon_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (order_id, product_id, role, variant) DO UPDATE SET
			product_type = EXCLUDED.product_type,
			name = EXCLUDED.name,
			original_price = EXCLUDED.original_price,
			cost_price = EXCLUDED.cost_price,
			vat_rate = EXCLUDED.vat_rate,
			stock = EXCLUDED.stock,
			quantity = EXCLUDED.quantity,
			price = EXCLUDED.price,
			interval_discount = EXCLUDED.interval_discount,
			store_discount = EXCLUDED.store_discount,
			direct_discount = EXCLUDED.direct_discount,
			campaign_discount = EXCLUDED.campaign_discount,
			coupon_discount = EXCLUDED.coupon_discount,
			discount_id = EXCLUDED.discount_id,
			coupon_id = EXCLUDED.coupon_id
		RETURNING id`

	listLinesSQL = `SELECT id, order_id, role, variant, product_type, product_id, name,
		original_price, cost_price, vat_rate, stock, quantity, price,
		interval_discount, store_discount, direct_discount, campaign_discount, coupon_discount,
		COALESCE(discount_id, 0), COALESCE(coupon_id, 0)
		FROM order_lines WHERE order_id = $1 ORDER BY id`
)

var _ order.LineRepository = (*LineRepository)(nil)

// LineRepository implements order.LineRepository backed by PostgreSQL.
type LineRepository struct {
	q querier
}

// Upsert inserts the line or overwrites the line with the same
// (order, product, role, variant) key.
func (r *LineRepository) Upsert(ctx context.Context, l *order.Line) error {
	err := r.q.QueryRow(ctx, upsertLineSQL,
		l.OrderID, l.ProductID, string(l.Role), l.Variant, l.ProductType, l.Name,
		l.OriginalPrice, l.CostPrice, l.VATRate, l.Stock, l.Quantity, l.Price,
		l.IntervalDiscount, l.StoreDiscount, l.DirectDiscount, l.CampaignDiscount, l.CouponDiscount,
		nullID(l.DiscountID), nullID(l.CouponID),
	).Scan(&l.ID)
	if err != nil {
		return persistErr("upsert order line", err)
	}
	return nil
}

// ListByOrder returns the lines of an order in insertion order.
func (r *LineRepository) ListByOrder(ctx context.Context, orderID int64) ([]order.Line, error) {
	rows, err := r.q.Query(ctx, listLinesSQL, orderID)
	if err != nil {
		return nil, persistErr("list order lines", err)
	}
	lines, err := pgx.CollectRows(rows, scanLine)
	if err != nil {
		return nil, persistErr("list order lines", err)
	}
	return lines, nil
}

func scanLine(row pgx.CollectableRow) (order.Line, error) {
	var (
		l    order.Line
		role string
	)
	err := row.Scan(
		&l.ID, &l.OrderID, &role, &l.Variant, &l.ProductType, &l.ProductID, &l.Name,
		&l.OriginalPrice, &l.CostPrice, &l.VATRate, &l.Stock, &l.Quantity, &l.Price,
		&l.IntervalDiscount, &l.StoreDiscount, &l.DirectDiscount, &l.CampaignDiscount, &l.CouponDiscount,
		&l.DiscountID, &l.CouponID,
	)
	l.Role = order.LineRole(role)
	return l, err
}

// nullID maps the zero id to NULL.
func nullID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}

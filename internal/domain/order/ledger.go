package order

import (
	"context"

	"github.com/xenking/order-factory/internal/domain/adjustment"
	"github.com/xenking/order-factory/internal/domain/coupon"
	"github.com/xenking/order-factory/internal/domain/discount"
)

// recordDiscount upserts the ledger row for the campaign discount behind a.
// next is the sequence the order's next new discount receives; the returned
// value is the sequence after this write. Rows that already exist keep their
// sequence and do not consume a slot.
func recordDiscount(ctx context.Context, repo discount.Repository, orderID int64, a adjustment.Adjustment, next int) (int, error) {
	d, err := repo.GetByID(ctx, a.Origin)
	if err != nil {
		return next, err
	}
	existing, err := repo.FindAssociation(ctx, orderID, d.ID)
	if err != nil {
		return next, err
	}

	seq := next
	if existing != nil {
		seq = existing.Sequence
	}
	if err := repo.UpsertAssociation(ctx, discount.NewAssociation(orderID, d, seq)); err != nil {
		return next, err
	}
	if existing == nil {
		next++
	}
	return next, nil
}

// recordCoupon upserts the ledger row for the coupon behind a and flags the
// purchaser when the coupon is a registration coupon.
func recordCoupon(ctx context.Context, tx Tx, o *Order, a adjustment.Adjustment) error {
	c, err := tx.Coupons().GetByID(ctx, a.Origin)
	if err != nil {
		return err
	}
	if err := tx.Coupons().UpsertAssociation(ctx, coupon.NewAssociation(o.ID, c)); err != nil {
		return err
	}
	if c.IsRegister() && o.UserID != nil {
		return tx.Users().MarkCouponUsed(ctx, *o.UserID)
	}
	return nil
}

// firstSequence returns the sequence the next new discount of the order
// receives.
func firstSequence(ctx context.Context, repo discount.Repository, orderID int64) (int, error) {
	top, err := repo.MaxSequence(ctx, orderID)
	if err != nil {
		return 0, err
	}
	return top + 1, nil
}

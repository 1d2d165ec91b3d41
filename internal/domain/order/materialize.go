package order

import (
	"context"
	"slices"

	"github.com/xenking/order-factory/internal/domain/adjustment"
)

type lineKey struct {
	productID int64
	role      LineRole
	variant   string
}

// run carries the state threaded through one materialisation pass.
type run struct {
	order *Order
	// nextSeq is the sequence assigned to the next new discount association.
	nextSeq int
	lines   map[lineKey]*Line
	keys    []lineKey
	// held is the quantity per line key already taken from stock, including
	// what earlier runs of the same order took.
	held  map[lineKey]int
	gifts int
	// unavailable lists products whose stock crossed the availability threshold.
	unavailable []int64
}

func newRun(o *Order, nextSeq int) *run {
	return &run{
		order:   o,
		nextSeq: nextSeq,
		lines:   make(map[lineKey]*Line),
		held:    make(map[lineKey]int),
	}
}

// holdStored records the lines persisted by earlier runs of the order so that
// re-materialising them only takes the increase from stock.
func (r *run) holdStored(stored []Line) {
	for _, l := range stored {
		r.held[lineKey{productID: l.ProductID, role: l.Role, variant: l.Variant}] += l.Quantity
	}
}

// materialized returns the persisted lines in the order they were first written.
func (r *run) materialized() []Line {
	out := make([]Line, 0, len(r.keys))
	for _, k := range r.keys {
		out = append(out, *r.lines[k])
	}
	return out
}

// materialize processes the adjustments of an annotated line (gift lines and
// ledger rows) and then persists the line itself.
func (f *Factory) materialize(ctx context.Context, tx Tx, r *run, d *draft) error {
	for _, a := range d.adjustments() {
		if a.Category.ProducesGift() {
			if err := f.materializeGifts(ctx, tx, r, d, a); err != nil {
				return err
			}
		}

		switch {
		case a.Category.IsCampaignDiscount():
			next, err := recordDiscount(ctx, tx.Discounts(), r.order.ID, a, r.nextSeq)
			if err != nil {
				return err
			}
			r.nextSeq = next
		case a.Category.IsCoupon():
			if err := recordCoupon(ctx, tx, r.order, a); err != nil {
				return err
			}
		}
	}
	return f.persist(ctx, tx, r, d)
}

func (f *Factory) materializeGifts(ctx context.Context, tx Tx, r *run, paying *draft, a adjustment.Adjustment) error {
	targets, err := resolveGiftTargets(ctx, tx.Products(), a)
	if err != nil {
		return err
	}
	for _, t := range targets {
		if policyFor(a.Category) == giftSubtractive {
			paying.Quantity = max(paying.Quantity-t.quantity, 0)
		}
		g := giftLine(paying, t, a.Origin)
		if err := f.persist(ctx, tx, r, g); err != nil {
			return err
		}
		if g.Quantity != 0 {
			r.gifts++
		}
	}
	return nil
}

// persist upserts the line and applies its stock effect. Lines with zero
// quantity are dropped. A key written earlier in the same run accumulates
// quantity instead of being overwritten. Stock is only taken for the quantity
// above what the key already holds; a lower quantity returns nothing.
func (f *Factory) persist(ctx context.Context, tx Tx, r *run, d *draft) error {
	if d.Quantity == 0 {
		return nil
	}

	key := lineKey{productID: d.ProductID, role: d.Role, variant: d.Variant}
	line := d.Line
	prev, seen := r.lines[key]
	if seen {
		line = *prev
		line.Quantity += d.Quantity
	}
	line.OrderID = r.order.ID

	if err := tx.Lines().Upsert(ctx, &line); err != nil {
		return err
	}
	r.lines[key] = &line
	if !seen {
		r.keys = append(r.keys, key)
	}

	if !d.product.TracksStock() || !f.holdsStock(r.order.Status) {
		return nil
	}
	take := line.Quantity - r.held[key]
	if take <= 0 {
		return nil
	}
	r.held[key] = line.Quantity
	change, err := tx.Products().DecrementStock(ctx, d.ProductID, take)
	if err != nil {
		return err
	}
	if change.BecameUnavailable && !slices.Contains(r.unavailable, d.ProductID) {
		r.unavailable = append(r.unavailable, d.ProductID)
	}
	return nil
}

func (f *Factory) holdsStock(s Status) bool {
	return slices.Contains(f.cfg.StockStatuses, s)
}

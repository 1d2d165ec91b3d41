package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/order-factory/internal/domain/adjustment"
	"github.com/xenking/order-factory/internal/domain/product"
)

// draft is a candidate line on its way to materialisation.
type draft struct {
	Line

	// itemID is the cart item id that item_id payload keys refer to.
	itemID   string
	product  *product.Product
	modPrice decimal.Decimal
	// own is the line's item-level adjustment set.
	own adjustment.Set
	// attached holds promotion adjustments bound to a line split off by
	// unfolding.
	attached adjustment.Set
}

// adjustments returns attached followed by own adjustments.
func (d *draft) adjustments() adjustment.Set {
	out := make(adjustment.Set, 0, len(d.attached)+len(d.own))
	out = append(out, d.attached...)
	return append(out, d.own...)
}

func (d *draft) clone() *draft {
	c := *d
	c.own = append(adjustment.Set(nil), d.own...)
	c.attached = append(adjustment.Set(nil), d.attached...)
	return &c
}

// resolveLines splits candidate lines by kind and resolves the products of
// product lines in a single lookup. Free-text lines are returned separately.
func resolveLines(ctx context.Context, products product.Repository, in []LineInput) ([]*draft, []FreeText, error) {
	var (
		ids      []int64
		freeText []FreeText
	)
	for _, li := range in {
		switch k := li.Kind.(type) {
		case ProductRef:
			ids = append(ids, k.ProductID)
		case FreeText:
			freeText = append(freeText, k)
		}
	}
	if len(ids) == 0 {
		return nil, freeText, nil
	}

	fetched, err := products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	byID := make(map[int64]*product.Product, len(fetched))
	for i := range fetched {
		byID[fetched[i].ID] = &fetched[i]
	}

	drafts := make([]*draft, 0, len(ids))
	for _, li := range in {
		ref, ok := li.Kind.(ProductRef)
		if !ok {
			continue
		}
		p, ok := byID[ref.ProductID]
		if !ok {
			return nil, nil, &ProductNotFoundError{ProductID: ref.ProductID}
		}
		drafts = append(drafts, newDraft(li, p))
	}
	return drafts, freeText, nil
}

func newDraft(li LineInput, p *product.Product) *draft {
	qty := 1
	if li.Quantity != nil {
		qty = *li.Quantity
	}
	price := p.PriceVAT
	if li.Price != nil {
		price = *li.Price
	}
	d := &draft{
		itemID:   li.ID,
		product:  p,
		modPrice: li.ModPrice,
		own:      li.Adjustments,
	}
	d.Role = RoleRegular
	d.Quantity = qty
	d.Price = price
	d.snapshot(p)
	return d
}

// snapshot copies the catalog fields of p onto the line.
func (d *draft) snapshot(p *product.Product) {
	d.product = p
	d.ProductType = p.Type
	d.ProductID = p.ID
	d.Name = p.Name
	d.OriginalPrice = p.PriceVAT
	d.CostPrice = p.CostPrice
	d.VATRate = p.VATRate
	d.Stock = p.Stock
}

// annotate resolves the price breakdown of d from its adjustments.
func annotate(d *draft) {
	d.DiscountID = 0
	d.CouponID = 0
	d.CampaignDiscount = decimal.Zero
	d.CouponDiscount = decimal.Zero

	// Attached adjustments are campaign discounts only.
	c := adjustment.ClassifyItem(d.adjustments())
	if c.Interval != nil {
		d.IntervalDiscount = c.Interval.Amount
	}
	if c.Store != nil {
		d.StoreDiscount = c.Store.Amount
	}
	if c.Direct != nil {
		d.DirectDiscount = c.Direct.Amount
	}
	if d.modPrice.IsPositive() {
		d.DirectDiscount = d.OriginalPrice.Sub(d.modPrice)
	}

	// The last campaign discount and the last coupon of the line are reported.
	for _, a := range c.CampaignDiscounts {
		d.DiscountID = a.Origin
		d.CampaignDiscount = a.Amount
		if a.Data.Has(adjustment.KeyItemID) && !a.Amount.IsZero() {
			single, _ := a.Data.Decimal(adjustment.KeySingleAmount)
			d.Price = d.product.PriceVAT.Sub(single)
		}
	}
	for _, a := range c.Coupons {
		d.CouponID = a.Origin
		d.CouponDiscount = a.Amount
	}
}

// giftPolicy decides whether a gift consumes quantity from the paying line.
type giftPolicy int

const (
	// giftAdditive gifts are added on top of the paying line.
	giftAdditive giftPolicy = iota
	// giftSubtractive gifts are carved out of the paying line's quantity.
	giftSubtractive
)

// policyFor returns the gift policy of a gift-producing category. Only the
// cheaper-item offer takes the free unit out of the paying line.
func policyFor(c adjustment.Category) giftPolicy {
	if c == adjustment.OfferCheaperFree {
		return giftSubtractive
	}
	return giftAdditive
}

// giftTarget is a product granted for free by a promotion.
type giftTarget struct {
	product  *product.Product
	quantity int
}

// resolveGiftTargets resolves the products granted by a gift-producing
// adjustment. Unknown SKUs or ids are skipped without error.
func resolveGiftTargets(ctx context.Context, products product.Repository, a adjustment.Adjustment) ([]giftTarget, error) {
	switch a.Category {
	case adjustment.OfferCheaperFree, adjustment.OfferIdenticalFree:
		sku, ok := a.Data.String(adjustment.KeySKU)
		if !ok {
			return nil, nil
		}
		qty, _ := a.Data.Int(adjustment.KeyQuantity)
		p, err := products.GetBySKU(ctx, sku)
		if errors.Is(err, product.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return []giftTarget{{product: p, quantity: qty}}, nil

	case adjustment.OfferNamedProduct:
		var out []giftTarget
		for _, g := range countSelections(a.Data.IDs(adjustment.KeySelectedGifts)) {
			p, err := products.GetByID(ctx, g.id)
			if errors.Is(err, product.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			out = append(out, giftTarget{product: p, quantity: g.count})
		}
		return out, nil
	}
	return nil, nil
}

type selection struct {
	id    int64
	count int
}

// countSelections collapses duplicate gift ids into counts, keeping the order
// of first appearance.
func countSelections(ids []int64) []selection {
	var out []selection
	index := make(map[int64]int, len(ids))
	for _, id := range ids {
		if i, ok := index[id]; ok {
			out[i].count++
			continue
		}
		index[id] = len(out)
		out = append(out, selection{id: id, count: 1})
	}
	return out
}

// giftLine derives the zero-price gift line for target from the paying line.
func giftLine(paying *draft, t giftTarget, origin int64) *draft {
	g := paying.clone()
	g.snapshot(t.product)
	g.Role = RoleGift
	g.Variant = ""
	g.Quantity = t.quantity
	g.Price = decimal.Zero
	g.IntervalDiscount = decimal.Zero
	g.StoreDiscount = decimal.Zero
	g.DirectDiscount = decimal.Zero
	g.CampaignDiscount = decimal.Zero
	g.CouponDiscount = decimal.Zero
	g.DiscountID = origin
	g.CouponID = 0
	g.own = nil
	g.attached = nil
	return g
}

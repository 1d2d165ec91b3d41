// Package adjustment models the pricing adjustments produced by the upstream
// pricing engine. Adjustments arrive fully computed; this package only
// categorises and routes them.
package adjustment

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Category is the closed set of adjustment kinds understood by the order
// factory.
type Category string

const (
	// Shipping carries the shipping charge for the order.
	Shipping Category = "shipping"
	// ClientCard is a loyalty-card balance redemption.
	ClientCard Category = "client_card"
	// FeePackagingBag is a packaging fee charged on the order.
	FeePackagingBag Category = "fee_packaging_bag"

	// Coupon is a code-redeemed discount.
	Coupon Category = "coupon"
	// CouponFreeShipping is a coupon cancelling the shipping charge.
	CouponFreeShipping Category = "coupon_free_shipping"

	// CampaignDiscount is a catalog campaign price reduction.
	CampaignDiscount Category = "campaign_discount"
	// OfferCheaperFree grants the cheaper item of a group for free.
	OfferCheaperFree Category = "offer_cheaper_free"
	// OfferIdenticalFree grants extra units of the same product for free.
	OfferIdenticalFree Category = "offer_identical_free"
	// OfferNamedProduct grants one or more selected gift products.
	OfferNamedProduct Category = "offer_named_product"

	// IntervalDiscount is a quantity-interval discount on a line.
	IntervalDiscount Category = "interval_discount"
	// StoreDiscount is a store-specific discount on a line.
	StoreDiscount Category = "store_discount"
	// DirectDiscount is a manual or catalog direct discount on a line.
	DirectDiscount Category = "direct_discount"
)

var categories = map[Category]struct{}{
	Shipping:           {},
	ClientCard:         {},
	FeePackagingBag:    {},
	Coupon:             {},
	CouponFreeShipping: {},
	CampaignDiscount:   {},
	OfferCheaperFree:   {},
	OfferIdenticalFree: {},
	OfferNamedProduct:  {},
	IntervalDiscount:   {},
	StoreDiscount:      {},
	DirectDiscount:     {},
}

// ErrUnknownCategory is returned by ParseCategory for tags outside the closed set.
var ErrUnknownCategory = errors.New("unknown adjustment category")

// ParseCategory validates a raw category tag.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if _, ok := categories[c]; !ok {
		return "", errors.Wrapf(ErrUnknownCategory, "%q", s)
	}
	return c, nil
}

// IsCoupon reports whether the category originates from a coupon definition.
func (c Category) IsCoupon() bool {
	return c == Coupon || c == CouponFreeShipping
}

// IsCampaignDiscount reports whether the category originates from a campaign
// discount definition. Gift offers are campaign discounts too.
func (c Category) IsCampaignDiscount() bool {
	switch c {
	case CampaignDiscount, OfferCheaperFree, OfferIdenticalFree, OfferNamedProduct:
		return true
	default:
		return false
	}
}

// ProducesGift reports whether the category materialises a separate
// zero-price gift line.
func (c Category) ProducesGift() bool {
	switch c {
	case OfferCheaperFree, OfferIdenticalFree, OfferNamedProduct:
		return true
	default:
		return false
	}
}

// Adjustment is a computed pricing delta.
type Adjustment struct {
	Category Category
	// Amount is signed: discounts and redemptions are negative.
	Amount decimal.Decimal
	// Origin is the id of the discount, coupon, card or fee definition.
	Origin int64
	Data   Data
}

// Set is an ordered collection of adjustments. Order is significant: the
// first adjustment of a singleton category wins.
type Set []Adjustment

// First returns the first adjustment of the given category.
func (s Set) First(c Category) (Adjustment, bool) {
	for _, a := range s {
		if a.Category == c {
			return a, true
		}
	}
	return Adjustment{}, false
}

// Filter returns the adjustments matching pred, preserving order.
func (s Set) Filter(pred func(Adjustment) bool) Set {
	var out Set
	for _, a := range s {
		if pred(a) {
			out = append(out, a)
		}
	}
	return out
}

package adjustment

// OrderClassification partitions an order-level adjustment set. Singleton
// categories hold the first matching adjustment, or nil when absent.
type OrderClassification struct {
	Shipping     *Adjustment
	ClientCard   *Adjustment
	PackagingFee *Adjustment
	// FreeShippingCoupon is the first coupon of category CouponFreeShipping.
	FreeShippingCoupon *Adjustment

	Coupons           Set
	CampaignDiscounts Set
}

// ClassifyOrder partitions order-level adjustments. The upstream pricing
// engine never emits two adjustments of a singleton category; if it does, the
// first one in input order wins.
func ClassifyOrder(set Set) OrderClassification {
	var c OrderClassification
	for i := range set {
		a := set[i]
		switch {
		case a.Category == Shipping:
			setFirst(&c.Shipping, a)
		case a.Category == ClientCard:
			setFirst(&c.ClientCard, a)
		case a.Category == FeePackagingBag:
			setFirst(&c.PackagingFee, a)
		case a.Category.IsCoupon():
			c.Coupons = append(c.Coupons, a)
			if a.Category == CouponFreeShipping {
				setFirst(&c.FreeShippingCoupon, a)
			}
		case a.Category.IsCampaignDiscount():
			c.CampaignDiscounts = append(c.CampaignDiscounts, a)
		}
	}
	return c
}

// ItemClassification partitions the adjustment set of a single order line.
type ItemClassification struct {
	Interval *Adjustment
	Store    *Adjustment
	Direct   *Adjustment

	CampaignDiscounts Set
	Coupons           Set
}

// ClassifyItem partitions item-level adjustments with the same first-wins
// tie-break as ClassifyOrder.
func ClassifyItem(set Set) ItemClassification {
	var c ItemClassification
	for i := range set {
		a := set[i]
		switch {
		case a.Category == IntervalDiscount:
			setFirst(&c.Interval, a)
		case a.Category == StoreDiscount:
			setFirst(&c.Store, a)
		case a.Category == DirectDiscount:
			setFirst(&c.Direct, a)
		case a.Category.IsCampaignDiscount():
			c.CampaignDiscounts = append(c.CampaignDiscounts, a)
		case a.Category.IsCoupon():
			c.Coupons = append(c.Coupons, a)
		}
	}
	return c
}

func setFirst(dst **Adjustment, a Adjustment) {
	if *dst == nil {
		*dst = &a
	}
}

package order

import (
	"github.com/xenking/order-factory/internal/domain/adjustment"
)

// unitGroup collects campaign adjustments that target the same line with the
// same amount. Each adjustment stands for one promotional unit.
type unitGroup struct {
	itemID string
	amount string
	adjs   adjustment.Set
}

type unitGroupKey struct {
	itemID string
	amount string
}

// unfold splits lines targeted by item_id campaign adjustments into a
// promotional line per unit group. Targeting adjustments come from the
// order-level set and from the lines' own sets. The targeted line keeps
// whatever quantity the groups did not capture and is dropped when nothing is
// left. Order-level adjustments whose item is not in the order are ignored.
func unfold(drafts []*draft, orderLevel adjustment.Set) []*draft {
	bases := make(map[string]*draft, len(drafts))
	for _, d := range drafts {
		if d.itemID == "" {
			continue
		}
		if _, ok := bases[d.itemID]; !ok {
			bases[d.itemID] = d
		}
	}

	var (
		groups []*unitGroup
		index  = make(map[unitGroupKey]*unitGroup)
	)
	group := func(a adjustment.Adjustment) bool {
		itemID, ok := a.Data.String(adjustment.KeyItemID)
		if !ok || !a.Category.IsCampaignDiscount() || bases[itemID] == nil {
			return false
		}
		k := unitGroupKey{itemID: itemID, amount: a.Amount.String()}
		g, ok := index[k]
		if !ok {
			g = &unitGroup{itemID: itemID, amount: k.amount}
			index[k] = g
			groups = append(groups, g)
		}
		g.adjs = append(g.adjs, a)
		return true
	}

	for _, a := range orderLevel {
		group(a)
	}
	for _, d := range drafts {
		kept := make(adjustment.Set, 0, len(d.own))
		for _, a := range d.own {
			if !group(a) {
				kept = append(kept, a)
			}
		}
		d.own = kept
	}
	if len(groups) == 0 {
		return drafts
	}

	captured := make(map[*draft]int, len(groups))
	for _, g := range groups {
		captured[bases[g.itemID]] += len(g.adjs)
	}

	out := make([]*draft, 0, len(drafts)+len(groups))
	dropped := make(map[*draft]bool)
	for _, d := range drafts {
		n, ok := captured[d]
		if !ok {
			out = append(out, d)
			continue
		}
		if n >= d.Quantity {
			dropped[d] = true
			continue
		}
		d.Quantity -= n
		out = append(out, d)
	}

	inherited := make(map[*draft]bool)
	for _, g := range groups {
		base := bases[g.itemID]
		c := base.clone()
		c.Role = RolePromo
		c.Variant = g.amount
		c.Quantity = len(g.adjs)
		c.attached = g.adjs
		if dropped[base] && !inherited[base] {
			// The first split of a fully captured line inherits its remaining
			// coupon and campaign adjustments so the ledger still sees them.
			inherited[base] = true
		} else {
			c.own = pricingOnly(base.own)
		}
		out = append(out, c)
	}
	return out
}

// pricingOnly keeps the line-level price breakdown adjustments of set.
func pricingOnly(set adjustment.Set) adjustment.Set {
	return set.Filter(func(a adjustment.Adjustment) bool {
		return !a.Category.IsCampaignDiscount() && !a.Category.IsCoupon()
	})
}

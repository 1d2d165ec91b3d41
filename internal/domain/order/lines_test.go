package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/order-factory/internal/domain/adjustment"
	"github.com/xenking/order-factory/internal/domain/product"
)

func testDraft(itemID string, qty int, own ...adjustment.Adjustment) *draft {
	p := &product.Product{ID: 1, Name: "Apple", PriceVAT: dec(10), Availability: product.AvailabilityStock}
	return newDraft(LineInput{
		ID:          itemID,
		Kind:        ProductRef{ProductID: p.ID},
		Quantity:    &qty,
		Adjustments: own,
	}, p)
}

func unitAdj(itemID string, amount int64) adjustment.Adjustment {
	return adjustment.Adjustment{
		Category: adjustment.CampaignDiscount,
		Amount:   dec(amount),
		Origin:   100,
		Data:     adjustment.Data{"item_id": itemID, "single_amount": -amount},
	}
}

func TestUnfold(t *testing.T) {
	t.Run("untargeted lines are unchanged", func(t *testing.T) {
		d := testDraft("i1", 2, campaign(100, -1))
		out := unfold([]*draft{d}, nil)
		require.Len(t, out, 1)
		assert.Same(t, d, out[0])
		assert.Len(t, d.own, 1)
	})

	t.Run("groups by amount", func(t *testing.T) {
		d := testDraft("i1", 5, unitAdj("i1", -2), unitAdj("i1", -3), unitAdj("i1", -2))
		out := unfold([]*draft{d}, nil)
		require.Len(t, out, 3)

		assert.Equal(t, RoleRegular, out[0].Role)
		assert.Equal(t, 2, out[0].Quantity)
		assert.Empty(t, out[0].own)

		assert.Equal(t, RolePromo, out[1].Role)
		assert.Equal(t, "-2", out[1].Variant)
		assert.Equal(t, 2, out[1].Quantity)
		assert.Len(t, out[1].attached, 2)

		assert.Equal(t, "-3", out[2].Variant)
		assert.Equal(t, 1, out[2].Quantity)
	})

	t.Run("fully captured line is dropped", func(t *testing.T) {
		cpn := adjustment.Adjustment{Category: adjustment.Coupon, Amount: dec(-1), Origin: 200}
		direct := adjustment.Adjustment{Category: adjustment.DirectDiscount, Amount: dec(-1)}
		d := testDraft("i1", 3, unitAdj("i1", -2), unitAdj("i1", -2), unitAdj("i1", -1), cpn, direct)
		out := unfold([]*draft{d}, nil)
		require.Len(t, out, 2)

		assert.Equal(t, RolePromo, out[0].Role)
		assert.Equal(t, adjustment.Set{cpn, direct}, out[0].own)
		assert.Equal(t, adjustment.Set{direct}, out[1].own)
	})

	t.Run("targets resolved across lines", func(t *testing.T) {
		target := testDraft("i1", 2)
		carrier := testDraft("i2", 1, unitAdj("i1", -4))
		out := unfold([]*draft{target, carrier}, nil)
		require.Len(t, out, 3)
		assert.Equal(t, 1, out[0].Quantity)
		assert.Empty(t, carrier.own)
		assert.Equal(t, "-4", out[2].Variant)
	})

	t.Run("order-level adjustments join the groups", func(t *testing.T) {
		d := testDraft("i1", 3, unitAdj("i1", -2))
		orderLevel := adjustment.Set{unitAdj("i1", -2), unitAdj("ghost", -1), campaign(100, -1)}
		out := unfold([]*draft{d}, orderLevel)
		require.Len(t, out, 2)

		assert.Equal(t, RoleRegular, out[0].Role)
		assert.Equal(t, 1, out[0].Quantity)

		assert.Equal(t, RolePromo, out[1].Role)
		assert.Equal(t, "-2", out[1].Variant)
		assert.Equal(t, 2, out[1].Quantity)
		assert.Len(t, out[1].attached, 2)
	})

	t.Run("unknown item id stays on the line", func(t *testing.T) {
		d := testDraft("i1", 2, unitAdj("ghost", -1))
		out := unfold([]*draft{d}, nil)
		require.Len(t, out, 1)
		assert.Len(t, d.own, 1)
	})
}

func TestAnnotate(t *testing.T) {
	d := testDraft("i1", 1,
		adjustment.Adjustment{Category: adjustment.IntervalDiscount, Amount: dec(-1)},
		adjustment.Adjustment{Category: adjustment.StoreDiscount, Amount: dec(-2)},
		adjustment.Adjustment{Category: adjustment.Coupon, Amount: dec(-3), Origin: 200},
	)
	d.modPrice = dec(7)
	annotate(d)

	assert.Equal(t, "-1", d.IntervalDiscount.String())
	assert.Equal(t, "-2", d.StoreDiscount.String())
	assert.Equal(t, "3", d.DirectDiscount.String())
	assert.Equal(t, int64(200), d.CouponID)
	assert.Equal(t, "-3", d.CouponDiscount.String())
	assert.Zero(t, d.DiscountID)
	assert.Equal(t, "10", d.Price.String())
}

func TestCountSelections(t *testing.T) {
	assert.Equal(t, []selection{{id: 4, count: 2}, {id: 2, count: 1}}, countSelections([]int64{4, 2, 4}))
	assert.Empty(t, countSelections(nil))
}

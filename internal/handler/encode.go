package handler

import (
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/order-factory/internal/domain/order"
)

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(o.ID)
	e.FieldStart("number")
	e.Str(o.Number)
	e.FieldStart("token")
	e.Str(o.Token)
	e.FieldStart("type")
	e.Str(string(o.Type))
	e.FieldStart("status")
	e.Str(string(o.Status))
	e.FieldStart("shipping_price")
	encodeDecimal(e, o.ShippingPrice)
	e.FieldStart("original_shipping_price")
	encodeDecimal(e, o.OriginalShippingPrice)
	if o.ShippingCause != "" {
		e.FieldStart("shipping_cause")
		e.Str(o.ShippingCause)
	}
	e.FieldStart("card_used_balance")
	encodeDecimal(e, o.CardUsedBalance)
	if o.PrescriptionID != nil {
		e.FieldStart("prescription_id")
		e.Int64(*o.PrescriptionID)
	}
	e.FieldStart("lines")
	e.ArrStart()
	for i := range o.Lines {
		encodeLine(e, &o.Lines[i])
	}
	e.ArrEnd()
	e.ObjEnd()
}

func encodeLine(e *jx.Encoder, l *order.Line) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(l.ID)
	e.FieldStart("product_id")
	e.Int64(l.ProductID)
	e.FieldStart("role")
	e.Str(string(l.Role))
	if l.Variant != "" {
		e.FieldStart("variant")
		e.Str(l.Variant)
	}
	e.FieldStart("name")
	e.Str(l.Name)
	e.FieldStart("quantity")
	e.Int(l.Quantity)
	for _, f := range []struct {
		name  string
		value decimal.Decimal
	}{
		{"price", l.Price},
		{"original_price", l.OriginalPrice},
		{"interval_discount", l.IntervalDiscount},
		{"store_discount", l.StoreDiscount},
		{"direct_discount", l.DirectDiscount},
		{"campaign_discount", l.CampaignDiscount},
		{"coupon_discount", l.CouponDiscount},
	} {
		e.FieldStart(f.name)
		encodeDecimal(e, f.value)
	}
	if l.DiscountID != 0 {
		e.FieldStart("discount_id")
		e.Int64(l.DiscountID)
	}
	if l.CouponID != 0 {
		e.FieldStart("coupon_id")
		e.Int64(l.CouponID)
	}
	e.ObjEnd()
}

// encodeDecimal writes money as a JSON number without float rounding.
func encodeDecimal(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(d.String()))
}

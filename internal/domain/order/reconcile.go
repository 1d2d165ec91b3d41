package order

import (
	"context"

	"github.com/xenking/order-factory/internal/domain/adjustment"
)

// ShippingCauseCoupon is recorded when a free-shipping coupon cancels the
// shipping charge.
const ShippingCauseCoupon = "coupon"

// reconcile copies the order-level totals from the classified adjustments and
// applies the card and fee side effects.
func reconcile(ctx context.Context, tx Tx, o *Order, c adjustment.OrderClassification) error {
	if s := c.Shipping; s != nil {
		o.ShippingPrice = s.Amount
		o.OriginalShippingPrice = s.Amount
		if v, ok := s.Data.Decimal(adjustment.KeyAmount); ok {
			o.OriginalShippingPrice = v
		}
		o.ShippingCause, _ = s.Data.String(adjustment.KeyCause)

		if fs := c.FreeShippingCoupon; fs != nil {
			o.ShippingPrice = s.Amount.Add(fs.Amount)
			o.ShippingCause = ShippingCauseCoupon
		}
	}

	if card := c.ClientCard; card != nil {
		used := card.Amount.Abs()
		// Re-materialising an order only debits the difference.
		debit := used.Sub(o.CardUsedBalance)
		o.CardUsedBalance = used
		if !debit.IsZero() {
			if err := tx.Cards().DebitTempBalance(ctx, cardID(*card), debit); err != nil {
				return err
			}
		}
	}

	if fee := c.PackagingFee; fee != nil {
		err := tx.Fees().Upsert(ctx, &Fee{
			OrderID: o.ID,
			Type:    FeeTypePackagingBag,
			Value:   fee.Amount,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// cardID reads the card id from the card payload, falling back to the origin.
func cardID(a adjustment.Adjustment) int64 {
	if card, ok := a.Data.Map(adjustment.KeyCard); ok {
		if id, ok := card.Decimal(adjustment.KeyID); ok {
			return id.IntPart()
		}
	}
	return a.Origin
}

// attachPrescription links the prescription of a prescription order: the
// supplied free-text line if any, otherwise a newly created empty record.
func attachPrescription(ctx context.Context, tx Tx, o *Order, lines []FreeText) error {
	if o.Type != TypePrescription {
		return nil
	}
	if len(lines) > 0 {
		id := lines[0].PrescriptionID
		o.PrescriptionID = &id
		return nil
	}
	if o.PrescriptionID != nil {
		return nil
	}
	id, err := tx.Prescriptions().CreateEmpty(ctx)
	if err != nil {
		return err
	}
	o.PrescriptionID = &id
	return nil
}

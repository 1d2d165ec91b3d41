package order

import "context"

// validateRequest checks the header before any transaction is opened.
func validateRequest(req CreateRequest) error {
	if !req.Header.Type.Valid() {
		return ErrInvalidOrderType
	}
	if req.Header.Type == TypeCheckout && len(req.Lines) == 0 {
		return ErrEmptyOrder
	}
	if requiresAddresses(req.Header.Type) {
		if req.Header.ShippingAddress == nil {
			return &AddressDataError{Field: "shipping_address"}
		}
		if req.Header.Billpayer == nil {
			return &AddressDataError{Field: "billpayer"}
		}
	}
	return nil
}

func requiresAddresses(t Type) bool {
	return t == TypeCheckout || t == TypePrescription
}

// resolveStatus applies the status precedence: caller override, then paid
// when nothing is left to pay after card redemption, then in-creation for
// prescription orders.
func resolveStatus(h Header, current Status) Status {
	st := current
	if h.Status != "" {
		st = h.Status
	}
	if h.TotalWithCard != nil && h.TotalWithCard.IsZero() {
		st = StatusPaid
	}
	if h.Type == TypePrescription {
		st = StatusInCreation
	}
	if st == "" {
		st = DefaultStatus
	}
	return st
}

// buildHeader loads the existing order or assembles a new one, fills it from
// the header and persists it so lines can reference its id.
func (f *Factory) buildHeader(ctx context.Context, tx Tx, h Header) (*Order, error) {
	if h.ExistingOrderID != nil {
		o, err := tx.Orders().Get(ctx, *h.ExistingOrderID)
		if err != nil {
			return nil, err
		}
		f.fillHeader(o, h)
		if err := tx.Orders().Update(ctx, o); err != nil {
			return nil, err
		}
		return o, nil
	}

	o := &Order{
		Type:    h.Type,
		Token:   f.newToken(),
		StoreID: f.cfg.DefaultStoreID,
		UserID:  h.UserID,
	}
	if h.StoreID != nil {
		o.StoreID = h.StoreID
	}
	if o.UserID == nil {
		if id, ok := f.identity.Current(ctx); ok {
			uid := id.UserID
			o.UserID = &uid
		}
	}
	f.fillHeader(o, h)

	o.Number = h.Number
	if o.Number == "" {
		n, err := f.numbers.Generate(ctx, o)
		if err != nil {
			return nil, err
		}
		o.Number = n
	}

	if err := tx.Orders().Create(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (f *Factory) fillHeader(o *Order, h Header) {
	o.Type = h.Type
	o.Status = resolveStatus(h, o.Status)
	if h.Notes != "" {
		o.Notes = h.Notes
	}
	if !requiresAddresses(h.Type) {
		return
	}

	ship := h.ShippingAddress
	o.Email = ship.Email
	o.Phone = ship.Phone
	o.Shipping = AddressSnapshot{
		FirstName: ship.FirstName,
		LastName:  ship.LastName,
		CountryID: ship.CountryID,
	}
	if ship.ID != AddressNone {
		o.Shipping.PostalCode = ship.PostalCode
		o.Shipping.City = ship.City
		o.Shipping.Address = ship.Address
	}

	bill := h.Billpayer
	if bill.ID == AddressSimplifiedInvoice {
		o.BillingSimple = true
		return
	}
	o.BillingSimple = false
	o.Billing = AddressSnapshot{
		FirstName:  bill.FirstName,
		LastName:   bill.LastName,
		CountryID:  bill.CountryID,
		PostalCode: bill.PostalCode,
		City:       bill.City,
		Address:    bill.Address,
	}
	o.BillingNIF = bill.NIF
}

// saveAddresses stores new-address entries in the caller's address book.
// Anonymous checkouts skip this step.
func (f *Factory) saveAddresses(ctx context.Context, tx Tx, h Header) error {
	if !requiresAddresses(h.Type) {
		return nil
	}
	id, ok := f.identity.Current(ctx)
	if !ok {
		return nil
	}

	if h.ShippingAddress.ID == AddressNew {
		a := *h.ShippingAddress
		a.NIF = ""
		if err := tx.Addresses().Create(ctx, id.UserID, AddressShipping, a); err != nil {
			return err
		}
	}
	if h.Billpayer.ID == AddressNew {
		if err := tx.Addresses().Create(ctx, id.UserID, AddressBilling, *h.Billpayer); err != nil {
			return err
		}
	}
	return nil
}

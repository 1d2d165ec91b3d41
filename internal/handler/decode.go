package handler

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/order-factory/internal/domain/adjustment"
	"github.com/xenking/order-factory/internal/domain/order"
)

// decodeCreateRequest reads {"header":{...},"lines":[...],"adjustments":[...]}.
// Address fields that are present but not objects are reported as
// *order.AddressDataError; other malformed input as *requestError.
func decodeCreateRequest(d *jx.Decoder) (order.CreateRequest, error) {
	var req order.CreateRequest
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "header":
			return decodeHeader(d, &req.Header)
		case "lines":
			return d.Arr(func(d *jx.Decoder) error {
				l, err := decodeLine(d)
				if err != nil {
					return err
				}
				req.Lines = append(req.Lines, l)
				return nil
			})
		case "adjustments":
			set, err := decodeAdjustments(d)
			req.Adjustments = set
			return err
		default:
			return d.Skip()
		}
	})
	if err != nil {
		var addrErr *order.AddressDataError
		if errors.As(err, &addrErr) {
			return req, addrErr
		}
		return req, &requestError{err: errors.Wrap(err, "decode request")}
	}
	return req, nil
}

func decodeHeader(d *jx.Decoder, h *order.Header) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "type":
			var s string
			s, err = d.Str()
			h.Type = order.Type(s)
		case "order_id":
			h.ExistingOrderID, err = optInt64(d)
		case "store_id":
			h.StoreID, err = optInt64(d)
		case "user_id":
			h.UserID, err = optInt64(d)
		case "number":
			h.Number, err = d.Str()
		case "status":
			var s string
			if s, err = d.Str(); err != nil {
				return err
			}
			st, ok := order.ParseStatus(s)
			if !ok {
				return errors.Errorf("unknown status %q", s)
			}
			h.Status = st
		case "total_with_card":
			if d.Next() == jx.Null {
				return d.Null()
			}
			var v decimal.Decimal
			v, err = decodeDecimal(d)
			h.TotalWithCard = &v
		case "shipping_address":
			h.ShippingAddress, err = decodeAddress(d, key)
		case "billpayer":
			h.Billpayer, err = decodeAddress(d, key)
		case "notes":
			h.Notes, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
}

// decodeAddress accepts an object or null.
func decodeAddress(d *jx.Decoder, field string) (*order.AddressInput, error) {
	switch d.Next() {
	case jx.Null:
		return nil, d.Null()
	case jx.Object:
	default:
		return nil, &order.AddressDataError{Field: field}
	}

	a := &order.AddressInput{}
	fields := map[string]*string{
		"id":          &a.ID,
		"first_name":  &a.FirstName,
		"last_name":   &a.LastName,
		"country_id":  &a.CountryID,
		"postal_code": &a.PostalCode,
		"city":        &a.City,
		"address":     &a.Address,
		"email":       &a.Email,
		"phone":       &a.Phone,
		"nif":         &a.NIF,
	}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		dst, ok := fields[key]
		if !ok {
			return d.Skip()
		}
		v, err := decodeScalar(d)
		if err != nil {
			return err
		}
		*dst = v
		return nil
	})
	return a, err
}

// Line type tags.
const (
	lineProduct      = "product"
	linePrescription = "prescription"
)

// decodeLine reads a product line ({"type":"product","product_id":...}) or a
// prescription line ({"type":"prescription","prescription_id":...}). The tag
// selects the line kind and must agree with the reference it carries.
func decodeLine(d *jx.Decoder) (order.LineInput, error) {
	var (
		l              order.LineInput
		tag            string
		productID      *int64
		prescriptionID *int64
		info           string
	)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "type":
			tag, err = d.Str()
		case "id":
			l.ID, err = decodeScalar(d)
		case "product_id":
			productID, err = optInt64(d)
		case "prescription_id":
			prescriptionID, err = optInt64(d)
		case "info":
			info, err = d.Str()
		case "quantity":
			if d.Next() == jx.Null {
				return d.Null()
			}
			var q int
			q, err = d.Int()
			l.Quantity = &q
		case "price":
			if d.Next() == jx.Null {
				return d.Null()
			}
			var p decimal.Decimal
			p, err = decodeDecimal(d)
			l.Price = &p
		case "mod_price":
			if d.Next() == jx.Null {
				return d.Null()
			}
			l.ModPrice, err = decodeDecimal(d)
		case "adjustments":
			l.Adjustments, err = decodeAdjustments(d)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return l, err
	}

	switch tag {
	case lineProduct:
		if productID == nil || prescriptionID != nil {
			return l, errors.Errorf("product line %q must carry product_id only", l.ID)
		}
		l.Kind = order.ProductRef{ProductID: *productID}
	case linePrescription:
		if prescriptionID == nil || productID != nil {
			return l, errors.Errorf("prescription line %q must carry prescription_id only", l.ID)
		}
		l.Kind = order.FreeText{PrescriptionID: *prescriptionID, Info: info}
	default:
		return l, errors.Errorf("line %q has unknown type %q", l.ID, tag)
	}
	return l, nil
}

func decodeAdjustments(d *jx.Decoder) (adjustment.Set, error) {
	var set adjustment.Set
	err := d.Arr(func(d *jx.Decoder) error {
		var a adjustment.Adjustment
		err := d.Obj(func(d *jx.Decoder, key string) error {
			switch key {
			case "type":
				s, err := d.Str()
				if err != nil {
					return err
				}
				a.Category, err = adjustment.ParseCategory(s)
				return err
			case "amount":
				v, err := decodeDecimal(d)
				a.Amount = v
				return err
			case "origin":
				v, err := d.Int64()
				a.Origin = v
				return err
			case "data":
				if d.Next() == jx.Null {
					return d.Null()
				}
				v, err := decodeObject(d)
				a.Data = adjustment.Data(v)
				return err
			default:
				return d.Skip()
			}
		})
		if err != nil {
			return err
		}
		if a.Category == "" {
			return errors.New("adjustment without type")
		}
		set = append(set, a)
		return nil
	})
	return set, err
}

// decodeAny decodes an arbitrary value. Numbers become decimal.Decimal so
// amounts in adjustment payloads keep their precision.
func decodeAny(d *jx.Decoder) (any, error) {
	switch d.Next() {
	case jx.String:
		return d.Str()
	case jx.Number:
		return decodeDecimal(d)
	case jx.Bool:
		return d.Bool()
	case jx.Null:
		return nil, d.Null()
	case jx.Array:
		out := []any{}
		err := d.Arr(func(d *jx.Decoder) error {
			v, err := decodeAny(d)
			out = append(out, v)
			return err
		})
		return out, err
	case jx.Object:
		return decodeObject(d)
	default:
		return nil, errors.New("invalid json value")
	}
}

func decodeObject(d *jx.Decoder) (map[string]any, error) {
	out := map[string]any{}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		v, err := decodeAny(d)
		out[key] = v
		return err
	})
	return out, err
}

// decodeDecimal accepts a JSON number or a numeric string.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	var s string
	switch d.Next() {
	case jx.String:
		v, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		s = v
	case jx.Number:
		raw, err := d.Raw()
		if err != nil {
			return decimal.Zero, err
		}
		s = raw.String()
	default:
		return decimal.Zero, errors.New("expected number")
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "parse %q", s)
	}
	return v, nil
}

// decodeScalar reads a string, number or null as a string. Checkout clients
// send ids and postal codes either way.
func decodeScalar(d *jx.Decoder) (string, error) {
	switch d.Next() {
	case jx.Null:
		return "", d.Null()
	case jx.Number:
		raw, err := d.Raw()
		return raw.String(), err
	default:
		return d.Str()
	}
}

func optInt64(d *jx.Decoder) (*int64, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	v, err := d.Int64()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

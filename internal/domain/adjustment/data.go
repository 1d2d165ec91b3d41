package adjustment

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// Well-known payload keys.
const (
	KeyItemID        = "item_id"
	KeySingleAmount  = "single_amount"
	KeySKU           = "sku"
	KeyQuantity      = "quantity"
	KeySelectedGifts = "selected_gifts"
	KeyCard          = "card"
	KeyCause         = "cause"
	KeyAmount        = "amount"
	KeyID            = "id"
)

// Data is the open key-value payload attached to an adjustment. Values are
// whatever the decoder produced: strings, bools, decimal.Decimal for numbers,
// []any and map[string]any for nested structures. Plain Go numeric types are
// accepted as well so callers can build payloads by hand.
type Data map[string]any

// Has reports whether the key is present with a non-nil value.
func (d Data) Has(key string) bool {
	v, ok := d[key]
	return ok && v != nil
}

// String returns the value under key rendered as a string.
func (d Data) String(key string) (string, bool) {
	v, ok := d[key]
	if !ok || v == nil {
		return "", false
	}
	return scalarString(v)
}

// Decimal returns the numeric value under key.
func (d Data) Decimal(key string) (decimal.Decimal, bool) {
	v, ok := d[key]
	if !ok || v == nil {
		return decimal.Zero, false
	}
	return toDecimal(v)
}

// Int returns the integer value under key. Fractional values are truncated.
func (d Data) Int(key string) (int, bool) {
	v, ok := d.Decimal(key)
	if !ok {
		return 0, false
	}
	return int(v.IntPart()), true
}

// Map returns the nested object under key.
func (d Data) Map(key string) (Data, bool) {
	switch v := d[key].(type) {
	case Data:
		return v, true
	case map[string]any:
		return Data(v), true
	default:
		return nil, false
	}
}

// IDs returns the list of integer identifiers under key. Elements that are
// not integers are skipped.
func (d Data) IDs(key string) []int64 {
	var raw []any
	switch v := d[key].(type) {
	case []any:
		raw = v
	case []int64:
		return append([]int64(nil), v...)
	case []int:
		out := make([]int64, len(v))
		for i, id := range v {
			out[i] = int64(id)
		}
		return out
	default:
		return nil
	}

	out := make([]int64, 0, len(raw))
	for _, e := range raw {
		n, ok := toDecimal(e)
		if !ok {
			continue
		}
		out = append(out, n.IntPart())
	}
	return out
}

func scalarString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case decimal.Decimal:
		return x.String(), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(x), true
	default:
		return "", false
	}
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, true
	case int:
		return decimal.NewFromInt(int64(x)), true
	case int64:
		return decimal.NewFromInt(x), true
	case float64:
		return decimal.NewFromFloat(x), true
	case string:
		n, err := decimal.NewFromString(x)
		if err != nil {
			return decimal.Zero, false
		}
		return n, true
	default:
		return decimal.Zero, false
	}
}

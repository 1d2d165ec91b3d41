package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/order-factory/internal/domain/adjustment"
	"github.com/xenking/order-factory/internal/domain/order"
)

type fakeCreator struct {
	got order.CreateRequest
	res *order.Order
	err error
}

func (f *fakeCreator) Create(_ context.Context, req order.CreateRequest) (*order.Order, error) {
	f.got = req
	return f.res, f.err
}

func serve(t *testing.T, c OrderCreator, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	NewHandler(c).Routes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body)))
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var code string
	err := jx.DecodeBytes(rec.Body.Bytes()).Obj(func(d *jx.Decoder, key string) error {
		return d.Obj(func(d *jx.Decoder, key string) error {
			if key != "code" {
				return d.Skip()
			}
			var err error
			code, err = d.Str()
			return err
		})
	})
	require.NoError(t, err)
	return code
}

const fullRequest = `{
  "header": {
    "type": "checkout",
    "store_id": 3,
    "user_id": null,
    "status": "awaits_payment",
    "total_with_card": "0",
    "shipping_address": {"id": "new-address", "first_name": "Ana", "postal_code": 28001, "email": "ana@example.com"},
    "billpayer": {"id": "simplified-invoice"},
    "notes": "ring twice"
  },
  "lines": [
    {"type": "product", "id": "i1", "product_id": 1, "quantity": 3, "price": 9.95, "adjustments": [
      {"type": "campaign_discount", "amount": -2, "origin": 100, "data": {"item_id": "i1", "single_amount": -1.5}}
    ]},
    {"type": "prescription", "id": 7, "prescription_id": 55, "info": "see attached"}
  ],
  "adjustments": [
    {"type": "client_card", "amount": "-4.20", "origin": 9, "data": {"card": {"id": 12}}},
    {"type": "offer_named_product", "amount": 0, "origin": 101, "data": {"selected_gifts": [4, 4, 2]}},
    {"type": "shipping", "amount": 3.5}
  ],
  "client": "ignored"
}`

func TestCreateOrder_Decode(t *testing.T) {
	c := &fakeCreator{res: &order.Order{ID: 1}}
	rec := serve(t, c, fullRequest)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	h := c.got.Header
	assert.Equal(t, order.TypeCheckout, h.Type)
	assert.Equal(t, int64(3), *h.StoreID)
	assert.Nil(t, h.UserID)
	assert.Equal(t, order.StatusAwaitsPayment, h.Status)
	require.NotNil(t, h.TotalWithCard)
	assert.True(t, h.TotalWithCard.IsZero())
	require.NotNil(t, h.ShippingAddress)
	assert.Equal(t, order.AddressInput{ID: "new-address", FirstName: "Ana", PostalCode: "28001", Email: "ana@example.com"}, *h.ShippingAddress)
	assert.Equal(t, order.AddressSimplifiedInvoice, h.Billpayer.ID)
	assert.Equal(t, "ring twice", h.Notes)

	require.Len(t, c.got.Lines, 2)
	l := c.got.Lines[0]
	assert.Equal(t, order.ProductRef{ProductID: 1}, l.Kind)
	assert.Equal(t, 3, *l.Quantity)
	assert.Equal(t, "9.95", l.Price.String())
	require.Len(t, l.Adjustments, 1)
	single, ok := l.Adjustments[0].Data.Decimal(adjustment.KeySingleAmount)
	require.True(t, ok)
	assert.Equal(t, "-1.5", single.String())
	assert.Equal(t, order.FreeText{PrescriptionID: 55, Info: "see attached"}, c.got.Lines[1].Kind)
	assert.Equal(t, "7", c.got.Lines[1].ID)

	adjs := c.got.Adjustments
	require.Len(t, adjs, 3)
	assert.Equal(t, adjustment.ClientCard, adjs[0].Category)
	assert.Equal(t, "-4.2", adjs[0].Amount.String())
	card, ok := adjs[0].Data.Map(adjustment.KeyCard)
	require.True(t, ok)
	id, _ := card.Decimal(adjustment.KeyID)
	assert.Equal(t, int64(12), id.IntPart())
	assert.Equal(t, []int64{4, 4, 2}, adjs[1].Data.IDs(adjustment.KeySelectedGifts))
	assert.Nil(t, adjs[2].Data)
}

func TestCreateOrder_Response(t *testing.T) {
	rx := int64(55)
	c := &fakeCreator{res: &order.Order{
		ID:                    10,
		Number:                "WEB2026000010",
		Token:                 "tok",
		Type:                  order.TypeCheckout,
		Status:                order.StatusPending,
		ShippingPrice:         decimal.Zero,
		OriginalShippingPrice: decimal.RequireFromString("3.50"),
		ShippingCause:         order.ShippingCauseCoupon,
		CardUsedBalance:       decimal.RequireFromString("4.2"),
		PrescriptionID:        &rx,
		Lines: []order.Line{
			{ID: 1, ProductID: 1, Role: order.RoleRegular, Name: "Apple", Quantity: 2, Price: decimal.RequireFromString("9.95"), CouponID: 200},
			{ID: 2, ProductID: 4, Role: order.RoleGift, Name: "Pear", Quantity: 1, DiscountID: 101},
		},
	}}
	rec := serve(t, c, `{"header":{"type":"checkout"},"lines":[]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	for _, want := range []string{
		`"id":10`,
		`"number":"WEB2026000010"`,
		`"shipping_price":0`,
		`"original_shipping_price":3.5`,
		`"shipping_cause":"coupon"`,
		`"card_used_balance":4.2`,
		`"prescription_id":55`,
		`"price":9.95`,
		`"coupon_id":200`,
		`"role":"gift"`,
		`"discount_id":101`,
	} {
		assert.Contains(t, body, want)
	}
	assert.True(t, jx.Valid(rec.Body.Bytes()))
}

func TestCreateOrder_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "malformed json", body: `{"header":`, wantStatus: http.StatusBadRequest, wantCode: "bad_request"},
		{name: "unknown adjustment", body: `{"adjustments":[{"type":"bogus"}]}`, wantStatus: http.StatusBadRequest, wantCode: "bad_request"},
		{name: "line without product", body: `{"lines":[{"type":"product","id":"x"}]}`, wantStatus: http.StatusBadRequest, wantCode: "bad_request"},
		{name: "line without type", body: `{"lines":[{"id":"x","product_id":1}]}`, wantStatus: http.StatusBadRequest, wantCode: "bad_request"},
		{name: "unknown line type", body: `{"lines":[{"type":"voucher","id":"x","product_id":1}]}`, wantStatus: http.StatusBadRequest, wantCode: "bad_request"},
		{name: "product tag with prescription", body: `{"lines":[{"type":"product","id":"x","prescription_id":5}]}`, wantStatus: http.StatusBadRequest, wantCode: "bad_request"},
		{name: "prescription tag with product", body: `{"lines":[{"type":"prescription","id":"x","product_id":1,"prescription_id":5}]}`, wantStatus: http.StatusBadRequest, wantCode: "bad_request"},
		{name: "unknown status", body: `{"header":{"status":"lost"}}`, wantStatus: http.StatusBadRequest, wantCode: "bad_request"},
		{name: "address not an object", body: `{"header":{"type":"checkout","shipping_address":"home"}}`, wantStatus: http.StatusBadRequest, wantCode: "address_data"},
		{name: "invalid type", body: `{}`, err: order.ErrInvalidOrderType, wantStatus: http.StatusBadRequest, wantCode: "invalid_order_type"},
		{name: "empty order", body: `{}`, err: order.ErrEmptyOrder, wantStatus: http.StatusBadRequest, wantCode: "empty_order"},
		{name: "missing address", body: `{}`, err: &order.AddressDataError{Field: "billpayer"}, wantStatus: http.StatusBadRequest, wantCode: "address_data"},
		{name: "unknown product", body: `{}`, err: &order.ProductNotFoundError{ProductID: 9}, wantStatus: http.StatusUnprocessableEntity, wantCode: "product_not_found"},
		{name: "storage failure", body: `{}`, err: &order.PersistenceError{Op: "upsert line", Err: errors.New("conn reset")}, wantStatus: http.StatusInternalServerError, wantCode: "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, &fakeCreator{err: tt.err}, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCode, errorCode(t, rec))
		})
	}
}

func TestCreateOrder_BodyTooLarge(t *testing.T) {
	body := `{"header":{"notes":"` + strings.Repeat("x", maxBodyBytes) + `"}}`
	rec := serve(t, &fakeCreator{res: &order.Order{}}, body)
	assert.GreaterOrEqual(t, rec.Code, http.StatusBadRequest)
	assert.Less(t, rec.Code, http.StatusInternalServerError)
}

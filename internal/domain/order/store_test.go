package order

import (
	"context"
	"maps"
	"slices"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/order-factory/internal/domain/coupon"
	"github.com/xenking/order-factory/internal/domain/discount"
	"github.com/xenking/order-factory/internal/domain/product"
)

var errInjected = errors.New("injected failure")

type memLineKey struct {
	orderID   int64
	productID int64
	role      LineRole
	variant   string
}

type memAssocKey struct {
	orderID int64
	refID   int64
}

type memFeeKey struct {
	orderID int64
	typ     string
}

type memAddress struct {
	userID int64
	typ    AddressType
	in     AddressInput
}

type memDebit struct {
	cardID int64
	amount decimal.Decimal
}

// memState is the whole database of memStore. It is copied on every
// transaction and swapped in on commit.
type memState struct {
	seq int64

	orders         map[int64]Order
	lines          map[memLineKey]Line
	products       map[int64]product.Product
	discounts      map[int64]discount.Discount
	discountAssocs map[memAssocKey]discount.Association
	coupons        map[int64]coupon.Coupon
	couponAssocs   map[memAssocKey]coupon.Association
	debits         []memDebit
	fees           map[memFeeKey]Fee
	addresses      []memAddress
	usedCoupon     map[int64]bool
	prescriptions  []int64
	events         []Event
}

func newMemState() *memState {
	return &memState{
		orders:         map[int64]Order{},
		lines:          map[memLineKey]Line{},
		products:       map[int64]product.Product{},
		discounts:      map[int64]discount.Discount{},
		discountAssocs: map[memAssocKey]discount.Association{},
		coupons:        map[int64]coupon.Coupon{},
		couponAssocs:   map[memAssocKey]coupon.Association{},
		fees:           map[memFeeKey]Fee{},
		usedCoupon:     map[int64]bool{},
	}
}

func (s *memState) clone() *memState {
	return &memState{
		seq:            s.seq,
		orders:         maps.Clone(s.orders),
		lines:          maps.Clone(s.lines),
		products:       maps.Clone(s.products),
		discounts:      maps.Clone(s.discounts),
		discountAssocs: maps.Clone(s.discountAssocs),
		coupons:        maps.Clone(s.coupons),
		couponAssocs:   maps.Clone(s.couponAssocs),
		debits:         slices.Clone(s.debits),
		fees:           maps.Clone(s.fees),
		addresses:      slices.Clone(s.addresses),
		usedCoupon:     maps.Clone(s.usedCoupon),
		prescriptions:  slices.Clone(s.prescriptions),
		events:         slices.Clone(s.events),
	}
}

func (s *memState) nextID() int64 {
	s.seq++
	return s.seq
}

func (s *memState) orderLines(orderID int64) []Line {
	var out []Line
	for k, l := range s.lines {
		if k.orderID == orderID {
			out = append(out, l)
		}
	}
	slices.SortFunc(out, func(a, b Line) int { return int(a.ID - b.ID) })
	return out
}

func (s *memState) orderDiscounts(orderID int64) []discount.Association {
	var out []discount.Association
	for k, a := range s.discountAssocs {
		if k.orderID == orderID {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b discount.Association) int { return a.Sequence - b.Sequence })
	return out
}

// memStore is an in-memory UnitOfWork. failOn names an operation that fails
// with errInjected.
type memStore struct {
	state  *memState
	failOn string
}

func newMemStore() *memStore {
	return &memStore{state: newMemState()}
}

func (m *memStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx := &memTx{s: m.state.clone(), failOn: m.failOn}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	m.state = tx.s
	return nil
}

type memTx struct {
	s      *memState
	failOn string
}

func (t *memTx) check(op string) error {
	if t.failOn == op {
		return errInjected
	}
	return nil
}

func (t *memTx) Orders() Repository { return memOrders{t} }
func (t *memTx) Lines() LineRepository { return memLines{t} }
func (t *memTx) Products() product.Repository { return memProducts{t} }
func (t *memTx) Discounts() discount.Repository { return memDiscounts{t} }
func (t *memTx) Coupons() coupon.Repository { return memCoupons{t} }
func (t *memTx) Cards() CardRepository { return memCards{t} }
func (t *memTx) Fees() FeeRepository { return memFees{t} }
func (t *memTx) Addresses() AddressRepository { return memAddresses{t} }
func (t *memTx) Users() UserRepository { return memUsers{t} }
func (t *memTx) Prescriptions() PrescriptionRepository { return memPrescriptions{t} }
func (t *memTx) Outbox() OutboxRepository { return memOutbox{t} }

type memOrders struct{ t *memTx }

func (r memOrders) Get(_ context.Context, id int64) (*Order, error) {
	o, ok := r.t.s.orders[id]
	if !ok {
		return nil, &PersistenceError{Op: "get order", Err: ErrNotFound}
	}
	return &o, nil
}

func (r memOrders) Create(_ context.Context, o *Order) error {
	if err := r.t.check("orders.create"); err != nil {
		return err
	}
	o.ID = r.t.s.nextID()
	r.t.s.orders[o.ID] = *o
	return nil
}

func (r memOrders) Update(_ context.Context, o *Order) error {
	if err := r.t.check("orders.update"); err != nil {
		return err
	}
	r.t.s.orders[o.ID] = *o
	return nil
}

type memLines struct{ t *memTx }

func (r memLines) Upsert(_ context.Context, l *Line) error {
	if err := r.t.check("lines.upsert"); err != nil {
		return err
	}
	k := memLineKey{orderID: l.OrderID, productID: l.ProductID, role: l.Role, variant: l.Variant}
	if prev, ok := r.t.s.lines[k]; ok {
		l.ID = prev.ID
	} else {
		l.ID = r.t.s.nextID()
	}
	r.t.s.lines[k] = *l
	return nil
}

func (r memLines) ListByOrder(_ context.Context, orderID int64) ([]Line, error) {
	return r.t.s.orderLines(orderID), nil
}

type memProducts struct{ t *memTx }

func (r memProducts) GetByID(_ context.Context, id int64) (*product.Product, error) {
	p, ok := r.t.s.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (r memProducts) GetByIDs(_ context.Context, ids []int64) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, ok := r.t.s.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r memProducts) GetBySKU(_ context.Context, sku string) (*product.Product, error) {
	for _, p := range r.t.s.products {
		if p.SKU == sku {
			return &p, nil
		}
	}
	return nil, product.ErrNotFound
}

func (r memProducts) DecrementStock(_ context.Context, id int64, qty int) (product.StockChange, error) {
	if err := r.t.check("products.decrement"); err != nil {
		return product.StockChange{}, err
	}
	p, ok := r.t.s.products[id]
	if !ok {
		return product.StockChange{}, product.ErrNotFound
	}
	c := product.StockChange{ProductID: id, Before: p.Stock}
	p.Stock -= qty
	if p.Stock <= 0 && p.State != product.StateUnavailable {
		p.State = product.StateUnavailable
		c.BecameUnavailable = true
	}
	c.After = p.Stock
	c.State = p.State
	r.t.s.products[id] = p
	return c, nil
}

type memDiscounts struct{ t *memTx }

func (r memDiscounts) GetByID(_ context.Context, id int64) (*discount.Discount, error) {
	d, ok := r.t.s.discounts[id]
	if !ok {
		return nil, discount.ErrNotFound
	}
	return &d, nil
}

func (r memDiscounts) FindAssociation(_ context.Context, orderID, discountID int64) (*discount.Association, error) {
	a, ok := r.t.s.discountAssocs[memAssocKey{orderID, discountID}]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r memDiscounts) MaxSequence(_ context.Context, orderID int64) (int, error) {
	top := 0
	for _, a := range r.t.s.orderDiscounts(orderID) {
		top = max(top, a.Sequence)
	}
	return top, nil
}

func (r memDiscounts) UpsertAssociation(_ context.Context, a *discount.Association) error {
	if err := r.t.check("discounts.upsert"); err != nil {
		return err
	}
	r.t.s.discountAssocs[memAssocKey{a.OrderID, a.DiscountID}] = *a
	return nil
}

type memCoupons struct{ t *memTx }

func (r memCoupons) GetByID(_ context.Context, id int64) (*coupon.Coupon, error) {
	c, ok := r.t.s.coupons[id]
	if !ok {
		return nil, coupon.ErrNotFound
	}
	return &c, nil
}

func (r memCoupons) UpsertAssociation(_ context.Context, a *coupon.Association) error {
	if err := r.t.check("coupons.upsert"); err != nil {
		return err
	}
	r.t.s.couponAssocs[memAssocKey{a.OrderID, a.CouponID}] = *a
	return nil
}

type memCards struct{ t *memTx }

func (r memCards) DebitTempBalance(_ context.Context, cardID int64, amount decimal.Decimal) error {
	if err := r.t.check("cards.debit"); err != nil {
		return err
	}
	r.t.s.debits = append(r.t.s.debits, memDebit{cardID: cardID, amount: amount})
	return nil
}

type memFees struct{ t *memTx }

func (r memFees) Upsert(_ context.Context, f *Fee) error {
	k := memFeeKey{orderID: f.OrderID, typ: f.Type}
	if prev, ok := r.t.s.fees[k]; ok {
		f.ID = prev.ID
	} else {
		f.ID = r.t.s.nextID()
	}
	r.t.s.fees[k] = *f
	return nil
}

type memAddresses struct{ t *memTx }

func (r memAddresses) Create(_ context.Context, userID int64, typ AddressType, a AddressInput) error {
	r.t.s.addresses = append(r.t.s.addresses, memAddress{userID: userID, typ: typ, in: a})
	return nil
}

type memUsers struct{ t *memTx }

func (r memUsers) MarkCouponUsed(_ context.Context, userID int64) error {
	r.t.s.usedCoupon[userID] = true
	return nil
}

type memPrescriptions struct{ t *memTx }

func (r memPrescriptions) CreateEmpty(context.Context) (int64, error) {
	id := r.t.s.nextID()
	r.t.s.prescriptions = append(r.t.s.prescriptions, id)
	return id, nil
}

type memOutbox struct{ t *memTx }

func (r memOutbox) Append(_ context.Context, e Event) error {
	if err := r.t.check("outbox.append"); err != nil {
		return err
	}
	r.t.s.events = append(r.t.s.events, e)
	return nil
}

type seqNumbers struct{ n int }

func (g *seqNumbers) Generate(context.Context, *Order) (string, error) {
	g.n++
	return "ORD" + decimal.NewFromInt(int64(g.n)).String(), nil
}

type staticIdentity struct{ id *Identity }

func (s staticIdentity) Current(context.Context) (Identity, bool) {
	if s.id == nil {
		return Identity{}, false
	}
	return *s.id, true
}

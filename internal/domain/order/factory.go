package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/xenking/order-factory/internal/domain/adjustment"
)

// Config is the factory configuration resolved once at startup.
type Config struct {
	// DefaultStoreID is assigned to new orders that do not name a store.
	DefaultStoreID *int64
	// StockStatuses lists the statuses under which materialised lines hold
	// stock. Defaults to the open statuses.
	StockStatuses []Status
}

// Deps are the collaborators of a Factory.
type Deps struct {
	Store    UnitOfWork
	Numbers  NumberGenerator
	Identity IdentityProvider

	// Optional.
	Now            func() time.Time
	NewToken       func() string
	NewEventID     func() string
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Factory turns checkout requests into persisted orders.
type Factory struct {
	cfg      Config
	store    UnitOfWork
	numbers  NumberGenerator
	identity IdentityProvider

	now        func() time.Time
	newToken   func() string
	newEventID func() string

	tracer         trace.Tracer
	ordersCreated  metric.Int64Counter
	linesWritten   metric.Int64Counter
	giftLines      metric.Int64Counter
	unavailableInc metric.Int64Counter
}

// NewFactory validates deps and returns a ready Factory.
func NewFactory(cfg Config, deps Deps) (*Factory, error) {
	if deps.Store == nil {
		return nil, errors.New("store is required")
	}
	if deps.Numbers == nil {
		return nil, errors.New("number generator is required")
	}
	if deps.Identity == nil {
		deps.Identity = Anonymous{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewToken == nil {
		deps.NewToken = uuid.NewString
	}
	if deps.NewEventID == nil {
		deps.NewEventID = func() string { return ulid.Make().String() }
	}
	if deps.TracerProvider == nil {
		deps.TracerProvider = tracenoop.NewTracerProvider()
	}
	if deps.MeterProvider == nil {
		deps.MeterProvider = metricnoop.NewMeterProvider()
	}
	if cfg.StockStatuses == nil {
		cfg.StockStatuses = DefaultStockStatuses()
	}

	const name = "github.com/xenking/order-factory/internal/domain/order"
	meter := deps.MeterProvider.Meter(name)
	f := &Factory{
		cfg:        cfg,
		store:      deps.Store,
		numbers:    deps.Numbers,
		identity:   deps.Identity,
		now:        deps.Now,
		newToken:   deps.NewToken,
		newEventID: deps.NewEventID,
		tracer:     deps.TracerProvider.Tracer(name),
	}

	var err error
	if f.ordersCreated, err = meter.Int64Counter("orders.created",
		metric.WithDescription("Orders created or re-materialised"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.created counter")
	}
	if f.linesWritten, err = meter.Int64Counter("orders.lines.materialized",
		metric.WithDescription("Order lines persisted"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.lines.materialized counter")
	}
	if f.giftLines, err = meter.Int64Counter("orders.gift_lines",
		metric.WithDescription("Free gift lines persisted"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.gift_lines counter")
	}
	if f.unavailableInc, err = meter.Int64Counter("orders.stock.unavailable_transitions",
		metric.WithDescription("Products that became unavailable after a stock decrement"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.stock.unavailable_transitions counter")
	}
	return f, nil
}

// Create validates req and, inside a single transaction, assembles the order
// header, materialises its lines with their ledger and stock side effects,
// reconciles the order totals and records the outbox events. On any error
// nothing is persisted and the error is returned unchanged.
func (f *Factory) Create(ctx context.Context, req CreateRequest) (_ *Order, rerr error) {
	ctx, span := f.tracer.Start(ctx, "order.Create",
		trace.WithAttributes(attribute.String("order.type", string(req.Header.Type))),
	)
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		span.End()
	}()

	if err := validateRequest(req); err != nil {
		return nil, err
	}

	var (
		created *Order
		stats   *run
	)
	err := f.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		o, r, err := f.create(ctx, tx, req)
		if err != nil {
			return err
		}
		created, stats = o, r
		return nil
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.Int64("order.id", created.ID),
		attribute.String("order.number", created.Number),
		attribute.Int("order.lines", len(created.Lines)),
	)
	attrs := metric.WithAttributes(attribute.String("order.type", string(created.Type)))
	f.ordersCreated.Add(ctx, 1, attrs)
	f.linesWritten.Add(ctx, int64(len(created.Lines)), attrs)
	f.giftLines.Add(ctx, int64(stats.gifts), attrs)
	f.unavailableInc.Add(ctx, int64(len(stats.unavailable)), attrs)
	return created, nil
}

func (f *Factory) create(ctx context.Context, tx Tx, req CreateRequest) (*Order, *run, error) {
	o, err := f.buildHeader(ctx, tx, req.Header)
	if err != nil {
		return nil, nil, err
	}
	if err := f.saveAddresses(ctx, tx, req.Header); err != nil {
		return nil, nil, err
	}

	orderAdjs := adjustment.ClassifyOrder(req.Adjustments)
	for _, a := range orderAdjs.Coupons {
		if err := recordCoupon(ctx, tx, o, a); err != nil {
			return nil, nil, err
		}
	}

	drafts, freeText, err := resolveLines(ctx, tx.Products(), req.Lines)
	if err != nil {
		return nil, nil, err
	}
	drafts = unfold(drafts, orderAdjs.CampaignDiscounts)

	seq, err := firstSequence(ctx, tx.Discounts(), o.ID)
	if err != nil {
		return nil, nil, err
	}
	r := newRun(o, seq)
	if req.Header.ExistingOrderID != nil {
		stored, err := tx.Lines().ListByOrder(ctx, o.ID)
		if err != nil {
			return nil, nil, err
		}
		r.holdStored(stored)
	}
	for _, d := range drafts {
		annotate(d)
		if err := f.materialize(ctx, tx, r, d); err != nil {
			return nil, nil, err
		}
	}

	if err := reconcile(ctx, tx, o, orderAdjs); err != nil {
		return nil, nil, err
	}
	if err := attachPrescription(ctx, tx, o, freeText); err != nil {
		return nil, nil, err
	}
	if err := tx.Orders().Update(ctx, o); err != nil {
		return nil, nil, err
	}
	if err := f.appendEvents(ctx, tx, o, r); err != nil {
		return nil, nil, err
	}

	o.Lines = r.materialized()
	return o, r, nil
}

func (f *Factory) appendEvents(ctx context.Context, tx Tx, o *Order, r *run) error {
	now := f.now()
	err := tx.Outbox().Append(ctx, Event{
		ID:        f.newEventID(),
		Type:      EventOrderCreated,
		OrderID:   o.ID,
		Number:    o.Number,
		CreatedAt: now,
	})
	if err != nil {
		return err
	}
	if len(r.unavailable) == 0 {
		return nil
	}
	return tx.Outbox().Append(ctx, Event{
		ID:         f.newEventID(),
		Type:       EventSearchReindexRequested,
		OrderID:    o.ID,
		Number:     o.Number,
		ProductIDs: r.unavailable,
		CreatedAt:  now,
	})
}

// Anonymous is an IdentityProvider that never resolves a caller.
type Anonymous struct{}

func (Anonymous) Current(context.Context) (Identity, bool) { return Identity{}, false }

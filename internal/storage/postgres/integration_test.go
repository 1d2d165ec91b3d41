//go:build integration

package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/order-factory/internal/domain/adjustment"
	"github.com/xenking/order-factory/internal/domain/order"
	"github.com/xenking/order-factory/internal/domain/product"
	"github.com/xenking/order-factory/internal/outbox"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "orders",
				"POSTGRES_PASSWORD": "orders",
				"POSTGRES_DB":       "orders",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "start postgres: %v\n", err)
		return 1
	}
	defer func() { _ = testcontainers.TerminateContainer(ctr) }()

	host, err := ctr.Host(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "host: %v\n", err)
		return 1
	}
	port, err := ctr.MappedPort(ctx, "5432/tcp")
	if err != nil {
		fmt.Fprintf(os.Stderr, "mapped port: %v\n", err)
		return 1
	}

	dsn := fmt.Sprintf("postgres://orders:orders@%s:%s/orders?sslmode=disable", host, port.Port())
	testPool, err = NewPool(ctx, dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pool: %v\n", err)
		return 1
	}
	defer testPool.Close()

	if err := RunMigrations(ctx, testPool); err != nil {
		fmt.Fprintf(os.Stderr, "migrations: %v\n", err)
		return 1
	}
	return m.Run()
}

func seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	_, err := testPool.Exec(ctx, `TRUNCATE products, discounts, coupons, users, cards, addresses, prescriptions,
		orders, order_lines, order_discounts, order_coupons, order_fees, outbox_events RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	_, err = testPool.Exec(ctx, `INSERT INTO products (id, sku, name, price_vat, vat_rate, stock, availability) VALUES
		(1, 'A', 'Apple', 10, 0.21, 5, 'stock'),
		(2, 'B', 'Banana', 4, 0.04, 1, 'stock'),
		(3, 'U', 'Umbrella', 7, 0.21, 0, 'unlimited')`)
	require.NoError(t, err)
	_, err = testPool.Exec(ctx, `INSERT INTO discounts (id, name, value) VALUES (100, 'Spring', 10), (101, 'Gift', 0)`)
	require.NoError(t, err)
	_, err = testPool.Exec(ctx, `INSERT INTO coupons (id, code, type, kind, value) VALUES (200, 'SAVE5', 'fixed', 'regular', 5)`)
	require.NoError(t, err)
	_, err = testPool.Exec(ctx, `INSERT INTO users (id, email) VALUES (1, 'ana@example.com')`)
	require.NoError(t, err)
	_, err = testPool.Exec(ctx, `INSERT INTO cards (id, user_id, balance, temp_balance) VALUES (9, 1, 20, 20)`)
	require.NoError(t, err)
}

func newFactory(t *testing.T) *order.Factory {
	t.Helper()
	f, err := order.NewFactory(order.Config{}, order.Deps{
		Store:   NewStore(testPool),
		Numbers: NewNumberGenerator(testPool, "IT"),
	})
	require.NoError(t, err)
	return f
}

func checkoutRequest(lines ...order.LineInput) order.CreateRequest {
	addr := &order.AddressInput{ID: "1", FirstName: "Ana", LastName: "Silva", CountryID: "PT", Email: "ana@example.com"}
	return order.CreateRequest{
		Header: order.Header{Type: order.TypeCheckout, ShippingAddress: addr, Billpayer: addr},
		Lines:  lines,
	}
}

func line(id string, productID int64, qty int, adjs ...adjustment.Adjustment) order.LineInput {
	return order.LineInput{ID: id, Kind: order.ProductRef{ProductID: productID}, Quantity: &qty, Adjustments: adjs}
}

func TestFactory_CreatePersists(t *testing.T) {
	seed(t)
	ctx := context.Background()
	f := newFactory(t)

	req := checkoutRequest(
		line("i1", 1, 2,
			adjustment.Adjustment{Category: adjustment.CampaignDiscount, Amount: decimal.NewFromInt(-2), Origin: 100},
			adjustment.Adjustment{Category: adjustment.Coupon, Amount: decimal.NewFromInt(-1), Origin: 200},
		),
		line("i2", 2, 1),
		line("i3", 3, 4),
	)
	req.Adjustments = adjustment.Set{
		{Category: adjustment.Shipping, Amount: decimal.RequireFromString("3.95"), Data: adjustment.Data{"amount": "4.95", "cause": "standard"}},
		{Category: adjustment.ClientCard, Amount: decimal.NewFromInt(-5), Origin: 9},
		{Category: adjustment.FeePackagingBag, Amount: decimal.RequireFromString("0.10")},
	}

	o, err := f.Create(ctx, req)
	require.NoError(t, err)
	assert.Regexp(t, `^IT\d{4}\d{6}$`, o.Number)
	require.Len(t, o.Lines, 3)

	s := NewStore(testPool)
	require.NoError(t, s.InTx(ctx, func(ctx context.Context, tx order.Tx) error {
		got, err := tx.Orders().Get(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, o.Number, got.Number)
		assert.Equal(t, "3.95", got.ShippingPrice.String())
		assert.Equal(t, "4.95", got.OriginalShippingPrice.String())
		assert.Equal(t, "standard", got.ShippingCause)
		assert.Equal(t, "5", got.CardUsedBalance.String())

		lines, err := tx.Lines().ListByOrder(ctx, o.ID)
		require.NoError(t, err)
		assert.Len(t, lines, 3)

		apple, err := tx.Products().GetByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 3, apple.Stock)
		banana, err := tx.Products().GetByID(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, 0, banana.Stock)
		assert.Equal(t, product.StateUnavailable, banana.State)

		seq, err := tx.Discounts().MaxSequence(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, seq)
		return nil
	}))

	var temp decimal.Decimal
	require.NoError(t, testPool.QueryRow(ctx, `SELECT temp_balance FROM cards WHERE id = 9`).Scan(&temp))
	assert.Equal(t, "15", temp.String())

	var coupons, fees int
	require.NoError(t, testPool.QueryRow(ctx, `SELECT COUNT(*) FROM order_coupons WHERE order_id = $1`, o.ID).Scan(&coupons))
	require.NoError(t, testPool.QueryRow(ctx, `SELECT COUNT(*) FROM order_fees WHERE order_id = $1`, o.ID).Scan(&fees))
	assert.Equal(t, 1, coupons)
	assert.Equal(t, 1, fees)

	var published []outbox.Message
	n, err := NewOutboxSource(testPool).Claim(ctx, 10, func(_ context.Context, msgs []outbox.Message) error {
		published = msgs
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 2, n)
	assert.Equal(t, string(order.EventOrderCreated), published[0].Type)
	assert.Equal(t, string(order.EventSearchReindexRequested), published[1].Type)
	assert.Contains(t, string(published[1].Payload), `"product_ids": [2]`)

	n, err = NewOutboxSource(testPool).Claim(ctx, 10, func(context.Context, []outbox.Message) error { return nil })
	require.NoError(t, err)
	assert.Zero(t, n, "published events are not claimed again")
}

func TestFactory_RollbackOnUnknownDiscount(t *testing.T) {
	seed(t)
	ctx := context.Background()
	f := newFactory(t)

	_, err := f.Create(ctx, checkoutRequest(
		line("i1", 1, 1),
		line("i2", 2, 1, adjustment.Adjustment{Category: adjustment.CampaignDiscount, Amount: decimal.NewFromInt(-1), Origin: 999}),
	))
	require.Error(t, err)

	var orders, events, stock int
	require.NoError(t, testPool.QueryRow(ctx, `SELECT COUNT(*) FROM orders`).Scan(&orders))
	require.NoError(t, testPool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox_events`).Scan(&events))
	require.NoError(t, testPool.QueryRow(ctx, `SELECT stock FROM products WHERE id = 1`).Scan(&stock))
	assert.Zero(t, orders)
	assert.Zero(t, events)
	assert.Equal(t, 5, stock)
}

func TestFactory_Rematerialize(t *testing.T) {
	seed(t)
	ctx := context.Background()
	f := newFactory(t)

	first, err := f.Create(ctx, checkoutRequest(line("i1", 1, 1)))
	require.NoError(t, err)

	req := checkoutRequest(line("i1", 1, 2), line("i3", 3, 1))
	req.Header.ExistingOrderID = &first.ID
	second, err := f.Create(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Number, second.Number)

	var lines int
	var qty int
	require.NoError(t, testPool.QueryRow(ctx, `SELECT COUNT(*) FROM order_lines WHERE order_id = $1`, first.ID).Scan(&lines))
	require.NoError(t, testPool.QueryRow(ctx, `SELECT quantity FROM order_lines WHERE order_id = $1 AND product_id = 1`, first.ID).Scan(&qty))
	assert.Equal(t, 2, lines)
	assert.Equal(t, 2, qty)

	var stock int
	require.NoError(t, testPool.QueryRow(ctx, `SELECT stock FROM products WHERE id = 1`).Scan(&stock))
	assert.Equal(t, 3, stock, "re-materialising takes only the added unit")

	missing := int64(424242)
	req.Header.ExistingOrderID = &missing
	_, err = f.Create(ctx, req)
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestFactory_ConcurrentStock(t *testing.T) {
	seed(t)
	ctx := context.Background()
	f := newFactory(t)

	const workers = 5
	errs := make(chan error, workers)
	for range workers {
		go func() {
			_, err := f.Create(ctx, checkoutRequest(line("i1", 1, 1)))
			errs <- err
		}()
	}
	for range workers {
		require.NoError(t, <-errs)
	}

	var stock int
	var state string
	require.NoError(t, testPool.QueryRow(ctx, `SELECT stock, state FROM products WHERE id = 1`).Scan(&stock, &state))
	assert.Equal(t, 0, stock)
	assert.Equal(t, string(product.StateUnavailable), state)

	var reindex int
	require.NoError(t, testPool.QueryRow(ctx,
		`SELECT COUNT(*) FROM outbox_events WHERE type = $1`, string(order.EventSearchReindexRequested)).Scan(&reindex))
	assert.Equal(t, 1, reindex, "only one decrement observes the transition")
}

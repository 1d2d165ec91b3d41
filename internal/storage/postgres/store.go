package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/order-factory/internal/domain/coupon"
	"github.com/xenking/order-factory/internal/domain/discount"
	"github.com/xenking/order-factory/internal/domain/order"
	"github.com/xenking/order-factory/internal/domain/product"
)

// querier is the subset of pgx shared by pools and transactions.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ order.UnitOfWork = (*Store)(nil)

// Store runs order creation inside a single PostgreSQL transaction.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore returns a Store that uses the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// InTx begins a transaction, hands its repositories to fn and commits when fn
// succeeds. Any error rolls the transaction back and is returned as is.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx order.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return persistErr("begin transaction", err)
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if err := fn(ctx, &txRepos{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return persistErr("commit transaction", err)
	}
	return nil
}

// txRepos binds every repository to one transaction.
type txRepos struct {
	q querier
}

func (t *txRepos) Orders() order.Repository { return &OrderRepository{q: t.q} }
func (t *txRepos) Lines() order.LineRepository { return &LineRepository{q: t.q} }
func (t *txRepos) Products() product.Repository { return &ProductRepository{q: t.q} }
func (t *txRepos) Discounts() discount.Repository { return &DiscountRepository{q: t.q} }
func (t *txRepos) Coupons() coupon.Repository { return &CouponRepository{q: t.q} }
func (t *txRepos) Cards() order.CardRepository { return &CardRepository{q: t.q} }
func (t *txRepos) Fees() order.FeeRepository { return &FeeRepository{q: t.q} }
func (t *txRepos) Addresses() order.AddressRepository { return &AddressRepository{q: t.q} }
func (t *txRepos) Users() order.UserRepository { return &UserRepository{q: t.q} }
func (t *txRepos) Prescriptions() order.PrescriptionRepository { return &PrescriptionRepository{q: t.q} }
func (t *txRepos) Outbox() order.OutboxRepository { return &OutboxRepository{q: t.q} }

func persistErr(op string, err error) error {
	return &order.PersistenceError{Op: op, Err: err}
}

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/order-factory/internal/domain/order"
)

const nextOrderNumberSQL = `SELECT nextval('order_number_seq')`

var _ order.NumberGenerator = (*NumberGenerator)(nil)

// NumberGenerator formats order numbers as <prefix><year><6-digit counter>
// from the order_number_seq sequence.
type NumberGenerator struct {
	pool   *pgxpool.Pool
	prefix string
	now    func() time.Time
}

// NewNumberGenerator returns a NumberGenerator using the given prefix.
func NewNumberGenerator(pool *pgxpool.Pool, prefix string) *NumberGenerator {
	return &NumberGenerator{pool: pool, prefix: prefix, now: time.Now}
}

// Generate draws the next counter value. Sequence values are not rolled
// back with the creating transaction, so numbers may have gaps.
func (g *NumberGenerator) Generate(ctx context.Context, _ *order.Order) (string, error) {
	var n int64
	if err := g.pool.QueryRow(ctx, nextOrderNumberSQL).Scan(&n); err != nil {
		return "", persistErr("next order number", err)
	}
	return formatNumber(g.prefix, g.now().Year(), n), nil
}

func formatNumber(prefix string, year int, n int64) string {
	return fmt.Sprintf("%s%d%06d", prefix, year, n)
}

package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/order-factory/internal/domain/order"
	"github.com/xenking/order-factory/internal/outbox"
)

const (
	appendOutboxSQL = `INSERT INTO outbox_events (id, type, aggregate_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	// SKIP LOCKED lets several relays drain the table without publishing the
	// same event twice.
	claimOutboxSQL = `SELECT id, type, aggregate_id, payload FROM outbox_events
		WHERE published_at IS NULL
		ORDER BY created_at, id
		LIMIT $1
		FOR UPDATE SKIP LOCKED`

	markOutboxPublishedSQL = `UPDATE outbox_events SET published_at = NOW() WHERE id = ANY($1)`
)

var _ order.OutboxRepository = (*OutboxRepository)(nil)

// OutboxRepository appends events inside the order transaction.
type OutboxRepository struct {
	q querier
}

// Append stores e with its JSON payload. The event becomes visible to the
// relay when the surrounding transaction commits.
func (r *OutboxRepository) Append(ctx context.Context, e order.Event) error {
	_, err := r.q.Exec(ctx, appendOutboxSQL, e.ID, string(e.Type), e.OrderID, encodeEvent(e), e.CreatedAt)
	if err != nil {
		return persistErr("append outbox event", err)
	}
	return nil
}

func encodeEvent(e order.Event) []byte {
	var w jx.Writer
	w.ObjStart()
	w.FieldStart("id")
	w.Str(e.ID)
	w.Comma()
	w.FieldStart("type")
	w.Str(string(e.Type))
	w.Comma()
	w.FieldStart("order_id")
	w.Int64(e.OrderID)
	w.Comma()
	w.FieldStart("number")
	w.Str(e.Number)
	if len(e.ProductIDs) > 0 {
		w.Comma()
		w.FieldStart("product_ids")
		w.ArrStart()
		for i, id := range e.ProductIDs {
			if i > 0 {
				w.Comma()
			}
			w.Int64(id)
		}
		w.ArrEnd()
	}
	w.Comma()
	w.FieldStart("created_at")
	w.Str(e.CreatedAt.UTC().Format(time.RFC3339Nano))
	w.ObjEnd()
	return w.Buf
}

var _ outbox.Source = (*OutboxSource)(nil)

// OutboxSource hands unpublished events to the relay.
type OutboxSource struct {
	pool *pgxpool.Pool
}

// NewOutboxSource returns an OutboxSource that uses the given pool.
func NewOutboxSource(pool *pgxpool.Pool) *OutboxSource {
	return &OutboxSource{pool: pool}
}

// Claim locks up to limit unpublished events, passes them to fn and marks
// them published when fn succeeds. The events stay unpublished otherwise.
func (s *OutboxSource) Claim(ctx context.Context, limit int, fn func(ctx context.Context, msgs []outbox.Message) error) (int, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, errors.Wrap(err, "begin transaction")
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	rows, err := tx.Query(ctx, claimOutboxSQL, limit)
	if err != nil {
		return 0, errors.Wrap(err, "claim outbox events")
	}
	msgs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (outbox.Message, error) {
		var m outbox.Message
		err := row.Scan(&m.ID, &m.Type, &m.AggregateID, &m.Payload)
		return m, err
	})
	if err != nil {
		return 0, errors.Wrap(err, "scan outbox events")
	}
	if len(msgs) == 0 {
		return 0, nil
	}

	if err := fn(ctx, msgs); err != nil {
		return 0, err
	}

	ids := make([]string, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
	}
	if _, err := tx.Exec(ctx, markOutboxPublishedSQL, ids); err != nil {
		return 0, errors.Wrap(err, "mark outbox events published")
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, errors.Wrap(err, "commit")
	}
	return len(msgs), nil
}

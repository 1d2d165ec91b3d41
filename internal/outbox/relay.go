// Package outbox relays committed outbox events to the message broker.
package outbox

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Message is an outbox row ready to be published.
type Message struct {
	ID          string
	Type        string
	AggregateID int64
	Payload     []byte
}

// Source claims unpublished messages. fn runs while the claimed messages are
// locked; they are marked published only when fn returns nil.
type Source interface {
	Claim(ctx context.Context, limit int, fn func(ctx context.Context, msgs []Message) error) (int, error)
}

// Publisher delivers messages to the broker.
type Publisher interface {
	Publish(ctx context.Context, msgs []Message) error
}

// Config controls the relay polling loop.
type Config struct {
	Interval  time.Duration
	BatchSize int
}

// Relay polls the outbox and publishes new events. Delivery is at least once.
type Relay struct {
	src Source
	pub Publisher
	lg  *zap.Logger
	cfg Config
}

// NewRelay returns a Relay with defaults applied to zero config values.
func NewRelay(src Source, pub Publisher, lg *zap.Logger, cfg Config) *Relay {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &Relay{src: src, pub: pub, lg: lg, cfg: cfg}
}

// Run polls until ctx is cancelled. A full batch is followed by another poll
// immediately.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		for {
			n, err := r.Flush(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				r.lg.Warn("Outbox relay failed", zap.Error(err))
				break
			}
			if n < r.cfg.BatchSize {
				break
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Flush publishes one batch and returns the number of messages published.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	n, err := r.src.Claim(ctx, r.cfg.BatchSize, r.pub.Publish)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		r.lg.Debug("Outbox events published", zap.Int("count", n))
	}
	return n, nil
}

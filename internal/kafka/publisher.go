// Package kafka publishes outbox events to Kafka topics.
package kafka

import (
	"context"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/xenking/order-factory/internal/outbox"
)

// Config selects the brokers and the topic of every event type.
type Config struct {
	Brokers []string
	// Topics maps an event type to its topic.
	Topics map[string]string
	// DefaultTopic receives event types missing from Topics.
	DefaultTopic string
}

// Publisher implements outbox.Publisher with a franz-go client.
type Publisher struct {
	client *kgo.Client
	cfg    Config
}

var _ outbox.Publisher = (*Publisher)(nil)

// NewPublisher connects a producer to the configured brokers.
func NewPublisher(cfg Config, opts ...kgo.Opt) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	opts = append([]kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.AllowAutoTopicCreation(),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	}, opts...)

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, errors.Wrap(err, "create kafka client")
	}
	return &Publisher{client: client, cfg: cfg}, nil
}

// Publish produces msgs and waits for every record to be acknowledged.
// Records are keyed by order id so events of one order stay ordered.
func (p *Publisher) Publish(ctx context.Context, msgs []outbox.Message) error {
	records, err := p.records(msgs)
	if err != nil {
		return err
	}
	if err := p.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return errors.Wrap(err, "produce")
	}
	return nil
}

func (p *Publisher) records(msgs []outbox.Message) ([]*kgo.Record, error) {
	out := make([]*kgo.Record, 0, len(msgs))
	for _, m := range msgs {
		topic, ok := p.cfg.Topics[m.Type]
		if !ok {
			topic = p.cfg.DefaultTopic
		}
		if topic == "" {
			return nil, errors.Errorf("no topic for event type %q", m.Type)
		}
		out = append(out, &kgo.Record{
			Topic: topic,
			Key:   []byte(strconv.FormatInt(m.AggregateID, 10)),
			Value: m.Payload,
			Headers: []kgo.RecordHeader{
				{Key: "event_id", Value: []byte(m.ID)},
				{Key: "event_type", Value: []byte(m.Type)},
			},
		})
	}
	return out, nil
}

// Ping checks that a broker is reachable.
func (p *Publisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

// Close flushes buffered records and closes the client.
func (p *Publisher) Close() {
	p.client.Close()
}

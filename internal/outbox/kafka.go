package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/pharmalens/price-compare-service/internal/domain"
)

// Sink delivers built events to a broker.
type Sink interface {
	Send(ctx context.Context, events ...*domain.OutboxEvent) error
	Close() error
}

// MessageWriter is the subset of *kafka.Writer used by KafkaSink.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConfig configures the Kafka sink.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
}

// KafkaSink publishes events to a Kafka topic keyed by aggregate id so
// events for one search stay ordered within a partition.
type KafkaSink struct {
	writer MessageWriter
}

// NewKafkaSink creates a sink backed by a kafka-go writer.
func NewKafkaSink(cfg KafkaConfig) *KafkaSink {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return NewKafkaSinkWithWriter(w)
}

// NewKafkaSinkWithWriter creates a sink over an existing writer.
func NewKafkaSinkWithWriter(w MessageWriter) *KafkaSink {
	return &KafkaSink{writer: w}
}

// Send implements Sink.
func (k *KafkaSink) Send(ctx context.Context, events ...*domain.OutboxEvent) error {
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		msgs = append(msgs, toMessage(e))
	}
	if err := k.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

// Close flushes and closes the writer.
func (k *KafkaSink) Close() error {
	return k.writer.Close()
}

func toMessage(e *domain.OutboxEvent) kafka.Message {
	headers := []kafka.Header{
		{Key: "event_id", Value: []byte(e.EventID)},
		{Key: "event_type", Value: []byte(e.EventType)},
		{Key: "aggregate_type", Value: []byte(e.AggregateType)},
		{Key: "event_version", Value: []byte(fmt.Sprintf("%d", e.EventVersion))},
	}
	for k, v := range e.Metadata {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	return kafka.Message{
		Key:     []byte(e.AggregateID),
		Value:   e.Payload,
		Headers: headers,
		Time:    e.CreatedAt,
	}
}

// NopSink discards events. It is used when Kafka is disabled.
type NopSink struct{}

// Send implements Sink.
func (NopSink) Send(context.Context, ...*domain.OutboxEvent) error { return nil }

// Close implements Sink.
func (NopSink) Close() error { return nil }

// Compile-time interface checks.
var (
	_ Sink = (*KafkaSink)(nil)
	_ Sink = NopSink{}
)

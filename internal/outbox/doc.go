// Package outbox publishes search lifecycle events to Kafka.
//
// # Components
//
//   - Emitter: builds domain.OutboxEvent values with service metadata
//   - KafkaSink: writes events to a topic with segmentio/kafka-go
//   - NopSink: used when Kafka is disabled
//   - Publisher: emit and send in one call
//
// # Event Types
//
//   - search.completed: a single-medicine search reached its terminal result
//   - batch.completed: every medicine of a prescription batch finished
//
// # Usage
//
//	sink := outbox.NewKafkaSink(outbox.KafkaConfig{
//	    Brokers: []string{"localhost:9092"},
//	    Topic:   "events.outbox.price_compare_service",
//	})
//	pub := outbox.NewPublisher(outbox.NewEmitter(outbox.EmitterConfig{}), sink)
//	defer pub.Close()
//
//	err := pub.Publish(ctx, outbox.EmitParams{
//	    SearchID:  searchID,
//	    EventType: domain.EventTypeSearchCompleted,
//	    Payload:   payload,
//	})
//
// Messages are keyed by aggregate id; event id, type and metadata travel
// as Kafka headers and the JSON payload is the message value.
package outbox

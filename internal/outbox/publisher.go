package outbox

import (
	"context"
	"fmt"
)

// Publisher combines the Emitter and a Sink into one publish call.
type Publisher struct {
	emitter *Emitter
	sink    Sink
}

// NewPublisher creates a new Publisher with the given emitter and sink.
// A nil sink discards events.
func NewPublisher(emitter *Emitter, sink Sink) *Publisher {
	if sink == nil {
		sink = NopSink{}
	}
	return &Publisher{
		emitter: emitter,
		sink:    sink,
	}
}

// Publish builds an event from params and sends it.
func (p *Publisher) Publish(ctx context.Context, params EmitParams) error {
	event, err := p.emitter.Emit(params)
	if err != nil {
		return fmt.Errorf("emit event: %w", err)
	}

	if err := p.sink.Send(ctx, event); err != nil {
		return fmt.Errorf("send event: %w", err)
	}

	return nil
}

// Close closes the underlying sink.
func (p *Publisher) Close() error {
	return p.sink.Close()
}

// Emitter returns the underlying emitter for direct event creation.
func (p *Publisher) Emitter() *Emitter {
	return p.emitter
}

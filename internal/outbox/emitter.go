package outbox

import (
	"fmt"

	"github.com/pharmalens/price-compare-service/internal/domain"
)

const (
	// AggregateTypeSearch is the aggregate type for single-medicine searches.
	AggregateTypeSearch = "search"

	// AggregateTypeBatch is the aggregate type for prescription batches.
	AggregateTypeBatch = "batch"

	defaultServiceName = "price-compare-service"
)

// EmitterConfig configures the Emitter with service context.
type EmitterConfig struct {
	// ServiceName identifies the source service.
	ServiceName string
}

// EmitParams contains the parameters for emitting an event.
type EmitParams struct {
	// SearchID is the history id of the search (aggregate ID).
	SearchID string
	// AggregateType defaults to AggregateTypeSearch.
	AggregateType string
	// EventType is the type of event (e.g., "search.completed").
	EventType string
	// Payload is the event payload that will be JSON-serialized.
	Payload interface{}
	// UserID is the caller, empty for anonymous searches.
	UserID string
	// RequestID for request tracing (optional).
	RequestID string
}

// Emitter creates outbox events enriched with service context.
type Emitter struct {
	config EmitterConfig
}

// NewEmitter creates a new Emitter with the given service configuration.
func NewEmitter(config EmitterConfig) *Emitter {
	if config.ServiceName == "" {
		config.ServiceName = defaultServiceName
	}
	return &Emitter{config: config}
}

// Emit builds an event from params.
func (e *Emitter) Emit(params EmitParams) (*domain.OutboxEvent, error) {
	if params.SearchID == "" {
		return nil, fmt.Errorf("search_id is required")
	}
	if params.EventType == "" {
		return nil, fmt.Errorf("event_type is required")
	}

	aggregateType := params.AggregateType
	if aggregateType == "" {
		aggregateType = AggregateTypeSearch
	}

	event, err := domain.NewOutboxEvent(params.EventType, params.SearchID, aggregateType, params.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	event.WithMetadata("source", e.config.ServiceName)
	if params.UserID != "" {
		event.WithMetadata("user_id", params.UserID)
	}
	if params.RequestID != "" {
		event.WithMetadata("request_id", params.RequestID)
	}
	return event, nil
}

// EmitSearchCompleted is a convenience method for search.completed events.
func (e *Emitter) EmitSearchCompleted(searchID, userID string, payload domain.SearchCompletedPayload) (*domain.OutboxEvent, error) {
	return e.Emit(EmitParams{
		SearchID:      searchID,
		AggregateType: AggregateTypeSearch,
		EventType:     domain.EventTypeSearchCompleted,
		Payload:       payload,
		UserID:        userID,
	})
}

// EmitBatchCompleted is a convenience method for batch.completed events.
func (e *Emitter) EmitBatchCompleted(searchID, userID string, payload domain.BatchCompletedPayload) (*domain.OutboxEvent, error) {
	return e.Emit(EmitParams{
		SearchID:      searchID,
		AggregateType: AggregateTypeBatch,
		EventType:     domain.EventTypeBatchCompleted,
		Payload:       payload,
		UserID:        userID,
	})
}

package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Stream event kinds emitted while a query runs.
const (
	StreamEventStarted      = "started"
	StreamEventSourceResult = "source_result"
	StreamEventComplete     = "complete"
	StreamEventError        = "error"
)

// Event type constants for outbox events.
const (
	EventTypeSearchCompleted = "search.completed"
	EventTypeBatchCompleted  = "batch.completed"
)

// OutboxEvent represents an event published after a search reaches a
// terminal state.
type OutboxEvent struct {
	EventID       string
	EventVersion  int
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       []byte
	Metadata      map[string]string
	CreatedAt     time.Time
}

// NewOutboxEvent creates a new outbox event with the given parameters.
// The payload is JSON-serialized automatically.
func NewOutboxEvent(eventType, aggregateID, aggregateType string, payload interface{}) (*OutboxEvent, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &OutboxEvent{
		EventID:       uuid.New().String(),
		EventVersion:  1,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Payload:       payloadBytes,
		CreatedAt:     time.Now(),
	}, nil
}

// WithMetadata attaches a metadata key to the event.
func (e *OutboxEvent) WithMetadata(key, value string) *OutboxEvent {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// SearchCompletedPayload is the payload of a search.completed event.
type SearchCompletedPayload struct {
	SearchID     string   `json:"search_id"`
	MedicineName string   `json:"medicine_name"`
	Dosage       string   `json:"dosage,omitempty"`
	OfferCount   int      `json:"offer_count"`
	Cheapest     *float64 `json:"cheapest_price,omitempty"`
	CheapestFrom string   `json:"cheapest_pharmacy,omitempty"`
	Savings      float64  `json:"savings"`
	FailedCount  int      `json:"failed_sources"`
}

// BatchCompletedPayload is the payload of a batch.completed event.
type BatchCompletedPayload struct {
	SearchID     string   `json:"search_id"`
	Medicines    []string `json:"medicines"`
	TotalSavings float64  `json:"total_savings"`
}

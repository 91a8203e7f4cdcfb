package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SearchKind distinguishes single lookups from prescription batches.
type SearchKind string

// Search kinds.
const (
	SearchKindSingle SearchKind = "single"
	SearchKindBatch  SearchKind = "batch"
)

// SearchRecord is a completed search kept in history.
type SearchRecord struct {
	ID     uuid.UUID  `json:"id"`
	Kind   SearchKind `json:"kind"`
	UserID *string    `json:"user_id,omitempty"`

	// Medicines lists the medicine names searched, in input order.
	Medicines []string `json:"medicines"`

	// Results is the JSON-encoded AggregateResult or CrossMedicineSummary.
	Results json.RawMessage `json:"results"`

	TotalSavings float64   `json:"total_savings"`
	OfferCount   int       `json:"offer_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewSearchRecordFromResult builds a history record for a single query.
func NewSearchRecordFromResult(id uuid.UUID, result *AggregateResult) (*SearchRecord, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return &SearchRecord{
		ID:           id,
		Kind:         SearchKindSingle,
		Medicines:    []string{result.Query.MedicineName},
		Results:      payload,
		TotalSavings: result.Savings,
		OfferCount:   len(result.Offers),
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// NewSearchRecordFromSummary builds a history record for a batch.
func NewSearchRecordFromSummary(id uuid.UUID, summary *CrossMedicineSummary) (*SearchRecord, error) {
	payload, err := json.Marshal(summary)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(summary.Medicines))
	offers := 0
	for _, m := range summary.Medicines {
		names = append(names, m.Query.MedicineName)
		if m.Result != nil {
			offers += len(m.Result.Offers)
		}
	}
	return &SearchRecord{
		ID:           id,
		Kind:         SearchKindBatch,
		Medicines:    names,
		Results:      payload,
		TotalSavings: summary.TotalSavings,
		OfferCount:   offers,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// HistoryFilter narrows a history listing.
type HistoryFilter struct {
	UserID *string
	Limit  int
	Offset int
}

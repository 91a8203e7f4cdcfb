package httpserver

import (
	"encoding/json"
	"time"

	"github.com/pharmalens/price-compare-service/internal/domain"
	"github.com/pharmalens/price-compare-service/internal/pharmacies"
)

// Response types for JSON serialization.

type listPharmaciesResponse struct {
	Pharmacies []pharmacies.Info `json:"pharmacies"`
}

type historyEntryResponse struct {
	ID           string          `json:"id"`
	Kind         string          `json:"kind"`
	UserID       string          `json:"user_id,omitempty"`
	Medicines    []string        `json:"medicines"`
	TotalSavings float64         `json:"total_savings"`
	OfferCount   int             `json:"offer_count"`
	CreatedAt    time.Time       `json:"created_at"`
	Results      json.RawMessage `json:"results,omitempty"`
}

type listHistoryResponse struct {
	Searches      []historyEntryResponse `json:"searches"`
	NextPageToken string                 `json:"next_page_token,omitempty"`
	TotalCount    int                    `json:"total_count"`
}

// historyEntryFromRecord converts a stored search. The full results are
// included only on single-entry lookups.
func historyEntryFromRecord(rec *domain.SearchRecord, withResults bool) historyEntryResponse {
	resp := historyEntryResponse{
		ID:           rec.ID.String(),
		Kind:         string(rec.Kind),
		Medicines:    rec.Medicines,
		TotalSavings: rec.TotalSavings,
		OfferCount:   rec.OfferCount,
		CreatedAt:    rec.CreatedAt,
	}
	if resp.Medicines == nil {
		resp.Medicines = []string{}
	}
	if rec.UserID != nil {
		resp.UserID = *rec.UserID
	}
	if withResults && len(rec.Results) > 0 {
		resp.Results = rec.Results
	}
	return resp
}

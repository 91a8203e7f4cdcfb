// Package events encodes aggregator progress as a self-describing event
// sequence: one started event, one source_result event per resolved
// pharmacy in completion order, then exactly one complete or error event.
//
// The same events are written as Server-Sent Events to HTTP clients and as
// newline-delimited JSON by the CLI. Folding the source_result events with
// Fold reproduces the complete event's result.
package events

import (
	"errors"
	"fmt"
	"time"

	"github.com/pharmalens/price-compare-service/internal/domain"
	"github.com/pharmalens/price-compare-service/internal/pharmacies"
)

// Event is one element of a search event stream. Fields are populated
// according to Type; see the builders.
type Event struct {
	Type      string    `json:"type"`
	SearchID  string    `json:"search_id,omitempty"`
	Sequence  int       `json:"sequence"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	// Set on started.
	Medicine     string            `json:"medicine_name,omitempty"`
	Dosage       string            `json:"dosage,omitempty"`
	TotalSources int               `json:"total_sources,omitempty"`
	Sources      []pharmacies.Info `json:"sources,omitempty"`

	// Set on source_result.
	PharmacyID   string              `json:"pharmacy_id,omitempty"`
	PharmacyName string              `json:"pharmacy_name,omitempty"`
	Status       domain.SourceStatus `json:"status,omitempty"`
	Offers       []domain.PriceOffer `json:"offers,omitempty"`

	// Set on source_result for failed sources and on error.
	Error string `json:"error,omitempty"`

	// Progress counters, present on every event but error.
	Completed        int      `json:"completed"`
	Remaining        int      `json:"remaining"`
	CompletedSources []string `json:"completed_sources,omitempty"`

	// Set on complete.
	Result *domain.AggregateResult `json:"result,omitempty"`
}

// IsTerminal reports whether the event ends its stream.
func (e Event) IsTerminal() bool {
	return e.Type == domain.StreamEventComplete || e.Type == domain.StreamEventError
}

// Started builds the first event of a search over sources.
func Started(searchID string, q domain.Query, sources []pharmacies.Info) Event {
	return Event{
		Type:         domain.StreamEventStarted,
		SearchID:     searchID,
		Sequence:     0,
		Message:      fmt.Sprintf("Starting search across %d pharmacies...", len(sources)),
		Timestamp:    time.Now().UTC(),
		Medicine:     q.MedicineName,
		Dosage:       q.DosageValue(),
		TotalSources: len(sources),
		Sources:      sources,
		Completed:    0,
		Remaining:    len(sources),
	}
}

// SourceResult builds the event for one resolved pharmacy.
func SourceResult(searchID string, snap domain.Snapshot) Event {
	sr := snap.Source
	completed := len(snap.Result.Completed)
	remaining := len(snap.Result.Remaining)

	offers := sr.Offers
	if offers == nil {
		offers = []domain.PriceOffer{}
	}

	msg := fmt.Sprintf("%s complete (%d results). %d pharmacies remaining...", sr.PharmacyName, len(sr.Offers), remaining)
	if remaining == 0 {
		msg = fmt.Sprintf("All %d pharmacies searched!", completed)
	}

	return Event{
		Type:             domain.StreamEventSourceResult,
		SearchID:         searchID,
		Sequence:         snap.Sequence,
		Message:          msg,
		Timestamp:        time.Now().UTC(),
		PharmacyID:       sr.PharmacyID,
		PharmacyName:     sr.PharmacyName,
		Status:           sr.Status,
		Offers:           offers,
		Error:            sr.ErrorMessage(),
		Completed:        completed,
		Remaining:        remaining,
		CompletedSources: snap.Result.Completed,
	}
}

// Complete builds the terminal event carrying the final result.
func Complete(searchID string, result domain.AggregateResult) Event {
	final := result.Clone()
	return Event{
		Type:             domain.StreamEventComplete,
		SearchID:         searchID,
		Sequence:         len(final.Completed) + 1,
		Message:          fmt.Sprintf("Search complete! Found %d results from %d pharmacies.", len(final.Offers), len(final.Completed)),
		Timestamp:        time.Now().UTC(),
		Completed:        len(final.Completed),
		Remaining:        len(final.Remaining),
		CompletedSources: final.Completed,
		Result:           &final,
	}
}

// Failure builds the terminal error event for a query that could not run.
func Failure(searchID string, err error) Event {
	msg := "Search failed"
	if errors.Is(err, domain.ErrNoSourcesConfigured) {
		msg = "No pharmacies are configured for search"
	}
	return Event{
		Type:      domain.StreamEventError,
		SearchID:  searchID,
		Message:   msg,
		Timestamp: time.Now().UTC(),
		Error:     err.Error(),
	}
}

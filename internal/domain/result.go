package domain

import (
	"errors"
	"slices"
	"time"
)

// SourceStatus is the lifecycle state of one pharmacy within a query.
type SourceStatus string

// Source status values. Pending is the only non-terminal state.
const (
	SourceStatusPending   SourceStatus = "pending"
	SourceStatusSucceeded SourceStatus = "succeeded"
	SourceStatusFailed    SourceStatus = "failed"
	SourceStatusTimedOut  SourceStatus = "timed_out"
)

// IsTerminal reports whether the status is final.
func (s SourceStatus) IsTerminal() bool {
	switch s {
	case SourceStatusSucceeded, SourceStatusFailed, SourceStatusTimedOut:
		return true
	default:
		return false
	}
}

// SourceResult is the outcome of asking one pharmacy about one query.
// A source that found nothing succeeds with zero offers.
type SourceResult struct {
	PharmacyID   string
	PharmacyName string
	Status       SourceStatus
	Offers       []PriceOffer
	Err          error
	Duration     time.Duration
}

// ErrorMessage returns the error text, or an empty string on success.
func (r SourceResult) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Succeeded builds a successful result.
func Succeeded(pharmacyID, pharmacyName string, offers []PriceOffer) SourceResult {
	return SourceResult{
		PharmacyID:   pharmacyID,
		PharmacyName: pharmacyName,
		Status:       SourceStatusSucceeded,
		Offers:       offers,
	}
}

// Failed builds a failed result from an adapter error.
func Failed(pharmacyID, pharmacyName string, err error) SourceResult {
	status := SourceStatusFailed
	if errors.Is(err, ErrSourceTimedOut) {
		status = SourceStatusTimedOut
	}
	return SourceResult{
		PharmacyID:   pharmacyID,
		PharmacyName: pharmacyName,
		Status:       status,
		Err:          err,
	}
}

// SourceFailure is the reportable form of a source that produced no offers
// because of an error or timeout.
type SourceFailure struct {
	PharmacyID   string       `json:"pharmacy_id"`
	PharmacyName string       `json:"pharmacy_name"`
	Status       SourceStatus `json:"status"`
	Error        string       `json:"error"`
}

// AggregateResult is the running or terminal combination of source results
// for one query.
type AggregateResult struct {
	Query Query `json:"query"`

	// Offers holds every offer received, in arrival order.
	Offers []PriceOffer `json:"offers"`

	// Cheapest is the lowest-priced offer, preferring in-stock offers.
	Cheapest *PriceOffer `json:"cheapest"`

	// Savings is the spread between the most expensive offer and Cheapest.
	Savings float64 `json:"savings"`

	// Completed lists resolved pharmacy ids in completion order.
	Completed []string `json:"completed_sources"`

	// Remaining lists unresolved pharmacy ids in registration order.
	Remaining []string `json:"remaining_sources"`

	Failures []SourceFailure `json:"failures"`
}

// NewAggregateResult returns the empty result for a query issued to the
// given pharmacy ids.
func NewAggregateResult(q Query, pharmacyIDs []string) AggregateResult {
	return AggregateResult{
		Query:     q,
		Offers:    []PriceOffer{},
		Completed: []string{},
		Remaining: slices.Clone(pharmacyIDs),
		Failures:  []SourceFailure{},
	}
}

// Apply folds one resolved source into the result and recomputes the
// summary fields. Applying a pharmacy that is not remaining is a no-op and
// returns false.
func (r *AggregateResult) Apply(sr SourceResult) bool {
	idx := slices.Index(r.Remaining, sr.PharmacyID)
	if idx < 0 {
		return false
	}
	r.Remaining = slices.Delete(r.Remaining, idx, idx+1)
	r.Completed = append(r.Completed, sr.PharmacyID)

	if sr.Status == SourceStatusSucceeded {
		r.Offers = append(r.Offers, sr.Offers...)
	} else {
		r.Failures = append(r.Failures, SourceFailure{
			PharmacyID:   sr.PharmacyID,
			PharmacyName: sr.PharmacyName,
			Status:       sr.Status,
			Error:        sr.ErrorMessage(),
		})
	}

	r.Cheapest = ComputeCheapest(r.Offers)
	r.Savings = ComputeSavings(r.Offers, r.Cheapest)
	return true
}

// IsComplete reports whether every source has resolved.
func (r AggregateResult) IsComplete() bool {
	return len(r.Remaining) == 0
}

// TotalSources returns the number of sources the query was issued to.
func (r AggregateResult) TotalSources() int {
	return len(r.Completed) + len(r.Remaining)
}

// Clone returns a deep copy that shares no slices with r.
func (r AggregateResult) Clone() AggregateResult {
	out := r
	out.Offers = slices.Clone(r.Offers)
	out.Completed = slices.Clone(r.Completed)
	out.Remaining = slices.Clone(r.Remaining)
	out.Failures = slices.Clone(r.Failures)
	if out.Offers == nil {
		out.Offers = []PriceOffer{}
	}
	if out.Completed == nil {
		out.Completed = []string{}
	}
	if out.Remaining == nil {
		out.Remaining = []string{}
	}
	if out.Failures == nil {
		out.Failures = []SourceFailure{}
	}
	if r.Cheapest != nil {
		c := *r.Cheapest
		out.Cheapest = &c
	}
	if r.Query.Dosage != nil {
		d := *r.Query.Dosage
		out.Query.Dosage = &d
	}
	return out
}

// ComputeCheapest returns the lowest-priced in-stock offer, or the lowest
// priced offer overall when none is in stock. Ties keep the earliest offer.
func ComputeCheapest(offers []PriceOffer) *PriceOffer {
	var best, bestInStock *PriceOffer
	for i := range offers {
		o := &offers[i]
		if best == nil || o.Price < best.Price {
			best = o
		}
		if o.InStock && (bestInStock == nil || o.Price < bestInStock.Price) {
			bestInStock = o
		}
	}
	pick := bestInStock
	if pick == nil {
		pick = best
	}
	if pick == nil {
		return nil
	}
	c := *pick
	return &c
}

// ComputeSavings returns max(price) minus the cheapest price, unrounded.
// It is zero with fewer than two offers.
func ComputeSavings(offers []PriceOffer, cheapest *PriceOffer) float64 {
	if len(offers) < 2 || cheapest == nil {
		return 0
	}
	highest := offers[0].Price
	for _, o := range offers[1:] {
		if o.Price > highest {
			highest = o.Price
		}
	}
	return highest - cheapest.Price
}

// Snapshot is what the aggregator emits each time a source resolves.
type Snapshot struct {
	// Sequence is 1 for the first resolved source and increases by one.
	Sequence int

	// Source is the result that triggered this snapshot.
	Source SourceResult

	// Result is the aggregate after applying Source. It is owned by the
	// receiver.
	Result AggregateResult
}

// IsFinal reports whether this snapshot resolved the last source.
func (s Snapshot) IsFinal() bool {
	return s.Result.IsComplete()
}

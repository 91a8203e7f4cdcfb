package events

import (
	"errors"
	"fmt"

	"github.com/pharmalens/price-compare-service/internal/domain"
)

// Fold rebuilds the running result from a stream's events. It needs the
// started event and folds source_result events in the order given;
// terminal events are ignored.
func Fold(evs []Event) (*domain.AggregateResult, error) {
	var (
		result  domain.AggregateResult
		started bool
	)

	for i, e := range evs {
		switch e.Type {
		case domain.StreamEventStarted:
			if started {
				return nil, fmt.Errorf("event %d: duplicate started event", i)
			}
			ids := make([]string, len(e.Sources))
			for j, s := range e.Sources {
				ids[j] = s.ID
			}
			result = domain.NewAggregateResult(domain.NewQuery(e.Medicine, e.Dosage), ids)
			started = true

		case domain.StreamEventSourceResult:
			if !started {
				return nil, fmt.Errorf("event %d: source_result before started", i)
			}
			if !result.Apply(sourceResultFromEvent(e)) {
				return nil, fmt.Errorf("event %d: unexpected result for pharmacy %q", i, e.PharmacyID)
			}
		}
	}

	if !started {
		return nil, errors.New("no started event")
	}
	out := result.Clone()
	return &out, nil
}

func sourceResultFromEvent(e Event) domain.SourceResult {
	sr := domain.SourceResult{
		PharmacyID:   e.PharmacyID,
		PharmacyName: e.PharmacyName,
		Status:       e.Status,
		Offers:       e.Offers,
	}
	if e.Error != "" {
		sr.Err = errors.New(e.Error)
	}
	return sr
}

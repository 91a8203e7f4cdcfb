package aggregator

import (
	"sync"

	"github.com/pharmalens/price-compare-service/internal/domain"
)

// accumulator holds the running result of one query. Every resolved
// source goes through apply, which updates offers, the completed and
// remaining sets, failures and the cheapest/savings pair under one lock.
type accumulator struct {
	mu       sync.Mutex
	result   domain.AggregateResult
	sequence int
}

func newAccumulator(q domain.Query, pharmacyIDs []string) *accumulator {
	return &accumulator{result: domain.NewAggregateResult(q, pharmacyIDs)}
}

// apply folds sr into the running result and returns the snapshot to emit.
// The second return is false when sr was already applied or is unknown.
func (a *accumulator) apply(sr domain.SourceResult) (domain.Snapshot, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.result.Apply(sr) {
		return domain.Snapshot{}, false
	}
	a.sequence++
	return domain.Snapshot{
		Sequence: a.sequence,
		Source:   sr,
		Result:   a.result.Clone(),
	}, true
}

// snapshot returns a copy of the current result.
func (a *accumulator) snapshot() domain.AggregateResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.result.Clone()
}

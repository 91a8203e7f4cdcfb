// Package aggregator fans one medicine query out to every configured
// pharmacy and combines the answers as they arrive.
//
// Stream is the primary form: it yields one domain.Snapshot per resolved
// pharmacy, in completion order, each carrying the aggregate so far. Run
// drains the same sequence and returns the terminal aggregate.
package aggregator

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/pharmalens/price-compare-service/internal/domain"
	"github.com/pharmalens/price-compare-service/internal/observability"
	"github.com/pharmalens/price-compare-service/internal/pharmacies"
)

// Aggregator runs queries against a set of pharmacy sources.
// It holds no per-query state and is safe for concurrent use.
type Aggregator struct {
	logger  zerolog.Logger
	metrics *observability.Metrics
}

// New creates an Aggregator. The metrics parameter may be nil.
func New(logger zerolog.Logger, metrics *observability.Metrics) *Aggregator {
	return &Aggregator{
		logger:  logger.With().Str("component", "aggregator").Logger(),
		metrics: metrics,
	}
}

// Stream returns the lazy sequence of snapshots for q over sources.
//
// Ranging the sequence dispatches every source concurrently, each with its
// own perSourceTimeout starting at dispatch. One snapshot is yielded per
// resolved source; the last one has no remaining sources. Breaking out of
// the loop or cancelling ctx cancels all in-flight sources and nothing
// further is yielded. Ranging the sequence a second time issues every call
// again.
//
// Stream fails only with domain.ErrNoSourcesConfigured.
func (a *Aggregator) Stream(ctx context.Context, q domain.Query, sources []pharmacies.Source, perSourceTimeout time.Duration) (iter.Seq[domain.Snapshot], error) {
	if len(sources) == 0 {
		a.metrics.RecordSearchUnavailable()
		return nil, domain.ErrNoSourcesConfigured
	}
	sources = slices.Clone(sources)
	ids := pharmacies.IDs(sources)

	return func(yield func(domain.Snapshot) bool) {
		a.run(ctx, q, sources, ids, perSourceTimeout, yield)
	}, nil
}

func (a *Aggregator) run(ctx context.Context, q domain.Query, sources []pharmacies.Source, ids []string, timeout time.Duration, yield func(domain.Snapshot) bool) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := a.logger.With().Str("medicine", q.SearchTerm()).Logger()
	logger.Debug().Int("sources", len(sources)).Dur("per_source_timeout", timeout).Msg("dispatching search")

	start := time.Now()
	a.metrics.RecordSearchStarted()

	// Buffered to len(sources) so no source goroutine blocks once the
	// consumer has gone away.
	results := make(chan domain.SourceResult, len(sources))
	for _, src := range sources {
		go func(s pharmacies.Source) {
			results <- pharmacies.Invoke(runCtx, s, q, timeout)
		}(src)
	}

	acc := newAccumulator(q, ids)
	for range len(sources) {
		var sr domain.SourceResult
		select {
		case <-runCtx.Done():
			a.aborted(logger, acc)
			return
		case sr = <-results:
		}

		if ctx.Err() != nil {
			a.aborted(logger, acc)
			return
		}

		snap, ok := acc.apply(sr)
		if !ok {
			continue
		}
		a.recordSource(logger, sr)

		if snap.IsFinal() {
			a.metrics.RecordSearchCompleted(len(snap.Result.Offers), time.Since(start).Seconds())
			logger.Info().
				Int("offers", len(snap.Result.Offers)).
				Int("failures", len(snap.Result.Failures)).
				Float64("savings", snap.Result.Savings).
				Dur("duration", time.Since(start)).
				Msg("search complete")
		}

		if !yield(snap) {
			if !snap.IsFinal() {
				a.aborted(logger, acc)
			}
			return
		}
	}
}

func (a *Aggregator) aborted(logger zerolog.Logger, acc *accumulator) {
	a.metrics.RecordSearchAborted()
	current := acc.snapshot()
	logger.Info().
		Strs("remaining", current.Remaining).
		Msg("search aborted by consumer")
}

func (a *Aggregator) recordSource(logger zerolog.Logger, sr domain.SourceResult) {
	a.metrics.RecordSourceResult(sr.PharmacyID, string(sr.Status), len(sr.Offers), sr.Duration.Seconds())

	switch sr.Status {
	case domain.SourceStatusSucceeded:
		logger.Debug().
			Str("pharmacy", sr.PharmacyID).
			Int("offers", len(sr.Offers)).
			Dur("duration", sr.Duration).
			Msg("pharmacy search completed")
	default:
		logger.Warn().
			Str("pharmacy", sr.PharmacyID).
			Str("status", string(sr.Status)).
			Err(sr.Err).
			Dur("duration", sr.Duration).
			Msg("pharmacy search failed")
	}
}

// Run executes q over sources and returns the terminal aggregate. Source
// faults never fail Run; they appear in the result's Failures. If ctx is
// cancelled before every source resolves, Run returns an error wrapping
// domain.ErrStreamAborted and ctx.Err().
func (a *Aggregator) Run(ctx context.Context, q domain.Query, sources []pharmacies.Source, perSourceTimeout time.Duration) (*domain.AggregateResult, error) {
	seq, err := a.Stream(ctx, q, sources, perSourceTimeout)
	if err != nil {
		return nil, err
	}

	var (
		final domain.AggregateResult
		seen  bool
	)
	for snap := range seq {
		final = snap.Result
		seen = true
	}

	if !seen || !final.IsComplete() {
		cause := ctx.Err()
		if cause == nil {
			cause = context.Canceled
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrStreamAborted, cause)
	}
	return &final, nil
}

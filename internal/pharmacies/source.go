// Package pharmacies defines the contract every pharmacy source implements
// and the shared plumbing the concrete sources are built on.
//
// Each online pharmacy (PharmEasy, 1mg, Netmeds, Apollo) implements Source.
// Sources never decide timeouts themselves: Invoke wraps a single call with
// its own deadline and turns whatever happened into a domain.SourceResult,
// so the aggregator only ever sees Succeeded, Failed or TimedOut.
//
// Example usage:
//
//	src := pharmeasy.NewClient(pharmeasy.Config{Enabled: true}, nil)
//	res := pharmacies.Invoke(ctx, src, domain.NewQuery("Dolo", "650mg"), 90*time.Second)
//	if res.Status == domain.SourceStatusSucceeded {
//		fmt.Println(len(res.Offers))
//	}
package pharmacies

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pharmalens/price-compare-service/internal/domain"
)

// Source is a single online pharmacy that can be searched for a medicine.
// Implementations must be safe for concurrent use and must not share
// mutable per-request state (cookies, buffers) between calls.
type Source interface {
	// Search returns the offers the pharmacy lists for the query.
	// A pharmacy that lists nothing returns an empty slice and a nil error.
	Search(ctx context.Context, q domain.Query) ([]domain.PriceOffer, error)

	// ID is the stable identifier used in events and results.
	ID() string

	// Name is the human-readable pharmacy name.
	Name() string

	// IsEnabled reports whether the source should be queried.
	IsEnabled() bool
}

// Info describes a registered source for listings.
type Info struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// Describe returns the listing form of a source.
func Describe(src Source) Info {
	return Info{ID: src.ID(), Name: src.Name(), Enabled: src.IsEnabled()}
}

type searchOutcome struct {
	offers []domain.PriceOffer
	err    error
}

// Invoke runs one search against src with its own timeout and classifies
// the outcome. The timeout starts now, not when the query started. If src
// ignores its context the call still resolves as timed out at the
// deadline and the late result is discarded.
//
// A timeout of zero or less means no per-source deadline.
func Invoke(ctx context.Context, src Source, q domain.Query, timeout time.Duration) domain.SourceResult {
	start := time.Now()

	var (
		callCtx context.Context
		cancel  context.CancelFunc
	)
	if timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		callCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	// Buffered so an adapter that outlives the deadline never blocks.
	done := make(chan searchOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- searchOutcome{err: fmt.Errorf("panic in %s search: %v", src.ID(), r)}
			}
		}()
		offers, err := src.Search(callCtx, q)
		done <- searchOutcome{offers: offers, err: err}
	}()

	var result domain.SourceResult
	select {
	case out := <-done:
		result = classify(ctx, callCtx, src, out)
	case <-callCtx.Done():
		result = classify(ctx, callCtx, src, searchOutcome{err: callCtx.Err()})
	}
	result.Duration = time.Since(start)
	return result
}

func classify(parent, callCtx context.Context, src Source, out searchOutcome) domain.SourceResult {
	if out.err == nil {
		return domain.Succeeded(src.ID(), src.Name(), stampOffers(src, out.offers))
	}

	switch {
	case parent.Err() != nil:
		return domain.Failed(src.ID(), src.Name(),
			domain.NewSourceFailedError(src.ID(), fmt.Errorf("%w: %w", domain.ErrStreamAborted, parent.Err())))
	case errors.Is(callCtx.Err(), context.DeadlineExceeded):
		return domain.Failed(src.ID(), src.Name(), domain.NewSourceTimeoutError(src.ID(), out.err))
	default:
		return domain.Failed(src.ID(), src.Name(), domain.NewSourceFailedError(src.ID(), out.err))
	}
}

// stampOffers fills in pharmacy identity and fetch time and drops offers
// that violate the offer invariants.
func stampOffers(src Source, offers []domain.PriceOffer) []domain.PriceOffer {
	now := time.Now().UTC()
	out := make([]domain.PriceOffer, 0, len(offers))
	for _, o := range offers {
		o.PharmacyID = src.ID()
		o.PharmacyName = src.Name()
		if o.FetchedAt.IsZero() {
			o.FetchedAt = now
		}
		if o.PackSize == "" {
			o.PackSize = domain.DefaultPackSize
		}
		if err := o.Validate(); err != nil {
			continue
		}
		out = append(out, o)
	}
	return out
}

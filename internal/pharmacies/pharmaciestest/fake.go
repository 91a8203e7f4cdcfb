// Package pharmaciestest provides scripted pharmacy sources for tests.
package pharmaciestest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pharmalens/price-compare-service/internal/domain"
)

// Source is a scripted pharmacies.Source.
type Source struct {
	id      string
	name    string
	enabled bool

	// Delay is how long Search takes before answering.
	Delay time.Duration

	// IgnoreContext makes Search sleep through cancellation, like an
	// adapter that does not honor its context.
	IgnoreContext bool

	// Offers is returned on success.
	Offers []domain.PriceOffer

	// Err is returned instead of offers when set.
	Err error

	// SearchFunc overrides the scripted behavior when set.
	SearchFunc func(ctx context.Context, q domain.Query) ([]domain.PriceOffer, error)

	calls     atomic.Int32
	cancelled atomic.Int32

	mu      sync.Mutex
	queries []domain.Query
}

// New returns an enabled source that answers immediately with no offers.
func New(id, name string) *Source {
	return &Source{id: id, name: name, enabled: true}
}

// WithOffers sets the offers returned on success. Prices are used as-is.
func (s *Source) WithOffers(prices ...float64) *Source {
	for _, p := range prices {
		s.Offers = append(s.Offers, domain.PriceOffer{
			ProductName: s.name + " product",
			Price:       p,
			InStock:     true,
		})
	}
	return s
}

// WithDelay sets the answer delay.
func (s *Source) WithDelay(d time.Duration) *Source {
	s.Delay = d
	return s
}

// WithError makes the source fail.
func (s *Source) WithError(err error) *Source {
	s.Err = err
	return s
}

// Disabled marks the source as disabled.
func (s *Source) Disabled() *Source {
	s.enabled = false
	return s
}

// Search implements pharmacies.Source.
func (s *Source) Search(ctx context.Context, q domain.Query) ([]domain.PriceOffer, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.queries = append(s.queries, q)
	s.mu.Unlock()

	if s.SearchFunc != nil {
		return s.SearchFunc(ctx, q)
	}

	if s.Delay > 0 {
		if s.IgnoreContext {
			time.Sleep(s.Delay)
		} else {
			timer := time.NewTimer(s.Delay)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				s.cancelled.Add(1)
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
	}

	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]domain.PriceOffer, len(s.Offers))
	copy(out, s.Offers)
	return out, nil
}

// ID implements pharmacies.Source.
func (s *Source) ID() string { return s.id }

// Name implements pharmacies.Source.
func (s *Source) Name() string { return s.name }

// IsEnabled implements pharmacies.Source.
func (s *Source) IsEnabled() bool { return s.enabled }

// Calls returns how many times Search ran.
func (s *Source) Calls() int { return int(s.calls.Load()) }

// Cancelled returns how many searches observed cancellation.
func (s *Source) Cancelled() int { return int(s.cancelled.Load()) }

// Queries returns the queries Search received.
func (s *Source) Queries() []domain.Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Query, len(s.queries))
	copy(out, s.queries)
	return out
}

package pharmacies

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmalens/price-compare-service/internal/domain"
	"github.com/pharmalens/price-compare-service/internal/pharmacies/pharmaciestest"
)

var testQuery = domain.NewQuery("Dolo", "650mg")

func TestInvoke(t *testing.T) {
	t.Run("success stamps pharmacy identity", func(t *testing.T) {
		src := pharmaciestest.New("pharmeasy", "PharmEasy").WithOffers(30, 28.5)

		res := Invoke(context.Background(), src, testQuery, time.Second)

		assert.Equal(t, domain.SourceStatusSucceeded, res.Status)
		require.Len(t, res.Offers, 2)
		for _, o := range res.Offers {
			assert.Equal(t, "pharmeasy", o.PharmacyID)
			assert.Equal(t, "PharmEasy", o.PharmacyName)
			assert.False(t, o.FetchedAt.IsZero())
			assert.Equal(t, domain.DefaultPackSize, o.PackSize)
		}
		assert.Nil(t, res.Err)
		assert.Equal(t, []domain.Query{testQuery}, src.Queries())
	})

	t.Run("no match is success with zero offers", func(t *testing.T) {
		res := Invoke(context.Background(), pharmaciestest.New("apollo", "Apollo"), testQuery, time.Second)

		assert.Equal(t, domain.SourceStatusSucceeded, res.Status)
		assert.NotNil(t, res.Offers)
		assert.Empty(t, res.Offers)
	})

	t.Run("negative prices are dropped", func(t *testing.T) {
		src := pharmaciestest.New("netmeds", "Netmeds").WithOffers(-1, 12)

		res := Invoke(context.Background(), src, testQuery, time.Second)

		require.Len(t, res.Offers, 1)
		assert.Equal(t, 12.0, res.Offers[0].Price)
	})

	t.Run("adapter error is failed", func(t *testing.T) {
		src := pharmaciestest.New("1mg", "1mg").WithError(errors.New("parse error"))

		res := Invoke(context.Background(), src, testQuery, time.Second)

		assert.Equal(t, domain.SourceStatusFailed, res.Status)
		assert.ErrorIs(t, res.Err, domain.ErrSourceFailed)
		assert.Contains(t, res.ErrorMessage(), "parse error")
		assert.Empty(t, res.Offers)
	})

	t.Run("deadline yields timed out", func(t *testing.T) {
		src := pharmaciestest.New("netmeds", "Netmeds").WithOffers(10).WithDelay(time.Second)

		res := Invoke(context.Background(), src, testQuery, 20*time.Millisecond)

		assert.Equal(t, domain.SourceStatusTimedOut, res.Status)
		assert.ErrorIs(t, res.Err, domain.ErrSourceTimedOut)
		assert.Less(t, res.Duration, 500*time.Millisecond)
	})

	t.Run("adapter ignoring its context still times out at the deadline", func(t *testing.T) {
		src := pharmaciestest.New("apollo", "Apollo").WithOffers(10).WithDelay(300 * time.Millisecond)
		src.IgnoreContext = true

		start := time.Now()
		res := Invoke(context.Background(), src, testQuery, 20*time.Millisecond)

		assert.Equal(t, domain.SourceStatusTimedOut, res.Status)
		assert.Less(t, time.Since(start), 200*time.Millisecond)
	})

	t.Run("parent cancellation is an aborted failure, not a timeout", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		src := pharmaciestest.New("pharmeasy", "PharmEasy").WithDelay(time.Second)

		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()
		res := Invoke(ctx, src, testQuery, time.Second)

		assert.Equal(t, domain.SourceStatusFailed, res.Status)
		assert.ErrorIs(t, res.Err, domain.ErrStreamAborted)
		assert.ErrorIs(t, res.Err, context.Canceled)
	})

	t.Run("panic is contained", func(t *testing.T) {
		src := pharmaciestest.New("1mg", "1mg")
		src.SearchFunc = func(context.Context, domain.Query) ([]domain.PriceOffer, error) {
			panic("boom")
		}

		res := Invoke(context.Background(), src, testQuery, time.Second)

		assert.Equal(t, domain.SourceStatusFailed, res.Status)
		assert.Contains(t, res.ErrorMessage(), "boom")
	})

	t.Run("zero timeout means no deadline", func(t *testing.T) {
		src := pharmaciestest.New("1mg", "1mg").WithOffers(5).WithDelay(10 * time.Millisecond)

		res := Invoke(context.Background(), src, testQuery, 0)

		assert.Equal(t, domain.SourceStatusSucceeded, res.Status)
	})
}

func TestRegistry(t *testing.T) {
	t.Run("preserves registration order", func(t *testing.T) {
		r := NewRegistry()
		r.Register(pharmaciestest.New("pharmeasy", "PharmEasy"))
		r.Register(pharmaciestest.New("1mg", "1mg"))
		r.Register(pharmaciestest.New("netmeds", "Netmeds"))

		assert.Equal(t, []string{"pharmeasy", "1mg", "netmeds"}, IDs(r.Enabled()))
		assert.Equal(t, 3, r.Len())
	})

	t.Run("re-registering replaces in place", func(t *testing.T) {
		r := NewRegistry()
		r.Register(pharmaciestest.New("a", "A"))
		r.Register(pharmaciestest.New("b", "B"))
		replacement := pharmaciestest.New("a", "A2")
		r.Register(replacement)

		assert.Equal(t, []string{"a", "b"}, IDs(r.Enabled()))
		assert.Same(t, replacement, r.Enabled()[0])
	})

	t.Run("enabled filters disabled sources", func(t *testing.T) {
		r := NewRegistry()
		r.Register(pharmaciestest.New("a", "A"))
		r.Register(pharmaciestest.New("b", "B").Disabled())
		r.Register(pharmaciestest.New("c", "C"))

		assert.Equal(t, []string{"a", "c"}, IDs(r.Enabled()))
		assert.Equal(t, 3, r.Len())
	})
}

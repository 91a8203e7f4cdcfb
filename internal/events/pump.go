package events

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/pharmalens/price-compare-service/internal/domain"
)

// Pump writes started, then one source_result per snapshot of seq, then
// complete. It returns the final result.
//
// If ctx is cancelled or a write fails, Pump stops consuming seq, which
// cancels every in-flight pharmacy, and returns an error wrapping
// domain.ErrStreamAborted without writing a terminal event.
func Pump(ctx context.Context, w Writer, started Event, seq iter.Seq[domain.Snapshot]) (*domain.AggregateResult, error) {
	if err := w.WriteEvent(started); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStreamAborted, err)
	}

	var (
		last     domain.Snapshot
		seen     bool
		writeErr error
	)
	for snap := range seq {
		if err := w.WriteEvent(SourceResult(started.SearchID, snap)); err != nil {
			writeErr = err
			break
		}
		last = snap
		seen = true
	}

	switch {
	case writeErr != nil:
		return nil, fmt.Errorf("%w: %w", domain.ErrStreamAborted, writeErr)
	case !seen || !last.IsFinal():
		cause := ctx.Err()
		if cause == nil {
			cause = context.Canceled
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrStreamAborted, cause)
	}

	final := last.Result
	if err := w.WriteEvent(Complete(started.SearchID, final)); err != nil {
		return &final, fmt.Errorf("%w: %w", domain.ErrStreamAborted, err)
	}
	return &final, nil
}

// WriteFailure writes the terminal error event for err unless err is a
// stream abort, which ends the stream silently.
func WriteFailure(w Writer, searchID string, err error) error {
	if errors.Is(err, domain.ErrStreamAborted) {
		return nil
	}
	return w.WriteEvent(Failure(searchID, err))
}

package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pharmalens/price-compare-service/internal/domain"
	"github.com/pharmalens/price-compare-service/internal/observability"
	"github.com/pharmalens/price-compare-service/internal/outbox"
)

// SearchBatch runs every query of a prescription and builds the
// cross-medicine summary once all of them are terminal.
//
// Medicines run concurrently, at most BatchConcurrency at a time. A
// medicine whose pharmacies all fail still appears with an empty result;
// it never aborts the others. Entries keep input order, duplicates
// included.
func (o *Orchestrator) SearchBatch(ctx context.Context, queries []domain.Query) (*BatchOutcome, error) {
	if len(queries) == 0 {
		return nil, domain.NewValidationError("medicines", "at least one medicine is required")
	}
	if len(queries) > MaxBatchSize {
		return nil, domain.NewValidationError("medicines", fmt.Sprintf("at most %d medicines per batch", MaxBatchSize))
	}
	for i, q := range queries {
		if err := q.Validate(); err != nil {
			var ve *domain.ValidationError
			if errors.As(err, &ve) {
				return nil, domain.NewValidationError(fmt.Sprintf("medicines[%d].%s", i, ve.Field), ve.Message)
			}
			return nil, err
		}
	}

	sources := o.sources.Enabled()
	if len(sources) == 0 {
		o.metrics.RecordSearchUnavailable()
		return nil, domain.ErrNoSourcesConfigured
	}

	searchID := uuid.New()
	logger := o.logger.With().
		Str("search_id", searchID.String()).
		Int("medicines", len(queries)).
		Logger()
	logger.Info().Msg("batch search started")

	results := make([]domain.MedicineResult, len(queries))

	var g errgroup.Group
	g.SetLimit(o.cfg.BatchConcurrency)
	for i, q := range queries {
		g.Go(func() error {
			if ctx.Err() != nil {
				results[i] = domain.MedicineResult{Query: q, Error: abortError(ctx).Error()}
				return nil
			}
			mr, err := o.searchOne(ctx, q, sources)
			if err != nil {
				mr.Error = err.Error()
				logger.Warn().Err(err).Str("medicine", q.SearchTerm()).Msg("medicine search did not complete")
			}
			results[i] = mr
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		logger.Info().Msg("batch search aborted")
		return nil, abortError(ctx)
	}

	summary := domain.NewCrossMedicineSummary(results)
	o.metrics.RecordBatch(len(queries), summary.TotalSavings)
	logger.Info().Float64("total_savings", summary.TotalSavings).Msg("batch search complete")

	o.recordBatch(ctx, searchID, summary)
	return &BatchOutcome{SearchID: searchID, CrossMedicineSummary: summary}, nil
}

func (o *Orchestrator) recordBatch(ctx context.Context, searchID uuid.UUID, summary *domain.CrossMedicineSummary) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()
	logger := o.logger.With().Str("search_id", searchID.String()).Logger()
	userID := observability.UserIDFromContext(ctx)

	if o.history != nil {
		record, err := domain.NewSearchRecordFromSummary(searchID, summary)
		if err == nil {
			record.UserID = optionalString(userID)
			err = o.history.Save(ctx, record)
		}
		if err != nil {
			o.metrics.RecordHistorySaveFailed()
			logger.Error().Err(err).Msg("failed to save batch history")
		}
	}

	names := make([]string, len(summary.Medicines))
	for i, m := range summary.Medicines {
		names[i] = m.Query.MedicineName
	}
	o.publish(ctx, logger, outbox.EmitParams{
		SearchID:      searchID.String(),
		AggregateType: outbox.AggregateTypeBatch,
		EventType:     domain.EventTypeBatchCompleted,
		Payload: domain.BatchCompletedPayload{
			SearchID:     searchID.String(),
			Medicines:    names,
			TotalSavings: summary.TotalSavings,
		},
		UserID:    userID,
		RequestID: observability.RequestIDFromContext(ctx),
	})
}

// IsAborted reports whether err means the caller went away.
func IsAborted(err error) bool {
	return errors.Is(err, domain.ErrStreamAborted)
}

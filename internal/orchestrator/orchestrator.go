// Package orchestrator drives medicine searches end to end: it picks the
// enabled pharmacies, runs the aggregator for one medicine or a whole
// prescription, and records finished searches in history and the outbox.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pharmalens/price-compare-service/internal/aggregator"
	"github.com/pharmalens/price-compare-service/internal/domain"
	"github.com/pharmalens/price-compare-service/internal/events"
	"github.com/pharmalens/price-compare-service/internal/observability"
	"github.com/pharmalens/price-compare-service/internal/outbox"
	"github.com/pharmalens/price-compare-service/internal/pharmacies"
)

const (
	// DefaultPerSourceTimeout is the budget each pharmacy gets per query.
	DefaultPerSourceTimeout = 90 * time.Second

	// DefaultBatchConcurrency bounds how many medicines of a batch run at once.
	DefaultBatchConcurrency = 3

	// MaxBatchSize is the largest accepted prescription batch.
	MaxBatchSize = domain.MaxBatchSize

	sideEffectTimeout = 5 * time.Second
)

// SourceProvider supplies the pharmacies a query is issued to.
type SourceProvider interface {
	Enabled() []pharmacies.Source
}

// HistoryStore persists finished searches.
type HistoryStore interface {
	Save(ctx context.Context, record *domain.SearchRecord) error
}

// Publisher publishes search lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, params outbox.EmitParams) error
}

// Config controls query execution.
type Config struct {
	// PerSourceTimeout is each pharmacy's independent deadline.
	PerSourceTimeout time.Duration

	// BatchConcurrency bounds concurrently running medicines in a batch.
	BatchConcurrency int

	// FallbackEnabled retries a medicine with zero offers once under its
	// first generic/brand alternative name.
	FallbackEnabled bool
}

// DefaultConfig returns the default orchestrator configuration.
func DefaultConfig() Config {
	return Config{
		PerSourceTimeout: DefaultPerSourceTimeout,
		BatchConcurrency: DefaultBatchConcurrency,
	}
}

// Outcome is the terminal result of a single-medicine search.
type Outcome struct {
	SearchID uuid.UUID `json:"search_id"`
	domain.MedicineResult
}

// BatchOutcome is the terminal result of a prescription batch.
type BatchOutcome struct {
	SearchID uuid.UUID `json:"search_id"`
	*domain.CrossMedicineSummary
}

// Orchestrator runs single and batch searches.
type Orchestrator struct {
	sources    SourceProvider
	aggregator *aggregator.Aggregator
	history    HistoryStore
	publisher  Publisher
	cfg        Config
	logger     zerolog.Logger
	metrics    *observability.Metrics
}

// New creates an Orchestrator. history and publisher may be nil, in which
// case finished searches are neither stored nor published. metrics may be nil.
func New(
	cfg Config,
	sources SourceProvider,
	agg *aggregator.Aggregator,
	history HistoryStore,
	publisher Publisher,
	logger zerolog.Logger,
	metrics *observability.Metrics,
) *Orchestrator {
	if cfg.PerSourceTimeout <= 0 {
		cfg.PerSourceTimeout = DefaultPerSourceTimeout
	}
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = DefaultBatchConcurrency
	}
	return &Orchestrator{
		sources:    sources,
		aggregator: agg,
		history:    history,
		publisher:  publisher,
		cfg:        cfg,
		logger:     logger.With().Str("component", "orchestrator").Logger(),
		metrics:    metrics,
	}
}

// Config returns the effective configuration.
func (o *Orchestrator) Config() Config {
	return o.cfg
}

// Pharmacies describes the pharmacies queries are currently issued to.
func (o *Orchestrator) Pharmacies() []pharmacies.Info {
	enabled := o.sources.Enabled()
	out := make([]pharmacies.Info, len(enabled))
	for i, s := range enabled {
		out[i] = pharmacies.Describe(s)
	}
	return out
}

// Search runs one query to completion across every enabled pharmacy.
//
// Pharmacy faults never fail Search. It fails with a validation error for
// a bad query, domain.ErrNoSourcesConfigured when no pharmacy is enabled,
// or domain.ErrStreamAborted when ctx is cancelled first.
func (o *Orchestrator) Search(ctx context.Context, q domain.Query) (*Outcome, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	searchID := uuid.New()
	logger := observability.WithSearchContext(o.logger, searchID.String(), q.SearchTerm())

	mr, err := o.searchOne(ctx, q, o.sources.Enabled())
	if err != nil {
		logger.Warn().Err(err).Msg("search did not complete")
		return nil, err
	}

	o.recordSearch(ctx, logger, searchID, mr)
	return &Outcome{SearchID: searchID, MedicineResult: mr}, nil
}

// Stream runs one query and writes its events to w as pharmacies resolve.
//
// A query that cannot start ends the stream with an error event. When ctx
// is cancelled or w fails, the in-flight pharmacies are cancelled and no
// terminal event is written. Streaming searches do not use the fallback
// name, since one stream describes exactly one query.
func (o *Orchestrator) Stream(ctx context.Context, q domain.Query, w events.Writer) (*Outcome, error) {
	searchID := uuid.New()

	if err := q.Validate(); err != nil {
		_ = events.WriteFailure(w, searchID.String(), err)
		return nil, err
	}

	logger := observability.WithSearchContext(o.logger, searchID.String(), q.SearchTerm())
	sources := o.sources.Enabled()

	seq, err := o.aggregator.Stream(ctx, q, sources, o.cfg.PerSourceTimeout)
	if err != nil {
		if werr := events.WriteFailure(w, searchID.String(), err); werr != nil {
			logger.Debug().Err(werr).Msg("failed to write error event")
		}
		return nil, err
	}

	infos := make([]pharmacies.Info, len(sources))
	for i, s := range sources {
		infos[i] = pharmacies.Describe(s)
	}

	final, err := events.Pump(ctx, w, events.Started(searchID.String(), q, infos), seq)
	if err != nil {
		logger.Info().Err(err).Msg("stream ended before completion")
		if final == nil {
			return nil, err
		}
	}

	mr := domain.MedicineResult{Query: q, Result: final}
	o.recordSearch(ctx, logger, searchID, mr)
	return &Outcome{SearchID: searchID, MedicineResult: mr}, err
}

// searchOne runs q and, when enabled and nothing was found, one fallback
// query under the first alternative name.
func (o *Orchestrator) searchOne(ctx context.Context, q domain.Query, sources []pharmacies.Source) (domain.MedicineResult, error) {
	result, err := o.aggregator.Run(ctx, q, sources, o.cfg.PerSourceTimeout)
	if err != nil {
		return domain.MedicineResult{Query: q}, err
	}
	mr := domain.MedicineResult{Query: q, Result: result}

	if !o.cfg.FallbackEnabled || len(result.Offers) > 0 {
		return mr, nil
	}

	alternatives := domain.AlternativeNames(q.MedicineName)
	if len(alternatives) == 0 {
		return mr, nil
	}

	term := alternatives[0]
	o.logger.Debug().
		Str("medicine", q.MedicineName).
		Str("fallback_term", term).
		Msg("no offers found, retrying with alternative name")

	alt, err := o.aggregator.Run(ctx, q.WithMedicineName(term), sources, o.cfg.PerSourceTimeout)
	if err != nil {
		if errors.Is(err, domain.ErrStreamAborted) {
			return mr, err
		}
		return mr, nil
	}
	if len(alt.Offers) == 0 {
		return mr, nil
	}
	return domain.MedicineResult{Query: q, Result: alt, FallbackTerm: term}, nil
}

// recordSearch stores and publishes a finished single search. Failures are
// logged and counted, never returned.
func (o *Orchestrator) recordSearch(ctx context.Context, logger zerolog.Logger, searchID uuid.UUID, mr domain.MedicineResult) {
	if mr.Result == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()
	userID := observability.UserIDFromContext(ctx)

	if o.history != nil {
		record, err := domain.NewSearchRecordFromResult(searchID, mr.Result)
		if err == nil {
			record.UserID = optionalString(userID)
			err = o.history.Save(ctx, record)
		}
		if err != nil {
			o.metrics.RecordHistorySaveFailed()
			logger.Error().Err(err).Msg("failed to save search history")
		}
	}

	payload := searchCompletedPayload(searchID, mr)
	o.publish(ctx, logger, outbox.EmitParams{
		SearchID:      searchID.String(),
		AggregateType: outbox.AggregateTypeSearch,
		EventType:     domain.EventTypeSearchCompleted,
		Payload:       payload,
		UserID:        userID,
		RequestID:     observability.RequestIDFromContext(ctx),
	})
}

func (o *Orchestrator) publish(ctx context.Context, logger zerolog.Logger, params outbox.EmitParams) {
	if o.publisher == nil {
		return
	}
	if err := o.publisher.Publish(ctx, params); err != nil {
		o.metrics.RecordOutboxFailed(params.EventType)
		logger.Error().Err(err).Str("event_type", params.EventType).Msg("failed to publish event")
		return
	}
	o.metrics.RecordOutboxPublished(params.EventType)
}

func searchCompletedPayload(searchID uuid.UUID, mr domain.MedicineResult) domain.SearchCompletedPayload {
	r := mr.Result
	p := domain.SearchCompletedPayload{
		SearchID:     searchID.String(),
		MedicineName: mr.Query.MedicineName,
		Dosage:       mr.Query.DosageValue(),
		OfferCount:   len(r.Offers),
		Savings:      r.Savings,
		FailedCount:  len(r.Failures),
	}
	if r.Cheapest != nil {
		price := r.Cheapest.Price
		p.Cheapest = &price
		p.CheapestFrom = r.Cheapest.PharmacyID
	}
	return p
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func abortError(ctx context.Context) error {
	cause := ctx.Err()
	if cause == nil {
		cause = context.Canceled
	}
	return fmt.Errorf("%w: %w", domain.ErrStreamAborted, cause)
}

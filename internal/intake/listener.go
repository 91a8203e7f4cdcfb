// Package intake consumes parsed prescriptions from Kafka and runs a batch
// price search for each one.
package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/pharmalens/price-compare-service/internal/domain"
	"github.com/pharmalens/price-compare-service/internal/observability"
	"github.com/pharmalens/price-compare-service/internal/orchestrator"
)

// PrescriptionParsedEvent is published by the prescription pipeline once
// OCR and parsing have produced a medicine list.
type PrescriptionParsedEvent struct {
	PrescriptionID string               `json:"prescription_id"`
	UserID         string               `json:"user_id,omitempty"`
	Medicines      []PrescribedMedicine `json:"medicines"`
}

// PrescribedMedicine is one line of a parsed prescription.
type PrescribedMedicine struct {
	Name   string `json:"name"`
	Dosage string `json:"dosage,omitempty"`
}

// BatchSearcher runs a prescription batch.
type BatchSearcher interface {
	SearchBatch(ctx context.Context, queries []domain.Query) (*orchestrator.BatchOutcome, error)
}

// MessageReader is the subset of *kafka.Reader used by the listener.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Config holds configuration for the prescription listener.
type Config struct {
	// Brokers is the list of Kafka broker addresses.
	Brokers []string
	// Topic is the Kafka topic for parsed prescriptions.
	Topic string
	// GroupID is the consumer group ID.
	GroupID string
}

// Listener consumes prescription events and searches their medicines.
type Listener struct {
	reader   MessageReader
	searcher BatchSearcher
	logger   zerolog.Logger
}

// NewListener creates a listener reading from Kafka.
func NewListener(cfg Config, searcher BatchSearcher, logger zerolog.Logger) *Listener {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  3 * time.Second,
	})
	return NewListenerWithReader(reader, searcher, logger)
}

// NewListenerWithReader creates a listener over an existing reader.
func NewListenerWithReader(reader MessageReader, searcher BatchSearcher, logger zerolog.Logger) *Listener {
	return &Listener{
		reader:   reader,
		searcher: searcher,
		logger:   logger.With().Str("component", "prescription_listener").Logger(),
	}
}

// Run starts the listener loop. Blocks until context is cancelled.
func (l *Listener) Run(ctx context.Context) error {
	l.logger.Info().Msg("starting prescription listener")

	for {
		msg, err := l.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				l.logger.Info().Msg("prescription listener stopped via context cancellation")
				return ctx.Err()
			}
			l.logger.Error().Err(err).Msg("failed to read message from Kafka")
			continue
		}

		l.logger.Debug().
			Int("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Msg("received prescription event")

		var event PrescriptionParsedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			l.logger.Error().Err(err).
				Str("raw_value", string(msg.Value)).
				Msg("failed to unmarshal prescription event")
			continue
		}

		if err := l.handlePrescription(ctx, event); err != nil {
			l.logger.Error().Err(err).
				Str("prescription_id", event.PrescriptionID).
				Msg("failed to handle prescription event")
		}
	}
}

// handlePrescription runs one batch search for a parsed prescription.
func (l *Listener) handlePrescription(ctx context.Context, event PrescriptionParsedEvent) error {
	queries := Queries(event.Medicines)
	if len(queries) == 0 {
		l.logger.Debug().
			Str("prescription_id", event.PrescriptionID).
			Msg("prescription has no searchable medicines")
		return nil
	}

	if event.UserID != "" {
		ctx = observability.WithUserID(ctx, event.UserID)
	}
	if event.PrescriptionID != "" {
		ctx = observability.WithRequestID(ctx, event.PrescriptionID)
	}

	out, err := l.searcher.SearchBatch(ctx, queries)
	if err != nil {
		return fmt.Errorf("search batch: %w", err)
	}

	l.logger.Info().
		Str("prescription_id", event.PrescriptionID).
		Str("search_id", out.SearchID.String()).
		Int("medicines", len(queries)).
		Float64("total_savings", out.TotalSavings).
		Msg("prescription searched")
	return nil
}

// Queries normalizes prescription lines into queries, dropping lines with
// no usable name.
func Queries(medicines []PrescribedMedicine) []domain.Query {
	out := make([]domain.Query, 0, len(medicines))
	for _, m := range medicines {
		q := domain.NormalizeQuery(m.Name, m.Dosage)
		if q.Validate() != nil {
			continue
		}
		out = append(out, q)
	}
	return out
}

// Close closes the Kafka reader.
func (l *Listener) Close() error {
	l.logger.Info().Msg("closing prescription listener")
	return l.reader.Close()
}

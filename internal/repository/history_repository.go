package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/pharmalens/price-compare-service/internal/domain"
)

// SearchHistoryRepository stores completed single and batch searches.
type SearchHistoryRepository interface {
	// Save inserts a completed search record.
	// Returns domain.ErrAlreadyExists if a record with the same ID already exists.
	// Returns domain.ErrInvalidInput if required fields are missing.
	Save(ctx context.Context, record *domain.SearchRecord) error

	// Get retrieves a search record by its ID.
	// Returns domain.ErrNotFound if no matching record exists.
	Get(ctx context.Context, id uuid.UUID) (*domain.SearchRecord, error)

	// List retrieves records newest first together with the total count of
	// matching records, which ignores limit and offset.
	List(ctx context.Context, filter domain.HistoryFilter) ([]*domain.SearchRecord, int64, error)
}

// validateRecord checks the fields every implementation requires.
func validateRecord(record *domain.SearchRecord) error {
	if record == nil {
		return domain.NewValidationError("record", "record is required")
	}
	if record.ID == uuid.Nil {
		return domain.NewValidationError("id", "record ID is required")
	}
	switch record.Kind {
	case domain.SearchKindSingle, domain.SearchKindBatch:
	default:
		return domain.NewValidationError("kind", "kind must be single or batch")
	}
	if len(record.Medicines) == 0 {
		return domain.NewValidationError("medicines", "at least one medicine is required")
	}
	return nil
}

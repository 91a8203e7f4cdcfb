package repository

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/pharmalens/price-compare-service/internal/domain"
)

// MemorySearchHistoryRepository keeps search history in process memory.
// It is used when no database is configured.
type MemorySearchHistoryRepository struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*domain.SearchRecord
}

// NewMemorySearchHistoryRepository creates an empty in-memory history.
func NewMemorySearchHistoryRepository() *MemorySearchHistoryRepository {
	return &MemorySearchHistoryRepository{
		records: make(map[uuid.UUID]*domain.SearchRecord),
	}
}

// Compile-time check that MemorySearchHistoryRepository implements SearchHistoryRepository.
var _ SearchHistoryRepository = (*MemorySearchHistoryRepository)(nil)

// Save stores a copy of the record.
func (r *MemorySearchHistoryRepository) Save(_ context.Context, record *domain.SearchRecord) error {
	if err := validateRecord(record); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[record.ID]; exists {
		return domain.NewAlreadyExistsError("search", record.ID.String())
	}
	r.records[record.ID] = copyRecord(record)
	return nil
}

// Get returns a copy of the record with the given ID.
func (r *MemorySearchHistoryRepository) Get(_ context.Context, id uuid.UUID) (*domain.SearchRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[id]
	if !ok {
		return nil, domain.NewNotFoundError("search", id.String())
	}
	return copyRecord(record), nil
}

// List returns matching records newest first.
func (r *MemorySearchHistoryRepository) List(_ context.Context, filter domain.HistoryFilter) ([]*domain.SearchRecord, int64, error) {
	applyPaginationDefaults(&filter.Limit, &filter.Offset)

	r.mu.RLock()
	matched := make([]*domain.SearchRecord, 0, len(r.records))
	for _, record := range r.records {
		if filter.UserID != nil && (record.UserID == nil || *record.UserID != *filter.UserID) {
			continue
		}
		matched = append(matched, record)
	}
	r.mu.RUnlock()

	slices.SortFunc(matched, func(a, b *domain.SearchRecord) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return slices.Compare(a.ID[:], b.ID[:])
	})

	total := int64(len(matched))
	if filter.Offset >= len(matched) {
		return []*domain.SearchRecord{}, total, nil
	}
	end := min(filter.Offset+filter.Limit, len(matched))

	page := make([]*domain.SearchRecord, 0, end-filter.Offset)
	for _, record := range matched[filter.Offset:end] {
		page = append(page, copyRecord(record))
	}
	return page, total, nil
}

func copyRecord(record *domain.SearchRecord) *domain.SearchRecord {
	c := *record
	c.Medicines = slices.Clone(record.Medicines)
	c.Results = slices.Clone(record.Results)
	if record.UserID != nil {
		userID := *record.UserID
		c.UserID = &userID
	}
	return &c
}

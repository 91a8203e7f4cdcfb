// Package repository provides persistence for search history.
//
// # Overview
//
// SearchHistoryRepository abstracts where completed searches are kept. The
// PostgreSQL implementation is used when a database is configured; the
// in-memory implementation backs local runs and tests.
//
// # Thread Safety
//
// All repository implementations are safe for concurrent use by multiple goroutines.
// The underlying pgxpool handles connection pooling and synchronization.
//
// # Error Handling
//
// All methods return domain-specific errors from the domain package.
// Database errors are wrapped with fmt.Errorf and the %w verb.
//
//   - domain.ErrNotFound: Record does not exist
//   - domain.ErrAlreadyExists: Unique constraint violation
//   - domain.ErrInvalidInput: Invalid parameters provided
//
// # Usage Pattern
//
//	db, _ := database.New(ctx, cfg, logger)
//	history := repository.NewPgSearchHistoryRepository(db)
package repository

import (
	"github.com/pharmalens/price-compare-service/internal/database"
)

// DBTX is the database interface supporting both pool and transaction contexts.
type DBTX = database.DBTX

// Filter pagination defaults and limits.
const (
	defaultFilterLimit = 100
	maxFilterLimit     = 1000
)

// applyPaginationDefaults normalizes limit and offset values for filter queries.
// It clamps limit to [1, maxFilterLimit] and ensures offset >= 0.
func applyPaginationDefaults(limit, offset *int) {
	if *limit <= 0 {
		*limit = defaultFilterLimit
	}
	if *limit > maxFilterLimit {
		*limit = maxFilterLimit
	}
	if *offset < 0 {
		*offset = 0
	}
}

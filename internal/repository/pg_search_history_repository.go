package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pharmalens/price-compare-service/internal/domain"
)

// PostgreSQL error codes used for constraint violation detection.
const pgUniqueViolation = "23505" // unique_violation

const historyColumns = `id, kind, user_id, medicines, results, total_savings, offer_count, created_at`

// PgSearchHistoryRepository implements SearchHistoryRepository using PostgreSQL.
type PgSearchHistoryRepository struct {
	db DBTX
}

// NewPgSearchHistoryRepository creates a new PostgreSQL history repository.
func NewPgSearchHistoryRepository(db DBTX) *PgSearchHistoryRepository {
	return &PgSearchHistoryRepository{db: db}
}

// Compile-time check that PgSearchHistoryRepository implements SearchHistoryRepository.
var _ SearchHistoryRepository = (*PgSearchHistoryRepository)(nil)

// Save inserts a completed search record.
func (r *PgSearchHistoryRepository) Save(ctx context.Context, record *domain.SearchRecord) error {
	if err := validateRecord(record); err != nil {
		return err
	}

	medicinesJSON, err := json.Marshal(record.Medicines)
	if err != nil {
		return fmt.Errorf("failed to marshal medicines: %w", err)
	}

	results := []byte(record.Results)
	if len(results) == 0 {
		results = []byte("null")
	}

	query := `
		INSERT INTO search_history (
			id, kind, user_id, medicines, results, total_savings, offer_count, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)`

	_, err = r.db.Exec(ctx, query,
		record.ID, record.Kind, record.UserID, medicinesJSON, results,
		record.TotalSavings, record.OfferCount, record.CreatedAt,
	)
	if err != nil {
		if isPgUniqueViolation(err) {
			return domain.NewAlreadyExistsError("search", record.ID.String())
		}
		return fmt.Errorf("failed to save search: %w", err)
	}

	return nil
}

// Get retrieves a search record by its ID.
func (r *PgSearchHistoryRepository) Get(ctx context.Context, id uuid.UUID) (*domain.SearchRecord, error) {
	query := `SELECT ` + historyColumns + ` FROM search_history WHERE id = $1`

	record, err := scanRecord(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("search", id.String())
		}
		return nil, fmt.Errorf("failed to get search: %w", err)
	}

	return record, nil
}

// List retrieves search records matching the filter, newest first.
func (r *PgSearchHistoryRepository) List(ctx context.Context, filter domain.HistoryFilter) ([]*domain.SearchRecord, int64, error) {
	applyPaginationDefaults(&filter.Limit, &filter.Offset)

	var conditions []string
	var args []interface{}
	argIndex := 1

	if filter.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argIndex))
		args = append(args, *filter.UserID)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT COUNT(*) FROM search_history" + whereClause
	var totalCount int64
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count searches: %w", err)
	}

	selectQuery := fmt.Sprintf(`SELECT %s FROM search_history%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		historyColumns, whereClause, argIndex, argIndex+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list searches: %w", err)
	}
	defer rows.Close()

	records := make([]*domain.SearchRecord, 0, filter.Limit)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan search: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating searches: %w", err)
	}

	return records, totalCount, nil
}

// isPgUniqueViolation checks if the error is a PostgreSQL unique constraint violation.
func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return false
}

// scanRecord scans one search_history row from either pgx.Row or pgx.Rows.
func scanRecord(row pgx.Row) (*domain.SearchRecord, error) {
	var (
		record        domain.SearchRecord
		medicinesJSON []byte
		resultsJSON   []byte
	)

	err := row.Scan(
		&record.ID, &record.Kind, &record.UserID, &medicinesJSON, &resultsJSON,
		&record.TotalSavings, &record.OfferCount, &record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(medicinesJSON) > 0 {
		if err := json.Unmarshal(medicinesJSON, &record.Medicines); err != nil {
			return nil, fmt.Errorf("failed to unmarshal medicines: %w", err)
		}
	}
	if len(resultsJSON) > 0 {
		record.Results = json.RawMessage(resultsJSON)
	}

	return &record, nil
}

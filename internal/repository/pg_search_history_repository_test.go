package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmalens/price-compare-service/internal/domain"
)

var historyRowColumns = []string{
	"id", "kind", "user_id", "medicines", "results", "total_savings", "offer_count", "created_at",
}

// Helper to create a valid record for testing.
func newTestRecord() *domain.SearchRecord {
	return &domain.SearchRecord{
		ID:           uuid.New(),
		Kind:         domain.SearchKindSingle,
		Medicines:    []string{"Dolo 650"},
		Results:      json.RawMessage(`{"savings":8}`),
		TotalSavings: 8,
		OfferCount:   3,
		CreatedAt:    time.Now().UTC(),
	}
}

func TestPgSearchHistoryRepository_Save(t *testing.T) {
	ctx := context.Background()

	t.Run("saves record successfully", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgSearchHistoryRepository(mock)
		record := newTestRecord()

		mock.ExpectExec("INSERT INTO search_history").
			WithArgs(
				record.ID, record.Kind, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				record.TotalSavings, record.OfferCount, pgxmock.AnyArg(),
			).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err = repo.Save(ctx, record)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns validation error for nil record", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgSearchHistoryRepository(mock)
		err = repo.Save(ctx, nil)

		var validationErr *domain.ValidationError
		assert.True(t, errors.As(err, &validationErr))
		assert.Equal(t, "record", validationErr.Field)
	})

	t.Run("returns validation error for missing ID", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgSearchHistoryRepository(mock)
		record := newTestRecord()
		record.ID = uuid.Nil

		err = repo.Save(ctx, record)

		var validationErr *domain.ValidationError
		assert.True(t, errors.As(err, &validationErr))
		assert.Equal(t, "id", validationErr.Field)
	})

	t.Run("returns validation error for unknown kind", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgSearchHistoryRepository(mock)
		record := newTestRecord()
		record.Kind = "weekly"

		err = repo.Save(ctx, record)

		var validationErr *domain.ValidationError
		assert.True(t, errors.As(err, &validationErr))
		assert.Equal(t, "kind", validationErr.Field)
	})

	t.Run("returns already exists on unique violation", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgSearchHistoryRepository(mock)
		record := newTestRecord()

		mock.ExpectExec("INSERT INTO search_history").
			WithArgs(
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			).
			WillReturnError(&pgconn.PgError{Code: pgUniqueViolation})

		err = repo.Save(ctx, record)
		assert.True(t, errors.Is(err, domain.ErrAlreadyExists))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wraps database errors", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgSearchHistoryRepository(mock)
		record := newTestRecord()

		mock.ExpectExec("INSERT INTO search_history").
			WithArgs(
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			).
			WillReturnError(errors.New("connection reset"))

		err = repo.Save(ctx, record)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to save search")
	})
}

func TestPgSearchHistoryRepository_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("returns record", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgSearchHistoryRepository(mock)
		record := newTestRecord()
		userID := "user-1"

		mock.ExpectQuery("SELECT .* FROM search_history WHERE id = \\$1").
			WithArgs(record.ID).
			WillReturnRows(pgxmock.NewRows(historyRowColumns).AddRow(
				record.ID, domain.SearchKindSingle, &userID, []byte(`["Dolo 650"]`), []byte(record.Results),
				8.0, 3, record.CreatedAt,
			))

		got, err := repo.Get(ctx, record.ID)
		require.NoError(t, err)
		assert.Equal(t, record.ID, got.ID)
		assert.Equal(t, domain.SearchKindSingle, got.Kind)
		require.NotNil(t, got.UserID)
		assert.Equal(t, "user-1", *got.UserID)
		assert.Equal(t, []string{"Dolo 650"}, got.Medicines)
		assert.JSONEq(t, `{"savings":8}`, string(got.Results))
		assert.Equal(t, 8.0, got.TotalSavings)
		assert.Equal(t, 3, got.OfferCount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns not found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgSearchHistoryRepository(mock)
		id := uuid.New()

		mock.ExpectQuery("SELECT .* FROM search_history WHERE id = \\$1").
			WithArgs(id).
			WillReturnError(pgx.ErrNoRows)

		got, err := repo.Get(ctx, id)
		assert.Nil(t, got)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})
}

func TestPgSearchHistoryRepository_List(t *testing.T) {
	ctx := context.Background()

	t.Run("lists all records with defaults", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgSearchHistoryRepository(mock)
		record := newTestRecord()

		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM search_history").
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))

		mock.ExpectQuery("SELECT .* FROM search_history ORDER BY created_at DESC LIMIT \\$1 OFFSET \\$2").
			WithArgs(defaultFilterLimit, 0).
			WillReturnRows(pgxmock.NewRows(historyRowColumns).AddRow(
				record.ID, domain.SearchKindSingle, nil, []byte(`["Dolo 650"]`), []byte(record.Results),
				8.0, 3, record.CreatedAt,
			))

		records, count, err := repo.List(ctx, domain.HistoryFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
		require.Len(t, records, 1)
		assert.Equal(t, record.ID, records[0].ID)
		assert.Nil(t, records[0].UserID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("filters by user", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgSearchHistoryRepository(mock)
		userID := "user-1"

		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM search_history WHERE user_id = \\$1").
			WithArgs(userID).
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(0)))

		mock.ExpectQuery("SELECT .* FROM search_history WHERE user_id = \\$1 ORDER BY created_at DESC LIMIT \\$2 OFFSET \\$3").
			WithArgs(userID, 5, 10).
			WillReturnRows(pgxmock.NewRows(historyRowColumns))

		records, count, err := repo.List(ctx, domain.HistoryFilter{UserID: &userID, Limit: 5, Offset: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)
		assert.Empty(t, records)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wraps count errors", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgSearchHistoryRepository(mock)

		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM search_history").
			WillReturnError(errors.New("boom"))

		records, count, err := repo.List(ctx, domain.HistoryFilter{})
		assert.Nil(t, records)
		assert.Equal(t, int64(0), count)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to count searches")
	})
}

func TestApplyPaginationDefaults(t *testing.T) {
	tests := []struct {
		name                  string
		limit, offset         int
		wantLimit, wantOffset int
	}{
		{"zero limit gets default", 0, 0, defaultFilterLimit, 0},
		{"limit above max is clamped", maxFilterLimit + 1, 0, maxFilterLimit, 0},
		{"negative offset is reset", 10, -3, 10, 0},
		{"valid values are kept", 20, 40, 20, 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limit, offset := tt.limit, tt.offset
			applyPaginationDefaults(&limit, &offset)
			assert.Equal(t, tt.wantLimit, limit)
			assert.Equal(t, tt.wantOffset, offset)
		})
	}
}

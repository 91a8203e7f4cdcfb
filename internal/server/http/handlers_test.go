package httpserver

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pharmalens/price-compare-service/internal/domain"
)

func TestWriteDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"not found", domain.NewNotFoundError("search", "abc"), http.StatusNotFound, `{"error":"resource not found"}`},
		{"validation", domain.NewValidationError("medicine_name", "is required"), http.StatusBadRequest, `{"error":"validation error: medicine_name: is required"}`},
		{"bare invalid input", domain.ErrInvalidInput, http.StatusBadRequest, `{"error":"invalid input"}`},
		{"already exists", domain.NewAlreadyExistsError("search", "abc"), http.StatusConflict, `{"error":"resource already exists"}`},
		{"rate limited", fmt.Errorf("wrap: %w", domain.ErrRateLimited), http.StatusTooManyRequests, `{"error":"rate limited"}`},
		{"no sources", domain.ErrNoSourcesConfigured, http.StatusServiceUnavailable, `{"error":"no pharmacy sources configured"}`},
		{"unavailable", domain.ErrServiceUnavailable, http.StatusServiceUnavailable, `{"error":"service unavailable"}`},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, `{"error":"internal server error"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeDomainError(rec, tt.err)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestWriteDomainError_Nil(t *testing.T) {
	rec := httptest.NewRecorder()
	writeDomainError(rec, nil)
	assert.Empty(t, rec.Body.String())
}

func TestWriteDomainError_NeverLeaksInternalDetails(t *testing.T) {
	secrets := []string{
		"password=hunter2",
		"postgres://pricecompare:secret@db:5432",
		"dial tcp 10.0.0.7:9092: connection refused",
	}

	for _, secret := range secrets {
		t.Run(secret, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeDomainError(rec, fmt.Errorf("failed to save search: %s", secret))
			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.NotContains(t, rec.Body.String(), secret)
		})
	}
}

func TestParseUUID_DoesNotEchoInput(t *testing.T) {
	rec := httptest.NewRecorder()
	_, ok := parseUUID(rec, "<script>alert(1)</script>", "search_id")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotContains(t, rec.Body.String(), "script")
}

func TestParsePaginationParams(t *testing.T) {
	token := func(n int) string {
		return base64.StdEncoding.EncodeToString([]byte(fmt.Sprint(n)))
	}

	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"defaults", "", defaultPageSize, 0},
		{"explicit size", "page_size=10", 10, 0},
		{"size capped", "page_size=1000", maxPageSize, 0},
		{"negative size ignored", "page_size=-5", defaultPageSize, 0},
		{"garbage size ignored", "page_size=abc", defaultPageSize, 0},
		{"token", "page_token=" + token(40), defaultPageSize, 40},
		{"garbage token ignored", "page_token=%%%", defaultPageSize, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/history", nil)
			req.URL.RawQuery = tt.query
			limit, offset := parsePaginationParams(req)
			assert.Equal(t, tt.wantLimit, limit)
			assert.Equal(t, tt.wantOffset, offset)
		})
	}
}

func TestEncodeHTTPPageToken(t *testing.T) {
	assert.Empty(t, encodeHTTPPageToken(0, 50, 50))
	assert.Empty(t, encodeHTTPPageToken(40, 10, 45))

	tok := encodeHTTPPageToken(0, 10, 25)
	decoded, err := base64.StdEncoding.DecodeString(tok)
	assert.NoError(t, err)
	assert.Equal(t, "10", string(decoded))
}

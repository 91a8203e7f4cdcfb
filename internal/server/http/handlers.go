package httpserver

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/pharmalens/price-compare-service/internal/domain"
	"github.com/pharmalens/price-compare-service/internal/events"
	"github.com/pharmalens/price-compare-service/internal/observability"
	"github.com/pharmalens/price-compare-service/internal/orchestrator"
)

// Pagination and validation constants.
const (
	defaultPageSize    = 50
	maxPageSize        = 100
	maxRequestBodySize = 1 << 20 // 1 MB limit for request bodies
)

// searchRequest is the JSON request body for a single medicine search.
type searchRequest struct {
	MedicineName string `json:"medicine_name" validate:"required,max=200"`
	Dosage       string `json:"dosage,omitempty" validate:"max=50"`
}

func (r searchRequest) query() domain.Query {
	return domain.NewQuery(r.MedicineName, r.Dosage)
}

// batchRequest is the JSON request body for a prescription batch.
type batchRequest struct {
	Medicines []searchRequest `json:"medicines" validate:"required,min=1,max=20,dive"`
}

// listPharmacies handles GET /api/v1/pharmacies.
func (s *Server) listPharmacies(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, listPharmaciesResponse{Pharmacies: s.searcher.Pharmacies()})
}

// search handles POST /api/v1/search.
func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	outcome, err := s.searcher.Search(r.Context(), req.query())
	if err != nil {
		s.writeSearchError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

// streamSearch handles GET /api/v1/search/stream.
// Progress is delivered as server-sent events; the query is validated
// before the stream is opened so bad input still gets a plain 400.
func (s *Server) streamSearch(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	req := searchRequest{
		MedicineName: params.Get("medicine_name"),
		Dosage:       params.Get("dosage"),
	}
	if err := s.validateRequest(&req); err != nil {
		writeDomainError(w, err)
		return
	}
	q := req.query()
	if err := q.Validate(); err != nil {
		writeDomainError(w, err)
		return
	}

	sse, err := events.NewSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	logger := observability.WithRequestContext(s.logger,
		observability.RequestIDFromContext(r.Context()),
		observability.UserIDFromContext(r.Context()))

	outcome, err := s.searcher.Stream(r.Context(), q, sse)
	if err != nil {
		logger.Debug().Err(err).Str("medicine", q.SearchTerm()).Msg("search stream ended early")
		return
	}
	logger.Debug().
		Str("search_id", outcome.SearchID.String()).
		Str("medicine", q.SearchTerm()).
		Msg("search stream complete")
}

// searchBatch handles POST /api/v1/search/batch.
func (s *Server) searchBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	queries := make([]domain.Query, len(req.Medicines))
	for i, m := range req.Medicines {
		queries[i] = m.query()
	}

	outcome, err := s.searcher.SearchBatch(r.Context(), queries)
	if err != nil {
		s.writeSearchError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

// listHistory handles GET /api/v1/history.
func (s *Server) listHistory(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePaginationParams(r)

	filter := domain.HistoryFilter{Limit: limit, Offset: offset}
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = observability.UserIDFromContext(r.Context())
	}
	if userID != "" {
		filter.UserID = &userID
	}

	records, total, err := s.history.List(r.Context(), filter)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list search history")
		writeDomainError(w, err)
		return
	}

	searches := make([]historyEntryResponse, 0, len(records))
	for _, rec := range records {
		searches = append(searches, historyEntryFromRecord(rec, false))
	}

	writeJSON(w, http.StatusOK, listHistoryResponse{
		Searches:      searches,
		NextPageToken: encodeHTTPPageToken(offset, limit, int(total)),
		TotalCount:    int(total),
	})
}

// getHistory handles GET /api/v1/history/{searchID}.
func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, chi.URLParam(r, "searchID"), "search_id")
	if !ok {
		return
	}

	rec, err := s.history.Get(r.Context(), id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Error().Err(err).Str("search_id", id.String()).Msg("failed to get search")
		}
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, historyEntryFromRecord(rec, true))
}

// decodeAndValidate reads a size-limited JSON body into dst and validates
// it. It writes a 400 response and returns false on any failure.
func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON in request body")
		return false
	}
	if err := s.validateRequest(dst); err != nil {
		writeDomainError(w, err)
		return false
	}
	return true
}

// validateRequest runs struct validation and converts the first failure
// into a domain validation error named by its JSON path.
func (s *Server) validateRequest(v interface{}) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return domain.NewValidationError("request", "is invalid")
	}

	fe := fieldErrs[0]
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	return domain.NewValidationError(field, validationMessage(fe))
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must have at most %s entries", fe.Param())
		}
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must have at least %s entries", fe.Param())
		}
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	default:
		return "is invalid"
	}
}

// writeSearchError reports a failed search. An aborted search means the
// client went away, so nothing is written.
func (s *Server) writeSearchError(w http.ResponseWriter, r *http.Request, err error) {
	if orchestrator.IsAborted(err) {
		s.logger.Debug().
			Str("request_id", observability.RequestIDFromContext(r.Context())).
			Err(err).
			Msg("search aborted by client")
		return
	}
	if !errors.Is(err, domain.ErrInvalidInput) {
		s.logger.Warn().Err(err).Msg("search failed")
	}
	writeDomainError(w, err)
}

// writeDomainError maps domain errors to appropriate HTTP status codes
// and writes a JSON error response. Internal error details are not leaked to clients.
func writeDomainError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, domain.ErrInvalidInput):
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
		} else {
			writeError(w, http.StatusBadRequest, "invalid input")
		}
	case errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "resource already exists")
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate limited")
	case errors.Is(err, domain.ErrNoSourcesConfigured):
		writeError(w, http.StatusServiceUnavailable, "no pharmacy sources configured")
	case errors.Is(err, domain.ErrServiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// parseUUID parses a UUID from a string, writing a 400 error response if invalid.
// The parse error details are not included to avoid echoing potentially malicious input.
func parseUUID(w http.ResponseWriter, s, fieldName string) (uuid.UUID, bool) {
	id, err := uuid.Parse(s)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%s must be a valid UUID", fieldName))
		return uuid.Nil, false
	}
	return id, true
}

// parsePaginationParams extracts page_size and page_token from query parameters.
// It applies default and maximum bounds to the page size.
func parsePaginationParams(r *http.Request) (limit, offset int) {
	limit = defaultPageSize
	if pageSizeStr := r.URL.Query().Get("page_size"); pageSizeStr != "" {
		if parsed, err := strconv.Atoi(pageSizeStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	if pageToken := r.URL.Query().Get("page_token"); pageToken != "" {
		decoded, err := base64.StdEncoding.DecodeString(pageToken)
		if err == nil {
			if parsed, parseErr := strconv.Atoi(string(decoded)); parseErr == nil && parsed > 0 {
				offset = parsed
			}
		}
	}

	return limit, offset
}

// encodeHTTPPageToken encodes the next offset as a base64 page token.
// Returns an empty string if there are no more results.
func encodeHTTPPageToken(offset, limit, totalCount int) string {
	nextOffset := offset + limit
	if nextOffset < totalCount {
		return base64.StdEncoding.EncodeToString([]byte(strconv.Itoa(nextOffset)))
	}
	return ""
}

package intake

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pharmalens/price-compare-service/internal/domain"
	"github.com/pharmalens/price-compare-service/internal/observability"
	"github.com/pharmalens/price-compare-service/internal/orchestrator"
)

// mockSearcher implements BatchSearcher for testing.
type mockSearcher struct {
	mock.Mock
}

func (m *mockSearcher) SearchBatch(ctx context.Context, queries []domain.Query) (*orchestrator.BatchOutcome, error) {
	args := m.Called(ctx, queries)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orchestrator.BatchOutcome), args.Error(1)
}

// chanReader replays queued messages, then blocks until cancelled.
type chanReader struct {
	msgs   chan kafka.Message
	errs   chan error
	closed bool
}

func newChanReader() *chanReader {
	return &chanReader{msgs: make(chan kafka.Message, 10), errs: make(chan error, 10)}
}

func (r *chanReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case err := <-r.errs:
		return kafka.Message{}, err
	default:
	}
	select {
	case m := <-r.msgs:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *chanReader) Close() error {
	r.closed = true
	return nil
}

func encode(t *testing.T, v interface{}) kafka.Message {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return kafka.Message{Value: b}
}

func batchOutcome() *orchestrator.BatchOutcome {
	return &orchestrator.BatchOutcome{
		SearchID:             uuid.New(),
		CrossMedicineSummary: domain.NewCrossMedicineSummary(nil),
	}
}

func TestQueries(t *testing.T) {
	queries := Queries([]PrescribedMedicine{
		{Name: "Dolo 650mg Tablet"},
		{Name: "  "},
		{Name: "Pan", Dosage: "40 mg"},
	})

	require.Len(t, queries, 2)
	assert.Equal(t, "Dolo", queries[0].MedicineName)
	assert.Equal(t, "650mg", queries[0].DosageValue())
	assert.Equal(t, "Pan", queries[1].MedicineName)
	assert.Equal(t, "40 mg", queries[1].DosageValue())
}

func TestListener_RunSearchesPrescriptions(t *testing.T) {
	reader := newChanReader()
	searcher := new(mockSearcher)
	l := NewListenerWithReader(reader, searcher, zerolog.Nop())

	done := make(chan struct{})
	searcher.On("SearchBatch", mock.MatchedBy(func(ctx context.Context) bool {
		return observability.UserIDFromContext(ctx) == "user-1" &&
			observability.RequestIDFromContext(ctx) == "rx-1"
	}), mock.MatchedBy(func(qs []domain.Query) bool {
		return len(qs) == 2 && qs[0].MedicineName == "Dolo" && qs[1].MedicineName == "Azee"
	})).Run(func(mock.Arguments) { close(done) }).Return(batchOutcome(), nil).Once()

	reader.msgs <- kafka.Message{Value: []byte("not json")}
	reader.msgs <- encode(t, PrescriptionParsedEvent{
		PrescriptionID: "rx-1",
		UserID:         "user-1",
		Medicines: []PrescribedMedicine{
			{Name: "Dolo", Dosage: "650mg"},
			{Name: "Azee 500mg"},
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("prescription was not searched")
	}
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop")
	}
	searcher.AssertExpectations(t)
}

func TestListener_ReadErrorsDoNotStopLoop(t *testing.T) {
	reader := newChanReader()
	searcher := new(mockSearcher)
	l := NewListenerWithReader(reader, searcher, zerolog.Nop())

	done := make(chan struct{})
	searcher.On("SearchBatch", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { close(done) }).
		Return(nil, errors.New("no pharmacies")).Once()

	reader.errs <- errors.New("broker hiccup")
	reader.msgs <- encode(t, PrescriptionParsedEvent{Medicines: []PrescribedMedicine{{Name: "Crocin"}}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = l.Run(ctx) }()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("listener stopped after read error")
	}
}

func TestHandlePrescription(t *testing.T) {
	t.Run("skips prescriptions without medicines", func(t *testing.T) {
		searcher := new(mockSearcher)
		l := NewListenerWithReader(newChanReader(), searcher, zerolog.Nop())

		err := l.handlePrescription(context.Background(), PrescriptionParsedEvent{PrescriptionID: "rx"})
		require.NoError(t, err)
		searcher.AssertNotCalled(t, "SearchBatch", mock.Anything, mock.Anything)
	})

	t.Run("wraps search errors", func(t *testing.T) {
		searcher := new(mockSearcher)
		searcher.On("SearchBatch", mock.Anything, mock.Anything).Return(nil, domain.ErrNoSourcesConfigured)
		l := NewListenerWithReader(newChanReader(), searcher, zerolog.Nop())

		err := l.handlePrescription(context.Background(), PrescriptionParsedEvent{
			Medicines: []PrescribedMedicine{{Name: "Dolo"}},
		})
		assert.ErrorIs(t, err, domain.ErrNoSourcesConfigured)
		assert.ErrorContains(t, err, "search batch")
	})
}

func TestListener_Close(t *testing.T) {
	reader := newChanReader()
	l := NewListenerWithReader(reader, new(mockSearcher), zerolog.Nop())

	require.NoError(t, l.Close())
	assert.True(t, reader.closed)
}

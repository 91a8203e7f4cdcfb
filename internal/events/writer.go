package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// ErrStreamingUnsupported is returned when the response writer cannot flush.
var ErrStreamingUnsupported = errors.New("streaming not supported")

// Writer sends events to a client as they are produced.
type Writer interface {
	WriteEvent(e Event) error
}

// SSEWriter writes events as text/event-stream frames and flushes after
// each one.
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSEWriter sets the event-stream headers on w. It fails when w does not
// support flushing, in which case no headers have been written.
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &SSEWriter{w: w, flusher: flusher}, nil
}

// WriteEvent writes one frame: the event type line and a single JSON data line.
func (s *SSEWriter) WriteEvent(e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", e.Type, err)
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", e.Type, data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// NDJSONWriter writes one JSON object per line. It is safe for concurrent
// use so batch output can share one writer.
type NDJSONWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewNDJSONWriter returns a writer that encodes events to w.
func NewNDJSONWriter(w io.Writer) *NDJSONWriter {
	return &NDJSONWriter{enc: json.NewEncoder(w)}
}

// WriteEvent implements Writer.
func (n *NDJSONWriter) WriteEvent(e Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.enc.Encode(e)
}

// Compile-time interface checks.
var (
	_ Writer = (*SSEWriter)(nil)
	_ Writer = (*NDJSONWriter)(nil)
)

package pharmacies

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
)

// ErrPageStateNotFound is returned when a search page carries none of the
// embedded JSON state a source knows how to read. Sites serve this when
// they block a request or change their markup.
var ErrPageStateNotFound = errors.New("embedded page state not found")

var (
	nextDataPattern      = regexp.MustCompile(`(?s)<script id="__NEXT_DATA__"[^>]*>(.*?)</script>`)
	initialStatePattern  = regexp.MustCompile(`(?s)window\.__INITIAL_STATE__\s*=\s*(\{.*?\});?\s*(?:</script>|window\.)`)
	initialStateFallback = regexp.MustCompile(`(?s)__INITIAL_STATE__\s*=\s*(\{[^<]+\})`)
	preloadedPattern     = regexp.MustCompile(`(?s)window\.PRELOADED_STATE\s*=\s*\[(.*?)\];`)
	buildIDPattern       = regexp.MustCompile(`"buildId":"([^"]+)"`)
)

// NextData returns the JSON body of a Next.js __NEXT_DATA__ script tag.
func NextData(page []byte) ([]byte, error) {
	m := nextDataPattern.FindSubmatch(page)
	if m == nil {
		return nil, fmt.Errorf("__NEXT_DATA__: %w", ErrPageStateNotFound)
	}
	return bytes.TrimSpace(m[1]), nil
}

// InitialState returns the object assigned to window.__INITIAL_STATE__.
func InitialState(page []byte) ([]byte, error) {
	m := initialStatePattern.FindSubmatch(page)
	if m == nil {
		m = initialStateFallback.FindSubmatch(page)
	}
	if m == nil {
		return nil, fmt.Errorf("__INITIAL_STATE__: %w", ErrPageStateNotFound)
	}
	return bytes.TrimSuffix(bytes.TrimSpace(m[1]), []byte(";")), nil
}

// PreloadedState returns the object assigned to window.PRELOADED_STATE.
// The site wraps the state in a one-element array that holds either the
// object itself or the object serialized as a JSON string.
func PreloadedState(page []byte) ([]byte, error) {
	m := preloadedPattern.FindSubmatch(page)
	if m == nil {
		return nil, fmt.Errorf("PRELOADED_STATE: %w", ErrPageStateNotFound)
	}
	raw := bytes.TrimSpace(m[1])
	if len(raw) == 0 {
		return nil, fmt.Errorf("PRELOADED_STATE: %w", ErrPageStateNotFound)
	}
	if raw[0] != '"' {
		return raw, nil
	}

	var inner []string
	wrapped := make([]byte, 0, len(raw)+2)
	wrapped = append(wrapped, '[')
	wrapped = append(wrapped, raw...)
	wrapped = append(wrapped, ']')
	if err := json.Unmarshal(wrapped, &inner); err != nil {
		return nil, fmt.Errorf("decoding PRELOADED_STATE string: %w", err)
	}
	if len(inner) == 0 {
		return nil, fmt.Errorf("PRELOADED_STATE: %w", ErrPageStateNotFound)
	}
	return []byte(inner[0]), nil
}

// BuildID returns the Next.js build id embedded in a page, or "".
func BuildID(page []byte) string {
	m := buildIDPattern.FindSubmatch(page)
	if m == nil {
		return ""
	}
	return string(m[1])
}

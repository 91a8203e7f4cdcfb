package pharmacies

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Number decodes a price that sites send as a JSON number, a numeric
// string, or a formatted string such as "₹1,234.50". Anything unparseable
// decodes as zero.
type Number float64

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, _ := ParsePrice(s)
		*n = Number(v)
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		*n = 0
		return nil
	}
	*n = Number(v)
	return nil
}

// Float returns the value as a float64.
func (n Number) Float() float64 {
	return float64(n)
}

// Text decodes a field that is usually a string but sometimes an object
// with a url or name, or an array of those. The first usable string wins.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*t = Text(firstText(v))
	return nil
}

func firstText(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case map[string]any:
		for _, k := range []string{"url", "name", "value"} {
			if s := firstText(x[k]); s != "" {
				return s
			}
		}
	case []any:
		for _, e := range x {
			if s := firstText(e); s != "" {
				return s
			}
		}
	}
	return ""
}

// ParsePrice extracts the first number from a displayed price such as
// "MRP ₹1,234.50", ignoring currency text and thousands separators.
func ParsePrice(s string) (float64, bool) {
	s = strings.ReplaceAll(s, ",", "")

	start := strings.IndexAny(s, "0123456789")
	if start < 0 {
		return 0, false
	}

	end := start
	dot := false
	for end < len(s) {
		c := s[end]
		if c == '.' && !dot {
			dot = true
			end++
			continue
		}
		if c < '0' || c > '9' {
			break
		}
		end++
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(s[start:end], "."), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// FirstPositive returns the first value greater than zero, or zero.
func FirstPositive(values ...Number) float64 {
	for _, v := range values {
		if v > 0 {
			return float64(v)
		}
	}
	return 0
}

// FirstNonEmpty returns the first non-blank string.
func FirstNonEmpty[T ~string](values ...T) string {
	for _, v := range values {
		if s := strings.TrimSpace(string(v)); s != "" {
			return s
		}
	}
	return ""
}

// BoolOr dereferences b, returning def when it is nil.
func BoolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

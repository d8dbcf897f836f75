package venues

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Fields is a decoded JSON object that remembers which keys were sent. Partial
// updates depend on telling an absent key apart from an explicit null.
type Fields map[string]json.RawMessage

// ParseFields decodes a JSON object body. An empty body is an empty object.
func ParseFields(body []byte) (Fields, error) {
	fields := Fields{}
	if len(bytes.TrimSpace(body)) == 0 {
		return fields, nil
	}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, invalidf("Invalid JSON body")
	}
	return fields, nil
}

// Has reports whether key was present in the object, even if null.
func (f Fields) Has(key string) bool {
	_, ok := f[key]
	return ok
}

// IsNull reports whether key is absent or explicitly null.
func (f Fields) IsNull(key string) bool {
	raw, ok := f[key]
	return !ok || isJSONNull(raw)
}

// Text returns the string value of key. Absent and null keys yield "".
func (f Fields) Text(key string) (string, error) {
	if f.IsNull(key) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(f[key], &s); err != nil {
		return "", invalidf("%s must be a string", key)
	}
	return s, nil
}

// NullableText returns nil for absent or null keys.
func (f Fields) NullableText(key string) (*string, error) {
	if f.IsNull(key) {
		return nil, nil
	}
	s, err := f.Text(key)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Bool returns the boolean value of key, or fallback when absent or null.
func (f Fields) Bool(key string, fallback bool) (bool, error) {
	if f.IsNull(key) {
		return fallback, nil
	}
	var b bool
	if err := json.Unmarshal(f[key], &b); err != nil {
		return false, invalidf("%s must be a boolean", key)
	}
	return b, nil
}

// Number accepts a JSON number or a numeric string. Absent, null and empty
// string values yield nil.
func (f Fields) Number(key string) (*float64, error) {
	if f.IsNull(key) {
		return nil, nil
	}
	raw := f[key]

	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, invalidf("%s must be a number", key)
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, invalidf("%s must be a number", key)
		}
		n = parsed
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return nil, invalidf("%s must be a number", key)
	}
	return &n, nil
}

// Integer is Number restricted to whole values.
func (f Fields) Integer(key string) (*int64, error) {
	n, err := f.Number(key)
	if err != nil || n == nil {
		return nil, err
	}
	if *n != math.Trunc(*n) {
		return nil, invalidf("%s must be an integer", key)
	}
	i := int64(*n)
	return &i, nil
}

// StringSet returns the trimmed, de-duplicated, non-empty strings of an array
// value in first-seen order. Anything other than an array yields an empty set.
func (f Fields) StringSet(key string) []string {
	if f.IsNull(key) {
		return []string{}
	}
	var items []any
	if err := json.Unmarshal(f[key], &items); err != nil {
		return []string{}
	}
	return NormalizeStringSet(items)
}

// Offers returns the raw JSON array for key, or an empty array for anything else.
func (f Fields) Offers(key string) json.RawMessage {
	raw := bytes.TrimSpace(f[key])
	if len(raw) == 0 || raw[0] != '[' {
		return json.RawMessage(`[]`)
	}
	return json.RawMessage(raw)
}

// NormalizeStringSet trims, drops empties and de-duplicates while keeping the
// first occurrence of each value.
func NormalizeStringSet(items []any) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		var s string
		switch v := item.(type) {
		case nil:
			continue
		case string:
			s = v
		default:
			s = fmt.Sprint(v)
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func isJSONNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

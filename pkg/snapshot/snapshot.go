// Package snapshot models the single serializable unit of a document: a map
// of string keys to JSON-compatible values.
package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/goliatone/go-localhtml/pkg/errdefs"
)

// Reserved snapshot keys.
const (
	KeyVersion    = "sheetVersion"
	KeyExtraPages = "extraPages"
	KeyWidgets    = "widgets"
)

// Snapshot is the complete JSON-serializable state of one document.
type Snapshot map[string]any

// Reserved reports whether key is owned by the engine rather than a form field.
func Reserved(key string) bool {
	switch key {
	case KeyVersion, KeyExtraPages, KeyWidgets:
		return true
	default:
		return false
	}
}

// Decode parses payload into a Snapshot. Malformed input and non-object
// payloads return a *errdefs.ParseError.
func Decode(payload []byte, source string) (Snapshot, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, &errdefs.ParseError{Source: source, Err: fmt.Errorf("empty payload")}
	}
	var out map[string]any
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return nil, &errdefs.ParseError{Source: source, Err: err}
	}
	if out == nil {
		return nil, &errdefs.ParseError{Source: source, Err: fmt.Errorf("payload is not an object")}
	}
	return Snapshot(out), nil
}

// Encode serializes s as compact JSON.
func Encode(s Snapshot) ([]byte, error) {
	if s == nil {
		s = Snapshot{}
	}
	payload, err := json.Marshal(map[string]any(s))
	if err != nil {
		return nil, fmt.Errorf("snapshot: encode: %w", err)
	}
	return payload, nil
}

// Normalize converts value into the JSON value space (map[string]any, []any,
// float64, string, bool, nil) by round-tripping it through encoding/json.
func Normalize(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("snapshot: normalize: %w", err)
	}
	var out any
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("snapshot: normalize: %w", err)
	}
	return out, nil
}

// Clone deep copies s. JSON value types are copied structurally; any other
// value is kept by reference.
func Clone(s Snapshot) Snapshot {
	if s == nil {
		return nil
	}
	out := make(Snapshot, len(s))
	for key, value := range s {
		out[key] = CloneValue(value)
	}
	return out
}

// CloneValue deep copies JSON-compatible containers.
func CloneValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, v := range typed {
			out[key] = CloneValue(v)
		}
		return out
	case Snapshot:
		return Clone(typed)
	case []any:
		out := make([]any, len(typed))
		for i, v := range typed {
			out[i] = CloneValue(v)
		}
		return out
	case []string:
		return append([]string(nil), typed...)
	default:
		return value
	}
}

// Equal reports whether a and b hold the same JSON values, ignoring key order
// and Go-level numeric or container type differences.
func Equal(a, b Snapshot) bool {
	na, errA := Normalize(map[string]any(a))
	nb, errB := Normalize(map[string]any(b))
	if errA != nil || errB != nil {
		return false
	}
	return reflect.DeepEqual(na, nb)
}

// Strings reads key as a list of strings. Non-string elements are skipped and
// ok is false when the value is absent or not a list.
func (s Snapshot) Strings(key string) (values []string, ok bool) {
	raw, present := s[key]
	if !present {
		return nil, false
	}
	switch typed := raw.(type) {
	case []string:
		return append([]string(nil), typed...), true
	case []any:
		out := make([]string, 0, len(typed))
		for _, v := range typed {
			if str, isString := v.(string); isString {
				out = append(out, str)
			}
		}
		return out, true
	default:
		return nil, false
	}
}

// Version returns the stamped version or "" when absent.
func (s Snapshot) Version() string {
	v, _ := s[KeyVersion].(string)
	return v
}

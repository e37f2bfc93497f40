package model

import (
	"errors"
	"fmt"
	"slices"
)

// ErrUnsupportedValue is returned when a value is not a string, bool or
// []string.
var ErrUnsupportedValue = errors.New("model: unsupported field value")

// Values stores field values keyed by field identifier. Only string, bool and
// []string values are accepted through Set.
type Values map[string]any

// NewValues returns an empty value map.
func NewValues() Values {
	return make(Values)
}

// Set stores a value after checking its dynamic type.
func (v Values) Set(id string, value any) error {
	switch typed := value.(type) {
	case string, bool:
		v[id] = typed
	case []string:
		v[id] = slices.Clone(typed)
	default:
		return fmt.Errorf("%w: %T for %q", ErrUnsupportedValue, value, id)
	}
	return nil
}

// Lookup returns the raw value and whether the key is present.
func (v Values) Lookup(id string) (any, bool) {
	if v == nil {
		return nil, false
	}
	value, ok := v[id]
	return value, ok
}

// String returns the string value for id, or "" if absent or not a string.
func (v Values) String(id string) string {
	if s, ok := v[id].(string); ok {
		return s
	}
	return ""
}

// Bool returns the boolean value for id; absent values read as false.
func (v Values) Bool(id string) bool {
	if b, ok := v[id].(bool); ok {
		return b
	}
	return false
}

// Strings returns the list value for id, or nil.
func (v Values) Strings(id string) []string {
	if list, ok := v[id].([]string); ok {
		return slices.Clone(list)
	}
	return nil
}

// Clone returns a deep copy of the map.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for key, value := range v {
		if list, ok := value.([]string); ok {
			out[key] = slices.Clone(list)
			continue
		}
		out[key] = value
	}
	return out
}

// Errors maps field identifiers to human-readable messages.
type Errors map[string]string

// Message returns the error for id, or "".
func (e Errors) Message(id string) string {
	return e[id]
}

// Has reports whether id currently carries a non-empty error.
func (e Errors) Has(id string) bool {
	return e[id] != ""
}

// Clear drops any error recorded for id.
func (e Errors) Clear(id string) {
	delete(e, id)
}

// Len counts non-empty messages.
func (e Errors) Len() int {
	n := 0
	for _, msg := range e {
		if msg != "" {
			n++
		}
	}
	return n
}

// Clone returns a copy without empty messages.
func (e Errors) Clone() Errors {
	out := make(Errors, len(e))
	for key, msg := range e {
		if msg != "" {
			out[key] = msg
		}
	}
	return out
}

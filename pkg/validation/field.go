// Package validation implements the local field and section checks applied
// before a user may leave a section or submit the form. Validation failures
// are ordinary data (model.Errors), never Go errors.
package validation

import (
	"fmt"
	"unicode/utf8"

	"github.com/goliatone/go-stepform/pkg/model"
)

// Messages formats the default validation messages. The zero value is not
// usable; start from DefaultMessages.
type Messages struct {
	Required  func(label string) string
	MinLength func(n int) string
	MaxLength func(n int) string
}

// DefaultMessages produces the built-in English messages.
var DefaultMessages = Messages{
	Required: func(label string) string {
		return fmt.Sprintf("%s is required", label)
	},
	MinLength: func(n int) string {
		return fmt.Sprintf("Minimum length is %d characters", n)
	},
	MaxLength: func(n int) string {
		return fmt.Sprintf("Maximum length is %d characters", n)
	},
}

// ValidateField checks a single value against its field definition and
// returns the first failing rule's message, or "" when the value is valid.
// The required rule always runs before the length rules.
func ValidateField(field model.Field, value any) string {
	return DefaultMessages.ValidateField(field, value)
}

// ValidateField is ValidateField using the receiver's message formatters.
func (m Messages) ValidateField(field model.Field, value any) string {
	if field.Required && IsEmpty(value) {
		if msg := field.ValidationMessage(); msg != "" {
			return msg
		}
		return m.Required(field.DisplayLabel())
	}

	s, ok := value.(string)
	if !ok {
		return ""
	}
	length := utf8.RuneCountInString(s)
	if field.MinLength != nil && length < *field.MinLength {
		return m.MinLength(*field.MinLength)
	}
	if field.MaxLength != nil && length > *field.MaxLength {
		return m.MaxLength(*field.MaxLength)
	}
	return ""
}

// IsEmpty reports whether a value counts as "not provided": nil, the empty
// string, false, or an empty list.
func IsEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case bool:
		return !v
	case []string:
		return len(v) == 0
	default:
		return false
	}
}

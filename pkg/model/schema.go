package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// ErrInvalidSchema wraps every structural problem reported by Validate.
var ErrInvalidSchema = errors.New("model: invalid schema")

// Format identifies the encoding of a schema document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath infers the document format from a file extension. Unknown
// extensions default to JSON, the wire format of the schema endpoint.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// ParseSchema decodes a schema document and validates it.
func ParseSchema(data []byte, format Format) (FormSchema, error) {
	var schema FormSchema
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &schema); err != nil {
			return FormSchema{}, fmt.Errorf("model: decode yaml schema: %w", err)
		}
	case FormatJSON, "":
		if err := json.Unmarshal(data, &schema); err != nil {
			return FormSchema{}, fmt.Errorf("model: decode json schema: %w", err)
		}
	default:
		return FormSchema{}, fmt.Errorf("model: unsupported schema format %q", format)
	}

	if err := schema.Validate(); err != nil {
		return FormSchema{}, err
	}
	return schema, nil
}

// LoadSchemaFile reads and parses a schema document from disk.
func LoadSchemaFile(path string) (FormSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FormSchema{}, fmt.Errorf("model: read schema %s: %w", path, err)
	}
	schema, err := ParseSchema(data, FormatFromPath(path))
	if err != nil {
		return FormSchema{}, fmt.Errorf("%s: %w", path, err)
	}
	return schema, nil
}

// ReservedPrefix starts the names of controls that renderers post alongside
// field values. Field ids must not use it.
const ReservedPrefix = "_"

// Validate checks the structural invariants of the schema. All problems are
// reported, joined, and wrapped with ErrInvalidSchema. Unusable length bounds
// are not structural; see Lint and NormalizeBounds.
func (s FormSchema) Validate() error {
	return joinProblems(s.structuralProblems())
}

// Lint is Validate plus the length bound checks. It is the strict form used
// by tooling; fetched schemas go through Validate and NormalizeBounds.
func (s FormSchema) Lint() error {
	problems := s.structuralProblems()
	s.eachField(func(loc string, field Field) {
		problems = append(problems, boundProblems(loc, field)...)
	})
	return joinProblems(problems)
}

// NormalizeBounds returns a copy of the schema with every unusable length
// bound removed, along with one error per removed bound. Bounds are unusable
// on fields that store no string, when negative, or when minLength exceeds
// maxLength.
func (s FormSchema) NormalizeBounds() (FormSchema, []error) {
	out := s
	out.Sections = make([]Section, len(s.Sections))
	var dropped []error
	for sIdx, section := range s.Sections {
		section.Fields = append([]Field(nil), section.Fields...)
		for fIdx := range section.Fields {
			field := &section.Fields[fIdx]
			problems := boundProblems(fieldLoc(sIdx, fIdx), *field)
			if len(problems) == 0 {
				continue
			}
			dropped = append(dropped, problems...)
			field.MinLength, field.MaxLength = nil, nil
		}
		out.Sections[sIdx] = section
	}
	return out, dropped
}

func (s FormSchema) structuralProblems() []error {
	var problems []error
	if len(s.Sections) == 0 {
		problems = append(problems, errors.New("schema declares no sections"))
	}

	for _, section := range s.Sections {
		seen := make(map[string]struct{}, len(section.Fields))
		for _, field := range section.Fields {
			if _, dup := seen[field.ID]; dup && field.ID != "" {
				problems = append(problems, fmt.Errorf("duplicate field id %q in section %d", field.ID, section.ID))
			}
			seen[field.ID] = struct{}{}
		}
	}
	s.eachField(func(loc string, field Field) {
		problems = append(problems, fieldProblems(loc, field)...)
	})
	return problems
}

func (s FormSchema) eachField(fn func(loc string, field Field)) {
	for sIdx, section := range s.Sections {
		for fIdx, field := range section.Fields {
			fn(fieldLoc(sIdx, fIdx), field)
		}
	}
}

func fieldLoc(sIdx, fIdx int) string {
	return fmt.Sprintf("sections[%d].fields[%d]", sIdx, fIdx)
}

func joinProblems(problems []error) error {
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidSchema, errors.Join(problems...))
}

func fieldProblems(loc string, field Field) []error {
	var problems []error
	switch {
	case strings.TrimSpace(field.ID) == "":
		problems = append(problems, fmt.Errorf("%s: field id is required", loc))
	case strings.HasPrefix(field.ID, ReservedPrefix):
		problems = append(problems, fmt.Errorf("%s: field id %q must not start with %q", loc, field.ID, ReservedPrefix))
	}
	if !field.Type.Known() {
		return append(problems, fmt.Errorf("%s: unknown field type %q", loc, field.Type))
	}
	if field.Type.HasOptions() && len(field.Options) == 0 {
		problems = append(problems, fmt.Errorf("%s: %s field %q requires options", loc, field.Type, field.ID))
	}
	return problems
}

func boundProblems(loc string, field Field) []error {
	if field.MinLength == nil && field.MaxLength == nil {
		return nil
	}
	if !field.IsStringValued() {
		return []error{fmt.Errorf("%s: length bounds are not allowed on %s field %q", loc, field.Type, field.ID)}
	}
	var problems []error
	if field.MinLength != nil && *field.MinLength < 0 {
		problems = append(problems, fmt.Errorf("%s: minLength must not be negative", loc))
	}
	if field.MaxLength != nil && *field.MaxLength < 0 {
		problems = append(problems, fmt.Errorf("%s: maxLength must not be negative", loc))
	}
	if field.MinLength != nil && field.MaxLength != nil && *field.MinLength > *field.MaxLength {
		problems = append(problems, fmt.Errorf("%s: minLength %d exceeds maxLength %d", loc, *field.MinLength, *field.MaxLength))
	}
	return problems
}

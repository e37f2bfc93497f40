package openapi

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"go.uber.org/zap"

	"github.com/goliatone/go-stepform/pkg/model"
)

// Extension keys read from request body properties.
const (
	ExtWidget      = "x-stepform-widget"
	ExtOrder       = "x-stepform-order"
	ExtPlaceholder = "x-stepform-placeholder"
)

// DefaultSectionTitle names the section holding top-level scalar properties.
const DefaultSectionTitle = "General"

var (
	ErrOperationNotFound = errors.New("openapi: operation not found")
	ErrNoRequestBody     = errors.New("openapi: operation has no JSON request body")
	ErrNoFields          = errors.New("openapi: request body has no usable properties")
)

// Options tunes the conversion.
type Options struct {
	// DefaultSectionTitle overrides the title of the first section.
	DefaultSectionTitle string
	// Validate runs kin-openapi document validation before conversion.
	Validate bool
	// Logger receives a debug entry for every skipped property.
	Logger *zap.Logger
}

// SchemaFromOperation parses an OpenAPI 3 document and converts the JSON
// request body of operationID into a form schema. Top-level scalar properties
// form the first section; every top-level object property becomes a section
// of its own.
func SchemaFromOperation(ctx context.Context, data []byte, operationID string, opts Options) (model.FormSchema, error) {
	if err := ctx.Err(); err != nil {
		return model.FormSchema{}, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	loader := openapi3.NewLoader()
	loader.Context = ctx
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return model.FormSchema{}, fmt.Errorf("openapi: load document: %w", err)
	}
	if opts.Validate {
		if err := doc.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
			return model.FormSchema{}, fmt.Errorf("openapi: validate: %w", err)
		}
	}

	op := findOperation(doc, operationID)
	if op == nil {
		return model.FormSchema{}, fmt.Errorf("%w: %q", ErrOperationNotFound, operationID)
	}
	body := requestSchema(op)
	if body == nil {
		return model.FormSchema{}, fmt.Errorf("%w: %q", ErrNoRequestBody, operationID)
	}

	schema := model.FormSchema{
		ID:    operationID,
		Title: firstNonEmpty(op.Summary, body.Title, model.DefaultLabeler(operationID)),
	}
	if doc.Info != nil {
		schema.Version = doc.Info.Version
	}

	general := model.Section{Title: firstNonEmpty(opts.DefaultSectionTitle, DefaultSectionTitle)}
	var nested []model.Section

	for _, name := range orderedProperties(body) {
		prop := body.Properties[name].Value
		if prop == nil {
			continue
		}
		if strings.HasPrefix(name, model.ReservedPrefix) {
			logger.Debug("skipping reserved property", zap.String("property", name))
			continue
		}
		switch {
		case prop.Type.Is(openapi3.TypeObject):
			section := model.Section{
				Title:       firstNonEmpty(prop.Title, model.DefaultLabeler(name)),
				Description: prop.Description,
			}
			for _, child := range orderedProperties(prop) {
				childSchema := prop.Properties[child].Value
				if strings.HasPrefix(child, model.ReservedPrefix) {
					logger.Debug("skipping reserved property", zap.String("property", name+"."+child))
					continue
				}
				field, ok := convertField(name+"."+child, child, childSchema, contains(prop.Required, child))
				if !ok {
					logger.Debug("skipping property", zap.String("property", name+"."+child))
					continue
				}
				section.Fields = append(section.Fields, field)
			}
			if len(section.Fields) > 0 {
				nested = append(nested, section)
			}
		default:
			field, ok := convertField(name, name, prop, contains(body.Required, name))
			if !ok {
				logger.Debug("skipping property", zap.String("property", name))
				continue
			}
			general.Fields = append(general.Fields, field)
		}
	}

	if len(general.Fields) > 0 {
		schema.Sections = append(schema.Sections, general)
	}
	schema.Sections = append(schema.Sections, nested...)
	if len(schema.Sections) == 0 {
		return model.FormSchema{}, fmt.Errorf("%w: %q", ErrNoFields, operationID)
	}
	for i := range schema.Sections {
		schema.Sections[i].ID = i + 1
	}

	if err := schema.Validate(); err != nil {
		return model.FormSchema{}, fmt.Errorf("openapi: %w", err)
	}
	return schema, nil
}

func findOperation(doc *openapi3.T, operationID string) *openapi3.Operation {
	if doc.Paths == nil {
		return nil
	}
	for _, item := range doc.Paths.Map() {
		if item == nil {
			continue
		}
		for _, op := range item.Operations() {
			if op != nil && op.OperationID == operationID {
				return op
			}
		}
	}
	return nil
}

func requestSchema(op *openapi3.Operation) *openapi3.Schema {
	if op.RequestBody == nil || op.RequestBody.Value == nil {
		return nil
	}
	media := op.RequestBody.Value.Content.Get("application/json")
	if media == nil || media.Schema == nil || media.Schema.Value == nil {
		return nil
	}
	body := media.Schema.Value
	if len(body.Properties) == 0 {
		return nil
	}
	return body
}

// convertField maps a scalar property onto a field. Arrays, nested objects
// and numbers have no control and are skipped.
func convertField(id, name string, prop *openapi3.Schema, required bool) (model.Field, bool) {
	if prop == nil {
		return model.Field{}, false
	}
	field := model.Field{
		ID:       id,
		Label:    firstNonEmpty(prop.Title, model.DefaultLabeler(name)),
		Required: required,
	}
	widget := strings.ToLower(extensionString(prop.Extensions, ExtWidget))

	switch {
	case prop.Type.Is(openapi3.TypeBoolean):
		field.Type = model.FieldTypeCheckbox
	case prop.Type.Is(openapi3.TypeString) && len(prop.Enum) > 0:
		field.Type = model.FieldTypeDropdown
		if widget == "radio" {
			field.Type = model.FieldTypeRadio
		}
		for _, v := range prop.Enum {
			field.Options = append(field.Options, model.Option{Value: fmt.Sprint(v)})
		}
	case prop.Type.Is(openapi3.TypeString):
		field.Type = stringFieldType(prop.Format, widget)
	default:
		return model.Field{}, false
	}

	if field.Type.StringValued() && !field.Type.HasOptions() {
		field.Placeholder = firstNonEmpty(extensionString(prop.Extensions, ExtPlaceholder), prop.Description)
		if prop.MinLength > 0 && prop.MinLength <= math.MaxInt32 {
			field.MinLength = model.IntPtr(int(prop.MinLength))
		}
		if prop.MaxLength != nil && *prop.MaxLength <= math.MaxInt32 {
			field.MaxLength = model.IntPtr(int(*prop.MaxLength))
		}
	}
	return field, true
}

func stringFieldType(format, widget string) model.FieldType {
	if widget == "textarea" {
		return model.FieldTypeTextarea
	}
	switch strings.ToLower(format) {
	case "email":
		return model.FieldTypeEmail
	case "date":
		return model.FieldTypeDate
	case "tel", "phone":
		return model.FieldTypePhone
	default:
		return model.FieldTypeText
	}
}

// orderedProperties sorts property names by x-stepform-order, then by name.
// Properties without an order sort after ordered ones.
func orderedProperties(schema *openapi3.Schema) []string {
	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	order := func(name string) (float64, bool) {
		ref := schema.Properties[name]
		if ref == nil || ref.Value == nil {
			return 0, false
		}
		return extensionNumber(ref.Value.Extensions, ExtOrder)
	}
	sort.SliceStable(names, func(i, j int) bool {
		oi, hasI := order(names[i])
		oj, hasJ := order(names[j])
		switch {
		case hasI && hasJ && oi != oj:
			return oi < oj
		case hasI != hasJ:
			return hasI
		default:
			return names[i] < names[j]
		}
	})
	return names
}

func extensionString(ext map[string]any, key string) string {
	if s, ok := ext[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func extensionNumber(ext map[string]any, key string) (float64, bool) {
	switch v := ext[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

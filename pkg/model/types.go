package model

// FieldType is the closed enumeration of field kinds a schema may declare.
type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypePhone    FieldType = "tel"
	FieldTypeEmail    FieldType = "email"
	FieldTypeTextarea FieldType = "textarea"
	FieldTypeDate     FieldType = "date"
	FieldTypeDropdown FieldType = "dropdown"
	FieldTypeRadio    FieldType = "radio"
	FieldTypeCheckbox FieldType = "checkbox"
)

// FieldTypes lists every supported field type in declaration order.
var FieldTypes = []FieldType{
	FieldTypeText,
	FieldTypePhone,
	FieldTypeEmail,
	FieldTypeTextarea,
	FieldTypeDate,
	FieldTypeDropdown,
	FieldTypeRadio,
	FieldTypeCheckbox,
}

// Known reports whether t is one of the supported field types.
func (t FieldType) Known() bool {
	for _, candidate := range FieldTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// StringValued reports whether values of this type are stored as strings.
func (t FieldType) StringValued() bool {
	switch t {
	case FieldTypeText, FieldTypePhone, FieldTypeEmail, FieldTypeTextarea,
		FieldTypeDate, FieldTypeDropdown, FieldTypeRadio:
		return true
	default:
		return false
	}
}

// HasOptions reports whether the type picks its value from Field.Options.
func (t FieldType) HasOptions() bool {
	return t == FieldTypeDropdown || t == FieldTypeRadio
}

// Option is a single (value, label) choice for dropdown and radio fields.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

// DisplayLabel returns the label, falling back to the raw value.
func (o Option) DisplayLabel() string {
	if o.Label != "" {
		return o.Label
	}
	return o.Value
}

// ValidationOverride replaces the default required message for a field.
type ValidationOverride struct {
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

// Field describes a single input inside a section.
type Field struct {
	ID          string              `json:"fieldId" yaml:"fieldId"`
	Type        FieldType           `json:"type" yaml:"type"`
	Label       string              `json:"label" yaml:"label"`
	Placeholder string              `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Required    bool                `json:"required,omitempty" yaml:"required,omitempty"`
	Validation  *ValidationOverride `json:"validation,omitempty" yaml:"validation,omitempty"`
	Options     []Option            `json:"options,omitempty" yaml:"options,omitempty"`
	MinLength   *int                `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength   *int                `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
}

// DisplayLabel returns the declared label or a humanised identifier.
func (f Field) DisplayLabel() string {
	if f.Label != "" {
		return f.Label
	}
	return DefaultLabeler(f.ID)
}

// IsStringValued reports whether the field stores a string value.
func (f Field) IsStringValued() bool {
	return f.Type.StringValued()
}

// ValidationMessage returns the override message, if any.
func (f Field) ValidationMessage() string {
	if f.Validation == nil {
		return ""
	}
	return f.Validation.Message
}

// Section is an ordered group of fields shown together.
type Section struct {
	ID          int     `json:"sectionId" yaml:"sectionId"`
	Title       string  `json:"title" yaml:"title"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
	Fields      []Field `json:"fields" yaml:"fields"`
}

// Field looks up a field by identifier.
func (s Section) Field(id string) (Field, bool) {
	for _, field := range s.Fields {
		if field.ID == id {
			return field, true
		}
	}
	return Field{}, false
}

// FormSchema is the top-level document served by the schema endpoint.
type FormSchema struct {
	ID       string    `json:"formId" yaml:"formId"`
	Title    string    `json:"formTitle" yaml:"formTitle"`
	Version  string    `json:"version" yaml:"version"`
	Sections []Section `json:"sections" yaml:"sections"`
}

// FindField returns the first field with the given identifier and the index
// of the section that owns it.
func (s FormSchema) FindField(id string) (Field, int, bool) {
	for idx, section := range s.Sections {
		if field, ok := section.Field(id); ok {
			return field, idx, true
		}
	}
	return Field{}, -1, false
}

// FieldCount returns the number of fields across all sections.
func (s FormSchema) FieldCount() int {
	total := 0
	for _, section := range s.Sections {
		total += len(section.Fields)
	}
	return total
}

// IntPtr is a small helper for populating MinLength/MaxLength literals.
func IntPtr(v int) *int {
	return &v
}

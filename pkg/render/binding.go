package render

import (
	"net/url"
	"strings"

	"github.com/goliatone/go-stepform/pkg/model"
)

// Control is the concrete input representation chosen for a field type.
type Control string

const (
	ControlInput    Control = "input"
	ControlTextarea Control = "textarea"
	ControlSelect   Control = "select"
	ControlRadio    Control = "radio"
	ControlCheckbox Control = "checkbox"
)

// DefaultSelectPrompt labels the empty choice of a dropdown without a
// placeholder.
const DefaultSelectPrompt = "Select an option"

// OptionView is a bound choice for select and radio controls.
type OptionView struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

// FieldView is a field bound to its current value and error, ready for a
// renderer to draw.
type FieldView struct {
	ID          string          `json:"id"`
	Type        model.FieldType `json:"type"`
	Control     Control         `json:"control"`
	InputType   string          `json:"inputType,omitempty"`
	Label       string          `json:"label"`
	Placeholder string          `json:"placeholder,omitempty"`
	Required    bool            `json:"required"`
	Value       string          `json:"value"`
	Checked     bool            `json:"checked"`
	Options     []OptionView    `json:"options,omitempty"`
	MinLength   *int            `json:"minLength,omitempty"`
	MaxLength   *int            `json:"maxLength,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// HasError reports whether the field carries an inline error.
func (f FieldView) HasError() bool {
	return f.Error != ""
}

// ControlFor maps a field type to its control and, for single-line inputs,
// the HTML input type.
func ControlFor(t model.FieldType) (Control, string) {
	switch t {
	case model.FieldTypeText, model.FieldTypePhone, model.FieldTypeEmail, model.FieldTypeDate:
		return ControlInput, string(t)
	case model.FieldTypeTextarea:
		return ControlTextarea, ""
	case model.FieldTypeDropdown:
		return ControlSelect, ""
	case model.FieldTypeRadio:
		return ControlRadio, ""
	case model.FieldTypeCheckbox:
		return ControlCheckbox, ""
	default:
		return ControlInput, string(model.FieldTypeText)
	}
}

// BindField binds a field definition to the stored value and error.
func BindField(field model.Field, values model.Values, errs model.Errors) FieldView {
	control, inputType := ControlFor(field.Type)
	view := FieldView{
		ID:          field.ID,
		Type:        field.Type,
		Control:     control,
		InputType:   inputType,
		Label:       field.DisplayLabel(),
		Placeholder: field.Placeholder,
		Required:    field.Required,
		MinLength:   field.MinLength,
		MaxLength:   field.MaxLength,
		Error:       errs.Message(field.ID),
	}

	raw, _ := values.Lookup(field.ID)
	switch control {
	case ControlCheckbox:
		view.Checked = values.Bool(field.ID)
	case ControlSelect:
		view.Value = values.String(field.ID)
		prompt := field.Placeholder
		if prompt == "" {
			prompt = DefaultSelectPrompt
		}
		view.Options = make([]OptionView, 0, len(field.Options)+1)
		view.Options = append(view.Options, OptionView{Value: "", Label: prompt, Selected: view.Value == ""})
		view.Options = append(view.Options, bindOptions(field.Options, raw)...)
	case ControlRadio:
		view.Value = values.String(field.ID)
		view.Options = bindOptions(field.Options, raw)
	default:
		view.Value = values.String(field.ID)
	}
	return view
}

// BindSection binds every field of a section, preserving order.
func BindSection(section model.Section, values model.Values, errs model.Errors) []FieldView {
	views := make([]FieldView, 0, len(section.Fields))
	for _, field := range section.Fields {
		views = append(views, BindField(field, values, errs))
	}
	return views
}

// OptionSelected reports whether a stored value selects the option. Selection
// is plain equality between the stored string and the option value.
func OptionSelected(value any, option model.Option) bool {
	s, ok := value.(string)
	return ok && s == option.Value
}

func bindOptions(options []model.Option, value any) []OptionView {
	out := make([]OptionView, 0, len(options))
	for _, opt := range options {
		out = append(out, OptionView{
			Value:    opt.Value,
			Label:    opt.DisplayLabel(),
			Selected: OptionSelected(value, opt),
		})
	}
	return out
}

// DecodeInput converts a raw textual input into the stored value for the
// field: a bool for checkboxes, the string itself otherwise.
func DecodeInput(field model.Field, raw string) any {
	if field.Type == model.FieldTypeCheckbox {
		return parseCheckbox(raw)
	}
	return raw
}

func parseCheckbox(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "on", "true", "1", "yes", "y", "checked":
		return true
	default:
		return false
	}
}

// DecodeForm extracts the section's values from an HTML form post. Checkboxes
// absent from the post decode as false; other absent keys are left out so
// they keep their stored value.
func DecodeForm(section model.Section, form url.Values) model.Values {
	out := make(model.Values, len(section.Fields))
	for _, field := range section.Fields {
		if field.Type == model.FieldTypeCheckbox {
			out[field.ID] = form.Has(field.ID) && parseCheckbox(form.Get(field.ID))
			continue
		}
		if !form.Has(field.ID) {
			continue
		}
		out[field.ID] = form.Get(field.ID)
	}
	return out
}

// ValueSetter receives field changes. session.Session satisfies it.
type ValueSetter interface {
	Value(id string) (any, bool)
	SetValue(id string, value any) error
}

// ApplyForm decodes a form post for the section and forwards each changed
// value to the setter in field order, stopping at the first error. A value
// equal to the stored one is skipped so its field error survives; an unset
// field compares as its empty input.
func ApplyForm(setter ValueSetter, section model.Section, form url.Values) error {
	decoded := DecodeForm(section, form)
	for _, field := range section.Fields {
		value, ok := decoded[field.ID]
		if !ok {
			continue
		}
		current, stored := setter.Value(field.ID)
		if !stored {
			current = DecodeInput(field, "")
		}
		if sameValue(current, value) {
			continue
		}
		if err := setter.SetValue(field.ID, value); err != nil {
			return err
		}
	}
	return nil
}

func sameValue(a, b any) bool {
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	default:
		return false
	}
}

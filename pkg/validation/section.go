package validation

import "github.com/goliatone/go-stepform/pkg/model"

// ValidateSection runs ValidateField over every field of the section and
// returns a freshly built error map. Every failing field is reported; an
// absent value is validated as empty.
func ValidateSection(section model.Section, values model.Values) (bool, model.Errors) {
	return DefaultMessages.ValidateSection(section, values)
}

// ValidateSection is ValidateSection using the receiver's message formatters.
func (m Messages) ValidateSection(section model.Section, values model.Values) (bool, model.Errors) {
	errs := make(model.Errors)
	for _, field := range section.Fields {
		value, _ := values.Lookup(field.ID)
		if msg := m.ValidateField(field, value); msg != "" {
			errs[field.ID] = msg
		}
	}
	return len(errs) == 0, errs
}

// ValidateForm validates every section and merges the results. When the same
// identifier appears in several sections, the first failing section wins.
func ValidateForm(schema model.FormSchema, values model.Values) (bool, model.Errors) {
	merged := make(model.Errors)
	for _, section := range schema.Sections {
		_, errs := ValidateSection(section, values)
		for id, msg := range errs {
			if _, exists := merged[id]; !exists {
				merged[id] = msg
			}
		}
	}
	return len(merged) == 0, merged
}

package testsupport

import (
	"bytes"
	_ "embed"
	"io"
	"testing"

	"github.com/goliatone/go-stepform/pkg/model"
)

//go:embed testdata/registration.json
var registrationJSON []byte

// RegistrationJSON returns the raw two-section registration fixture.
func RegistrationJSON() []byte {
	return bytes.Clone(registrationJSON)
}

// RegistrationSchema returns the registration fixture parsed and validated.
// Section 1 holds fullName, email, phone and birthDate; section 2 holds
// course, shift, motivation and terms.
func RegistrationSchema(t testing.TB) model.FormSchema {
	t.Helper()

	schema, err := model.ParseSchema(registrationJSON, model.FormatJSON)
	if err != nil {
		t.Fatalf("parse registration fixture: %v", err)
	}
	return schema
}

// FirstSectionValues returns values that pass section 1 of the registration
// fixture.
func FirstSectionValues() model.Values {
	return model.Values{
		"fullName":  "Ada Lovelace",
		"email":     "ada@example.com",
		"birthDate": "1815-12-10",
	}
}

// SecondSectionValues returns values that pass section 2 of the registration
// fixture.
func SecondSectionValues() model.Values {
	return model.Values{
		"course": "cs",
		"shift":  "evening",
		"terms":  true,
	}
}

// CaptureTemplateOutput executes a render function that writes to an io.Writer,
// returning both the string result and the writer contents.
func CaptureTemplateOutput(t *testing.T, render func(io.Writer) (string, error)) (string, string) {
	t.Helper()

	var buf bytes.Buffer
	out, err := render(&buf)
	if err != nil {
		t.Fatalf("render template: %v", err)
	}

	return out, buf.String()
}

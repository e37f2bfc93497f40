package openapi

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-stepform/pkg/model"
)

func readFixture(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/enrollment.yaml")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return data
}

func TestSchemaFromOperation(t *testing.T) {
	schema, err := SchemaFromOperation(context.Background(), readFixture(t), "createEnrollment", Options{Validate: true})
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	want := model.FormSchema{
		ID:      "createEnrollment",
		Title:   "Course enrollment",
		Version: "2024.1",
		Sections: []model.Section{
			{
				ID:    1,
				Title: DefaultSectionTitle,
				Fields: []model.Field{
					{ID: "fullName", Type: model.FieldTypeText, Label: "Full name", Placeholder: "Jane Doe", Required: true, MinLength: model.IntPtr(3), MaxLength: model.IntPtr(40)},
					{ID: "email", Type: model.FieldTypeEmail, Label: "Email", Placeholder: "We reply here", Required: true},
					{ID: "birthDate", Type: model.FieldTypeDate, Label: "Birth Date"},
					{ID: "terms", Type: model.FieldTypeCheckbox, Label: "I accept the terms", Required: true},
				},
			},
			{
				ID:          2,
				Title:       "Course choice",
				Description: "Pick what you want to study",
				Fields: []model.Field{
					{ID: "course.motivation", Type: model.FieldTypeTextarea, Label: "Motivation", MinLength: model.IntPtr(10)},
					{ID: "course.phone", Type: model.FieldTypePhone, Label: "Phone"},
					{ID: "course.program", Type: model.FieldTypeDropdown, Label: "Program", Required: true, Options: []model.Option{{Value: "cs"}, {Value: "math"}}},
					{ID: "course.shift", Type: model.FieldTypeRadio, Label: "Shift", Options: []model.Option{{Value: "morning"}, {Value: "evening"}}},
				},
			},
		},
	}
	if diff := cmp.Diff(want, schema); diff != "" {
		t.Fatalf("schema mismatch (-want +got):\n%s", diff)
	}
}

func TestSchemaFromOperationSectionTitle(t *testing.T) {
	schema, err := SchemaFromOperation(context.Background(), readFixture(t), "createEnrollment", Options{DefaultSectionTitle: "About you"})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if schema.Sections[0].Title != "About you" {
		t.Fatalf("title = %q", schema.Sections[0].Title)
	}
}

func TestSchemaFromOperationErrors(t *testing.T) {
	data := readFixture(t)
	ctx := context.Background()

	if _, err := SchemaFromOperation(ctx, data, "missing", Options{}); !errors.Is(err, ErrOperationNotFound) {
		t.Fatalf("expected ErrOperationNotFound, got %v", err)
	}
	if _, err := SchemaFromOperation(ctx, data, "ping", Options{}); !errors.Is(err, ErrNoRequestBody) {
		t.Fatalf("expected ErrNoRequestBody, got %v", err)
	}
	if _, err := SchemaFromOperation(ctx, []byte("{not yaml"), "ping", Options{}); err == nil {
		t.Fatalf("expected load error")
	}

	onlyArrays := []byte(`openapi: 3.0.3
info: {title: t, version: "1"}
paths:
  /x:
    post:
      operationId: arrays
      requestBody:
        content:
          application/json:
            schema:
              type: object
              properties:
                tags: {type: array, items: {type: string}}
      responses:
        "200": {description: ok}
`)
	if _, err := SchemaFromOperation(ctx, onlyArrays, "arrays", Options{}); !errors.Is(err, ErrNoFields) {
		t.Fatalf("expected ErrNoFields, got %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := SchemaFromOperation(cancelled, data, "createEnrollment", Options{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

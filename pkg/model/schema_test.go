package model_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-stepform/pkg/model"
)

func TestLoadSchemaFile_JSON(t *testing.T) {
	schema, err := model.LoadSchemaFile("testdata/registration.json")
	if err != nil {
		t.Fatalf("load schema: %v", err)
	}

	if schema.ID != "student-registration" || schema.Version != "3" {
		t.Fatalf("unexpected header: %+v", schema)
	}
	if len(schema.Sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(schema.Sections))
	}
	if got := schema.FieldCount(); got != 8 {
		t.Fatalf("expected 8 fields, got %d", got)
	}

	name, idx, ok := schema.FindField("fullName")
	if !ok || idx != 0 {
		t.Fatalf("expected fullName in section 0, got ok=%v idx=%d", ok, idx)
	}
	if name.MinLength == nil || *name.MinLength != 3 || name.MaxLength == nil || *name.MaxLength != 40 {
		t.Fatalf("length bounds not decoded: %+v", name)
	}

	email, _, _ := schema.FindField("email")
	if got := email.ValidationMessage(); got != "We need an email to reach you" {
		t.Fatalf("validation override = %q", got)
	}

	course, _, _ := schema.FindField("course")
	want := []model.Option{
		{Value: "cs", Label: "Computer Science"},
		{Value: "math", Label: "Mathematics"},
	}
	if diff := cmp.Diff(want, course.Options); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadSchemaFile_YAML(t *testing.T) {
	schema, err := model.LoadSchemaFile("testdata/registration.yaml")
	if err != nil {
		t.Fatalf("load schema: %v", err)
	}
	shift, idx, ok := schema.FindField("shift")
	if !ok || idx != 1 {
		t.Fatalf("expected shift in section 1")
	}
	if shift.Type != model.FieldTypeRadio || len(shift.Options) != 2 {
		t.Fatalf("unexpected radio field: %+v", shift)
	}
	if got := shift.Options[0].DisplayLabel(); got != "morning" {
		t.Fatalf("option label fallback = %q", got)
	}
}

func TestFormatFromPath(t *testing.T) {
	cases := map[string]model.Format{
		"form.yaml":      model.FormatYAML,
		"form.YML":       model.FormatYAML,
		"form.json":      model.FormatJSON,
		"form":           model.FormatJSON,
		"dir.yaml/x.txt": model.FormatJSON,
	}
	for path, want := range cases {
		if got := model.FormatFromPath(path); got != want {
			t.Errorf("FormatFromPath(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestLintReportsEveryProblem(t *testing.T) {
	schema := model.FormSchema{
		ID: "broken",
		Sections: []model.Section{
			{
				ID: 1,
				Fields: []model.Field{
					{ID: "a", Type: model.FieldTypeText},
					{ID: "a", Type: model.FieldTypeEmail},
					{ID: "pick", Type: model.FieldTypeDropdown},
					{ID: "agree", Type: model.FieldTypeCheckbox, MinLength: model.IntPtr(1)},
					{ID: "bounds", Type: model.FieldTypeText, MinLength: model.IntPtr(5), MaxLength: model.IntPtr(2)},
					{ID: "mystery", Type: "slider"},
					{Type: model.FieldTypeText},
					{ID: "_session", Type: model.FieldTypeText},
				},
			},
		},
	}

	err := schema.Lint()
	if !errors.Is(err, model.ErrInvalidSchema) {
		t.Fatalf("expected ErrInvalidSchema, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{
		`duplicate field id "a"`,
		`dropdown field "pick" requires options`,
		`length bounds are not allowed on checkbox field "agree"`,
		"minLength 5 exceeds maxLength 2",
		`unknown field type "slider"`,
		"field id is required",
		`field id "_session" must not start with "_"`,
	} {
		if !strings.Contains(msg, fragment) {
			t.Errorf("expected %q in error:\n%s", fragment, msg)
		}
	}
}

func TestValidateLeavesLengthBoundsToLint(t *testing.T) {
	schema := model.FormSchema{
		Sections: []model.Section{{ID: 1, Fields: []model.Field{
			{ID: "agree", Type: model.FieldTypeCheckbox, MinLength: model.IntPtr(1)},
			{ID: "code", Type: model.FieldTypeText, MaxLength: model.IntPtr(-2)},
		}}},
	}
	if err := schema.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := schema.Lint(); !errors.Is(err, model.ErrInvalidSchema) {
		t.Fatalf("expected lint to reject bounds, got %v", err)
	}
}

func TestNormalizeBounds(t *testing.T) {
	schema := model.FormSchema{
		Sections: []model.Section{{ID: 1, Fields: []model.Field{
			{ID: "agree", Type: model.FieldTypeCheckbox, MinLength: model.IntPtr(1)},
			{ID: "code", Type: model.FieldTypeText, MinLength: model.IntPtr(5), MaxLength: model.IntPtr(2)},
			{ID: "alias", Type: model.FieldTypeText, MinLength: model.IntPtr(-1)},
			{ID: "motto", Type: model.FieldTypeText, MinLength: model.IntPtr(2), MaxLength: model.IntPtr(10)},
		}}},
	}

	got, dropped := schema.NormalizeBounds()
	if len(dropped) != 3 {
		t.Fatalf("dropped = %v", dropped)
	}
	want := []model.Field{
		{ID: "agree", Type: model.FieldTypeCheckbox},
		{ID: "code", Type: model.FieldTypeText},
		{ID: "alias", Type: model.FieldTypeText},
		{ID: "motto", Type: model.FieldTypeText, MinLength: model.IntPtr(2), MaxLength: model.IntPtr(10)},
	}
	if diff := cmp.Diff(want, got.Sections[0].Fields); diff != "" {
		t.Fatalf("normalized fields (-want +got):\n%s", diff)
	}
	if schema.Sections[0].Fields[1].MinLength == nil {
		t.Fatalf("original schema was modified")
	}
	if err := got.Lint(); err != nil {
		t.Fatalf("normalized schema should lint clean: %v", err)
	}
}

func TestValidateAllowsSameIDAcrossSections(t *testing.T) {
	schema := model.FormSchema{
		Sections: []model.Section{
			{ID: 1, Fields: []model.Field{{ID: "notes", Type: model.FieldTypeTextarea}}},
			{ID: 2, Fields: []model.Field{{ID: "notes", Type: model.FieldTypeTextarea}}},
		},
	}
	if err := schema.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRequiresSections(t *testing.T) {
	if err := (model.FormSchema{ID: "empty"}).Validate(); !errors.Is(err, model.ErrInvalidSchema) {
		t.Fatalf("expected ErrInvalidSchema, got %v", err)
	}
}

func TestParseSchemaRejectsMalformedJSON(t *testing.T) {
	if _, err := model.ParseSchema([]byte(`{"sections": [`), model.FormatJSON); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestDefaultLabeler(t *testing.T) {
	cases := map[string]string{
		"rollNumber":     "Roll Number",
		"guardian_phone": "Guardian Phone",
		"address-line2":  "Address Line 2",
		"":               "",
	}
	for in, want := range cases {
		if got := model.DefaultLabeler(in); got != want {
			t.Errorf("DefaultLabeler(%q) = %q, want %q", in, got, want)
		}
	}

	field := model.Field{ID: "homeTown"}
	if got := field.DisplayLabel(); got != "Home Town" {
		t.Fatalf("DisplayLabel fallback = %q", got)
	}
}

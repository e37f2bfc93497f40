package render

import (
	"github.com/goliatone/go-stepform/pkg/model"
	"github.com/goliatone/go-stepform/pkg/navigator"
)

// PageKind identifies which screen a Page describes.
type PageKind string

const (
	PageLogin   PageKind = "login"
	PageLoading PageKind = "loading"
	PageFailed  PageKind = "failed"
	PageSection PageKind = "section"
	PageDone    PageKind = "done"
)

// SectionView is the visible section with its fields bound.
type SectionView struct {
	ID          int         `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Fields      []FieldView `json:"fields"`
}

// Page is a render-ready snapshot of a session. Renderers never reach back
// into the session; everything they draw is here.
type Page struct {
	Kind       PageKind           `json:"kind"`
	FormID     string             `json:"formId,omitempty"`
	FormTitle  string             `json:"formTitle,omitempty"`
	Version    string             `json:"version,omitempty"`
	Identifier string             `json:"identifier,omitempty"`
	Name       string             `json:"name,omitempty"`
	Section    *SectionView       `json:"section,omitempty"`
	Controls   navigator.Controls `json:"controls"`
	Step       int                `json:"step,omitempty"`
	Total      int                `json:"total,omitempty"`
	Hidden     []HiddenField      `json:"hidden,omitempty"`
	FormErrors []string           `json:"formErrors,omitempty"`
	Message    string             `json:"message,omitempty"`
	Submitted  model.Values       `json:"submitted,omitempty"`
	Action     string             `json:"action,omitempty"`
}

// SectionPage describes the inputs needed to build a section page.
type SectionPage struct {
	Schema   model.FormSchema
	Index    int
	Values   model.Values
	Errors   model.Errors
	Controls navigator.Controls
}

// BuildSectionPage binds the section at in.Index into a Page.
func BuildSectionPage(in SectionPage) Page {
	page := Page{
		Kind:      PageSection,
		FormID:    in.Schema.ID,
		FormTitle: in.Schema.Title,
		Version:   in.Schema.Version,
		Controls:  in.Controls,
		Step:      in.Index + 1,
		Total:     len(in.Schema.Sections),
	}
	if in.Index < 0 || in.Index >= len(in.Schema.Sections) {
		return page
	}
	section := in.Schema.Sections[in.Index]
	page.Section = &SectionView{
		ID:          section.ID,
		Title:       section.Title,
		Description: section.Description,
		Fields:      BindSection(section, in.Values, in.Errors),
	}
	return page
}

package session

import (
	"github.com/goliatone/go-stepform/pkg/render"
)

// FailedMessage is shown when the schema could not be loaded.
const FailedMessage = "We could not load your form. Please try again."

// Page returns a render snapshot of the session for its current state.
func (s *Session) Page() render.Page {
	base := render.Page{
		Identifier: s.identity.Identifier,
		Name:       s.identity.Name,
	}

	switch s.state {
	case StateReady:
		page := render.BuildSectionPage(render.SectionPage{
			Schema:   s.schema,
			Index:    s.nav.Index(),
			Values:   s.values,
			Errors:   s.errors,
			Controls: s.nav.Controls(),
		})
		page.Identifier = base.Identifier
		page.Name = base.Name
		page.FormErrors = s.FormErrors()
		return page
	case StateSubmitted:
		base.Kind = render.PageDone
		base.FormID = s.schema.ID
		base.FormTitle = s.schema.Title
		base.Version = s.schema.Version
		if sub, ok := s.Submission(); ok {
			base.Submitted = sub.Values
		}
		return base
	case StateFailed:
		base.Kind = render.PageFailed
		base.Message = FailedMessage
		return base
	default:
		base.Kind = render.PageLoading
		return base
	}
}

package vanilla

// ChromeClass is a typed identifier for semantic chrome CSS classes.
type ChromeClass string

const (
	ClassPage     ChromeClass = "stepform-page"
	ClassForm     ChromeClass = "stepform-form"
	ClassHeader   ChromeClass = "stepform-header"
	ClassSection  ChromeClass = "stepform-section"
	ClassActions  ChromeClass = "stepform-actions"
	ClassErrors   ChromeClass = "stepform-errors"
	ClassProgress ChromeClass = "stepform-progress"
)

// ChromeClasses overrides the classes applied to page chrome. Empty entries
// keep the defaults.
type ChromeClasses struct {
	Page     string
	Form     string
	Header   string
	Section  string
	Actions  string
	Errors   string
	Progress string
}

// DefaultChromeClasses returns the built-in class set.
func DefaultChromeClasses() ChromeClasses {
	return ChromeClasses{
		Page:     string(ClassPage),
		Form:     string(ClassForm),
		Header:   string(ClassHeader),
		Section:  string(ClassSection),
		Actions:  string(ClassActions),
		Errors:   string(ClassErrors),
		Progress: string(ClassProgress),
	}
}

func (c ChromeClasses) merge(override ChromeClasses) ChromeClasses {
	pick := func(base, candidate string) string {
		if cleaned := sanitizeClassList(candidate); cleaned != "" {
			return base + " " + cleaned
		}
		return base
	}
	return ChromeClasses{
		Page:     pick(c.Page, override.Page),
		Form:     pick(c.Form, override.Form),
		Header:   pick(c.Header, override.Header),
		Section:  pick(c.Section, override.Section),
		Actions:  pick(c.Actions, override.Actions),
		Errors:   pick(c.Errors, override.Errors),
		Progress: pick(c.Progress, override.Progress),
	}
}

func (c ChromeClasses) context() map[string]any {
	return map[string]any{
		"page":     c.Page,
		"form":     c.Form,
		"header":   c.Header,
		"section":  c.Section,
		"actions":  c.Actions,
		"errors":   c.Errors,
		"progress": c.Progress,
	}
}

package interactive

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/goliatone/go-stepform/pkg/render"
	"github.com/goliatone/go-stepform/pkg/session"
)

// View renders the screen for the session state.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	page := m.session.Page()
	var body string
	switch page.Kind {
	case render.PageSection:
		body = m.viewSection(page)
	case render.PageDone:
		body = m.viewDone(page)
	case render.PageFailed:
		body = m.viewFailed(page.Message)
	default:
		if !m.fetching && m.status != "" {
			body = m.viewFailed(m.status)
		} else {
			body = m.spinner.View() + " Loading the form for " + page.Identifier + "..."
		}
	}
	return m.styles.Box.Render(body) + "\n"
}

func (m Model) viewFailed(message string) string {
	if message == "" {
		message = session.FailedMessage
	}
	lines := []string{m.styles.Error.Render(message)}
	if m.fetching {
		lines = append(lines, m.spinner.View()+" Retrying...")
	} else {
		lines = append(lines, m.styles.Help.Render("r retry • q quit"))
	}
	return strings.Join(lines, "\n")
}

func (m Model) viewDone(page render.Page) string {
	return strings.Join([]string{
		m.styles.Title.Render(page.FormTitle),
		m.styles.Chosen.Render("Thank you, " + page.Name + ". Your form has been submitted."),
		m.styles.Help.Render("enter quit"),
	}, "\n")
}

func (m Model) viewSection(page render.Page) string {
	var b strings.Builder
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Bottom,
		m.styles.Title.Render(page.FormTitle),
		"  ",
		m.styles.Progress.Render(progress(page.Step, page.Total)),
	))
	b.WriteString("\n\n")
	b.WriteString(m.styles.Section.Render(page.Section.Title))
	b.WriteString("\n")
	if desc := strings.TrimSpace(m.plain.Sanitize(page.Section.Description)); desc != "" {
		b.WriteString(m.styles.Description.Render(desc))
		b.WriteString("\n")
	}
	for _, msg := range page.FormErrors {
		b.WriteString(m.styles.Error.Render("! " + msg))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	for i, field := range page.Section.Fields {
		b.WriteString(m.viewField(field, i == m.focus))
		b.WriteString("\n")
	}

	if m.status != "" {
		b.WriteString(m.styles.Error.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(m.styles.Help.Render(m.help()))
	return b.String()
}

func (m Model) viewField(field render.FieldView, focused bool) string {
	label := field.Label
	if field.Required {
		label += " *"
	}
	marker := "  "
	labelStyle := m.styles.Label
	if focused {
		marker = "> "
		labelStyle = m.styles.FocusedLabel
	}

	var control string
	switch field.Control {
	case render.ControlSelect:
		control = "< " + formatChoice(field) + " >"
	case render.ControlRadio:
		choices := make([]string, 0, len(field.Options))
		for _, opt := range field.Options {
			if opt.Selected {
				choices = append(choices, m.styles.Chosen.Render("(•) "+opt.Label))
			} else {
				choices = append(choices, m.styles.Choice.Render("( ) "+opt.Label))
			}
		}
		control = strings.Join(choices, "  ")
	case render.ControlCheckbox:
		if field.Checked {
			control = m.styles.Chosen.Render("[x]")
		} else {
			control = m.styles.Choice.Render("[ ]")
		}
	case render.ControlTextarea:
		if area, ok := m.areas[field.ID]; ok {
			control = area.View()
		}
	default:
		if input, ok := m.inputs[field.ID]; ok {
			control = input.View()
		}
	}

	out := marker + labelStyle.Render(label) + "\n  " + control
	if field.Error != "" {
		out += "\n  " + m.styles.Error.Render(field.Error)
	}
	return out
}

func progress(step, total int) string {
	return fmt.Sprintf("step %d of %d", step, total)
}

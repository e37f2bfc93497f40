package interactive

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles used by View.
type Styles struct {
	Title        lipgloss.Style
	Progress     lipgloss.Style
	Section      lipgloss.Style
	Description  lipgloss.Style
	Label        lipgloss.Style
	FocusedLabel lipgloss.Style
	Choice       lipgloss.Style
	Chosen       lipgloss.Style
	Error        lipgloss.Style
	Help         lipgloss.Style
	Box          lipgloss.Style
}

// DefaultStyles returns the built-in palette.
func DefaultStyles() Styles {
	return Styles{
		Title:        lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")),
		Progress:     lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Section:      lipgloss.NewStyle().Bold(true).Underline(true),
		Description:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true),
		Label:        lipgloss.NewStyle(),
		FocusedLabel: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		Choice:       lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		Chosen:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		Error:        lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Help:         lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Box:          lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238")).Padding(0, 1),
	}
}

package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Palette
	Primary   = lipgloss.Color("#0EA5E9") // sky
	Secondary = lipgloss.Color("#14B8A6") // teal
	Success   = lipgloss.Color("#22C55E") // green
	Warning   = lipgloss.Color("#F59E0B") // amber
	Error     = lipgloss.Color("#EF4444") // red
	Muted     = lipgloss.Color("#6B7280") // gray
	Text      = lipgloss.Color("#E5E7EB") // light gray
	Highlight = lipgloss.Color("#FFFFFF")

	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary).
		MarginBottom(1)

	Subtitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Secondary)

	// Label is the left column of form rows and stat boxes.
	Label = lipgloss.NewStyle().
		Foreground(Muted).
		Width(16)

	Value = lipgloss.NewStyle().
		Foreground(Text)

	Hint = lipgloss.NewStyle().
		Foreground(Muted).
		Italic(true)

	ActiveItem = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	InactiveItem = lipgloss.NewStyle().
			Foreground(Muted)

	Checked = lipgloss.NewStyle().
		Foreground(Success).
		Bold(true)

	StatusBar = lipgloss.NewStyle().
			Foreground(Muted).
			MarginTop(1)

	Border = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Muted).
		Padding(1, 2)

	FocusedBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(1, 2)

	ErrorText = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	SuccessText = lipgloss.NewStyle().
			Foreground(Success).
			Bold(true)
)

// Check renders a checkbox marker.
func Check(on bool) string {
	if on {
		return Checked.Render("[x]")
	}
	return InactiveItem.Render("[ ]")
}

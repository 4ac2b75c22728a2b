package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/plode/nmpopup/internal/popup"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#2463EB")).Padding(0, 1)
	hostStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#A5B0CC"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	timeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	valueStyle = lipgloss.NewStyle().Bold(true)

	buttonStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("241")).
			Padding(0, 2)
	focusedButtonStyle = buttonStyle.
				BorderForeground(lipgloss.Color("#7AA2FF")).
				Foreground(lipgloss.Color("#7AA2FF")).
				Bold(true)

	logStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), true, false, false, false).
			BorderForeground(lipgloss.Color("238"))

	kindStyles = map[popup.EntryKind]lipgloss.Style{
		popup.EntryStatus:   lipgloss.NewStyle().Foreground(lipgloss.Color("#A5B0CC")),
		popup.EntrySent:     lipgloss.NewStyle().Foreground(lipgloss.Color("#7AA2FF")),
		popup.EntryReceived: lipgloss.NewStyle().Foreground(lipgloss.Color("#2DD4BF")),
		popup.EntryFailure:  lipgloss.NewStyle().Foreground(lipgloss.Color("#FB7185")),
	}
)

func renderButton(label string, focused bool) string {
	if focused {
		return focusedButtonStyle.Render(label)
	}
	return buttonStyle.Render(label)
}

func renderEntry(e popup.Entry) string {
	style, ok := kindStyles[e.Kind]
	if !ok {
		style = lipgloss.NewStyle()
	}
	return timeStyle.Render(e.Time.Format("15:04:05")) + " " + style.Render(e.Prefix) + valueStyle.Render(e.Value)
}

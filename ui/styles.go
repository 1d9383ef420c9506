package ui

import "github.com/charmbracelet/lipgloss"

var (
	subtleStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#5C5C5C"})
	paneTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#AD58B4")).Padding(0, 1)

	errorTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ECFD65")).Background(lipgloss.Color("#F25D94")).Padding(0, 1)
	errorTextStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F25D94"))

	statusBarStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#343433", Dark: "#C1C6B2"}).
			Background(lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#353533"})

	playerTitleStyle  = lipgloss.NewStyle().Bold(true)
	playerDetailStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#847A85", Dark: "#979797"})
	playerStateStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#04B575"))
	playerErrorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F25D94"))

	issueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ECB94A"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
)

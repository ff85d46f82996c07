package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/stride/internal/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(lipgloss.Color("236")).
			Padding(0, 1).
			Bold(true)

	filterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Padding(0, 1)

	activeFilterStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("214")).
				Padding(0, 1).
				Bold(true)

	dangerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Italic(true)

	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	detailStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)

	docStyle = lipgloss.NewStyle().Padding(1, 2)
)

var healthStyles = map[models.HealthStatus]lipgloss.Style{
	models.HealthHealthy: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	models.HealthAtRisk:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	models.HealthBehind:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	models.HealthDormant: lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true),
}

func healthStyle(status models.HealthStatus) lipgloss.Style {
	if s, ok := healthStyles[status]; ok {
		return s
	}
	return mutedStyle
}

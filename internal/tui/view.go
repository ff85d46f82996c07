package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/stride/internal/cli"
	"github.com/julianstephens/stride/internal/health"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	if m.state == StateAddGoal {
		var b strings.Builder
		b.WriteString(titleStyle.Render("New goal"))
		b.WriteString("\n\n")
		if m.formError != "" {
			b.WriteString(dangerStyle.Render(m.formError))
			b.WriteString("\n\n")
		}
		b.WriteString(m.form.View())
		return docStyle.Render(b.String())
	}

	ui := lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewHeader(),
		"",
		m.viewTable(),
		m.viewDetail(),
		m.help.View(m.keys),
	)
	return docStyle.Render(ui)
}

func (m Model) viewHeader() string {
	tabs := []string{titleStyle.Render("stride")}

	style := filterStyle
	if m.filter < 0 {
		style = activeFilterStyle
	}
	tabs = append(tabs, style.Render("all"))
	for i, f := range health.QuickFilters() {
		style := filterStyle
		if i == m.filter {
			style = activeFilterStyle
		}
		tabs = append(tabs, style.Render(strings.ReplaceAll(string(f), "_", " ")))
	}

	if m.loading {
		tabs = append(tabs, mutedStyle.Render("  loading…"))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) viewTable() string {
	if m.err != nil {
		return dangerStyle.Render(m.err.Error())
	}
	if len(m.goals) == 0 && !m.loading {
		return "\n  No goals yet.\n  Press 'a' to add one."
	}
	if len(m.visible) == 0 && !m.loading {
		return warningStyle.Render(fmt.Sprintf("  No goals match %s", m.activeFilter()))
	}
	return m.table.View()
}

func (m Model) viewDetail() string {
	g, ok := m.selected()
	if !ok {
		return ""
	}
	res, ok := m.results[g.ID]
	if !ok {
		return detailStyle.Render(warningStyle.Render("Progress unavailable for " + g.Title))
	}

	b, h := res.Breakdown, res.Health
	lines := []string{
		lipgloss.NewStyle().Bold(true).Render(g.Title),
		m.bar.ViewAs(float64(b.Overall) / 100),
		fmt.Sprintf("%s  %s  last activity %dd ago",
			healthStyle(h.Status).Render(cli.FormatHealth(h)),
			cli.FormatDaysRemaining(h.DaysRemaining),
			h.DaysSinceActivity),
		mutedStyle.Render(fmt.Sprintf("criteria %s · tasks %s · metrics %s · habits %s",
			sourcePct(b.Criteria.Present(), b.Criteria.Percentage),
			sourcePct(b.Tasks.Present(), b.Tasks.Percentage),
			sourcePct(b.Metrics.Present(), b.Metrics.Percentage),
			sourcePct(b.Habits.Present(), b.Habits.Consistency))),
	}
	if len(res.Degraded) > 0 {
		lines = append(lines, warningStyle.Render("⚠ skipped: "+strings.Join(res.Degraded, ", ")))
	}
	return detailStyle.Render(strings.Join(lines, "\n"))
}

func sourcePct(present bool, pct int) string {
	if !present {
		return "-"
	}
	return fmt.Sprintf("%d%%", pct)
}

package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/stride/internal/constants"
	"github.com/julianstephens/stride/internal/models"
)

// ParseDate parses a YYYY-MM-DD date as midnight in the local time zone.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(constants.DateFormat, strings.TrimSpace(s), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

// ProgressBar renders pct as a fixed-width text bar.
func ProgressBar(pct, width int) string {
	if width < 1 {
		return ""
	}
	pct = max(0, min(pct, 100))
	filled := pct * width / 100
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}

// FormatHealth returns a short label for a health status.
func FormatHealth(h models.GoalHealth) string {
	switch h.Status {
	case models.HealthHealthy:
		return "✓ healthy"
	case models.HealthAtRisk:
		return "⚠ at risk"
	case models.HealthBehind:
		return "✗ behind"
	case models.HealthDormant:
		return "☾ dormant"
	default:
		return "-"
	}
}

// FormatDaysRemaining describes the time left until a goal's target date.
func FormatDaysRemaining(days *int) string {
	if days == nil {
		return "no target"
	}
	switch d := *days; {
	case d < 0:
		return fmt.Sprintf("%dd overdue", -d)
	case d == 0:
		return "due today"
	default:
		return fmt.Sprintf("%dd left", d)
	}
}

// FormatDate formats an optional date, or "-" when absent.
func FormatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format(constants.DateFormat)
}

// ShortID returns the first 8 characters of an ID for display.
func ShortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

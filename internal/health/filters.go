package health

import (
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/stride/internal/constants"
	"github.com/julianstephens/stride/internal/models"
)

// QuickFilter is a named predicate used by goal list views.
type QuickFilter string

const (
	FilterAtRisk            QuickFilter = "at_risk"
	FilterDormant           QuickFilter = "dormant"
	FilterNeedsAttention    QuickFilter = "needs_attention"
	FilterDueThisWeek       QuickFilter = "due_this_week"
	FilterRecentlyCompleted QuickFilter = "recently_completed"
)

// QuickFilters returns every filter in display order.
func QuickFilters() []QuickFilter {
	return []QuickFilter{
		FilterAtRisk,
		FilterDormant,
		FilterNeedsAttention,
		FilterDueThisWeek,
		FilterRecentlyCompleted,
	}
}

// ParseQuickFilter accepts filter names with either dashes or underscores.
func ParseQuickFilter(s string) (QuickFilter, error) {
	normalized := QuickFilter(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	for _, f := range QuickFilters() {
		if f == normalized {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown filter %q", s)
}

// Matches reports whether a goal and its health satisfy the filter.
func (f QuickFilter) Matches(goal models.Goal, h models.GoalHealth, now time.Time, policy models.Policy) bool {
	inFlight := goal.Status != models.GoalAchieved && goal.Status != models.GoalAbandoned

	switch f {
	case FilterAtRisk:
		return inFlight && (h.Status == models.HealthAtRisk || h.Status == models.HealthBehind || goal.Status == models.GoalAtRisk)
	case FilterDormant:
		return h.Status == models.HealthDormant
	case FilterNeedsAttention:
		if !inFlight {
			return false
		}
		switch h.Status {
		case models.HealthAtRisk, models.HealthBehind, models.HealthDormant:
			return true
		}
		return h.DaysSinceActivity >= policy.NeedsAttentionDays
	case FilterDueThisWeek:
		return inFlight && h.DaysRemaining != nil && *h.DaysRemaining >= 0 && *h.DaysRemaining <= constants.DueSoonDays
	case FilterRecentlyCompleted:
		if goal.Status != models.GoalAchieved || goal.CompletedDate == nil {
			return false
		}
		return DaysSince(*goal.CompletedDate, now) <= constants.RecentlyCompletedDays
	default:
		return false
	}
}

package health

import (
	"math"
	"time"

	"github.com/julianstephens/stride/internal/constants"
	"github.com/julianstephens/stride/internal/models"
	"github.com/julianstephens/stride/internal/progress"
)

// LastActivity returns the most recent activity timestamp across the goal and
// the entities linked to it.
func LastActivity(s progress.Snapshot) time.Time {
	latest := s.Goal.CreatedAt
	consider := func(t time.Time) {
		if t.After(latest) {
			latest = t
		}
	}

	if s.Goal.LastActivityAt != nil {
		consider(*s.Goal.LastActivityAt)
	}
	for _, t := range s.Tasks {
		consider(t.UpdatedAt)
		if t.CompletedAt != nil {
			consider(*t.CompletedAt)
		}
	}
	for _, logs := range s.MetricLogs {
		for _, l := range logs {
			consider(l.LoggedAt)
		}
	}
	for _, logs := range s.HabitLogs {
		for _, l := range logs {
			consider(l.CompletedAt)
		}
	}

	return latest
}

// DaysSince returns the number of whole days elapsed between t and now.
func DaysSince(t, now time.Time) int {
	return int(math.Floor(now.Sub(t).Hours() / 24))
}

// Momentum classifies activity recency.
func Momentum(lastActivity, now time.Time) models.Momentum {
	return momentumFor(DaysSince(lastActivity, now))
}

func momentumFor(daysSince int) models.Momentum {
	if daysSince > constants.DormantAfterDays {
		return models.MomentumDormant
	}
	return models.MomentumActive
}

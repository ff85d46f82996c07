package health

import (
	"math"
	"time"

	"github.com/julianstephens/stride/internal/constants"
	"github.com/julianstephens/stride/internal/models"
)

// ComputeGoalHealth classifies a goal from its progress breakdown, its target
// date and the recency of activity. Dormancy overrides every other signal and
// achieved goals are left unclassified.
func ComputeGoalHealth(goal models.Goal, breakdown models.GoalProgressBreakdown, lastActivity, now time.Time, policy models.Policy) models.GoalHealth {
	h := models.GoalHealth{
		LastActivityAt:    lastActivity,
		DaysSinceActivity: DaysSince(lastActivity, now),
	}
	h.Momentum = momentumFor(h.DaysSinceActivity)

	var expected *float64
	if goal.TargetDate != nil {
		days := DaysUntil(*goal.TargetDate, now)
		h.DaysRemaining = &days

		e := ExpectedProgress(goal.CreatedAt, *goal.TargetDate, now)
		expected = &e
		rounded := int(math.Round(e))
		h.ExpectedPercentage = &rounded
	}

	h.Status = classify(goal, float64(breakdown.Overall), h.Momentum, expected, policy)
	return h
}

func classify(goal models.Goal, overall float64, momentum models.Momentum, expected *float64, policy models.Policy) models.HealthStatus {
	switch {
	case momentum == models.MomentumDormant:
		return models.HealthDormant
	case goal.Status == models.GoalAchieved:
		return models.HealthUnclassified
	case goal.Status == models.GoalAtRisk:
		return models.HealthAtRisk
	case expected == nil:
		if overall >= constants.NoTargetHealthyThreshold {
			return models.HealthHealthy
		}
		return models.HealthAtRisk
	}

	switch {
	case overall >= *expected-float64(policy.HealthyBand):
		return models.HealthHealthy
	case overall >= *expected-float64(policy.AtRiskBand):
		return models.HealthAtRisk
	default:
		return models.HealthBehind
	}
}

// ExpectedProgress returns the share of the goal's timeline that has elapsed,
// as a percentage in [0,100]. A target that is not after creation is fully due.
func ExpectedProgress(createdAt, targetDate, now time.Time) float64 {
	span := targetDate.Sub(createdAt)
	if span <= 0 {
		return 100
	}
	elapsed := float64(now.Sub(createdAt)) / float64(span)
	return math.Max(0, math.Min(1, elapsed)) * 100
}

// DaysUntil returns the whole days remaining until t, negative once overdue.
func DaysUntil(t, now time.Time) int {
	return int(math.Floor(t.Sub(now).Hours() / 24))
}

package models

import "time"

type HealthStatus string

const (
	// HealthUnclassified is reported for goals health does not apply to.
	HealthUnclassified HealthStatus = ""
	HealthHealthy      HealthStatus = "healthy"
	HealthAtRisk       HealthStatus = "at_risk"
	HealthBehind       HealthStatus = "behind"
	HealthDormant      HealthStatus = "dormant"
)

type Momentum string

const (
	MomentumActive  Momentum = "active"
	MomentumDormant Momentum = "dormant"
)

// GoalHealth is the derived health classification of a goal.
type GoalHealth struct {
	Status             HealthStatus `json:"status"`
	DaysRemaining      *int         `json:"days_remaining,omitempty"`
	Momentum           Momentum     `json:"momentum"`
	LastActivityAt     time.Time    `json:"last_activity_at"`
	DaysSinceActivity  int          `json:"days_since_activity"`
	// ExpectedPercentage is the time-elapsed expectation; nil without a target date.
	ExpectedPercentage *int         `json:"expected_percentage,omitempty"`
}

// Classified reports whether a health status was assigned.
func (h GoalHealth) Classified() bool {
	return h.Status != HealthUnclassified
}

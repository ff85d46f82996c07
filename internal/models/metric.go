package models

import "time"

// MetricDirection describes which way a metric's value should move.
type MetricDirection string

const (
	DirectionHigher MetricDirection = "higher"
	DirectionLower  MetricDirection = "lower"
	DirectionTarget MetricDirection = "target"
)

// IsValid returns true if the direction is a known value.
func (d MetricDirection) IsValid() bool {
	switch d {
	case DirectionHigher, DirectionLower, DirectionTarget:
		return true
	default:
		return false
	}
}

type Metric struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Unit        string          `json:"unit,omitempty"`
	TargetValue *float64        `json:"target_value,omitempty"`
	Direction   MetricDirection `json:"direction"`
	GoalIDs     []string        `json:"goal_ids"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   *time.Time      `json:"deleted_at,omitempty"`
}

type MetricLog struct {
	ID       string    `json:"id"`
	MetricID string    `json:"metric_id"`
	Value    float64   `json:"value"`
	LoggedAt time.Time `json:"logged_at"`
}

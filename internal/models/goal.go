package models

import (
	"fmt"
	"time"

	"github.com/julianstephens/stride/internal/constants"
)

type GoalStatus string

const (
	GoalPlanning  GoalStatus = "planning"
	GoalActive    GoalStatus = "active"
	GoalOnTrack   GoalStatus = "on_track"
	GoalAtRisk    GoalStatus = "at_risk"
	GoalAchieved  GoalStatus = "achieved"
	GoalAbandoned GoalStatus = "abandoned"
)

// IsValid returns true if the status is a known value.
func (s GoalStatus) IsValid() bool {
	switch s {
	case GoalPlanning, GoalActive, GoalOnTrack, GoalAtRisk, GoalAchieved, GoalAbandoned:
		return true
	default:
		return false
	}
}

// ProgressConfig holds the per-source weights used when aggregating a goal's
// progress. Weights are non-negative and need not sum to 100.
type ProgressConfig struct {
	CriteriaWeight float64 `json:"criteria_weight"`
	TasksWeight    float64 `json:"tasks_weight"`
	MetricsWeight  float64 `json:"metrics_weight"`
	HabitsWeight   float64 `json:"habits_weight"`
}

// DefaultProgressConfig returns the weights used for goals without a config.
func DefaultProgressConfig() ProgressConfig {
	return ProgressConfig{
		CriteriaWeight: constants.DefaultCriteriaWeight,
		TasksWeight:    constants.DefaultTasksWeight,
		MetricsWeight:  constants.DefaultMetricsWeight,
		HabitsWeight:   constants.DefaultHabitsWeight,
	}
}

type SuccessCriterion struct {
	Text        string     `json:"text"`
	IsCompleted bool       `json:"is_completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type Goal struct {
	ID              string             `json:"id"`
	Title           string             `json:"title"`
	Area            string             `json:"area,omitempty"`
	Status          GoalStatus         `json:"status"`
	Priority        int                `json:"priority"`
	TargetDate      *time.Time         `json:"target_date,omitempty"`
	SuccessCriteria []SuccessCriterion `json:"success_criteria"`
	ProgressConfig  *ProgressConfig    `json:"progress_config,omitempty"`
	LastActivityAt  *time.Time         `json:"last_activity_at,omitempty"`
	CompletedDate   *time.Time         `json:"completed_date,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
	DeletedAt       *time.Time         `json:"deleted_at,omitempty"`
}

// Weights returns the goal's progress config, falling back to the defaults.
func (g Goal) Weights() ProgressConfig {
	if g.ProgressConfig == nil {
		return DefaultProgressConfig()
	}
	return *g.ProgressConfig
}

// VersionToken identifies the state of a goal for staleness checks. It only
// changes when the goal's ID or UpdatedAt changes.
func (g Goal) VersionToken() string {
	return fmt.Sprintf("%s-%s", g.ID, g.UpdatedAt.UTC().Format(constants.TimestampFormat))
}

// Touch records activity on the goal at the given time.
func (g *Goal) Touch(at time.Time) {
	g.LastActivityAt = &at
	g.UpdatedAt = at
}

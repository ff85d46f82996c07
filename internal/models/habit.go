package models

import "time"

type HabitFrequency string

const (
	FrequencyDaily  HabitFrequency = "daily"
	FrequencyWeekly HabitFrequency = "weekly"
)

// IsValid returns true if the frequency is a known value.
func (f HabitFrequency) IsValid() bool {
	return f == FrequencyDaily || f == FrequencyWeekly
}

type Habit struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Frequency  HabitFrequency `json:"frequency"`
	GoalIDs    []string       `json:"goal_ids"`
	CreatedAt  time.Time      `json:"created_at"`
	ArchivedAt *time.Time     `json:"archived_at,omitempty"`
	DeletedAt  *time.Time     `json:"deleted_at,omitempty"`
}

// HabitLog is a single completion of a habit. Amount defaults to 1.
type HabitLog struct {
	ID          string    `json:"id"`
	HabitID     string    `json:"habit_id"`
	CompletedAt time.Time `json:"completed_at"`
	Amount      float64   `json:"amount"`
	Note        string    `json:"note,omitempty"`
}

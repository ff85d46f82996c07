package progress

import (
	"time"

	"github.com/julianstephens/stride/internal/constants"
	"github.com/julianstephens/stride/internal/models"
)

// Habits computes the consistency of linked habits over a trailing window of
// windowDays calendar days ending on now's day.
func Habits(habits []models.Habit, logs map[string][]models.HabitLog, now time.Time, windowDays int) models.HabitProgress {
	if len(habits) == 0 {
		return models.HabitProgress{}
	}
	if windowDays < 1 {
		windowDays = constants.DefaultHabitWindowDays
	}

	start := WindowStart(now, windowDays)
	scores := make([]models.HabitScore, 0, len(habits))
	sum := 0.0
	for _, h := range habits {
		expected := ExpectedOccurrences(h.Frequency, start, windowDays)
		actual := 0
		for _, l := range logs[h.ID] {
			if l.CompletedAt.Before(start) || l.CompletedAt.After(now) {
				continue
			}
			actual++
		}

		consistency := 100.0
		if actual < expected {
			consistency = float64(actual) / float64(expected) * 100
		}
		sum += consistency
		scores = append(scores, models.HabitScore{
			HabitID:     h.ID,
			Name:        h.Name,
			Expected:    expected,
			Actual:      actual,
			Consistency: consistency,
		})
	}

	return models.HabitProgress{
		Consistency: roundPercent(sum / float64(len(scores))),
		Scores:      scores,
	}
}

// WindowStart returns midnight of the first day of a windowDays-long window
// that ends on now's day.
func WindowStart(now time.Time, windowDays int) time.Time {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return today.AddDate(0, 0, -(windowDays - 1))
}

// ExpectedOccurrences returns how many completions a habit should have in the
// window. Weekly habits expect one per ISO week the window touches; everything
// else is treated as daily.
func ExpectedOccurrences(freq models.HabitFrequency, start time.Time, windowDays int) int {
	if freq != models.FrequencyWeekly {
		return windowDays
	}

	weeks := make(map[[2]int]struct{})
	for i := 0; i < windowDays; i++ {
		year, week := start.AddDate(0, 0, i).ISOWeek()
		weeks[[2]int{year, week}] = struct{}{}
	}
	return len(weeks)
}

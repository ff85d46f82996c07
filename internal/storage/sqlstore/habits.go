package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/stride/internal/models"
	"github.com/julianstephens/stride/internal/storage"
)

const habitColumns = `h.id, h.name, h.frequency, h.created_at, h.archived_at, h.deleted_at`

func scanHabit(row scanner) (models.Habit, error) {
	var h models.Habit
	var frequency, created string
	var archived, deleted sql.NullString

	if err := row.Scan(&h.ID, &h.Name, &frequency, &created, &archived, &deleted); err != nil {
		return models.Habit{}, err
	}
	h.Frequency = models.HabitFrequency(frequency)

	var p timeParser
	h.CreatedAt = p.at(created)
	h.ArchivedAt = p.ptr(archived)
	h.DeletedAt = p.ptr(deleted)
	if p.err != nil {
		return models.Habit{}, fmt.Errorf("habit %s: %w", h.ID, p.err)
	}
	return h, nil
}

func (s *Store) AddHabit(h models.Habit) error {
	return s.withTx(func(tx *sql.Tx) error {
		if _, err := s.txExec(tx, `
			INSERT INTO habits (id, name, frequency, created_at, archived_at, deleted_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			h.ID, h.Name, string(h.Frequency), formatTime(h.CreatedAt), nullTime(h.ArchivedAt), nullTime(h.DeletedAt),
		); err != nil {
			return fmt.Errorf("failed to insert habit: %w", err)
		}
		return s.replaceLinks(tx, habitLinks, h.ID, h.GoalIDs)
	})
}

func (s *Store) GetHabit(id string) (models.Habit, error) {
	ctx := context.Background()
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+habitColumns+` FROM habits h WHERE h.id = ? AND h.deleted_at IS NULL`), id)
	h, err := scanHabit(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Habit{}, fmt.Errorf("habit %s: %w", id, storage.ErrNotFound)
		}
		return models.Habit{}, err
	}
	if h.GoalIDs, err = s.linkedGoalIDs(ctx, habitLinks, h.ID); err != nil {
		return models.Habit{}, err
	}
	return h, nil
}

func (s *Store) GetAllHabits(includeArchived bool) ([]models.Habit, error) {
	query := `SELECT ` + habitColumns + ` FROM habits h WHERE h.deleted_at IS NULL`
	if !includeArchived {
		query += ` AND h.archived_at IS NULL`
	}
	return s.queryHabits(context.Background(), query+` ORDER BY h.name, h.id`)
}

// GetHabitsByGoal returns the active habits linked to a goal. Archived habits
// no longer count toward consistency.
func (s *Store) GetHabitsByGoal(ctx context.Context, goalID string) ([]models.Habit, error) {
	return s.queryHabits(ctx, `
		SELECT `+habitColumns+` FROM habits h
		JOIN habit_goals hg ON hg.habit_id = h.id
		WHERE hg.goal_id = ? AND h.deleted_at IS NULL AND h.archived_at IS NULL
		ORDER BY h.name, h.id`, goalID)
}

func (s *Store) queryHabits(ctx context.Context, query string, args ...any) ([]models.Habit, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}

	var habits []models.Habit
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		habits = append(habits, h)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}

	for i := range habits {
		if habits[i].GoalIDs, err = s.linkedGoalIDs(ctx, habitLinks, habits[i].ID); err != nil {
			return nil, err
		}
	}
	return habits, nil
}

func (s *Store) ArchiveHabit(id string) error {
	res, err := s.exec(`UPDATE habits SET archived_at = ? WHERE id = ? AND deleted_at IS NULL AND archived_at IS NULL`,
		formatTime(time.Now()), id)
	return affectedOne(res, err, "habit", id)
}

func (s *Store) AddHabitLog(l models.HabitLog) error {
	_, err := s.exec(`INSERT INTO habit_logs (id, habit_id, completed_at, amount, note) VALUES (?, ?, ?, ?, ?)`,
		l.ID, l.HabitID, formatTime(l.CompletedAt), l.Amount, l.Note)
	if err != nil {
		return fmt.Errorf("failed to insert habit log: %w", err)
	}
	return nil
}

func (s *Store) GetHabitLogs(ctx context.Context, habitID string) ([]models.HabitLog, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, habit_id, completed_at, amount, note FROM habit_logs
		WHERE habit_id = ? ORDER BY completed_at, id`), habitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.HabitLog
	for rows.Next() {
		var l models.HabitLog
		var completedAt string
		if err := rows.Scan(&l.ID, &l.HabitID, &completedAt, &l.Amount, &l.Note); err != nil {
			return nil, err
		}
		var p timeParser
		l.CompletedAt = p.at(completedAt)
		if p.err != nil {
			return nil, fmt.Errorf("habit log %s: %w", l.ID, p.err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

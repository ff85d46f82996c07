package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/julianstephens/stride/internal/models"
	"github.com/julianstephens/stride/internal/storage"
)

const taskColumns = `t.id, t.title, t.status, t.created_at, t.updated_at, t.completed_at, t.deleted_at`

func scanTask(row scanner) (models.Task, error) {
	var t models.Task
	var status, created, updated string
	var completed, deleted sql.NullString

	if err := row.Scan(&t.ID, &t.Title, &status, &created, &updated, &completed, &deleted); err != nil {
		return models.Task{}, err
	}
	t.Status = models.TaskStatus(status)

	var p timeParser
	t.CreatedAt = p.at(created)
	t.UpdatedAt = p.at(updated)
	t.CompletedAt = p.ptr(completed)
	t.DeletedAt = p.ptr(deleted)
	if p.err != nil {
		return models.Task{}, fmt.Errorf("task %s: %w", t.ID, p.err)
	}
	return t, nil
}

func (s *Store) AddTask(t models.Task) error {
	return s.withTx(func(tx *sql.Tx) error {
		if _, err := s.txExec(tx, `
			INSERT INTO tasks (id, title, status, created_at, updated_at, completed_at, deleted_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.Title, string(t.Status), formatTime(t.CreatedAt), formatTime(t.UpdatedAt),
			nullTime(t.CompletedAt), nullTime(t.DeletedAt),
		); err != nil {
			return fmt.Errorf("failed to insert task: %w", err)
		}
		return s.replaceLinks(tx, taskLinks, t.ID, t.GoalIDs)
	})
}

func (s *Store) UpdateTask(t models.Task) error {
	return s.withTx(func(tx *sql.Tx) error {
		res, err := s.txExec(tx, `
			UPDATE tasks SET title = ?, status = ?, updated_at = ?, completed_at = ?
			WHERE id = ? AND deleted_at IS NULL`,
			t.Title, string(t.Status), formatTime(t.UpdatedAt), nullTime(t.CompletedAt), t.ID,
		)
		if err := affectedOne(res, err, "task", t.ID); err != nil {
			return err
		}
		return s.replaceLinks(tx, taskLinks, t.ID, t.GoalIDs)
	})
}

func (s *Store) GetTask(id string) (models.Task, error) {
	ctx := context.Background()
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+taskColumns+` FROM tasks t WHERE t.id = ? AND t.deleted_at IS NULL`), id)
	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Task{}, fmt.Errorf("task %s: %w", id, storage.ErrNotFound)
		}
		return models.Task{}, err
	}
	if t.GoalIDs, err = s.linkedGoalIDs(ctx, taskLinks, t.ID); err != nil {
		return models.Task{}, err
	}
	return t, nil
}

func (s *Store) GetAllTasks() ([]models.Task, error) {
	return s.queryTasks(context.Background(),
		`SELECT `+taskColumns+` FROM tasks t WHERE t.deleted_at IS NULL ORDER BY t.created_at, t.id`)
}

func (s *Store) GetTasksByGoal(ctx context.Context, goalID string) ([]models.Task, error) {
	return s.queryTasks(ctx, `
		SELECT `+taskColumns+` FROM tasks t
		JOIN task_goals tg ON tg.task_id = t.id
		WHERE tg.goal_id = ? AND t.deleted_at IS NULL
		ORDER BY t.created_at, t.id`, goalID)
}

func (s *Store) queryTasks(ctx context.Context, query string, args ...any) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		tasks = append(tasks, t)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}

	for i := range tasks {
		if tasks[i].GoalIDs, err = s.linkedGoalIDs(ctx, taskLinks, tasks[i].ID); err != nil {
			return nil, err
		}
	}
	return tasks, nil
}

package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/stride/internal/models"
	"github.com/julianstephens/stride/internal/storage"
)

const goalColumns = `id, title, area, status, priority, target_date, success_criteria, progress_config,
	last_activity_at, completed_date, created_at, updated_at, deleted_at`

func scanGoal(row scanner) (models.Goal, error) {
	var g models.Goal
	var status, criteria, created, updated string
	var targetDate, config, lastActivity, completed, deleted sql.NullString

	err := row.Scan(
		&g.ID, &g.Title, &g.Area, &status, &g.Priority, &targetDate, &criteria, &config,
		&lastActivity, &completed, &created, &updated, &deleted,
	)
	if err != nil {
		return models.Goal{}, err
	}

	g.Status = models.GoalStatus(status)

	if criteria != "" {
		if err := json.Unmarshal([]byte(criteria), &g.SuccessCriteria); err != nil {
			return models.Goal{}, fmt.Errorf("invalid success criteria for goal %s: %w", g.ID, err)
		}
	}
	if config.Valid && config.String != "" {
		var pc models.ProgressConfig
		if err := json.Unmarshal([]byte(config.String), &pc); err != nil {
			return models.Goal{}, fmt.Errorf("invalid progress config for goal %s: %w", g.ID, err)
		}
		g.ProgressConfig = &pc
	}

	var p timeParser
	g.TargetDate = p.ptr(targetDate)
	g.LastActivityAt = p.ptr(lastActivity)
	g.CompletedDate = p.ptr(completed)
	g.CreatedAt = p.at(created)
	g.UpdatedAt = p.at(updated)
	g.DeletedAt = p.ptr(deleted)
	if p.err != nil {
		return models.Goal{}, fmt.Errorf("goal %s: %w", g.ID, p.err)
	}

	return g, nil
}

func encodeGoalJSON(g models.Goal) (criteria string, config sql.NullString, err error) {
	list := g.SuccessCriteria
	if list == nil {
		list = []models.SuccessCriterion{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return "", sql.NullString{}, fmt.Errorf("failed to encode success criteria: %w", err)
	}

	if g.ProgressConfig != nil {
		cb, err := json.Marshal(g.ProgressConfig)
		if err != nil {
			return "", sql.NullString{}, fmt.Errorf("failed to encode progress config: %w", err)
		}
		config = sql.NullString{String: string(cb), Valid: true}
	}

	return string(b), config, nil
}

func (s *Store) AddGoal(g models.Goal) error {
	criteria, config, err := encodeGoalJSON(g)
	if err != nil {
		return err
	}

	_, err = s.exec(`
		INSERT INTO goals (`+goalColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.Title, g.Area, string(g.Status), g.Priority, nullTime(g.TargetDate), criteria, config,
		nullTime(g.LastActivityAt), nullTime(g.CompletedDate), formatTime(g.CreatedAt), formatTime(g.UpdatedAt),
		nullTime(g.DeletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert goal: %w", err)
	}
	return nil
}

func (s *Store) GetGoal(ctx context.Context, id string) (models.Goal, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+goalColumns+` FROM goals WHERE id = ? AND deleted_at IS NULL`), id)
	g, err := scanGoal(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Goal{}, fmt.Errorf("goal %s: %w", id, storage.ErrNotFound)
		}
		return models.Goal{}, err
	}
	return g, nil
}

func (s *Store) GetAllGoals(ctx context.Context, includeDeleted bool) ([]models.Goal, error) {
	query := `SELECT ` + goalColumns + ` FROM goals`
	if !includeDeleted {
		query += ` WHERE deleted_at IS NULL`
	}
	query += ` ORDER BY priority DESC, created_at, id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var goals []models.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

func (s *Store) UpdateGoal(g models.Goal) error {
	criteria, config, err := encodeGoalJSON(g)
	if err != nil {
		return err
	}

	res, err := s.exec(`
		UPDATE goals SET title = ?, area = ?, status = ?, priority = ?, target_date = ?,
			success_criteria = ?, progress_config = ?, last_activity_at = ?, completed_date = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`,
		g.Title, g.Area, string(g.Status), g.Priority, nullTime(g.TargetDate),
		criteria, config, nullTime(g.LastActivityAt), nullTime(g.CompletedDate), formatTime(g.UpdatedAt),
		g.ID,
	)
	return affectedOne(res, err, "goal", g.ID)
}

func (s *Store) DeleteGoal(id string) error {
	now := formatTime(time.Now())
	res, err := s.exec(`UPDATE goals SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`, now, now, id)
	return affectedOne(res, err, "goal", id)
}

func (s *Store) RestoreGoal(id string) error {
	res, err := s.exec(`UPDATE goals SET deleted_at = NULL, updated_at = ? WHERE id = ? AND deleted_at IS NOT NULL`,
		formatTime(time.Now()), id)
	return affectedOne(res, err, "deleted goal", id)
}

func (s *Store) TouchGoals(goalIDs []string, at time.Time) error {
	if len(goalIDs) == 0 {
		return nil
	}
	stamp := formatTime(at)
	return s.withTx(func(tx *sql.Tx) error {
		for _, id := range goalIDs {
			if _, err := s.txExec(tx,
				`UPDATE goals SET last_activity_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
				stamp, stamp, id,
			); err != nil {
				return fmt.Errorf("failed to record activity on goal %s: %w", id, err)
			}
		}
		return nil
	})
}

// affectedOne maps a write that touched no rows to ErrNotFound.
func affectedOne(res sql.Result, err error, kind, id string) error {
	if err != nil {
		return fmt.Errorf("failed to update %s %s: %w", kind, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update %s %s: %w", kind, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, storage.ErrNotFound)
	}
	return nil
}

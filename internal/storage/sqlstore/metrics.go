package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/julianstephens/stride/internal/models"
	"github.com/julianstephens/stride/internal/storage"
)

const metricColumns = `m.id, m.name, m.unit, m.target_value, m.direction, m.created_at, m.updated_at, m.deleted_at`

func scanMetric(row scanner) (models.Metric, error) {
	var m models.Metric
	var direction, created, updated string
	var target sql.NullFloat64
	var deleted sql.NullString

	if err := row.Scan(&m.ID, &m.Name, &m.Unit, &target, &direction, &created, &updated, &deleted); err != nil {
		return models.Metric{}, err
	}
	m.Direction = models.MetricDirection(direction)
	if target.Valid {
		v := target.Float64
		m.TargetValue = &v
	}

	var p timeParser
	m.CreatedAt = p.at(created)
	m.UpdatedAt = p.at(updated)
	m.DeletedAt = p.ptr(deleted)
	if p.err != nil {
		return models.Metric{}, fmt.Errorf("metric %s: %w", m.ID, p.err)
	}
	return m, nil
}

func (s *Store) AddMetric(m models.Metric) error {
	var target sql.NullFloat64
	if m.TargetValue != nil {
		target = sql.NullFloat64{Float64: *m.TargetValue, Valid: true}
	}

	return s.withTx(func(tx *sql.Tx) error {
		if _, err := s.txExec(tx, `
			INSERT INTO metrics (id, name, unit, target_value, direction, created_at, updated_at, deleted_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			m.ID, m.Name, m.Unit, target, string(m.Direction), formatTime(m.CreatedAt), formatTime(m.UpdatedAt),
			nullTime(m.DeletedAt),
		); err != nil {
			return fmt.Errorf("failed to insert metric: %w", err)
		}
		return s.replaceLinks(tx, metricLinks, m.ID, m.GoalIDs)
	})
}

func (s *Store) GetMetric(id string) (models.Metric, error) {
	ctx := context.Background()
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+metricColumns+` FROM metrics m WHERE m.id = ? AND m.deleted_at IS NULL`), id)
	m, err := scanMetric(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Metric{}, fmt.Errorf("metric %s: %w", id, storage.ErrNotFound)
		}
		return models.Metric{}, err
	}
	if m.GoalIDs, err = s.linkedGoalIDs(ctx, metricLinks, m.ID); err != nil {
		return models.Metric{}, err
	}
	return m, nil
}

func (s *Store) GetAllMetrics() ([]models.Metric, error) {
	return s.queryMetrics(context.Background(),
		`SELECT `+metricColumns+` FROM metrics m WHERE m.deleted_at IS NULL ORDER BY m.name, m.id`)
}

func (s *Store) GetMetricsByGoal(ctx context.Context, goalID string) ([]models.Metric, error) {
	return s.queryMetrics(ctx, `
		SELECT `+metricColumns+` FROM metrics m
		JOIN metric_goals mg ON mg.metric_id = m.id
		WHERE mg.goal_id = ? AND m.deleted_at IS NULL
		ORDER BY m.name, m.id`, goalID)
}

func (s *Store) queryMetrics(ctx context.Context, query string, args ...any) ([]models.Metric, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}

	var metrics []models.Metric
	for rows.Next() {
		m, err := scanMetric(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		metrics = append(metrics, m)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}

	for i := range metrics {
		if metrics[i].GoalIDs, err = s.linkedGoalIDs(ctx, metricLinks, metrics[i].ID); err != nil {
			return nil, err
		}
	}
	return metrics, nil
}

func (s *Store) AddMetricLog(l models.MetricLog) error {
	_, err := s.exec(`INSERT INTO metric_logs (id, metric_id, value, logged_at) VALUES (?, ?, ?, ?)`,
		l.ID, l.MetricID, l.Value, formatTime(l.LoggedAt))
	if err != nil {
		return fmt.Errorf("failed to insert metric log: %w", err)
	}
	return nil
}

func (s *Store) GetMetricLogs(ctx context.Context, metricID string) ([]models.MetricLog, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, metric_id, value, logged_at FROM metric_logs
		WHERE metric_id = ? ORDER BY logged_at, id`), metricID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.MetricLog
	for rows.Next() {
		var l models.MetricLog
		var loggedAt string
		if err := rows.Scan(&l.ID, &l.MetricID, &l.Value, &loggedAt); err != nil {
			return nil, err
		}
		var p timeParser
		l.LoggedAt = p.at(loggedAt)
		if p.err != nil {
			return nil, fmt.Errorf("metric log %s: %w", l.ID, p.err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

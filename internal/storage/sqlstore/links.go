package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
)

// linkTable is a many-to-many join between goals and another entity.
type linkTable struct {
	table  string
	column string
}

var (
	taskLinks   = linkTable{table: "task_goals", column: "task_id"}
	metricLinks = linkTable{table: "metric_goals", column: "metric_id"}
	habitLinks  = linkTable{table: "habit_goals", column: "habit_id"}
)

func (s *Store) replaceLinks(tx *sql.Tx, lt linkTable, id string, goalIDs []string) error {
	if _, err := s.txExec(tx, "DELETE FROM "+lt.table+" WHERE "+lt.column+" = ?", id); err != nil {
		return fmt.Errorf("failed to clear %s: %w", lt.table, err)
	}

	seen := make(map[string]bool, len(goalIDs))
	for _, goalID := range goalIDs {
		if goalID == "" || seen[goalID] {
			continue
		}
		seen[goalID] = true
		if _, err := s.txExec(tx, "INSERT INTO "+lt.table+" ("+lt.column+", goal_id) VALUES (?, ?)", id, goalID); err != nil {
			return fmt.Errorf("failed to link goal %s: %w", goalID, err)
		}
	}
	return nil
}

func (s *Store) linkedGoalIDs(ctx context.Context, lt linkTable, id string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind("SELECT goal_id FROM "+lt.table+" WHERE "+lt.column+" = ? ORDER BY goal_id"), id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var goalID string
		if err := rows.Scan(&goalID); err != nil {
			return nil, err
		}
		ids = append(ids, goalID)
	}
	return ids, rows.Err()
}

// CountOrphanLinks counts join rows that point at a goal or entity that no longer exists.
func (s *Store) CountOrphanLinks() (int, error) {
	total := 0
	for _, lt := range []struct {
		link   linkTable
		entity string
	}{
		{taskLinks, "tasks"},
		{metricLinks, "metrics"},
		{habitLinks, "habits"},
	} {
		var n int
		query := `SELECT COUNT(*) FROM ` + lt.link.table + ` l
			LEFT JOIN goals g ON g.id = l.goal_id
			LEFT JOIN ` + lt.entity + ` e ON e.id = l.` + lt.link.column + `
			WHERE g.id IS NULL OR e.id IS NULL`
		if err := s.db.QueryRow(query).Scan(&n); err != nil {
			return 0, fmt.Errorf("failed to count orphaned %s rows: %w", lt.link.table, err)
		}
		total += n
	}
	return total, nil
}

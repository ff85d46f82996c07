package progress

import "github.com/julianstephens/stride/internal/models"

// Tasks computes the share of linked tasks that are done. Cancelled tasks are
// out of scope and excluded from both sides of the ratio.
func Tasks(tasks []models.Task) models.TaskProgress {
	total, completed := 0, 0
	for _, t := range tasks {
		switch t.Status {
		case models.TaskCancelled:
			continue
		case models.TaskDone:
			completed++
		}
		total++
	}

	if total == 0 {
		return models.TaskProgress{}
	}

	return models.TaskProgress{
		Percentage: ratioPercent(completed, total),
		Completed:  completed,
		Total:      total,
	}
}

package progress

import "github.com/julianstephens/stride/internal/models"

// Criteria computes the share of completed success criteria. A goal without
// criteria yields a zero value, which reports itself as absent.
func Criteria(criteria []models.SuccessCriterion) models.CriteriaProgress {
	total := len(criteria)
	if total == 0 {
		return models.CriteriaProgress{}
	}

	completed := 0
	for _, c := range criteria {
		if c.IsCompleted {
			completed++
		}
	}

	return models.CriteriaProgress{
		Percentage: ratioPercent(completed, total),
		Completed:  completed,
		Total:      total,
	}
}

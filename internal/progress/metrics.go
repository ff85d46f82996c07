package progress

import (
	"math"

	"github.com/julianstephens/stride/internal/models"
)

// Metrics scores each linked metric that has a target and averages the result.
// Metrics without a target, with an unknown direction, or (for the higher
// direction) with a non-positive target are skipped.
func Metrics(metrics []models.Metric, logs map[string][]models.MetricLog) models.MetricProgress {
	var scores []models.MetricScore
	for _, m := range metrics {
		score, ok := ScoreMetric(m, logs[m.ID])
		if !ok {
			continue
		}
		scores = append(scores, score)
	}

	if len(scores) == 0 {
		return models.MetricProgress{}
	}

	sum := 0.0
	for _, s := range scores {
		sum += s.Percentage
	}

	return models.MetricProgress{
		Percentage: roundPercent(sum / float64(len(scores))),
		Scores:     scores,
	}
}

// ScoreMetric computes the normalized progress of a single metric. The second
// return value is false when the metric cannot be scored.
func ScoreMetric(m models.Metric, logs []models.MetricLog) (models.MetricScore, bool) {
	if m.TargetValue == nil {
		return models.MetricScore{}, false
	}
	target := *m.TargetValue
	current, baseline := currentAndBaseline(logs)

	var pct float64
	switch m.Direction {
	case models.DirectionHigher:
		if target <= 0 {
			return models.MetricScore{}, false
		}
		pct = math.Min(current/target, 1) * 100
	case models.DirectionLower:
		if len(logs) == 0 {
			// Nothing logged yet: only a target of zero is already met.
			if target == 0 {
				pct = 100
			}
			break
		}
		pct = lowerProgress(current, baseline, target)
	case models.DirectionTarget:
		pct = clamp(1-math.Abs(current-target)/math.Max(math.Abs(target), 1), 0, 1) * 100
	default:
		return models.MetricScore{}, false
	}

	return models.MetricScore{
		MetricID:     m.ID,
		Name:         m.Name,
		Direction:    m.Direction,
		CurrentValue: current,
		TargetValue:  target,
		Percentage:   clamp(pct, 0, 100),
	}, true
}

// lowerProgress measures how far current has moved from the baseline toward a
// target below it. When the baseline is not above the target the ratio has no
// meaning, so the metric is either met or not.
func lowerProgress(current, baseline, target float64) float64 {
	if baseline <= target {
		if current <= target {
			return 100
		}
		return 0
	}
	return clamp((baseline-current)/(baseline-target), 0, 1) * 100
}

// currentAndBaseline returns the most recent and the earliest logged values.
// Both are 0 when there is no history.
func currentAndBaseline(logs []models.MetricLog) (current, baseline float64) {
	if len(logs) == 0 {
		return 0, 0
	}

	latest, earliest := logs[0], logs[0]
	for _, l := range logs[1:] {
		if !l.LoggedAt.Before(latest.LoggedAt) {
			latest = l
		}
		if l.LoggedAt.Before(earliest.LoggedAt) {
			earliest = l
		}
	}
	return latest.Value, earliest.Value
}

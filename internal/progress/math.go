package progress

import "math"

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// roundPercent rounds a percentage to the nearest whole percent within [0,100].
func roundPercent(v float64) int {
	return int(math.Round(clamp(v, 0, 100)))
}

// ratioPercent returns n/d as a rounded percentage. Callers guarantee d > 0.
func ratioPercent(n, d int) int {
	return roundPercent(float64(n) / float64(d) * 100)
}

package scheduler

import "math"

// FairnessScore returns a percentage (0-100) representing how evenly days are
// distributed across the roster. 100% is perfectly fair (Standard Deviation = 0).
func FairnessScore(staff []Staff, table Table) float64 {
	if len(staff) == 0 {
		return 100.0
	}

	worked := table.DaysWorked()

	var sum float64
	for _, st := range staff {
		sum += float64(worked[st.ID])
	}
	if sum == 0 {
		return 100.0 // Nobody working is perfectly fair
	}

	mean := sum / float64(len(staff))

	var varianceSum float64
	for _, st := range staff {
		diff := float64(worked[st.ID]) - mean
		varianceSum += diff * diff
	}
	stdDev := math.Sqrt(varianceSum / float64(len(staff)))

	// 100% means SD is 0. 0% means SD is >= mean.
	score := (1.0 - (stdDev / mean)) * 100.0
	if score < 0 {
		return 0.0
	}
	return score
}

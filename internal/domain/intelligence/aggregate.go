package intelligence

import (
	"sort"
	"time"
)

// Deltas is a signed likelihood/impact adjustment.
type Deltas struct {
	Likelihood int `json:"likelihood"`
	Impact     int `json:"impact"`
}

// MaxAggregate combines the changes of every applied alert except excludeID.
// Per dimension it keeps the change with the largest absolute magnitude and
// preserves its sign. Equal magnitudes resolve to the alert applied first,
// then to the lowest ID. Overlapping alerts are never summed.
func MaxAggregate(alerts []*Alert, excludeID string) Deltas {
	applied := make([]*Alert, 0, len(alerts))
	for _, a := range alerts {
		if a == nil || a.ID == excludeID || !a.AppliedToRisk() {
			continue
		}
		applied = append(applied, a)
	}
	sort.SliceStable(applied, func(i, j int) bool {
		ti, tj := appliedTime(applied[i]), appliedTime(applied[j])
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return applied[i].ID < applied[j].ID
	})

	var d Deltas
	for _, a := range applied {
		if abs(a.SuggestedLikelihoodChange) > abs(d.Likelihood) {
			d.Likelihood = a.SuggestedLikelihoodChange
		}
		if abs(a.ImpactChange) > abs(d.Impact) {
			d.Impact = a.ImpactChange
		}
	}
	return d
}

// Adjust applies d to a baseline pair and clamps both to [1, matrixSize].
func Adjust(baseLikelihood, baseImpact int, d Deltas, matrixSize int) (int, int) {
	return clamp(baseLikelihood+d.Likelihood, matrixSize), clamp(baseImpact+d.Impact, matrixSize)
}

func appliedTime(a *Alert) time.Time {
	if a.AppliedAt == nil {
		return time.Time{}
	}
	return *a.AppliedAt
}

func clamp(v, n int) int {
	if v < 1 {
		return 1
	}
	if v > n {
		return n
	}
	return v
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

//Personal.AI order the ending

package models

import "time"

// SessionGroup is a derived cluster of sets treated as one workout session.
// Sets are ordered most-recent-first.
type SessionGroup struct {
	Sets []Set `json:"sets"`
}

// Start returns when the earliest set in the group was performed.
func (g SessionGroup) Start() time.Time {
	if len(g.Sets) == 0 {
		return time.Time{}
	}
	return g.Sets[len(g.Sets)-1].PerformedAt
}

// End returns when the most recent set in the group was performed.
func (g SessionGroup) End() time.Time {
	if len(g.Sets) == 0 {
		return time.Time{}
	}
	return g.Sets[0].PerformedAt
}

// SessionSummary holds aggregate numbers for one session group.
type SessionSummary struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	SetCount  int       `json:"set_count"`
	TotalReps int       `json:"total_reps"`
	Volume    float64   `json:"volume"`
	TopWeight float64   `json:"top_weight"`
	AvgRPE    *float64  `json:"avg_rpe,omitempty"`
}

// Summary aggregates the group. AvgRPE only counts rated sets and is nil
// when none are rated.
func (g SessionGroup) Summary() SessionSummary {
	sum := SessionSummary{
		Start:    g.Start(),
		End:      g.End(),
		SetCount: len(g.Sets),
	}

	var rpeTotal float64
	var rated int
	for _, s := range g.Sets {
		sum.TotalReps += s.Reps
		sum.Volume += s.Volume()
		if s.Weight > sum.TopWeight {
			sum.TopWeight = s.Weight
		}
		if s.RPE != nil {
			rpeTotal += *s.RPE
			rated++
		}
	}
	if rated > 0 {
		avg := rpeTotal / float64(rated)
		sum.AvgRPE = &avg
	}
	return sum
}

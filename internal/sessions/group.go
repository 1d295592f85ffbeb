// Package sessions clusters logged sets into workout sessions.
package sessions

import (
	"math"
	"time"

	"github.com/claude/lightweight/internal/models"
)

// DefaultRestThreshold is the rest gap that ends a session unless configured otherwise.
const DefaultRestThreshold = 15 * time.Minute

// Minutes converts a minute count (as found in config and query strings) to a
// threshold. NaN and non-positive counts give 0; counts too large for a
// Duration saturate at the largest one.
func Minutes(m float64) time.Duration {
	if !(m > 0) {
		return 0
	}
	ns := m * float64(time.Minute)
	if ns >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(ns)
}

// ValidMinutes reports whether m is usable as a rest threshold: positive and
// finite.
func ValidMinutes(m float64) bool {
	return m > 0 && !math.IsInf(m, 1)
}

// Group partitions sets into session groups. sets must already be sorted by
// PerformedAt descending; Group does not sort.
//
// A set joins the current group when the gap to the last set added to that
// group is strictly less than restThreshold. A gap equal to the threshold
// starts a new group.
func Group(sets []models.Set, restThreshold time.Duration) []models.SessionGroup {
	if len(sets) == 0 {
		return nil
	}

	var groups []models.SessionGroup
	current := []models.Set{sets[0]}

	for _, s := range sets[1:] {
		last := current[len(current)-1]
		if last.PerformedAt.Sub(s.PerformedAt) < restThreshold {
			current = append(current, s)
			continue
		}
		groups = append(groups, models.SessionGroup{Sets: current})
		current = []models.Set{s}
	}

	return append(groups, models.SessionGroup{Sets: current})
}

package engine

import (
	"slices"
	"time"
)

// Counters are the cached per-habit aggregates.
type Counters struct {
	Current int `json:"current_streak"`
	Longest int `json:"longest_streak"`
	Total   int `json:"total_completions"`
}

// Recompute derives counters from the full set of logged days.
//
// Current is the run of consecutive logged days ending at today, zero when
// today itself is not logged. Longest is the longest run anywhere in the set,
// never lower than prevLongest. Total is the number of distinct days.
func Recompute(days []time.Time, today time.Time, prevLongest int) Counters {
	set := make(map[time.Time]struct{}, len(days))
	for _, d := range days {
		set[Normalize(d)] = struct{}{}
	}

	var c Counters
	c.Total = len(set)

	for d := Normalize(today); ; d = d.AddDate(0, 0, -1) {
		if _, ok := set[d]; !ok {
			break
		}
		c.Current++
	}

	sorted := make([]time.Time, 0, len(set))
	for d := range set {
		sorted = append(sorted, d)
	}
	slices.SortFunc(sorted, func(a, b time.Time) int { return a.Compare(b) })

	run := 0
	for i, d := range sorted {
		if i > 0 && sorted[i-1].AddDate(0, 0, 1).Equal(d) {
			run++
		} else {
			run = 1
		}
		c.Longest = max(c.Longest, run)
	}
	c.Longest = max(c.Longest, prevLongest, c.Current)

	return c
}

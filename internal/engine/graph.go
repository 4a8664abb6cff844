package engine

import (
	"iter"
	"time"
)

// Window sizes for the contribution graph.
const (
	DefaultWindowDays = 120
	MaxWindowDays     = 730
)

// Cell is one day of the contribution graph.
type Cell struct {
	Date     time.Time `json:"-"`
	Day      string    `json:"date"`
	Done     bool      `json:"done"`
	IsToday  bool      `json:"is_today"`
	IsFuture bool      `json:"is_future"`
}

// Window is a week-aligned range of days ending with the week that contains
// today. Start is always a Sunday and End a Saturday.
type Window struct {
	Days  int // lookback requested, before week alignment
	Start time.Time
	End   time.Time
	Today time.Time

	logged map[time.Time]struct{}
}

// NewWindow builds the graph window for the given length. start = today-days
// snapped back to Sunday; end = today snapped forward to Saturday.
func NewWindow(days int, today time.Time, logged []time.Time) Window {
	if days < 1 {
		days = DefaultWindowDays
	}
	today = Normalize(today)

	start := today.AddDate(0, 0, -days)
	start = start.AddDate(0, 0, -int(start.Weekday()))
	end := today.AddDate(0, 0, int(time.Saturday-today.Weekday()))

	set := make(map[time.Time]struct{}, len(logged))
	for _, d := range logged {
		d = Normalize(d)
		if d.Before(start) || d.After(end) {
			continue
		}
		set[d] = struct{}{}
	}

	return Window{Days: days, Start: start, End: end, Today: today, logged: set}
}

// Len returns the number of cells, always a multiple of 7.
func (w Window) Len() int {
	return int(w.End.Sub(w.Start).Hours()/24) + 1
}

// Completed returns how many cells in the window are done.
func (w Window) Completed() int {
	return len(w.logged)
}

func (w Window) cell(d time.Time) Cell {
	_, done := w.logged[d]
	return Cell{
		Date:     d,
		Day:      d.Format(DayLayout),
		Done:     done,
		IsToday:  d.Equal(w.Today),
		IsFuture: d.After(w.Today),
	}
}

// Cells yields every day from Start to End in order. Each call starts over.
func (w Window) Cells() iter.Seq[Cell] {
	return func(yield func(Cell) bool) {
		for d := w.Start; !d.After(w.End); d = d.AddDate(0, 0, 1) {
			if !yield(w.cell(d)) {
				return
			}
		}
	}
}

// Weeks groups the cells into Sunday-first columns of seven.
func (w Window) Weeks() [][]Cell {
	weeks := make([][]Cell, 0, w.Len()/7)
	var week []Cell
	for c := range w.Cells() {
		week = append(week, c)
		if len(week) == 7 {
			weeks = append(weeks, week)
			week = nil
		}
	}
	return weeks
}

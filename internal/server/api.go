package server

import (
	"github.com/lazypower/charmlink/internal/engine"
	"github.com/lazypower/charmlink/internal/store"
)

// Request and response bodies of the /api routes.

type CreateCharmRequest struct {
	ProductType string `json:"product_type"`
	Label       string `json:"label"`
}

type CreateHabitsRequest struct {
	Habits []engine.NewHabit `json:"habits"`
}

type ToggleRequest struct {
	Date string `json:"date"`
}

type CharmsResponse struct {
	Charms []store.Charm `json:"charms"`
}

type HabitsResponse struct {
	Habits []store.Habit `json:"habits"`
}

type HabitResponse struct {
	Habit  store.Habit   `json:"habit"`
	Verify *engine.Drift `json:"verify,omitempty"`
}

type LogResponse struct {
	Habit   store.Habit `json:"habit"`
	Day     string      `json:"day"`
	Created bool        `json:"created"`
}

type ToggleResponse struct {
	Habit  store.Habit `json:"habit"`
	Day    string      `json:"day"`
	Marked bool        `json:"marked"`
}

// GraphResponse is the contribution graph: Weeks are Sunday-first columns.
// Days is the requested lookback; Cells counts the week-aligned days shown.
type GraphResponse struct {
	Habit     store.Habit     `json:"habit"`
	Start     string          `json:"start"`
	End       string          `json:"end"`
	Today     string          `json:"today"`
	Days      int             `json:"days"`
	Cells     int             `json:"cells"`
	Completed int             `json:"completed"`
	Weeks     [][]engine.Cell `json:"weeks"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

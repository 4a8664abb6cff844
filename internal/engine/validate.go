package engine

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Habit input limits.
const (
	maxTitleChars     = 120
	defaultTargetDays = 21
	maxTargetDays     = 365
)

// FocusAreas is the closed set of habit focus tags.
var FocusAreas = []string{
	"mindfulness", "fitness", "nutrition", "learning",
	"productivity", "connection", "creativity",
}

// NewHabit is the caller-supplied part of a habit.
type NewHabit struct {
	Title      string `json:"title"`
	FocusArea  string `json:"focus_area"`
	TargetDays int    `json:"target_days"`
}

func validFocusArea(f string) bool {
	for _, a := range FocusAreas {
		if a == f {
			return true
		}
	}
	return false
}

// validateNewHabit returns a normalized copy of h, or an InvalidArgument error.
func validateNewHabit(h NewHabit) (NewHabit, error) {
	h.Title = strings.TrimSpace(h.Title)
	if h.Title == "" {
		return h, fmt.Errorf("%w: title is required", ErrInvalidArgument)
	}
	if n := utf8.RuneCountInString(h.Title); n > maxTitleChars {
		return h, fmt.Errorf("%w: title too long (%d chars, max %d)", ErrInvalidArgument, n, maxTitleChars)
	}

	h.FocusArea = strings.ToLower(strings.TrimSpace(h.FocusArea))
	if !validFocusArea(h.FocusArea) {
		return h, fmt.Errorf("%w: invalid focus area %q", ErrInvalidArgument, h.FocusArea)
	}

	if h.TargetDays == 0 {
		h.TargetDays = defaultTargetDays
	}
	if h.TargetDays < 1 || h.TargetDays > maxTargetDays {
		return h, fmt.Errorf("%w: target_days must be between 1 and %d", ErrInvalidArgument, maxTargetDays)
	}
	return h, nil
}

package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lazypower/charmlink/internal/logger"
	"github.com/lazypower/charmlink/internal/store"
)

// Engine owns the temporal semantics of habits: logging, toggling, streak
// counters and the contribution graph. Every mutation runs in one
// transaction against the store.
type Engine struct {
	DB *store.DB

	MaxHabitsPerCall int
	WindowDays       int
	MaxWindowDays    int
}

// New creates an Engine with default limits.
func New(db *store.DB) *Engine {
	return &Engine{
		DB:               db,
		MaxHabitsPerCall: 10,
		WindowDays:       DefaultWindowDays,
		MaxWindowDays:    MaxWindowDays,
	}
}

// Access identifies the caller. Verified means ownership was already checked
// upstream and the engine should not re-check it.
type Access struct {
	UserID   string
	Verified bool
}

func (a Access) check(ownerID string) error {
	if a.Verified {
		return nil
	}
	if a.UserID == "" || a.UserID != ownerID {
		return ErrUnauthorized
	}
	return nil
}

// LogResult is the outcome of LogToday.
type LogResult struct {
	Habit   store.Habit
	Day     string
	Created bool
}

// ToggleResult is the outcome of ToggleDate.
type ToggleResult struct {
	Habit  store.Habit
	Day    string
	Marked bool
}

func (e *Engine) lockOwned(ctx context.Context, tx *store.Tx, habitID string, access Access) (*store.Habit, error) {
	h, err := tx.LockHabit(ctx, habitID)
	if err != nil {
		return nil, err
	}
	if err := access.check(h.OwnerID); err != nil {
		return nil, err
	}
	return h, nil
}

// recount recomputes h's counters from its stored logs and writes them back.
func recount(ctx context.Context, tx *store.Tx, h *store.Habit, today time.Time) error {
	raw, err := tx.LogDays(ctx, h.ID)
	if err != nil {
		return err
	}
	days, err := parseDays(raw)
	if err != nil {
		return err
	}

	c := Recompute(days, today, h.LongestStreak)
	countedOn := FormatDay(today)
	if err := tx.UpdateCounters(ctx, h.ID, countedOn, c.Current, c.Longest, c.Total); err != nil {
		return err
	}
	h.CurrentStreak, h.LongestStreak, h.TotalCompletions = c.Current, c.Longest, c.Total
	h.CountedOn = countedOn
	return nil
}

// asOf brings h.CurrentStreak forward to today. The stored value holds for
// h.CountedOn only: a habit last touched yesterday has no streak today
// unless today is logged.
func (e *Engine) asOf(ctx context.Context, h *store.Habit, today time.Time) error {
	today = Normalize(today)
	if h.CountedOn == FormatDay(today) {
		return nil
	}
	raw, err := e.DB.LogDays(ctx, h.ID)
	if err != nil {
		return err
	}
	days, err := parseDays(raw)
	if err != nil {
		return err
	}
	h.CurrentStreak = Recompute(days, today, h.LongestStreak).Current
	h.CountedOn = FormatDay(today)
	return nil
}

// LogToday marks today as done. Logging the same day twice is a no-op that
// reports Created=false and leaves the counters alone.
func (e *Engine) LogToday(ctx context.Context, habitID string, access Access, today time.Time) (*LogResult, error) {
	today = Normalize(today)
	res := &LogResult{Day: FormatDay(today)}

	err := e.DB.WithTx(ctx, func(tx *store.Tx) error {
		h, err := e.lockOwned(ctx, tx, habitID, access)
		if err != nil {
			return err
		}

		exists, err := tx.HasLog(ctx, h.ID, res.Day)
		if err != nil {
			return err
		}
		if exists {
			res.Habit = *h
			return nil
		}

		if _, err := tx.CreateLog(ctx, h.ID, res.Day); err != nil {
			return err
		}
		if err := recount(ctx, tx, h, today); err != nil {
			return err
		}
		res.Habit = *h
		res.Created = true
		return nil
	})

	if errors.Is(err, store.ErrConflict) {
		// A concurrent writer logged the same day first.
		h, gerr := e.DB.GetHabit(ctx, habitID)
		if gerr != nil {
			return nil, wrap("log today", gerr)
		}
		logger.Debug("log today raced", "habit", habitID, "day", res.Day)
		return &LogResult{Habit: *h, Day: res.Day}, nil
	}
	if err != nil {
		return nil, wrap("log today", err)
	}

	logger.Debug("log today", "habit", habitID, "day", res.Day, "created", res.Created,
		"current", res.Habit.CurrentStreak, "longest", res.Habit.LongestStreak)
	return res, nil
}

// ToggleDate flips the done state of date. Dates after today are rejected.
func (e *Engine) ToggleDate(ctx context.Context, habitID string, access Access, date, today time.Time) (*ToggleResult, error) {
	date, today = Normalize(date), Normalize(today)
	if date.After(today) {
		return nil, fmt.Errorf("toggle date: %w: %s is in the future", ErrInvalidArgument, FormatDay(date))
	}
	res := &ToggleResult{Day: FormatDay(date)}

	err := e.DB.WithTx(ctx, func(tx *store.Tx) error {
		h, err := e.lockOwned(ctx, tx, habitID, access)
		if err != nil {
			return err
		}

		exists, err := tx.HasLog(ctx, h.ID, res.Day)
		if err != nil {
			return err
		}
		if exists {
			if _, err := tx.DeleteLog(ctx, h.ID, res.Day); err != nil {
				return err
			}
		} else {
			if _, err := tx.CreateLog(ctx, h.ID, res.Day); err != nil {
				return err
			}
		}
		res.Marked = !exists

		if err := recount(ctx, tx, h, today); err != nil {
			return err
		}
		res.Habit = *h
		return nil
	})

	if errors.Is(err, store.ErrConflict) {
		// Another writer marked the date between our check and insert; the
		// intended state holds.
		h, gerr := e.DB.GetHabit(ctx, habitID)
		if gerr != nil {
			return nil, wrap("toggle date", gerr)
		}
		return &ToggleResult{Habit: *h, Day: res.Day, Marked: true}, nil
	}
	if err != nil {
		return nil, wrap("toggle date", err)
	}

	logger.Debug("toggle date", "habit", habitID, "day", res.Day, "marked", res.Marked,
		"current", res.Habit.CurrentStreak, "total", res.Habit.TotalCompletions)
	return res, nil
}

// HabitHistory is a habit together with its contribution-graph window.
type HabitHistory struct {
	Habit  store.Habit
	Window Window
}

// History loads the graph window of the last days days ending with today's
// week. days == 0 selects the engine's configured window.
func (e *Engine) History(ctx context.Context, habitID string, access Access, days int, today time.Time) (*HabitHistory, error) {
	if days == 0 {
		days = e.WindowDays
	}
	if days == 0 {
		days = DefaultWindowDays
	}
	limit := e.MaxWindowDays
	if limit <= 0 {
		limit = MaxWindowDays
	}
	if days < 1 || days > limit {
		return nil, fmt.Errorf("history: %w: days must be between 1 and %d", ErrInvalidArgument, limit)
	}

	h, err := e.Habit(ctx, habitID, access, today)
	if err != nil {
		return nil, err
	}

	bounds := NewWindow(days, today, nil)
	raw, err := e.DB.LogDaysBetween(ctx, h.ID, FormatDay(bounds.Start), FormatDay(bounds.End))
	if err != nil {
		return nil, wrap("history", err)
	}
	logged, err := parseDays(raw)
	if err != nil {
		return nil, wrap("history", err)
	}

	return &HabitHistory{Habit: *h, Window: NewWindow(days, today, logged)}, nil
}

// CreateHabits adds a batch of habits to a habit charm in one transaction.
// Either every habit is created or none is.
func (e *Engine) CreateHabits(ctx context.Context, charmID string, access Access, habits []NewHabit, now time.Time) ([]store.Habit, error) {
	limit := e.MaxHabitsPerCall
	if limit <= 0 {
		limit = 10
	}
	if len(habits) == 0 || len(habits) > limit {
		return nil, fmt.Errorf("create habits: %w: batch must hold 1 to %d habits", ErrInvalidArgument, limit)
	}

	valid := make([]NewHabit, len(habits))
	for i, h := range habits {
		v, err := validateNewHabit(h)
		if err != nil {
			return nil, fmt.Errorf("create habits: habit %d: %w", i, err)
		}
		valid[i] = v
	}

	var created []store.Habit
	err := e.DB.WithTx(ctx, func(tx *store.Tx) error {
		c, err := tx.GetCharm(ctx, charmID)
		if err != nil {
			return err
		}
		if err := access.check(c.OwnerID); err != nil {
			return err
		}
		if c.ProductType != store.ProductHabit {
			return fmt.Errorf("%w: charm %s is a %s charm", ErrInvalidArgument, c.ID, c.ProductType)
		}

		for _, v := range valid {
			h := store.Habit{
				ID:         uuid.New().String(),
				CharmID:    c.ID,
				OwnerID:    c.OwnerID,
				Title:      v.Title,
				FocusArea:  v.FocusArea,
				TargetDays: v.TargetDays,
				CreatedAt:  now.UnixMilli(),
			}
			if err := tx.InsertHabit(ctx, &h); err != nil {
				return err
			}
			created = append(created, h)
		}
		return nil
	})
	if err != nil {
		return nil, wrap("create habits", err)
	}

	logger.Info("habits created", "charm", charmID, "count", len(created))
	return created, nil
}

// Habit reads a habit the caller owns, with its current streak as of today.
func (e *Engine) Habit(ctx context.Context, habitID string, access Access, today time.Time) (*store.Habit, error) {
	h, err := e.owned(ctx, habitID, access)
	if err != nil {
		return nil, err
	}
	if err := e.asOf(ctx, h, today); err != nil {
		return nil, wrap("get habit", err)
	}
	return h, nil
}

// owned reads the stored habit row after the ownership check.
func (e *Engine) owned(ctx context.Context, habitID string, access Access) (*store.Habit, error) {
	h, err := e.DB.GetHabit(ctx, habitID)
	if err != nil {
		return nil, wrap("get habit", err)
	}
	if err := access.check(h.OwnerID); err != nil {
		return nil, wrap("get habit", err)
	}
	return h, nil
}

// DeleteHabit removes a habit and its logs.
func (e *Engine) DeleteHabit(ctx context.Context, habitID string, access Access) error {
	if _, err := e.owned(ctx, habitID, access); err != nil {
		return err
	}
	if err := e.DB.DeleteHabit(ctx, habitID); err != nil {
		return wrap("delete habit", err)
	}
	logger.Info("habit deleted", "habit", habitID)
	return nil
}

// Drift compares stored counters with counters recomputed from the log set
// for the day the stored counters were computed.
type Drift struct {
	CountedOn string   `json:"counted_on"`
	Stored    Counters `json:"stored"`
	Computed  Counters `json:"computed"`
	OK        bool     `json:"ok"`
}

// Verify recomputes a habit's counters from its logs without writing them.
// Stored longest may exceed the computed run since it never decreases.
// A habit that was never mutated is checked against today.
func (e *Engine) Verify(ctx context.Context, habitID string, access Access, today time.Time) (*Drift, error) {
	h, err := e.owned(ctx, habitID, access)
	if err != nil {
		return nil, err
	}
	raw, err := e.DB.LogDays(ctx, h.ID)
	if err != nil {
		return nil, wrap("verify", err)
	}
	days, err := parseDays(raw)
	if err != nil {
		return nil, wrap("verify", err)
	}

	at := Normalize(today)
	if h.CountedOn != "" {
		at, err = time.Parse(DayLayout, h.CountedOn)
		if err != nil {
			return nil, wrap("verify", fmt.Errorf("stored counted_on %q: %w", h.CountedOn, err))
		}
	}

	d := &Drift{
		CountedOn: FormatDay(at),
		Stored: Counters{
			Current: h.CurrentStreak,
			Longest: h.LongestStreak,
			Total:   h.TotalCompletions,
		},
		Computed: Recompute(days, at, 0),
	}
	d.OK = d.Stored.Current == d.Computed.Current &&
		d.Stored.Total == d.Computed.Total &&
		d.Stored.Longest >= d.Computed.Longest &&
		d.Stored.Current <= d.Stored.Longest
	return d, nil
}

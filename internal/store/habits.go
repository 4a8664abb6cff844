package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// Habit is a tracked daily habit attached to a habit charm.
type Habit struct {
	ID         string `db:"id" json:"id"`
	CharmID    string `db:"charm_id" json:"charm_id"`
	OwnerID    string `db:"owner_id" json:"owner_id"`
	Title      string `db:"title" json:"title"`
	FocusArea  string `db:"focus_area" json:"focus_area"`
	TargetDays int    `db:"target_days" json:"target_days"`

	CurrentStreak    int `db:"current_streak" json:"current_streak"`
	LongestStreak    int `db:"longest_streak" json:"longest_streak"`
	TotalCompletions int `db:"total_completions" json:"total_completions"`

	// CountedOn is the day (YYYY-MM-DD) the counters were last computed for.
	// CurrentStreak is only meaningful relative to it.
	CountedOn string `db:"counted_on" json:"counted_on,omitempty"`

	CreatedAt int64 `db:"created_at" json:"created_at"`
}

var habitColumns = []string{
	"id", "charm_id", "owner_id", "title", "focus_area", "target_days",
	"current_streak", "longest_streak", "total_completions", "counted_on", "created_at",
}

// GetHabit returns a habit by id, or ErrNotFound.
func (db *DB) GetHabit(ctx context.Context, id string) (*Habit, error) {
	query, args, err := db.builder().Select(habitColumns...).
		From("habits").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get habit: %w", err)
	}

	var h Habit
	if err := db.GetContext(ctx, &h, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get habit: %w", err)
	}
	return &h, nil
}

// ListHabits returns the habits of a charm in creation order.
func (db *DB) ListHabits(ctx context.Context, charmID string) ([]Habit, error) {
	query, args, err := db.builder().Select(habitColumns...).
		From("habits").
		Where(sq.Eq{"charm_id": charmID}).
		OrderBy("created_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list habits: %w", err)
	}

	var habits []Habit
	if err := db.SelectContext(ctx, &habits, query, args...); err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}
	return habits, nil
}

// DeleteHabit removes a habit; its logs go with it via ON DELETE CASCADE.
func (db *DB) DeleteHabit(ctx context.Context, id string) error {
	query, args, err := db.builder().Delete("habits").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete habit: %w", err)
	}

	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete habit: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete habit: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertHabit adds a habit row. Counters start at zero regardless of h.
func (t *Tx) InsertHabit(ctx context.Context, h *Habit) error {
	query, args, err := t.sb.Insert("habits").
		Columns("id", "charm_id", "owner_id", "title", "focus_area", "target_days", "created_at").
		Values(h.ID, h.CharmID, h.OwnerID, h.Title, h.FocusArea, h.TargetDays, h.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert habit: %w", err)
	}
	if _, err := t.tx.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert habit: %w", err)
	}
	h.CurrentStreak, h.LongestStreak, h.TotalCompletions, h.CountedOn = 0, 0, 0, ""
	return nil
}

// LockHabit reads a habit for update. On PostgreSQL the row stays locked
// until the transaction ends, serializing writers of the same habit.
func (t *Tx) LockHabit(ctx context.Context, id string) (*Habit, error) {
	b := t.sb.Select(habitColumns...).
		From("habits").
		Where(sq.Eq{"id": id})
	if t.driver == DriverPostgres {
		b = b.Suffix("FOR UPDATE")
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build lock habit: %w", err)
	}

	var h Habit
	if err := t.tx.GetContext(ctx, &h, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock habit: %w", err)
	}
	return &h, nil
}

// UpdateCounters writes the cached streak counters computed for day countedOn.
func (t *Tx) UpdateCounters(ctx context.Context, habitID, countedOn string, current, longest, total int) error {
	query, args, err := t.sb.Update("habits").
		Set("current_streak", current).
		Set("longest_streak", longest).
		Set("total_completions", total).
		Set("counted_on", countedOn).
		Where(sq.Eq{"id": habitID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update counters: %w", err)
	}

	result, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update counters: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update counters: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

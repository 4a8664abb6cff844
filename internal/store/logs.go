package store

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

// HabitLog records that a habit was done on one calendar day (YYYY-MM-DD).
type HabitLog struct {
	ID        string `db:"id" json:"id"`
	HabitID   string `db:"habit_id" json:"habit_id"`
	Day       string `db:"day" json:"day"`
	CreatedAt int64  `db:"created_at" json:"created_at"`
}

// HasLog reports whether a log exists for habitID on day.
func (t *Tx) HasLog(ctx context.Context, habitID, day string) (bool, error) {
	query, args, err := t.sb.Select("COUNT(*)").
		From("habit_logs").
		Where(sq.Eq{"habit_id": habitID}).
		Where(sq.Eq{"day": day}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build has log: %w", err)
	}

	var count int
	if err := t.tx.GetContext(ctx, &count, query, args...); err != nil {
		return false, fmt.Errorf("has log: %w", err)
	}
	return count > 0, nil
}

// CreateLog inserts the log for (habitID, day). Returns ErrConflict if one
// already exists.
func (t *Tx) CreateLog(ctx context.Context, habitID, day string) (*HabitLog, error) {
	l := &HabitLog{
		ID:        uuid.New().String(),
		HabitID:   habitID,
		Day:       day,
		CreatedAt: time.Now().UnixMilli(),
	}

	query, args, err := t.sb.Insert("habit_logs").
		Columns("id", "habit_id", "day", "created_at").
		Values(l.ID, l.HabitID, l.Day, l.CreatedAt).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build create log: %w", err)
	}
	if _, err := t.tx.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("create log: %w", err)
	}
	return l, nil
}

// DeleteLog removes the log for (habitID, day). It reports whether a row
// was actually deleted.
func (t *Tx) DeleteLog(ctx context.Context, habitID, day string) (bool, error) {
	query, args, err := t.sb.Delete("habit_logs").
		Where(sq.Eq{"habit_id": habitID}).
		Where(sq.Eq{"day": day}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build delete log: %w", err)
	}

	result, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("delete log: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete log: %w", err)
	}
	return rows > 0, nil
}

// LogDays returns every logged day for the habit, ascending.
func (t *Tx) LogDays(ctx context.Context, habitID string) ([]string, error) {
	query, args, err := t.sb.Select("day").
		From("habit_logs").
		Where(sq.Eq{"habit_id": habitID}).
		OrderBy("day").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build log days: %w", err)
	}

	var days []string
	if err := t.tx.SelectContext(ctx, &days, query, args...); err != nil {
		return nil, fmt.Errorf("log days: %w", err)
	}
	return days, nil
}

// LogDays returns every logged day for the habit, ascending, outside any
// transaction.
func (db *DB) LogDays(ctx context.Context, habitID string) ([]string, error) {
	return db.LogDaysBetween(ctx, habitID, "", "")
}

// LogDaysBetween returns logged days in [start, end], ascending. Empty bounds
// are open.
func (db *DB) LogDaysBetween(ctx context.Context, habitID, start, end string) ([]string, error) {
	b := db.builder().Select("day").
		From("habit_logs").
		Where(sq.Eq{"habit_id": habitID})
	if start != "" {
		b = b.Where(sq.GtOrEq{"day": start})
	}
	if end != "" {
		b = b.Where(sq.LtOrEq{"day": end})
	}
	query, args, err := b.OrderBy("day").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build log days: %w", err)
	}

	var days []string
	if err := db.SelectContext(ctx, &days, query, args...); err != nil {
		return nil, fmt.Errorf("log days: %w", err)
	}
	return days, nil
}

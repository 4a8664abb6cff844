package engine

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazypower/charmlink/internal/store"
)

var habitCols = []string{
	"id", "charm_id", "owner_id", "title", "focus_area", "target_days",
	"current_streak", "longest_streak", "total_completions", "counted_on", "created_at",
}

var pqUniqueViolation = pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"}

func mockEngine(t *testing.T) (*Engine, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(store.Wrap(db, store.DriverPostgres)), mock
}

func expectLockedHabit(mock sqlmock.Sqlmock, owner string) {
	mock.ExpectQuery(regexp.QuoteMeta("FROM habits WHERE id = $1 FOR UPDATE")).
		WithArgs("h1").
		WillReturnRows(sqlmock.NewRows(habitCols).
			AddRow("h1", "c1", owner, "Run", "fitness", 21, 2, 5, 8, "2024-03-14", int64(1)))
}

func TestLogTodayRollsBackOnCounterFailure(t *testing.T) {
	e, mock := mockEngine(t)

	mock.ExpectBegin()
	expectLockedHabit(mock, "u1")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM habit_logs WHERE habit_id = $1 AND day = $2")).
		WithArgs("h1", "2024-03-15").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO habit_logs")).
		WithArgs(sqlmock.AnyArg(), "h1", "2024-03-15", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT day FROM habit_logs WHERE habit_id = $1 ORDER BY day")).
		WithArgs("h1").
		WillReturnRows(sqlmock.NewRows([]string{"day"}).AddRow("2024-03-14").AddRow("2024-03-15"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE habits SET")).
		WillReturnError(errors.New("connection reset by peer"))
	mock.ExpectRollback()

	_, err := e.LogToday(context.Background(), "h1", owner, day("2024-03-15"))
	require.Error(t, err)
	assert.Equal(t, KindStorage, KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestToggleRollsBackOnDeleteFailure(t *testing.T) {
	e, mock := mockEngine(t)

	mock.ExpectBegin()
	expectLockedHabit(mock, "u1")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM habit_logs")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM habit_logs WHERE habit_id = $1 AND day = $2")).
		WithArgs("h1", "2024-03-10").
		WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	_, err := e.ToggleDate(context.Background(), "h1", owner, day("2024-03-10"), day("2024-03-15"))
	require.Error(t, err)
	assert.Equal(t, KindStorage, KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnauthorizedRollsBackWithoutWrites(t *testing.T) {
	e, mock := mockEngine(t)

	mock.ExpectBegin()
	expectLockedHabit(mock, "someone-else")
	mock.ExpectRollback()

	_, err := e.LogToday(context.Background(), "h1", owner, day("2024-03-15"))
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogTodayCommitsRecomputedCounters(t *testing.T) {
	e, mock := mockEngine(t)

	mock.ExpectBegin()
	expectLockedHabit(mock, "u1")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM habit_logs")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO habit_logs")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT day FROM habit_logs")).
		WillReturnRows(sqlmock.NewRows([]string{"day"}).
			AddRow("2024-03-13").AddRow("2024-03-14").AddRow("2024-03-15"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE habits SET current_streak = $1, longest_streak = $2, total_completions = $3, counted_on = $4 WHERE id = $5")).
		WithArgs(3, 5, 3, "2024-03-15", "h1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := e.LogToday(context.Background(), "h1", owner, day("2024-03-15"))
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, 3, res.Habit.CurrentStreak)
	assert.Equal(t, 5, res.Habit.LongestStreak)
	assert.Equal(t, 3, res.Habit.TotalCompletions)
	assert.Equal(t, "2024-03-15", res.Habit.CountedOn)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogTodayConflictIsSuccess(t *testing.T) {
	e, mock := mockEngine(t)

	mock.ExpectBegin()
	expectLockedHabit(mock, "u1")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM habit_logs")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO habit_logs")).
		WillReturnError(&pqUniqueViolation)
	mock.ExpectRollback()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, charm_id")).
		WithArgs("h1").
		WillReturnRows(sqlmock.NewRows(habitCols).
			AddRow("h1", "c1", "u1", "Run", "fitness", 21, 1, 5, 9, "2024-03-15", int64(1)))

	res, err := e.LogToday(context.Background(), "h1", owner, day("2024-03-15"))
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, 9, res.Habit.TotalCompletions)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestToggleDateConflictIsMarked(t *testing.T) {
	e, mock := mockEngine(t)

	mock.ExpectBegin()
	expectLockedHabit(mock, "u1")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM habit_logs WHERE habit_id = $1 AND day = $2")).
		WithArgs("h1", "2024-03-12").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO habit_logs")).
		WithArgs(sqlmock.AnyArg(), "h1", "2024-03-12", sqlmock.AnyArg()).
		WillReturnError(&pqUniqueViolation)
	mock.ExpectRollback()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, charm_id")).
		WithArgs("h1").
		WillReturnRows(sqlmock.NewRows(habitCols).
			AddRow("h1", "c1", "u1", "Run", "fitness", 21, 0, 5, 9, "2024-03-15", int64(1)))

	res, err := e.ToggleDate(context.Background(), "h1", owner, day("2024-03-12"), day("2024-03-15"))
	require.NoError(t, err)
	assert.True(t, res.Marked)
	assert.Equal(t, "2024-03-12", res.Day)
	assert.Equal(t, 9, res.Habit.TotalCompletions)
	assert.NoError(t, mock.ExpectationsWereMet())
}

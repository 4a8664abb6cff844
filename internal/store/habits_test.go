package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func seedHabit(t *testing.T, db *DB, charmID string) *Habit {
	t.Helper()
	h := &Habit{
		ID:         uuid.New().String(),
		CharmID:    charmID,
		OwnerID:    "u1",
		Title:      "Meditate",
		FocusArea:  "mindfulness",
		TargetDays: 21,
		CreatedAt:  time.Now().UnixMilli(),
	}
	err := db.WithTx(context.Background(), func(tx *Tx) error {
		return tx.InsertHabit(context.Background(), h)
	})
	if err != nil {
		t.Fatalf("InsertHabit: %v", err)
	}
	return h
}

func TestCreateAndGetCharm(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	c, err := db.CreateCharm(ctx, "u1", ProductHabit, "silver ring")
	if err != nil {
		t.Fatalf("CreateCharm: %v", err)
	}

	got, err := db.GetCharm(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetCharm: %v", err)
	}
	if got.OwnerID != "u1" || got.ProductType != ProductHabit || got.Label != "silver ring" {
		t.Errorf("GetCharm = %+v", got)
	}

	if _, err := db.GetCharm(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetCharm(missing) error = %v, want ErrNotFound", err)
	}
}

func TestListCharmsByOwner(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	for _, owner := range []string{"u1", "u1", "u2"} {
		if _, err := db.CreateCharm(ctx, owner, ProductHabit, ""); err != nil {
			t.Fatalf("CreateCharm: %v", err)
		}
	}

	charms, err := db.ListCharms(ctx, "u1")
	if err != nil {
		t.Fatalf("ListCharms: %v", err)
	}
	if len(charms) != 2 {
		t.Errorf("len(charms) = %d, want 2", len(charms))
	}
}

func TestInsertAndGetHabit(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	c, _ := db.CreateCharm(ctx, "u1", ProductHabit, "")
	h := seedHabit(t, db, c.ID)

	got, err := db.GetHabit(ctx, h.ID)
	if err != nil {
		t.Fatalf("GetHabit: %v", err)
	}
	if got.Title != "Meditate" || got.FocusArea != "mindfulness" || got.TargetDays != 21 {
		t.Errorf("GetHabit = %+v", got)
	}

	habits, err := db.ListHabits(ctx, c.ID)
	if err != nil {
		t.Fatalf("ListHabits: %v", err)
	}
	if len(habits) != 1 || habits[0].ID != h.ID {
		t.Errorf("ListHabits = %+v", habits)
	}
}

func TestHabitFocusAreaConstraint(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	c, _ := db.CreateCharm(ctx, "u1", ProductHabit, "")
	err := db.WithTx(ctx, func(tx *Tx) error {
		return tx.InsertHabit(ctx, &Habit{
			ID: "h1", CharmID: c.ID, OwnerID: "u1", Title: "x",
			FocusArea: "gaming", TargetDays: 21, CreatedAt: 1,
		})
	})
	if err == nil {
		t.Error("expected error for invalid focus_area")
	}
}

func TestHabitRequiresCharm(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	err := db.WithTx(ctx, func(tx *Tx) error {
		return tx.InsertHabit(ctx, &Habit{
			ID: "h1", CharmID: "no-such-charm", OwnerID: "u1", Title: "x",
			FocusArea: "fitness", TargetDays: 21, CreatedAt: 1,
		})
	})
	if err == nil {
		t.Error("expected foreign key error for unknown charm")
	}
}

func TestLockHabitNotFound(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	err := db.WithTx(ctx, func(tx *Tx) error {
		_, err := tx.LockHabit(ctx, "missing")
		return err
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("LockHabit error = %v, want ErrNotFound", err)
	}
}

func TestUpdateCounters(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	c, _ := db.CreateCharm(ctx, "u1", ProductHabit, "")
	h := seedHabit(t, db, c.ID)

	err := db.WithTx(ctx, func(tx *Tx) error {
		return tx.UpdateCounters(ctx, h.ID, "2024-03-15", 2, 5, 9)
	})
	if err != nil {
		t.Fatalf("UpdateCounters: %v", err)
	}

	got, _ := db.GetHabit(ctx, h.ID)
	if got.CurrentStreak != 2 || got.LongestStreak != 5 || got.TotalCompletions != 9 {
		t.Errorf("counters = %d/%d/%d, want 2/5/9", got.CurrentStreak, got.LongestStreak, got.TotalCompletions)
	}
	if got.CountedOn != "2024-03-15" {
		t.Errorf("CountedOn = %q, want 2024-03-15", got.CountedOn)
	}

	err = db.WithTx(ctx, func(tx *Tx) error {
		return tx.UpdateCounters(ctx, "missing", "2024-03-15", 0, 0, 0)
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateCounters(missing) error = %v, want ErrNotFound", err)
	}
}

func TestDeleteHabitCascadesLogs(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	c, _ := db.CreateCharm(ctx, "u1", ProductHabit, "")
	h := seedHabit(t, db, c.ID)

	err := db.WithTx(ctx, func(tx *Tx) error {
		_, err := tx.CreateLog(ctx, h.ID, "2024-03-15")
		return err
	})
	if err != nil {
		t.Fatalf("CreateLog: %v", err)
	}

	if err := db.DeleteHabit(ctx, h.ID); err != nil {
		t.Fatalf("DeleteHabit: %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM habit_logs WHERE habit_id = ?", h.ID).Scan(&count); err != nil {
		t.Fatalf("count logs: %v", err)
	}
	if count != 0 {
		t.Errorf("logs after delete = %d, want 0", count)
	}

	if err := db.DeleteHabit(ctx, h.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeleteHabit error = %v, want ErrNotFound", err)
	}
}

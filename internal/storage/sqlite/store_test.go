package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/julianstephens/streaklit/internal/errors"
	"github.com/julianstephens/streaklit/internal/storage"
)

var (
	ctx   = context.Background()
	today = time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store := NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to initialize test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func addHabit(t *testing.T, store *Store, name string) int64 {
	t.Helper()
	id, err := store.AddHabit(ctx, name, "", today)
	if err != nil {
		t.Fatalf("failed to add habit %q: %v", name, err)
	}
	return id
}

func countMarks(t *testing.T, store *Store, habitID int64) int {
	t.Helper()
	var n int
	if err := store.DB().Get(&n, "SELECT COUNT(*) FROM habit_tracker WHERE habit_id = ?", habitID); err != nil {
		t.Fatalf("failed to count marks: %v", err)
	}
	return n
}

func TestAddAndGetHabit(t *testing.T) {
	store := setupTestStore(t)

	id, err := store.AddHabit(ctx, "  Read  ", "twenty pages", today)
	if err != nil {
		t.Fatalf("AddHabit() error = %v", err)
	}

	h, err := store.GetHabit(ctx, id)
	if err != nil {
		t.Fatalf("GetHabit() error = %v", err)
	}
	if h.Name != "Read" {
		t.Errorf("Name = %q, want %q", h.Name, "Read")
	}
	if h.Description != "twenty pages" {
		t.Errorf("Description = %q", h.Description)
	}
	if !h.CreatedDate.Equal(today) {
		t.Errorf("CreatedDate = %v, want %v", h.CreatedDate, today)
	}
}

func TestAddHabit_DuplicateName(t *testing.T) {
	store := setupTestStore(t)
	addHabit(t, store, "Read")

	_, err := store.AddHabit(ctx, "Read", "again", today)
	if !errors.Is(err, errors.ErrDuplicateName) {
		t.Fatalf("AddHabit() error = %v, want ErrDuplicateName", err)
	}

	habits, err := store.ListHabits(ctx)
	if err != nil {
		t.Fatalf("ListHabits() error = %v", err)
	}
	if len(habits) != 1 {
		t.Errorf("got %d habits, want exactly 1", len(habits))
	}
}

func TestAddHabit_EmptyName(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.AddHabit(ctx, "   ", "", today)
	if !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("AddHabit() error = %v, want ErrInvalidInput", err)
	}
}

func TestGetHabit_Unknown(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetHabit(ctx, 42)
	if !errors.Is(err, errors.ErrUnknownHabit) {
		t.Errorf("GetHabit() error = %v, want ErrUnknownHabit", err)
	}
}

func TestMarkDone_Idempotent(t *testing.T) {
	store := setupTestStore(t)
	id := addHabit(t, store, "Gym")

	for i := 0; i < 2; i++ {
		if err := store.MarkDone(ctx, id, today); err != nil {
			t.Fatalf("MarkDone() call %d error = %v", i+1, err)
		}
	}

	if n := countMarks(t, store, id); n != 1 {
		t.Errorf("got %d marks, want 1", n)
	}
}

func TestMarkDone_UnknownHabit(t *testing.T) {
	store := setupTestStore(t)

	err := store.MarkDone(ctx, 99, today)
	if !errors.Is(err, errors.ErrUnknownHabit) {
		t.Errorf("MarkDone() error = %v, want ErrUnknownHabit", err)
	}
}

func TestMarkDone_ConcurrentSameDay(t *testing.T) {
	store := setupTestStore(t)
	id := addHabit(t, store, "Meditate")

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- store.MarkDone(ctx, id, today)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("concurrent MarkDone() error = %v", err)
		}
	}
	if n := countMarks(t, store, id); n != 1 {
		t.Errorf("got %d marks, want 1", n)
	}
}

func TestUnmark(t *testing.T) {
	store := setupTestStore(t)
	id := addHabit(t, store, "Read")

	if err := store.MarkDone(ctx, id, today); err != nil {
		t.Fatal(err)
	}
	if err := store.Unmark(ctx, id, today); err != nil {
		t.Fatalf("Unmark() error = %v", err)
	}
	if n := countMarks(t, store, id); n != 0 {
		t.Errorf("got %d marks after unmark, want 0", n)
	}

	// Removing a mark that does not exist is not an error.
	if err := store.Unmark(ctx, id, today); err != nil {
		t.Errorf("second Unmark() error = %v", err)
	}
	if err := store.Unmark(ctx, 1234, today); err != nil {
		t.Errorf("Unmark() on unknown habit error = %v", err)
	}
}

func TestDeleteHabit_RemovesMarks(t *testing.T) {
	store := setupTestStore(t)
	id := addHabit(t, store, "Read")
	other := addHabit(t, store, "Gym")

	for i := 0; i < 5; i++ {
		if err := store.MarkDone(ctx, id, today.AddDate(0, 0, -i)); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.MarkDone(ctx, other, today); err != nil {
		t.Fatal(err)
	}

	result, err := store.DeleteHabit(ctx, id)
	if err != nil {
		t.Fatalf("DeleteHabit() error = %v", err)
	}
	if !result.Found || result.MarksRemoved != 5 {
		t.Errorf("DeleteHabit() = %+v, want Found with 5 marks removed", result)
	}

	dates, err := store.ListMarkedDates(ctx, id, storage.Ascending)
	if err != nil {
		t.Fatalf("ListMarkedDates() error = %v", err)
	}
	if len(dates) != 0 {
		t.Errorf("got %d marks for deleted habit, want 0", len(dates))
	}
	if n := countMarks(t, store, other); n != 1 {
		t.Errorf("other habit lost marks: got %d, want 1", n)
	}

	// The name is free again.
	if _, err := store.AddHabit(ctx, "Read", "", today); err != nil {
		t.Errorf("re-adding deleted name failed: %v", err)
	}
}

func TestDeleteHabit_Unknown(t *testing.T) {
	store := setupTestStore(t)

	result, err := store.DeleteHabit(ctx, 7)
	if err != nil {
		t.Fatalf("DeleteHabit() error = %v", err)
	}
	if result.Found {
		t.Errorf("DeleteHabit() Found = true for unknown habit")
	}
}

func TestDeleteHabit_Closed(t *testing.T) {
	store := setupTestStore(t)
	id := addHabit(t, store, "Read")
	store.Close()

	_, err := store.DeleteHabit(ctx, id)
	if !errors.IsStorage(err) {
		t.Errorf("DeleteHabit() on closed store error = %v, want StorageError", err)
	}
	if !errors.Is(err, storage.ErrNotLoaded) {
		t.Errorf("DeleteHabit() on closed store error = %v, want ErrNotLoaded", err)
	}
}

func TestDeleteHabit_RollsBackOnFailure(t *testing.T) {
	store := setupTestStore(t)
	id := addHabit(t, store, "Read")
	for i := 0; i < 3; i++ {
		if err := store.MarkDone(ctx, id, today.AddDate(0, 0, -i)); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := store.DB().Exec(`CREATE TRIGGER block_habit_delete BEFORE DELETE ON habits
		BEGIN SELECT RAISE(ABORT, 'blocked'); END`); err != nil {
		t.Fatalf("failed to create trigger: %v", err)
	}

	_, err := store.DeleteHabit(ctx, id)
	if !errors.IsStorage(err) {
		t.Fatalf("DeleteHabit() error = %v, want StorageError", err)
	}
	if n := countMarks(t, store, id); n != 3 {
		t.Errorf("marks after failed delete = %d, want 3", n)
	}
	if _, err := store.GetHabit(ctx, id); err != nil {
		t.Errorf("habit missing after failed delete: %v", err)
	}
}

func TestMarkDone_FailureLeavesNoMark(t *testing.T) {
	store := setupTestStore(t)
	id := addHabit(t, store, "Read")

	if _, err := store.DB().Exec(`CREATE TRIGGER block_mark BEFORE INSERT ON habit_tracker
		BEGIN SELECT RAISE(ABORT, 'blocked'); END`); err != nil {
		t.Fatalf("failed to create trigger: %v", err)
	}

	err := store.MarkDone(ctx, id, today)
	if !errors.IsStorage(err) {
		t.Fatalf("MarkDone() error = %v, want StorageError", err)
	}
	if errors.Is(err, errors.ErrUnknownHabit) {
		t.Errorf("MarkDone() error = %v, should not be ErrUnknownHabit", err)
	}
	if n := countMarks(t, store, id); n != 0 {
		t.Errorf("marks after failed mark = %d, want 0", n)
	}
}

func TestListHabits_LeftJoin(t *testing.T) {
	store := setupTestStore(t)
	read := addHabit(t, store, "Read")
	addHabit(t, store, "Gym")

	for i := 0; i < 3; i++ {
		if err := store.MarkDone(ctx, read, today.AddDate(0, 0, -i)); err != nil {
			t.Fatal(err)
		}
	}

	habits, err := store.ListHabits(ctx)
	if err != nil {
		t.Fatalf("ListHabits() error = %v", err)
	}
	if len(habits) != 2 {
		t.Fatalf("got %d habits, want 2", len(habits))
	}
	if habits[0].Name != "Read" || habits[0].TotalDone != 3 {
		t.Errorf("habits[0] = %+v, want Read with 3", habits[0])
	}
	if habits[1].Name != "Gym" || habits[1].TotalDone != 0 {
		t.Errorf("habits[1] = %+v, want Gym with 0", habits[1])
	}
}

func TestListMarkedDates_Order(t *testing.T) {
	store := setupTestStore(t)
	id := addHabit(t, store, "Read")

	for _, offset := range []int{3, 0, 10} {
		if err := store.MarkDone(ctx, id, today.AddDate(0, 0, -offset)); err != nil {
			t.Fatal(err)
		}
	}

	asc, err := store.ListMarkedDates(ctx, id, storage.Ascending)
	if err != nil {
		t.Fatalf("ListMarkedDates(asc) error = %v", err)
	}
	desc, err := store.ListMarkedDates(ctx, id, storage.Descending)
	if err != nil {
		t.Fatalf("ListMarkedDates(desc) error = %v", err)
	}
	if len(asc) != 3 || len(desc) != 3 {
		t.Fatalf("got %d/%d dates, want 3", len(asc), len(desc))
	}
	if !asc[0].Equal(today.AddDate(0, 0, -10)) || !asc[2].Equal(today) {
		t.Errorf("ascending = %v", asc)
	}
	if !desc[0].Equal(today) || !desc[2].Equal(today.AddDate(0, 0, -10)) {
		t.Errorf("descending = %v", desc)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")

	missing := NewStore(path)
	if err := missing.Load(); !errors.Is(err, storage.ErrNotLoaded) {
		t.Errorf("Load() on missing file error = %v, want ErrNotLoaded", err)
	}
	if _, err := missing.ListHabits(ctx); !errors.Is(err, storage.ErrNotLoaded) {
		t.Errorf("ListHabits() before Load error = %v, want ErrNotLoaded", err)
	}

	first := NewStore(path)
	if err := first.Init(); err != nil {
		t.Fatal(err)
	}
	id, err := first.AddHabit(ctx, "Read", "", today)
	if err != nil {
		t.Fatal(err)
	}
	first.Close()

	second := NewStore(path)
	if err := second.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	defer second.Close()

	h, err := second.GetHabit(ctx, id)
	if err != nil || h.Name != "Read" {
		t.Errorf("GetHabit() after reopen = %+v, %v", h, err)
	}

	pending, err := second.PendingMigrations(ctx)
	if err != nil || pending != 0 {
		t.Errorf("PendingMigrations() = %d, %v", pending, err)
	}
	if err := second.Ping(ctx); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestOpTimeout(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "timeout.db"), Options{OpTimeout: time.Nanosecond})
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	time.Sleep(time.Millisecond)
	if _, err := store.ListHabits(ctx); err == nil {
		t.Error("expected deadline error with a 1ns operation timeout")
	}
}

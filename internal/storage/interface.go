package storage

import (
	"context"
	"time"

	"github.com/julianstephens/streaklit/internal/models"
)

// Order selects the sort direction of ListMarkedDates.
type Order int

const (
	Ascending Order = iota
	Descending
)

func (o Order) String() string {
	if o == Descending {
		return "DESC"
	}
	return "ASC"
}

// HabitStore is the durable record of habits and their per-day completion marks.
type HabitStore interface {
	// AddHabit creates a habit whose created_date is created's calendar day.
	// It fails with ErrDuplicateName if name is taken.
	AddHabit(ctx context.Context, name, description string, created time.Time) (int64, error)
	GetHabit(ctx context.Context, id int64) (models.Habit, error)
	// DeleteHabit removes the habit and all its marks in one transaction.
	DeleteHabit(ctx context.Context, id int64) (models.DeleteResult, error)
	// MarkDone records a completion for day. Marking an already-marked day is a no-op.
	MarkDone(ctx context.Context, habitID int64, day time.Time) error
	// Unmark removes the completion for day, if any.
	Unmark(ctx context.Context, habitID int64, day time.Time) error
	ListHabits(ctx context.Context) ([]models.HabitCount, error)
	ListMarkedDates(ctx context.Context, habitID int64, order Order) ([]time.Time, error)
}

// Provider is a HabitStore backed by a concrete database.
type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Schema
	Migrate(ctx context.Context, logFn func(string)) (int, error)
	ValidateSchema(ctx context.Context) error
	Ping(ctx context.Context) error

	HabitStore

	// Utils
	GetConfigPath() string
}

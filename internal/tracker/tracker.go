// Package tracker composes the habit store with the streak and timeline
// engines into the read models the CLI and HTTP layers present.
package tracker

import (
	"context"
	"strings"
	"time"

	"github.com/julianstephens/streaklit/internal/errors"
	"github.com/julianstephens/streaklit/internal/logger"
	"github.com/julianstephens/streaklit/internal/models"
	"github.com/julianstephens/streaklit/internal/storage"
	"github.com/julianstephens/streaklit/internal/streak"
	"github.com/julianstephens/streaklit/internal/timeline"
	"github.com/julianstephens/streaklit/internal/utils"
)

// Service exposes the habit operations over an injected store.
// It holds no mutable state and is safe for concurrent use.
type Service struct {
	store        storage.HabitStore
	clock        func() time.Time
	timelineOpts []timeline.Option
	beforeDelete func(context.Context) error
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides how the service determines today.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithWindow sets the heatmap window in days before today.
func WithWindow(days int) Option {
	return func(s *Service) {
		s.timelineOpts = append(s.timelineOpts, timeline.WithWindow(days))
	}
}

// WithReferenceLabels makes heatmap rows always start on Saturday.
func WithReferenceLabels() Option {
	return func(s *Service) {
		s.timelineOpts = append(s.timelineOpts, timeline.WithReferenceLabels())
	}
}

// WithBackup runs fn before an existing habit is deleted. An error from fn
// aborts the deletion; see backup.Manager.DeleteHook for a lenient fn.
func WithBackup(fn func(context.Context) error) Option {
	return func(s *Service) {
		s.beforeDelete = fn
	}
}

func New(store storage.HabitStore, opts ...Option) *Service {
	s := &Service{
		store: store,
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today returns the current calendar day as seen by the service clock.
func (s *Service) Today() time.Time {
	return utils.Day(s.clock())
}

// AddHabit creates a habit dated today.
func (s *Service) AddHabit(ctx context.Context, name, description string) (models.Habit, error) {
	h := models.Habit{
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		CreatedDate: s.Today(),
	}
	if err := h.Validate(); err != nil {
		return models.Habit{}, errors.Invalid("%v", err)
	}

	id, err := s.store.AddHabit(ctx, h.Name, h.Description, h.CreatedDate)
	if err != nil {
		return models.Habit{}, err
	}
	h.ID = id

	logger.Debug("AddHabit", "id", id, "name", h.Name)
	return h, nil
}

// DeleteHabit removes a habit and its marks. A missing habit yields
// Found=false rather than an error.
func (s *Service) DeleteHabit(ctx context.Context, id int64) (models.DeleteResult, error) {
	if s.beforeDelete != nil {
		if _, err := s.store.GetHabit(ctx, id); err == nil {
			if err := s.beforeDelete(ctx); err != nil {
				return models.DeleteResult{HabitID: id}, err
			}
		} else if !errors.Is(err, errors.ErrUnknownHabit) {
			return models.DeleteResult{HabitID: id}, err
		}
	}

	result, err := s.store.DeleteHabit(ctx, id)
	if err != nil {
		return result, err
	}

	logger.Debug("DeleteHabit", "id", id, "found", result.Found, "marks_removed", result.MarksRemoved)
	return result, nil
}

// MarkDone records a completion on day, or today when day is zero.
// Future days are rejected.
func (s *Service) MarkDone(ctx context.Context, habitID int64, day time.Time) error {
	d, err := s.resolveDay(day)
	if err != nil {
		return err
	}
	if err := s.store.MarkDone(ctx, habitID, d); err != nil {
		return err
	}
	logger.Debug("MarkDone", "habit_id", habitID, "day", utils.FormatDay(d))
	return nil
}

// Unmark removes the completion on day, or today when day is zero.
func (s *Service) Unmark(ctx context.Context, habitID int64, day time.Time) error {
	d := utils.DayOrToday(day, s.Today())
	if err := s.store.Unmark(ctx, habitID, d); err != nil {
		return err
	}
	logger.Debug("Unmark", "habit_id", habitID, "day", utils.FormatDay(d))
	return nil
}

func (s *Service) resolveDay(day time.Time) (time.Time, error) {
	today := s.Today()
	d := utils.DayOrToday(day, today)
	if d.After(today) {
		return time.Time{}, errors.Invalid("cannot mark %s: date is in the future", utils.FormatDay(d))
	}
	return d, nil
}

// GetDashboardSummary lists every habit in creation order with its lifetime
// completion count and current streak.
func (s *Service) GetDashboardSummary(ctx context.Context) ([]models.HabitSummary, error) {
	habits, err := s.store.ListHabits(ctx)
	if err != nil {
		return nil, err
	}

	today := s.Today()
	summaries := make([]models.HabitSummary, 0, len(habits))
	for _, h := range habits {
		dates, err := s.store.ListMarkedDates(ctx, h.ID, storage.Descending)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, models.HabitSummary{
			Habit:     h.Habit,
			TotalDone: h.TotalDone,
			Streak:    streak.Compute(dates, today),
		})
	}

	logger.Debug("GetDashboardSummary", "habits", len(summaries))
	return summaries, nil
}

// GetHabitTimeline builds the heatmap grid for one habit. Unknown ids fail
// with ErrUnknownHabit.
func (s *Service) GetHabitTimeline(ctx context.Context, habitID int64) (models.HabitTimeline, error) {
	h, err := s.store.GetHabit(ctx, habitID)
	if err != nil {
		return models.HabitTimeline{}, err
	}

	dates, err := s.store.ListMarkedDates(ctx, habitID, storage.Ascending)
	if err != nil {
		return models.HabitTimeline{}, err
	}

	today := s.Today()
	tl := models.HabitTimeline{
		Habit:         h,
		CurrentStreak: streak.Compute(dates, today),
		LongestStreak: streak.Longest(dates),
		Grid:          timeline.Build(dates, today, s.timelineOpts...),
	}

	logger.Debug("GetHabitTimeline", "habit_id", habitID, "completed", tl.Grid.Completed)
	return tl, nil
}

// BarSeries converts dashboard rows into the "times completed" bar chart series.
func BarSeries(summaries []models.HabitSummary) []models.ChartPoint {
	points := make([]models.ChartPoint, 0, len(summaries))
	for _, s := range summaries {
		points = append(points, models.ChartPoint{Label: s.Name, Value: s.TotalDone})
	}
	return points
}

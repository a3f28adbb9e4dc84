package storage

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/julianstephens/streaklit/internal/errors"
	"github.com/julianstephens/streaklit/internal/logger"
	"github.com/julianstephens/streaklit/internal/models"
	"github.com/julianstephens/streaklit/internal/utils"
)

// ErrNotLoaded is returned when a data operation runs before Init or Load.
var ErrNotLoaded = stderrors.New("storage not initialized, run 'streaklit init' first")

// Dialect captures the differences between SQL backends that the shared
// habit queries need to know about.
type Dialect struct {
	Name string
	// DayColumn renders a date column as YYYY-MM-DD text in a SELECT list.
	DayColumn func(col string) string
	// IsUniqueViolation reports whether err is a UNIQUE/PRIMARY KEY constraint failure.
	IsUniqueViolation func(error) bool
	// IsForeignKeyViolation reports whether err is a FOREIGN KEY constraint failure.
	IsForeignKeyViolation func(error) bool
}

// SQLStore implements HabitStore on top of an sqlx connection pool.
// Every mutation runs in its own transaction.
type SQLStore struct {
	db        *sqlx.DB
	dialect   Dialect
	opTimeout time.Duration
}

// NewSQLStore wraps db. A positive opTimeout bounds every storage call.
func NewSQLStore(db *sqlx.DB, dialect Dialect, opTimeout time.Duration) *SQLStore {
	if dialect.DayColumn == nil {
		dialect.DayColumn = func(col string) string { return col }
	}
	if dialect.IsUniqueViolation == nil {
		dialect.IsUniqueViolation = func(error) bool { return false }
	}
	if dialect.IsForeignKeyViolation == nil {
		dialect.IsForeignKeyViolation = func(error) bool { return false }
	}
	return &SQLStore{db: db, dialect: dialect, opTimeout: opTimeout}
}

// DB exposes the underlying sqlx.DB for advanced callers.
func (s *SQLStore) DB() *sqlx.DB {
	if s == nil {
		return nil
	}
	return s.db
}

type habitRow struct {
	ID          int64          `db:"id"`
	Name        string         `db:"name"`
	Description sql.NullString `db:"description"`
	CreatedDate string         `db:"created_date"`
	TotalDone   int            `db:"total_done"`
}

func (r habitRow) toHabit() (models.Habit, error) {
	created, err := utils.ParseDay(r.CreatedDate)
	if err != nil {
		return models.Habit{}, fmt.Errorf("failed to parse created_date for habit %d: %w", r.ID, err)
	}
	return models.Habit{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description.String,
		CreatedDate: created,
	}, nil
}

func (s *SQLStore) begin(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if s == nil || s.db == nil {
		return ctx, func() {}, errors.Storage("connect", ErrNotLoaded)
	}
	if s.opTimeout > 0 {
		ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
		return ctx, cancel, nil
	}
	return ctx, func() {}, nil
}

func (s *SQLStore) withTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Warn("Rollback failed", "dialect", s.dialect.Name, "error", rbErr)
		}
		return err
	}
	return tx.Commit()
}

// Ping verifies the database is reachable.
func (s *SQLStore) Ping(ctx context.Context) error {
	ctx, cancel, err := s.begin(ctx)
	defer cancel()
	if err != nil {
		return err
	}
	return s.db.PingContext(ctx)
}

func (s *SQLStore) AddHabit(ctx context.Context, name, description string, created time.Time) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, errors.Invalid("habit name cannot be empty")
	}

	ctx, cancel, err := s.begin(ctx)
	defer cancel()
	if err != nil {
		return 0, err
	}

	var id int64
	err = s.withTx(ctx, func(tx *sqlx.Tx) error {
		return tx.QueryRowxContext(ctx, s.db.Rebind(`
			INSERT INTO habits (name, description, created_date)
			VALUES (?, ?, ?)
			RETURNING id`),
			name, nullableString(description), utils.FormatDay(created)).Scan(&id)
	})
	if err != nil {
		if s.dialect.IsUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %q", errors.ErrDuplicateName, name)
		}
		return 0, errors.Storage("add habit", err)
	}

	logger.Debug("Habit added", "id", id, "name", name)
	return id, nil
}

func (s *SQLStore) GetHabit(ctx context.Context, id int64) (models.Habit, error) {
	ctx, cancel, err := s.begin(ctx)
	defer cancel()
	if err != nil {
		return models.Habit{}, err
	}

	var row habitRow
	err = s.db.GetContext(ctx, &row, s.db.Rebind(fmt.Sprintf(`
		SELECT id, name, description, %s AS created_date
		FROM habits WHERE id = ?`, s.dialect.DayColumn("created_date"))), id)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return models.Habit{}, fmt.Errorf("%w: id %d", errors.ErrUnknownHabit, id)
		}
		return models.Habit{}, errors.Storage("get habit", err)
	}
	return row.toHabit()
}

func (s *SQLStore) DeleteHabit(ctx context.Context, id int64) (models.DeleteResult, error) {
	result := models.DeleteResult{HabitID: id}

	ctx, cancel, err := s.begin(ctx)
	defer cancel()
	if err != nil {
		return result, err
	}

	err = s.withTx(ctx, func(tx *sqlx.Tx) error {
		// Marks go first so no orphan survives even where cascades are disabled.
		res, err := tx.ExecContext(ctx, s.db.Rebind(`DELETE FROM habit_tracker WHERE habit_id = ?`), id)
		if err != nil {
			return fmt.Errorf("delete marks: %w", err)
		}
		if result.MarksRemoved, err = res.RowsAffected(); err != nil {
			return err
		}

		res, err = tx.ExecContext(ctx, s.db.Rebind(`DELETE FROM habits WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("delete habit: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		result.Found = n > 0
		return nil
	})
	if err != nil {
		logger.Error("Failed to delete habit", "id", id, "error", err)
		return models.DeleteResult{HabitID: id}, errors.Storage("delete habit", err)
	}

	logger.Debug("Habit deleted", "id", id, "found", result.Found, "marks_removed", result.MarksRemoved)
	return result, nil
}

func (s *SQLStore) MarkDone(ctx context.Context, habitID int64, day time.Time) error {
	ctx, cancel, err := s.begin(ctx)
	defer cancel()
	if err != nil {
		return err
	}

	err = s.withTx(ctx, func(tx *sqlx.Tx) error {
		var exists int
		if err := tx.GetContext(ctx, &exists, s.db.Rebind(`SELECT COUNT(*) FROM habits WHERE id = ?`), habitID); err != nil {
			return err
		}
		if exists == 0 {
			return fmt.Errorf("%w: id %d", errors.ErrUnknownHabit, habitID)
		}

		_, err := tx.ExecContext(ctx, s.db.Rebind(`
			INSERT INTO habit_tracker (habit_id, day)
			VALUES (?, ?)
			ON CONFLICT (habit_id, day) DO NOTHING`),
			habitID, utils.FormatDay(day))
		return err
	})
	switch {
	case err == nil:
		return nil
	case s.dialect.IsUniqueViolation(err):
		// A concurrent writer marked the same day first.
		logger.Debug("Mark already present", "habit_id", habitID, "day", utils.FormatDay(day))
		return nil
	case s.dialect.IsForeignKeyViolation(err):
		return fmt.Errorf("%w: id %d", errors.ErrUnknownHabit, habitID)
	default:
		return errors.Storage("mark done", err)
	}
}

func (s *SQLStore) Unmark(ctx context.Context, habitID int64, day time.Time) error {
	ctx, cancel, err := s.begin(ctx)
	defer cancel()
	if err != nil {
		return err
	}

	err = s.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, s.db.Rebind(`DELETE FROM habit_tracker WHERE habit_id = ? AND day = ?`),
			habitID, utils.FormatDay(day))
		return err
	})
	return errors.Storage("unmark", err)
}

func (s *SQLStore) ListHabits(ctx context.Context) ([]models.HabitCount, error) {
	ctx, cancel, err := s.begin(ctx)
	defer cancel()
	if err != nil {
		return nil, err
	}

	var rows []habitRow
	err = s.db.SelectContext(ctx, &rows, fmt.Sprintf(`
		SELECT h.id, h.name, h.description, %s AS created_date, COUNT(t.id) AS total_done
		FROM habits h
		LEFT JOIN habit_tracker t ON t.habit_id = h.id
		GROUP BY h.id, h.name, h.description, h.created_date
		ORDER BY h.id`, s.dialect.DayColumn("h.created_date")))
	if err != nil {
		return nil, errors.Storage("list habits", err)
	}

	habits := make([]models.HabitCount, 0, len(rows))
	for _, r := range rows {
		h, err := r.toHabit()
		if err != nil {
			return nil, err
		}
		habits = append(habits, models.HabitCount{Habit: h, TotalDone: r.TotalDone})
	}
	return habits, nil
}

func (s *SQLStore) ListMarkedDates(ctx context.Context, habitID int64, order Order) ([]time.Time, error) {
	ctx, cancel, err := s.begin(ctx)
	defer cancel()
	if err != nil {
		return nil, err
	}

	var days []string
	err = s.db.SelectContext(ctx, &days, s.db.Rebind(fmt.Sprintf(`
		SELECT %s AS day FROM habit_tracker
		WHERE habit_id = ?
		ORDER BY day %s`, s.dialect.DayColumn("day"), order)), habitID)
	if err != nil {
		return nil, errors.Storage("list marked dates", err)
	}

	dates := make([]time.Time, 0, len(days))
	for _, d := range days {
		t, err := utils.ParseDay(d)
		if err != nil {
			return nil, fmt.Errorf("failed to parse mark for habit %d: %w", habitID, err)
		}
		dates = append(dates, t)
	}
	return dates, nil
}

// nullableString converts a string to sql.NullString for optional fields.
// Empty strings are treated as NULL.
func nullableString(v string) sql.NullString {
	v = strings.TrimSpace(v)
	return sql.NullString{String: v, Valid: v != ""}
}

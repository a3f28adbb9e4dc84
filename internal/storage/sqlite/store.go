package sqlite

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/julianstephens/streaklit/internal/constants"
	"github.com/julianstephens/streaklit/internal/logger"
	"github.com/julianstephens/streaklit/internal/migration"
	"github.com/julianstephens/streaklit/internal/storage"
	"github.com/julianstephens/streaklit/migrations"
)

// Options tunes the connection pool and per-call limits.
type Options struct {
	BusyTimeout  time.Duration
	MaxOpenConns int
	OpTimeout    time.Duration
}

type Store struct {
	*storage.SQLStore

	path string
	opts Options
	db   *sqlx.DB
}

var _ storage.Provider = (*Store)(nil)

func NewStore(path string, opts ...Options) *Store {
	s := &Store{path: path}
	if len(opts) > 0 {
		s.opts = opts[0]
	}
	if s.opts.BusyTimeout <= 0 {
		s.opts.BusyTimeout = constants.DefaultBusyTimeout
	}
	return s
}

// Dialect describes SQLite to the shared habit queries.
func Dialect() storage.Dialect {
	return storage.Dialect{
		Name:                  "sqlite",
		IsUniqueViolation:     isUniqueViolation,
		IsForeignKeyViolation: isForeignKeyViolation,
	}
}

func (s *Store) Init() error {
	// Create config directory if it doesn't exist
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := s.open(); err != nil {
		return err
	}

	if _, err := s.Migrate(context.Background(), func(msg string) {
		logger.Info(msg)
	}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func (s *Store) Load() error {
	if s.db != nil {
		return nil
	}

	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return storage.ErrNotLoaded
	}

	if err := s.open(); err != nil {
		return err
	}

	return s.ValidateSchema(context.Background())
}

func (s *Store) open() error {
	if s.db != nil {
		return nil
	}

	db, err := sqlx.Open("sqlite", s.dsn())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if s.opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(s.opts.MaxOpenConns)
	}

	s.db = db
	s.SQLStore = storage.NewSQLStore(db, Dialect(), s.opts.OpTimeout)
	return nil
}

// dsn enables foreign keys and WAL on every pooled connection and takes the
// write lock at BEGIN so concurrent writers wait on the busy timeout instead
// of failing mid-transaction.
func (s *Store) dsn() string {
	busy := int(s.opts.BusyTimeout / time.Millisecond)
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_txlock=immediate",
		s.path, busy)
}

func (s *Store) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		s.SQLStore = nil
		return err
	}
	return nil
}

func (s *Store) runner() (*migration.Runner, error) {
	if s.db == nil {
		return nil, storage.ErrNotLoaded
	}
	subFS, err := fs.Sub(migrations.FS, "sqlite")
	if err != nil {
		return nil, fmt.Errorf("failed to access sqlite migrations: %w", err)
	}
	return migration.New(s.db, subFS)
}

// Migrate applies pending embedded migrations.
func (s *Store) Migrate(ctx context.Context, logFn func(string)) (int, error) {
	runner, err := s.runner()
	if err != nil {
		return 0, err
	}
	return runner.Up(ctx, logFn)
}

// ValidateSchema fails when the database was written by a newer release.
func (s *Store) ValidateSchema(ctx context.Context) error {
	runner, err := s.runner()
	if err != nil {
		return err
	}
	return runner.Check(ctx)
}

// PendingMigrations reports how many migrations Init or Migrate would apply.
func (s *Store) PendingMigrations(ctx context.Context) (int, error) {
	runner, err := s.runner()
	if err != nil {
		return 0, err
	}
	st, err := runner.Status(ctx)
	return st.Pending, err
}

func (s *Store) GetConfigPath() string {
	return s.path
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !stderrors.As(err, &se) {
		return false
	}
	code := se.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

func isForeignKeyViolation(err error) bool {
	var se *sqlite.Error
	return stderrors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
}

// Package migration applies numbered SQL files (NNN_name.sql) and records the
// applied version in a one-row schema_version table.
package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// ErrSchemaTooNew means the database was migrated by a newer release.
var ErrSchemaTooNew = errors.New("database schema is newer than supported")

const createVersionTable = `CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)`

// Step is one migration file.
type Step struct {
	Version int
	Name    string
	SQL     string
}

// Parse reads the *.sql files at the root of fsys in version order.
func Parse(fsys fs.FS) ([]Step, error) {
	files, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}

	steps := make([]Step, 0, len(files))
	seen := make(map[int]string, len(files))
	for _, file := range files {
		prefix, name, ok := strings.Cut(strings.TrimSuffix(file, ".sql"), "_")
		if !ok {
			return nil, fmt.Errorf("migration %s: name must look like NNN_name.sql", file)
		}
		version, err := strconv.Atoi(prefix)
		if err != nil || version < 1 {
			return nil, fmt.Errorf("migration %s: version must be a positive integer", file)
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("migrations %s and %s share version %d", prev, file, version)
		}
		seen[version] = file

		body, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", file, err)
		}
		steps = append(steps, Step{Version: version, Name: name, SQL: string(body)})
	}

	sort.Slice(steps, func(i, j int) bool { return steps[i].Version < steps[j].Version })
	return steps, nil
}

// Status compares the database against the available steps.
type Status struct {
	Current int
	Latest  int
	Pending int
}

func (st Status) tooNew() error {
	return fmt.Errorf("%w (database version %d, supported version %d); upgrade streaklit",
		ErrSchemaTooNew, st.Current, st.Latest)
}

// Runner applies a parsed migration set to one database. The same runner
// serves SQLite and PostgreSQL; placeholders are rebound for db's driver.
type Runner struct {
	db    *sqlx.DB
	steps []Step
}

func New(db *sqlx.DB, fsys fs.FS) (*Runner, error) {
	steps, err := Parse(fsys)
	if err != nil {
		return nil, err
	}
	return &Runner{db: db, steps: steps}, nil
}

// Latest is the highest available version, or 0 for an empty set.
func (r *Runner) Latest() int {
	if len(r.steps) == 0 {
		return 0
	}
	return r.steps[len(r.steps)-1].Version
}

func (r *Runner) Status(ctx context.Context) (Status, error) {
	current, err := r.current(ctx)
	if err != nil {
		return Status{}, err
	}
	st := Status{Current: current, Latest: r.Latest()}
	for _, step := range r.steps {
		if step.Version > current {
			st.Pending++
		}
	}
	return st, nil
}

// Check fails with ErrSchemaTooNew when the database is ahead of this build.
func (r *Runner) Check(ctx context.Context) error {
	st, err := r.Status(ctx)
	if err != nil {
		return err
	}
	if st.Current > st.Latest {
		return st.tooNew()
	}
	return nil
}

// Up applies every pending step, each in its own transaction, and returns
// how many were applied. A failing step leaves the earlier ones committed.
func (r *Runner) Up(ctx context.Context, logf func(string)) (int, error) {
	if logf == nil {
		logf = func(string) {}
	}

	st, err := r.Status(ctx)
	if err != nil {
		return 0, err
	}
	switch {
	case st.Current > st.Latest:
		return 0, st.tooNew()
	case len(r.steps) == 0:
		logf("No migration files found")
		return 0, nil
	case st.Pending == 0:
		logf(fmt.Sprintf("Database schema is up to date (version %d)", st.Current))
		return 0, nil
	}

	logf(fmt.Sprintf("Migrating schema from version %d to %d (%d step(s))", st.Current, st.Latest, st.Pending))
	start := time.Now()
	applied := 0
	for _, step := range r.steps {
		if step.Version <= st.Current {
			continue
		}
		if err := r.apply(ctx, step); err != nil {
			return applied, err
		}
		applied++
		logf(fmt.Sprintf("  ✓ %03d %s", step.Version, step.Name))
	}
	logf(fmt.Sprintf("Applied %d migration(s) in %v", applied, time.Since(start).Round(time.Millisecond)))
	return applied, nil
}

func (r *Runner) current(ctx context.Context) (int, error) {
	if _, err := r.db.ExecContext(ctx, createVersionTable); err != nil {
		return 0, fmt.Errorf("create schema_version: %w", err)
	}
	var version sql.NullInt64
	if err := r.db.GetContext(ctx, &version, "SELECT MAX(version) FROM schema_version"); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return int(version.Int64), nil
}

func (r *Runner) apply(ctx context.Context, step Step) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migration %d: begin: %w", step.Version, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, step.SQL); err != nil {
		return fmt.Errorf("migration %d (%s): %w", step.Version, step.Name, err)
	}
	// The version row changes in the same transaction as the schema.
	if _, err = tx.ExecContext(ctx, "DELETE FROM schema_version"); err != nil {
		return fmt.Errorf("migration %d: clear version: %w", step.Version, err)
	}
	if _, err = tx.ExecContext(ctx, r.db.Rebind("INSERT INTO schema_version (version) VALUES (?)"), step.Version); err != nil {
		return fmt.Errorf("migration %d: record version: %w", step.Version, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("migration %d: commit: %w", step.Version, err)
	}
	return nil
}

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/streaklit/internal/backup"
	"github.com/julianstephens/streaklit/internal/config"
	"github.com/julianstephens/streaklit/internal/errors"
	"github.com/julianstephens/streaklit/internal/models"
	"github.com/julianstephens/streaklit/internal/storage"
	"github.com/julianstephens/streaklit/internal/storage/postgres"
	"github.com/julianstephens/streaklit/internal/tracker"
)

// Context is handed to every command's Run method.
type Context struct {
	Store  storage.Provider
	Config *config.Config
	Out    io.Writer
	// Confirm asks a yes/no question; nil uses an interactive huh prompt.
	Confirm func(title, description string) (bool, error)

	svc *tracker.Service
}

func (c *Context) out() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

// Printf writes command output.
func (c *Context) Printf(format string, args ...interface{}) {
	fmt.Fprintf(c.out(), format, args...)
}

// Println writes command output followed by a newline.
func (c *Context) Println(args ...interface{}) {
	fmt.Fprintln(c.out(), args...)
}

// Settings returns the loaded configuration, or the defaults.
func (c *Context) Settings() *config.Config {
	if c.Config == nil {
		c.Config = config.Default()
	}
	return c.Config
}

// IsSQLite reports whether the store is a local database file.
func (c *Context) IsSQLite() bool {
	return c.Store.GetConfigPath() != "postgresql" && !postgres.IsConnString(c.Store.GetConfigPath())
}

// Backups returns the backup manager for the SQLite database file.
func (c *Context) Backups() (*backup.Manager, error) {
	if !c.IsSQLite() {
		return nil, fmt.Errorf("backups are only supported for SQLite storage; use pg_dump for PostgreSQL")
	}
	return backup.NewManager(c.Store.GetConfigPath()), nil
}

// Service returns the habit service configured from the loaded settings.
func (c *Context) Service() *tracker.Service {
	if c.svc != nil {
		return c.svc
	}

	cfg := c.Settings()
	opts := []tracker.Option{tracker.WithWindow(cfg.Timeline.WindowDays)}
	if cfg.Timeline.ReferenceLabels {
		opts = append(opts, tracker.WithReferenceLabels())
	}
	if cfg.Backup.BeforeDelete {
		if mgr, err := c.Backups(); err == nil {
			opts = append(opts, tracker.WithBackup(mgr.DeleteHook(cfg.Backup.Required)))
		}
	}

	c.svc = tracker.New(c.Store, opts...)
	return c.svc
}

// ConfirmAction prompts unless c.Confirm overrides the prompt.
func (c *Context) ConfirmAction(title, description string) (bool, error) {
	if c.Confirm != nil {
		return c.Confirm(title, description)
	}

	var confirmed bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Yes").
				Negative("No").
				Value(&confirmed),
		),
	).WithTheme(huh.ThemeDracula()).Run()
	if err != nil {
		return false, err
	}
	return confirmed, nil
}

// ResolveHabit finds a habit by numeric id or exact name.
func (c *Context) ResolveHabit(ctx context.Context, ref string) (models.HabitCount, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return models.HabitCount{}, errors.Invalid("habit name or id is required")
	}

	habits, err := c.Store.ListHabits(ctx)
	if err != nil {
		return models.HabitCount{}, err
	}

	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		for _, h := range habits {
			if h.ID == id {
				return h, nil
			}
		}
	}
	for _, h := range habits {
		if h.Name == ref {
			return h, nil
		}
	}
	return models.HabitCount{}, fmt.Errorf("%w: %q", errors.ErrUnknownHabit, ref)
}

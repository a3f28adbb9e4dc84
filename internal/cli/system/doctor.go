package system

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/julianstephens/streaklit/internal/cli"
	"github.com/julianstephens/streaklit/internal/constants"
	"github.com/julianstephens/streaklit/internal/lockfile"
	"github.com/julianstephens/streaklit/internal/utils"
)

type DoctorCmd struct{}

type check struct {
	name string
	run  func(context.Context, *cli.Context) error
	// warnOnly failures are reported but do not fail the command.
	warnOnly bool
	// needsDB checks are skipped when the database is unreachable.
	needsDB bool
}

var checks = []check{
	{name: "Schema version", run: checkSchemaVersion, needsDB: true},
	{name: "Migrations complete", run: checkMigrationsComplete, needsDB: true},
	{name: "Orphaned marks", run: checkOrphanedMarks, needsDB: true},
	{name: "Future-dated marks", run: checkFutureMarks, needsDB: true, warnOnly: true},
	{name: "Backups present", run: checkBackupsPresent, warnOnly: true},
	{name: "Server lock", run: checkServerLock, warnOnly: true},
	{name: "Clock/timezone", run: func(context.Context, *cli.Context) error { return checkClockTimezone() }},
}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	ctx.Println("Running diagnostics...")
	ctx.Println()

	bg := context.Background()
	hasError := false

	dbReachable := true
	if err := checkDBReachable(bg, ctx); err != nil {
		ctx.Printf("❌ Database reachable: FAIL\n   Error: %v\n", err)
		hasError = true
		dbReachable = false
	} else {
		ctx.Printf("✓ Database reachable: OK\n")
	}

	for _, c := range checks {
		if c.needsDB && !dbReachable {
			ctx.Printf("⊘ %s: SKIPPED (database not reachable)\n", c.name)
			continue
		}
		err := c.run(bg, ctx)
		switch {
		case err == nil:
			ctx.Printf("✓ %s: OK\n", c.name)
		case c.warnOnly:
			ctx.Printf("⚠ %s: WARNING\n   %v\n", c.name, err)
		default:
			ctx.Printf("❌ %s: FAIL\n   Error: %v\n", c.name, err)
			hasError = true
		}
	}

	ctx.Println()
	if hasError {
		ctx.Println("Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}
	ctx.Println("All diagnostics passed!")
	return nil
}

func checkDBReachable(bg context.Context, ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}
	return ctx.Store.Ping(bg)
}

func checkSchemaVersion(bg context.Context, ctx *cli.Context) error {
	return ctx.Store.ValidateSchema(bg)
}

type pendingReporter interface {
	PendingMigrations(ctx context.Context) (int, error)
}

func checkMigrationsComplete(bg context.Context, ctx *cli.Context) error {
	p, ok := ctx.Store.(pendingReporter)
	if !ok {
		return nil
	}
	n, err := p.PendingMigrations(bg)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("%d migration(s) pending; run '%s migrate'", n, constants.AppName)
	}
	return nil
}

type dbHolder interface {
	DB() *sqlx.DB
}

func storeDB(ctx *cli.Context) (*sqlx.DB, error) {
	h, ok := ctx.Store.(dbHolder)
	if !ok || h.DB() == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return h.DB(), nil
}

func checkOrphanedMarks(bg context.Context, ctx *cli.Context) error {
	db, err := storeDB(ctx)
	if err != nil {
		return err
	}
	var orphaned int
	err = db.GetContext(bg, &orphaned, `
		SELECT COUNT(*)
		FROM habit_tracker t
		LEFT JOIN habits h ON h.id = t.habit_id
		WHERE h.id IS NULL`)
	if err != nil {
		return fmt.Errorf("failed to check orphaned marks: %w", err)
	}
	if orphaned > 0 {
		return fmt.Errorf("found %d mark(s) referencing deleted habits", orphaned)
	}
	return nil
}

func checkFutureMarks(bg context.Context, ctx *cli.Context) error {
	db, err := storeDB(ctx)
	if err != nil {
		return err
	}
	var future int
	err = db.GetContext(bg, &future, db.Rebind(`SELECT COUNT(*) FROM habit_tracker WHERE day > ?`), utils.FormatDay(utils.Today()))
	if err != nil {
		return fmt.Errorf("failed to check mark dates: %w", err)
	}
	if future > 0 {
		return fmt.Errorf("found %d mark(s) dated after today; they end every streak walk", future)
	}
	return nil
}

func checkBackupsPresent(_ context.Context, ctx *cli.Context) error {
	if !ctx.IsSQLite() {
		return nil
	}
	mgr, err := ctx.Backups()
	if err != nil {
		return err
	}
	list, err := mgr.ListBackups()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(list) == 0 {
		return fmt.Errorf("no backups found - consider creating one with '%s backup create'", constants.AppName)
	}
	return nil
}

func checkServerLock(_ context.Context, ctx *cli.Context) error {
	if !ctx.IsSQLite() {
		return nil
	}
	path := lockfile.Path(ctx.Store.GetConfigPath())
	info, err := lockfile.Read(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("unreadable lockfile %s: %v", path, err)
	}
	if !lockfile.Live(info) {
		return fmt.Errorf("stale lockfile %s from pid %d; the next 'serve' will replace it", path, info.PID)
	}
	return nil
}

func checkClockTimezone() error {
	now := time.Now()
	if now.Year() < 2020 || now.Year() > 2100 {
		return fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339))
	}
	return nil
}

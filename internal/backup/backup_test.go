package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/julianstephens/streaklit/internal/constants"
)

var ctx = context.Background()

func setupTestDB(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "streaklit.db")

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	defer db.Close()

	db.MustExec(`CREATE TABLE habits (id INTEGER PRIMARY KEY, name TEXT NOT NULL UNIQUE)`)
	db.MustExec(`INSERT INTO habits (name) VALUES ('Read'), ('Gym')`)
	return dbPath
}

// steppingClock returns a clock that advances one second per call.
func steppingClock() func() time.Time {
	next := time.Date(2026, 10, 17, 9, 0, 0, 0, time.Local)
	return func() time.Time {
		now := next
		next = next.Add(time.Second)
		return now
	}
}

func countHabits(t *testing.T, path string) int {
	t.Helper()
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	defer db.Close()

	var n int
	if err := db.Get(&n, "SELECT COUNT(*) FROM habits"); err != nil {
		t.Fatalf("failed to count habits in %s: %v", path, err)
	}
	return n
}

func TestCreateBackup(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := NewManager(dbPath)

	info, err := mgr.CreateBackup(ctx)
	if err != nil {
		t.Fatalf("CreateBackup failed: %v", err)
	}
	if filepath.Dir(info.Path) != filepath.Join(filepath.Dir(dbPath), constants.BackupDirName) {
		t.Errorf("backup written to %s, want the backups directory", info.Path)
	}
	if info.Size == 0 {
		t.Error("backup size is 0")
	}
	if n := countHabits(t, info.Path); n != 2 {
		t.Errorf("expected 2 habits in backup, got %d", n)
	}
}

func TestCreateBackup_MissingDatabase(t *testing.T) {
	mgr := NewManager(filepath.Join(t.TempDir(), "missing.db"))
	if _, err := mgr.CreateBackup(ctx); err == nil {
		t.Error("expected error backing up a missing database")
	}
	if err := mgr.BeforeDelete(ctx); err == nil {
		t.Error("BeforeDelete should report a failed snapshot")
	}
}

func TestDeleteHook(t *testing.T) {
	missing := NewManager(filepath.Join(t.TempDir(), "missing.db"))
	if err := missing.DeleteHook(false)(ctx); err != nil {
		t.Errorf("optional hook should not block the delete, got %v", err)
	}
	if err := missing.DeleteHook(true)(ctx); err == nil {
		t.Error("required hook should fail when the snapshot fails")
	}

	mgr := NewManager(setupTestDB(t))
	if err := mgr.DeleteHook(true)(ctx); err != nil {
		t.Fatalf("required hook on a healthy database: %v", err)
	}
	list, err := mgr.ListBackups()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Errorf("hook created %d backups, want 1", len(list))
	}
}

func TestBackupRotation(t *testing.T) {
	mgr := NewManager(setupTestDB(t))
	mgr.now = steppingClock()

	for i := 0; i < constants.MaxBackups+5; i++ {
		if _, err := mgr.CreateBackup(ctx); err != nil {
			t.Fatalf("CreateBackup #%d failed: %v", i, err)
		}
	}

	backups, err := mgr.ListBackups()
	if err != nil {
		t.Fatalf("ListBackups failed: %v", err)
	}
	if len(backups) != constants.MaxBackups {
		t.Errorf("expected %d backups after rotation, got %d", constants.MaxBackups, len(backups))
	}
	for i := 1; i < len(backups); i++ {
		if backups[i].Timestamp.After(backups[i-1].Timestamp) {
			t.Errorf("backup %d is newer than backup %d", i, i-1)
		}
	}
}

func TestListBackups(t *testing.T) {
	mgr := NewManager(setupTestDB(t))

	backups, err := mgr.ListBackups()
	if err != nil {
		t.Fatalf("ListBackups failed: %v", err)
	}
	if len(backups) != 0 {
		t.Errorf("expected 0 backups initially, got %d", len(backups))
	}

	// Same-second backups get a counter and still sort newest first.
	fixed := time.Date(2026, 10, 17, 9, 0, 0, 0, time.Local)
	mgr.now = func() time.Time { return fixed }

	var created []string
	for i := 0; i < 3; i++ {
		info, err := mgr.CreateBackup(ctx)
		if err != nil {
			t.Fatalf("CreateBackup #%d failed: %v", i, err)
		}
		created = append(created, info.Path)
	}

	// Files that do not follow the naming scheme are ignored.
	if err := os.WriteFile(filepath.Join(mgr.Dir(), "notes.txt"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	backups, err = mgr.ListBackups()
	if err != nil {
		t.Fatalf("ListBackups failed: %v", err)
	}
	if len(backups) != 3 {
		t.Fatalf("expected 3 backups, got %d", len(backups))
	}
	if backups[0].Path != created[2] || backups[2].Path != created[0] {
		t.Errorf("unexpected order: %v", backups)
	}
}

func TestParseName(t *testing.T) {
	tests := []struct {
		name    string
		counter int
		ok      bool
	}{
		{"streaklit-20261017-090000.db", 0, true},
		{"streaklit-20261017-090000-3.db", 3, true},
		{"streaklit-20261017-090000-x.db", 0, false},
		{"streaklit-20261017.db", 0, false},
		{"other-20261017-090000.db", 0, false},
		{"streaklit-20261017-090000.sqlite", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, counter, ok := parseName(tt.name)
			if ok != tt.ok || counter != tt.counter {
				t.Errorf("parseName() = (%d, %v), want (%d, %v)", counter, ok, tt.counter, tt.ok)
			}
		})
	}
}

func TestRestoreBackup(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := NewManager(dbPath)
	mgr.now = steppingClock()

	info, err := mgr.CreateBackup(ctx)
	if err != nil {
		t.Fatalf("CreateBackup failed: %v", err)
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		t.Fatal(err)
	}
	db.MustExec(`INSERT INTO habits (name) VALUES ('Meditate')`)
	db.Close()

	if n := countHabits(t, dbPath); n != 3 {
		t.Fatalf("expected 3 habits before restore, got %d", n)
	}

	previous, err := mgr.RestoreBackup(ctx, info.Path)
	if err != nil {
		t.Fatalf("RestoreBackup failed: %v", err)
	}
	if n := countHabits(t, dbPath); n != 2 {
		t.Errorf("expected 2 habits after restore, got %d", n)
	}
	if n := countHabits(t, previous.Path); n != 3 {
		t.Errorf("pre-restore snapshot has %d habits, want 3", n)
	}

	backups, err := mgr.ListBackups()
	if err != nil {
		t.Fatal(err)
	}
	if len(backups) != 2 {
		t.Errorf("expected 2 backups after restore, got %d", len(backups))
	}
}

func TestRestoreBackup_Invalid(t *testing.T) {
	mgr := NewManager(setupTestDB(t))

	if _, err := mgr.RestoreBackup(ctx, filepath.Join(t.TempDir(), "nope.db")); err == nil {
		t.Error("expected error restoring a missing backup")
	}

	invalid := filepath.Join(t.TempDir(), "invalid.db")
	if err := os.WriteFile(invalid, []byte("not a database"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := mgr.RestoreBackup(ctx, invalid); err == nil {
		t.Error("expected error restoring a corrupt backup")
	}
}

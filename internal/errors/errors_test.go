package errors

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: "",
		},
		{
			name:     "simple error",
			err:      stderrors.New("something went wrong"),
			expected: "Error: something went wrong",
		},
		{
			name:     "domain error",
			err:      fmt.Errorf("add habit %q: %w", "Read", ErrDuplicateName),
			expected: `Error: add habit "Read": habit name already exists`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Format(tt.err)
			if result != tt.expected {
				t.Errorf("Format(%v) = %q, want %q", tt.err, result, tt.expected)
			}
		})
	}
}

func TestFormatf(t *testing.T) {
	got := Formatf("failed to load %s", "database")
	if got != "Error: failed to load database" {
		t.Errorf("Formatf() = %q", got)
	}
}

func TestStorage(t *testing.T) {
	base := stderrors.New("database is locked")

	tests := []struct {
		name        string
		err         error
		wantNil     bool
		wantStorage bool
		wantIs      error
	}{
		{name: "nil", err: nil, wantNil: true},
		{name: "plain error is wrapped", err: base, wantStorage: true, wantIs: base},
		{name: "duplicate name passes through", err: fmt.Errorf("insert: %w", ErrDuplicateName), wantIs: ErrDuplicateName},
		{name: "unknown habit passes through", err: ErrUnknownHabit, wantIs: ErrUnknownHabit},
		{name: "invalid input passes through", err: Invalid("bad date %q", "x"), wantIs: ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Storage("mark done", tt.err)
			if tt.wantNil {
				if got != nil {
					t.Fatalf("Storage(nil) = %v, want nil", got)
				}
				return
			}
			if IsStorage(got) != tt.wantStorage {
				t.Errorf("IsStorage(%v) = %v, want %v", got, IsStorage(got), tt.wantStorage)
			}
			if !Is(got, tt.wantIs) {
				t.Errorf("Storage() = %v, does not wrap %v", got, tt.wantIs)
			}
		})
	}
}

func TestStorage_DoesNotDoubleWrap(t *testing.T) {
	first := Storage("delete habit", stderrors.New("disk I/O error"))
	second := Storage("outer", first)

	var se *StorageError
	if !As(second, &se) {
		t.Fatalf("expected StorageError, got %T", second)
	}
	if se.Op != "delete habit" {
		t.Errorf("Op = %q, want %q", se.Op, "delete habit")
	}
	if !strings.HasPrefix(second.Error(), "storage: delete habit:") {
		t.Errorf("Error() = %q", second.Error())
	}
}

// TestFatal tests the Fatal function using exec helper process
func TestFatal(t *testing.T) {
	if os.Getenv("GO_TEST_FATAL") == "1" {
		Fatal(stderrors.New("test error"))
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestFatal$")
	cmd.Env = append(os.Environ(), "GO_TEST_FATAL=1")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if e, ok := err.(*exec.ExitError); ok && !e.Success() {
		if e.ExitCode() != 1 {
			t.Errorf("Fatal() exit code = %d, want 1", e.ExitCode())
		}
		if !strings.Contains(stderr.String(), "Error: test error") {
			t.Errorf("Fatal() stderr = %q, want to contain %q", stderr.String(), "Error: test error")
		}
	} else {
		t.Errorf("Fatal() did not exit with error: %v", err)
	}
}

// TestFatal_NilError tests that Fatal does nothing when passed a nil error
func TestFatal_NilError(t *testing.T) {
	if os.Getenv("GO_TEST_FATAL_NIL") == "1" {
		Fatal(nil)
		os.Exit(0)
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestFatal_NilError")
	cmd.Env = append(os.Environ(), "GO_TEST_FATAL_NIL=1")

	if err := cmd.Run(); err != nil {
		t.Errorf("Fatal(nil) should not exit, but got error: %v", err)
	}
}

// Package lockfile guards a database against a second concurrent `serve` process.
//
// The lockfile holds "addr|pid". A lockfile whose process has exited, or
// whose PID now belongs to another program, is stale and may be replaced.
package lockfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/julianstephens/streaklit/internal/constants"
	"github.com/julianstephens/streaklit/internal/logger"
)

var (
	findProcessFunc = ps.FindProcess
	getpidFunc      = os.Getpid
)

// ErrLocked is returned when a live server already holds the lockfile.
var ErrLocked = errors.New("another streaklit server is running")

// Info is the content of a lockfile.
type Info struct {
	Addr string
	PID  int
}

// Path returns the lockfile location for the database at dbPath.
func Path(dbPath string) string {
	return filepath.Join(filepath.Dir(dbPath), constants.ServerLockfile)
}

// Read parses the lockfile at path.
func Read(path string) (Info, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Info{}, err
	}

	parts := strings.Split(strings.TrimSpace(string(content)), "|")
	if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" {
		return Info{}, errors.New("lockfile is malformed")
	}
	pid, err := strconv.Atoi(parts[1])
	if err != nil || pid <= 0 {
		return Info{}, errors.New("invalid process ID in lockfile")
	}
	return Info{Addr: parts[0], PID: pid}, nil
}

// Live reports whether info's process is still a running streaklit.
func Live(info Info) bool {
	process, err := findProcessFunc(info.PID)
	if err != nil || process == nil {
		return false
	}
	return strings.HasPrefix(process.Executable(), constants.AppName)
}

// Acquire writes a lockfile for this process serving addr and returns a
// function that removes it. It fails with ErrLocked when a live server holds
// the lock; stale or malformed lockfiles are replaced.
func Acquire(path, addr string) (func() error, error) {
	if info, err := Read(path); err == nil {
		if info.PID != getpidFunc() && Live(info) {
			return nil, fmt.Errorf("%w: pid %d serving on %s", ErrLocked, info.PID, info.Addr)
		}
		logger.Warn("Replacing stale server lockfile", "path", path, "pid", info.PID)
	} else if !os.IsNotExist(err) {
		logger.Warn("Replacing unreadable server lockfile", "path", path, "error", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create lockfile directory: %w", err)
	}
	pid := getpidFunc()
	content := fmt.Sprintf("%s|%d\n", addr, pid)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return nil, fmt.Errorf("failed to write lockfile: %w", err)
	}

	return func() error {
		// Only remove the lock if it is still ours.
		if info, err := Read(path); err == nil && info.PID != pid {
			return nil
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}, nil
}

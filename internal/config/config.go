// Package config loads streaklit settings from built-in defaults, an
// optional TOML file and STREAKLIT_* environment variables, in that order.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/julianstephens/streaklit/internal/constants"
)

// Config represents the config.toml file.
type Config struct {
	Database Database `toml:"database"`
	Server   Server   `toml:"server"`
	Timeline Timeline `toml:"timeline"`
	Backup   Backup   `toml:"backup"`
	Log      Log      `toml:"log"`
}

// Database selects and tunes the store.
type Database struct {
	// Path is a SQLite file, a PostgreSQL URL, or "keyring" to read the
	// connection string from the OS keyring.
	Path        string        `toml:"path"`
	OpTimeout   time.Duration `toml:"op-timeout"`
	BusyTimeout time.Duration `toml:"busy-timeout"`
}

type Server struct {
	Addr           string        `toml:"addr"`
	RequestTimeout time.Duration `toml:"request-timeout"`
}

type Timeline struct {
	WindowDays      int  `toml:"window-days"`
	ReferenceLabels bool `toml:"reference-labels"`
}

type Backup struct {
	// BeforeDelete snapshots the SQLite database before a habit is deleted.
	BeforeDelete bool `toml:"before-delete"`
	// Required aborts the deletion when that snapshot fails.
	Required bool `toml:"required"`
}

type Log struct {
	Debug bool   `toml:"debug"`
	Dir   string `toml:"dir"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Database: Database{
			Path:        constants.DefaultConfigPath,
			BusyTimeout: constants.DefaultBusyTimeout,
		},
		Server: Server{
			Addr:           constants.DefaultListenAddr,
			RequestTimeout: constants.DefaultRequestTimeout,
		},
		Timeline: Timeline{WindowDays: constants.DefaultWindowDays},
		Backup:   Backup{BeforeDelete: true},
	}
}

// Load reads path over the defaults and then applies the environment.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		expanded, err := ExpandHome(path)
		if err != nil {
			return nil, err
		}
		if err := cfg.loadFile(expanded); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads variables from .env files into the process environment
// without overriding variables that are already set. Missing files are skipped.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var present []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}
	if err := godotenv.Load(present...); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	meta, err := toml.Decode(string(data), c)
	if err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("config file %s: unknown key %q", path, undecoded[0].String())
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v, ok := lookup(constants.EnvDatabase); ok {
		c.Database.Path = v
	}
	if v, ok := lookup(constants.EnvAddr); ok {
		c.Server.Addr = v
	}
	if v, ok := lookup(constants.EnvLogDir); ok {
		c.Log.Dir = v
	}
	if v, ok := lookup(constants.EnvDebug); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", constants.EnvDebug, err)
		}
		c.Log.Debug = b
	}
	if v, ok := lookup(constants.EnvWindow); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", constants.EnvWindow, err)
		}
		c.Timeline.WindowDays = n
	}
	return nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if c.Timeline.WindowDays < 1 {
		return fmt.Errorf("timeline window must be at least 1 day, got %d", c.Timeline.WindowDays)
	}
	if c.Database.OpTimeout < 0 || c.Database.BusyTimeout < 0 || c.Server.RequestTimeout < 0 {
		return fmt.Errorf("timeouts cannot be negative")
	}
	return nil
}

// ExpandHome replaces a leading ~/ with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

package constants

import "time"

const (
	AppName            = "streaklit"
	DefaultKeyringUser = "database-connection"
	DefaultConfigPath  = "~/.config/streaklit/streaklit.db"
	DefaultConfigFile  = "~/.config/streaklit/config.toml"
	Version            = "v0.1.0"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// Timeline constants
	DefaultWindowDays = 90
	DaysPerWeek       = 7

	// Server constants
	DefaultListenAddr     = "127.0.0.1:8080"
	DefaultRequestTimeout = 10 * time.Second
	DefaultReadTimeout    = 15 * time.Second
	DefaultWriteTimeout   = 15 * time.Second

	// Storage constants
	DefaultBusyTimeout  = 5 * time.Second
	DefaultMaxOpenConns = 25
	DefaultMaxIdleConns = 25
	DefaultConnLifetime = 5 * time.Minute

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	ServerLockfile   = "serve.lock"
	BackupFilePrefix = "streaklit-"
	BackupFileSuffix = ".db"

	// Environment variables
	EnvDatabase = "STREAKLIT_DB"
	EnvAddr     = "STREAKLIT_ADDR"
	EnvDebug    = "STREAKLIT_DEBUG"
	EnvLogDir   = "STREAKLIT_LOG_DIR"
	EnvWindow   = "STREAKLIT_WINDOW_DAYS"
)

// ReferenceDayLabels is the fixed Saturday-first row labelling, applied
// regardless of the window's first weekday.
var ReferenceDayLabels = [DaysPerWeek]string{
	"Saturday", "Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday",
}

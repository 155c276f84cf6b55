package domain

import "time"

// Settings holds service-wide configuration.
type Settings struct {
	// DataDir holds the database, lock file and logs.
	DataDir string

	// LogLevel is the level for the JSON log file (debug, info, warn, error).
	LogLevel string

	// LogFile is an optional JSON log file. Empty disables file logging.
	LogFile string

	// Workers is the number of concurrent pipeline runs. Runs for the same
	// source never overlap regardless of this value.
	Workers int

	// QueueSize bounds the number of queued run requests.
	QueueSize int

	// TickInterval is how often the scheduler checks for due sources.
	TickInterval time.Duration

	// CatchUpDaily fires a missed daily run any time later the same day.
	CatchUpDaily bool

	// HistoryLimit caps the number of run records kept per source.
	HistoryLimit int

	// HTTPAddr is the listen address for the admin API and metrics. Empty disables it.
	HTTPAddr string

	// WatchDebounce delays watch-triggered runs so bursts of events collapse.
	WatchDebounce time.Duration
}

// DefaultSettings returns the built-in configuration.
func DefaultSettings() Settings {
	return Settings{
		LogLevel:      "info",
		Workers:       1,
		QueueSize:     64,
		TickInterval:  time.Minute,
		HistoryLimit:  50,
		WatchDebounce: 5 * time.Second,
	}
}

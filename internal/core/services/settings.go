package services

import (
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/custodia-labs/sercha-indexer/internal/core/domain"
	"github.com/custodia-labs/sercha-indexer/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-indexer/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
const (
	keyDataDir       = "data.dir"
	keyLogLevel      = "log.level"
	keyLogFile       = "log.file"
	keyWorkers       = "indexing.workers"
	keyQueueSize     = "indexing.queue_size"
	keyHistoryLimit  = "indexing.history_limit"
	keyTickInterval  = "scheduler.tick"
	keyCatchUpDaily  = "scheduler.catch_up_daily"
	keyHTTPAddr      = "http.addr"
	keyWatchDebounce = "watch.debounce"
)

type settingKind int

const (
	kindString settingKind = iota
	kindInt
	kindBool
	kindDuration
	kindLevel
)

var settingKinds = map[string]settingKind{
	keyDataDir:       kindString,
	keyLogLevel:      kindLevel,
	keyLogFile:       kindString,
	keyWorkers:       kindInt,
	keyQueueSize:     kindInt,
	keyHistoryLimit:  kindInt,
	keyTickInterval:  kindDuration,
	keyCatchUpDaily:  kindBool,
	keyHTTPAddr:      kindString,
	keyWatchDebounce: kindDuration,
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get returns the current settings with defaults applied.
func (s *SettingsService) Get() (domain.Settings, error) {
	defaults := domain.DefaultSettings()
	if s.configStore == nil {
		return defaults, nil
	}

	return domain.Settings{
		DataDir:       s.getString(keyDataDir, defaults.DataDir),
		LogLevel:      s.getString(keyLogLevel, defaults.LogLevel),
		LogFile:       s.getString(keyLogFile, defaults.LogFile),
		Workers:       s.getInt(keyWorkers, defaults.Workers),
		QueueSize:     s.getInt(keyQueueSize, defaults.QueueSize),
		HistoryLimit:  s.getInt(keyHistoryLimit, defaults.HistoryLimit),
		TickInterval:  s.getDuration(keyTickInterval, defaults.TickInterval),
		CatchUpDaily:  s.getBool(keyCatchUpDaily, defaults.CatchUpDaily),
		HTTPAddr:      s.getString(keyHTTPAddr, defaults.HTTPAddr),
		WatchDebounce: s.getDuration(keyWatchDebounce, defaults.WatchDebounce),
	}, nil
}

// Set parses value according to the key's type and persists it.
func (s *SettingsService) Set(key, value string) error {
	if s.configStore == nil {
		return domain.ErrNotImplemented
	}
	kind, ok := settingKinds[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	var parsed any
	switch kind {
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: %s must be a non-negative integer", domain.ErrInvalidInput, key)
		}
		parsed = n
	case kindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be true or false", domain.ErrInvalidInput, key)
		}
		parsed = b
	case kindDuration:
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			return fmt.Errorf("%w: %s must be a positive duration like 30s or 5m", domain.ErrInvalidInput, key)
		}
		parsed = d.String()
	case kindLevel:
		switch value {
		case "debug", "info", "warn", "error":
			parsed = value
		default:
			return fmt.Errorf("%w: %s must be debug, info, warn or error", domain.ErrInvalidInput, key)
		}
	default:
		parsed = value
	}

	return s.configStore.Set(key, parsed)
}

// Keys returns the recognised setting keys in sorted order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settingKinds))
	for k := range settingKinds {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

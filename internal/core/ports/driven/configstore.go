package driven

// ConfigStore is the flat key/value view of the settings file. Keys use dot
// notation ("indexing.workers"); typed getters return the zero value for
// missing keys or values of another type.
type ConfigStore interface {
	// Get returns the raw value and whether the key is set.
	Get(key string) (any, bool)

	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool

	// Set stores a value and persists the file.
	Set(key string, value any) error

	// Path returns the settings file location.
	Path() string
}

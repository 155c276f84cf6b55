package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-indexer/internal/core/domain"
	"github.com/custodia-labs/sercha-indexer/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*mockConfigStore)(nil)

// mockConfigStore keeps flat keys in a map.
type mockConfigStore struct {
	values map[string]any
	setErr error
}

func newMockConfigStore() *mockConfigStore {
	return &mockConfigStore{values: make(map[string]any)}
}

func (m *mockConfigStore) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *mockConfigStore) GetString(key string) string {
	s, _ := m.values[key].(string)
	return s
}

func (m *mockConfigStore) GetInt(key string) int {
	n, _ := m.values[key].(int)
	return n
}

func (m *mockConfigStore) GetBool(key string) bool {
	b, _ := m.values[key].(bool)
	return b
}

func (m *mockConfigStore) Set(key string, value any) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = value
	return nil
}

func (m *mockConfigStore) Path() string { return "/tmp/config.toml" }

func TestSettingsService_GetDefaults(t *testing.T) {
	svc := NewSettingsService(newMockConfigStore())

	settings, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSettings(), settings)
}

func TestSettingsService_GetNilStore(t *testing.T) {
	settings, err := NewSettingsService(nil).Get()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSettings(), settings)
}

func TestSettingsService_SetAndGet(t *testing.T) {
	store := newMockConfigStore()
	svc := NewSettingsService(store)

	require.NoError(t, svc.Set("data.dir", "/var/lib/sercha"))
	require.NoError(t, svc.Set("indexing.workers", "4"))
	require.NoError(t, svc.Set("scheduler.tick", "30s"))
	require.NoError(t, svc.Set("scheduler.catch_up_daily", "true"))
	require.NoError(t, svc.Set("log.level", "debug"))

	assert.Equal(t, 4, store.values["indexing.workers"])
	assert.Equal(t, "30s", store.values["scheduler.tick"])

	settings, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/sercha", settings.DataDir)
	assert.Equal(t, 4, settings.Workers)
	assert.Equal(t, 30*time.Second, settings.TickInterval)
	assert.True(t, settings.CatchUpDaily)
	assert.Equal(t, "debug", settings.LogLevel)
	assert.Equal(t, 64, settings.QueueSize)
}

func TestSettingsService_SetRejectsBadValues(t *testing.T) {
	svc := NewSettingsService(newMockConfigStore())

	tests := []struct {
		key   string
		value string
	}{
		{"unknown.key", "x"},
		{"indexing.workers", "many"},
		{"indexing.queue_size", "-1"},
		{"scheduler.catch_up_daily", "maybe"},
		{"scheduler.tick", "soon"},
		{"watch.debounce", "0s"},
		{"log.level", "loud"},
	}
	for _, tc := range tests {
		t.Run(tc.key+"="+tc.value, func(t *testing.T) {
			assert.ErrorIs(t, svc.Set(tc.key, tc.value), domain.ErrInvalidInput)
		})
	}
}

func TestSettingsService_SetNilStore(t *testing.T) {
	assert.ErrorIs(t, NewSettingsService(nil).Set("log.level", "info"), domain.ErrNotImplemented)
}

func TestSettingsService_StoreError(t *testing.T) {
	store := newMockConfigStore()
	store.setErr = errBoom
	assert.ErrorIs(t, NewSettingsService(store).Set("http.addr", ":8080"), errBoom)
}

func TestSettingsService_InvalidStoredDurationFallsBack(t *testing.T) {
	store := newMockConfigStore()
	store.values["watch.debounce"] = "later"

	settings, err := NewSettingsService(store).Get()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, settings.WatchDebounce)
}

func TestSettingsService_Keys(t *testing.T) {
	keys := NewSettingsService(nil).Keys()
	assert.Len(t, keys, 10)
	assert.IsNonDecreasing(t, keys)
	assert.Contains(t, keys, "http.addr")
}

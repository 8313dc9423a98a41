package memory

import (
	"sync"

	"github.com/custodia-labs/docindex/internal/adapters/driven/config"
	"github.com/custodia-labs/docindex/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore keeps settings in memory. Save and Load do nothing.
type ConfigStore struct {
	mu     sync.RWMutex
	values config.Values
}

// NewConfigStore creates an empty store.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{values: make(config.Values)}
}

// NewConfigStoreFrom creates a store seeded from a nested document, the
// same shape a config file decodes to.
func NewConfigStoreFrom(doc map[string]any) *ConfigStore {
	return &ConfigStore{values: config.Flatten(doc)}
}

func (s *ConfigStore) read(fn func(config.Values)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.values)
}

// Get retrieves a configuration value by key.
func (s *ConfigStore) Get(key string) (val any, ok bool) {
	s.read(func(v config.Values) { val, ok = v[key] })
	return val, ok
}

// GetString retrieves a string configuration value.
func (s *ConfigStore) GetString(key string) (out string) {
	s.read(func(v config.Values) { out = v.String(key) })
	return out
}

// GetInt retrieves an integer configuration value.
func (s *ConfigStore) GetInt(key string) (out int) {
	s.read(func(v config.Values) { out = v.Int(key) })
	return out
}

// GetFloat retrieves a float configuration value.
func (s *ConfigStore) GetFloat(key string) (out float64) {
	s.read(func(v config.Values) { out = v.Float(key) })
	return out
}

// GetBool retrieves a boolean configuration value.
func (s *ConfigStore) GetBool(key string) (out bool) {
	s.read(func(v config.Values) { out = v.Bool(key) })
	return out
}

// GetStringSlice retrieves a string slice configuration value.
func (s *ConfigStore) GetStringSlice(key string) (out []string) {
	s.read(func(v config.Values) { out = v.StringSlice(key) })
	return out
}

// GetStringMap returns the string values stored under prefix.
func (s *ConfigStore) GetStringMap(prefix string) (out map[string]string) {
	s.read(func(v config.Values) { out = v.StringMap(prefix) })
	return out
}

// Set stores a configuration value.
func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// Save is a no-op.
func (s *ConfigStore) Save() error { return nil }

// Load is a no-op.
func (s *ConfigStore) Load() error { return nil }

// Path returns ":memory:".
func (s *ConfigStore) Path() string { return ":memory:" }

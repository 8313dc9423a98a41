package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/docindex/internal/adapters/driven/config"
	"github.com/custodia-labs/docindex/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

const (
	tomlFile = "config.toml"
	yamlFile = "config.yaml"
)

// ConfigStore is a file-based implementation of driven.ConfigStore.
// Settings are written as TOML. A config.yaml in the same directory is read
// when no config.toml exists yet.
type ConfigStore struct {
	mu       sync.RWMutex
	dir      string
	filePath string
	data     config.Values
}

// DefaultDir returns ~/.docindex.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".docindex"), nil
}

// NewConfigStore creates a config store rooted at configDir.
// If configDir is empty, defaults to ~/.docindex.
func NewConfigStore(configDir string) (*ConfigStore, error) {
	if configDir == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		configDir = dir
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, fmt.Errorf("create config directory: %w", err)
	}

	s := &ConfigStore{
		dir:      configDir,
		filePath: filepath.Join(configDir, tomlFile),
		data:     make(config.Values),
	}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Get retrieves a configuration value by key.
func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.data[key]
	return val, ok
}

// GetString retrieves a string configuration value.
func (s *ConfigStore) GetString(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.String(key)
}

// GetInt retrieves an integer configuration value.
func (s *ConfigStore) GetInt(key string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Int(key)
}

// GetFloat retrieves a float configuration value.
func (s *ConfigStore) GetFloat(key string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Float(key)
}

// GetBool retrieves a boolean configuration value.
func (s *ConfigStore) GetBool(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Bool(key)
}

// GetStringSlice retrieves a string slice configuration value.
func (s *ConfigStore) GetStringSlice(key string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.StringSlice(key)
}

// GetStringMap returns the string values stored under prefix.
func (s *ConfigStore) GetStringMap(prefix string) map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.StringMap(prefix)
}

// Set stores a configuration value and persists immediately.
func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = value
	return s.save()
}

// Save persists the current configuration to disk.
func (s *ConfigStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save()
}

// save writes the TOML file with dotted keys expanded into tables.
// Caller must hold the lock.
func (s *ConfigStore) save() error {
	data, err := toml.Marshal(s.data.Nest())
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(s.filePath, data, 0600)
}

// Load reads config.toml, falling back to config.yaml.
// A missing file leaves the store empty.
func (s *ConfigStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	loaded, err := s.read()
	if err != nil {
		return err
	}
	s.data = config.Flatten(loaded)
	return nil
}

func (s *ConfigStore) read() (map[string]any, error) {
	var loaded map[string]any

	data, err := os.ReadFile(s.filePath)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &loaded); err != nil {
			return nil, fmt.Errorf("parse %s: %w", s.filePath, err)
		}
		return loaded, nil
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("read config: %w", err)
	}

	yamlPath := filepath.Join(s.dir, yamlFile)
	data, err = os.ReadFile(yamlPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("parse %s: %w", yamlPath, err)
	}
	return loaded, nil
}

// Path returns the configuration file path.
func (s *ConfigStore) Path() string {
	return s.filePath
}

// Dir returns the configuration directory.
func (s *ConfigStore) Dir() string {
	return s.dir
}

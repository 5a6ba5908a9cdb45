// Package settings persists the selected MIDI devices between runs
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

// Keys of the persisted device selection
const (
	ControllerInputID = "controllerInputId"
	DAWInputID        = "dawInputId"
	OutputID          = "outputId"
)

// Store is a string key-value store
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Delete(key string) error
}

// MemoryStore keeps values in memory only
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get returns the value for key
func (m *MemoryStore) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

// Set stores a value
func (m *MemoryStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// Delete removes a key
func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// FileStore is a Store backed by a TOML file. Every change rewrites the file.
type FileStore struct {
	path string
	mem  *MemoryStore
}

// OpenFile loads the store at path. A missing file is an empty store.
func OpenFile(path string) (*FileStore, error) {
	s := &FileStore{path: path, mem: NewMemoryStore()}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	if err := toml.Unmarshal(data, &s.mem.values); err != nil {
		return nil, fmt.Errorf("failed to parse settings %s: %w", path, err)
	}
	if s.mem.values == nil {
		s.mem.values = make(map[string]string)
	}
	return s, nil
}

// DefaultPath returns the settings file location in the user config dir
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "ideamachine", "settings.toml"), nil
}

// Path returns the file location
func (s *FileStore) Path() string {
	return s.path
}

// Get returns the value for key
func (s *FileStore) Get(key string) (string, bool) {
	return s.mem.Get(key)
}

// Set stores a value and writes the file
func (s *FileStore) Set(key, value string) error {
	if err := s.mem.Set(key, value); err != nil {
		return err
	}
	return s.save()
}

// Delete removes a key and writes the file
func (s *FileStore) Delete(key string) error {
	if err := s.mem.Delete(key); err != nil {
		return err
	}
	return s.save()
}

func (s *FileStore) save() error {
	s.mem.mu.RLock()
	data, err := toml.Marshal(s.mem.values)
	s.mem.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create settings dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return os.Rename(tmp, s.path)
}

package storage

import (
	"sync"

	"github.com/alexisbeaulieu97/synthevents/internal/config"
)

const settingsFile = "settings.json"

// SettingsStore persists the runtime-editable channel settings.
type SettingsStore struct {
	store *Store
	mu    sync.Mutex
}

// NewSettingsStore returns a SettingsStore backed by the given Store.
func NewSettingsStore(store *Store) *SettingsStore {
	return &SettingsStore{store: store}
}

// Load reads the stored settings merged over the environment defaults, so
// every field exists even when the saved document predates a new field.
func (s *SettingsStore) Load() (config.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	defaults := config.DefaultSettings()

	var saved config.Settings
	found, err := s.store.Read(settingsFile, &saved)
	if err != nil {
		return defaults, err
	}
	if !found {
		return defaults, nil
	}
	return defaults.Merge(saved), nil
}

// Save persists the full settings document.
func (s *SettingsStore) Save(settings config.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Write(settingsFile, settings)
}

// Update overlays a partial settings document onto the current one and
// persists the result.
func (s *SettingsStore) Update(partial config.Settings) (config.Settings, error) {
	current, err := s.Load()
	if err != nil {
		return current, err
	}

	merged := current.Merge(partial)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Write(settingsFile, merged); err != nil {
		return merged, err
	}
	return merged, nil
}

// EnsureDefaults seeds the settings document at startup when it does not
// exist yet.
func (s *SettingsStore) EnsureDefaults() (config.Settings, bool, error) {
	settings, err := s.Load()
	if err != nil {
		return settings, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store.Exists(settingsFile) {
		return settings, false, nil
	}
	if err := s.store.Write(settingsFile, settings); err != nil {
		return settings, false, err
	}
	return settings, true, nil
}

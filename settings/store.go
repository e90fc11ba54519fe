package settings

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
)

const fileName = "menu-settings.json"

// Store persists the server-wide menu defaults and scope limits as one
// JSON file under the data directory.
type Store struct {
	path string

	mu   sync.RWMutex
	data Settings
}

// NewStore reads the settings file if it exists. A missing, corrupt or
// invalid file yields the defaults; only an unreadable one is an error.
func NewStore(dataDir string) (*Store, error) {
	s := &Store{
		path: filepath.Join(dataDir, fileName),
		data: Default(),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data
}

// Update validates, persists and applies new settings. On a save
// failure the in-memory settings are left untouched.
func (s *Store) Update(settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.save(settings); err != nil {
		return err
	}
	s.data = settings
	return nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		// A hand-edited file that no longer parses keeps the defaults.
		return nil
	}
	if err := settings.Validate(); err != nil {
		return nil
	}

	s.data = settings
	return nil
}

// save writes to a temp file in the same directory and renames it over
// the settings file, so a crash mid-write never truncates it.
func (s *Store) save(settings Settings) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, fileName+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, s.path)
}

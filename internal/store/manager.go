package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

const (
	DefaultFileName = "state.json"
	defaultDataDir  = ".veteranvr"
)

// Manager handles persisted client state
type Manager struct {
	dataPath string
	data     *StateData
	mu       sync.RWMutex
}

// NewManager creates a new state manager
func NewManager(dataPath string) (*Manager, error) {
	if dataPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dataPath = filepath.Join(home, defaultDataDir, DefaultFileName)
	}

	m := &Manager{
		dataPath: dataPath,
		data: &StateData{
			Favorites: make(map[string]Favorite),
		},
	}

	if err := m.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load state data: %w", err)
	}
	if m.data.Favorites == nil {
		m.data.Favorites = make(map[string]Favorite)
	}

	return m, nil
}

// load loads state data from file
func (m *Manager) load() error {
	data, err := os.ReadFile(m.dataPath)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, m.data)
}

// Save saves state data to file
func (m *Manager) Save() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, err := json.MarshalIndent(m.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state data: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(m.dataPath), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	return os.WriteFile(m.dataPath, data, 0644)
}

// Path returns the backing file
func (m *Manager) Path() string {
	return m.dataPath
}

// AddFavorite marks a package, returning false if it already was
func (m *Manager) AddFavorite(packageName string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.data.Favorites[packageName]; ok {
		return false
	}
	m.data.Favorites[packageName] = Favorite{
		PackageName: packageName,
		AddedAt:     time.Now(),
	}
	return true
}

// RemoveFavorite unmarks a package
func (m *Manager) RemoveFavorite(packageName string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.data.Favorites[packageName]; !ok {
		return false
	}
	delete(m.data.Favorites, packageName)
	return true
}

// IsFavorite reports whether a package is marked
func (m *Manager) IsFavorite(packageName string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.data.Favorites[packageName]
	return ok
}

// Favorites returns marked packages sorted by name
func (m *Manager) Favorites() []Favorite {
	m.mu.RLock()
	defer m.mu.RUnlock()

	favs := make([]Favorite, 0, len(m.data.Favorites))
	for _, f := range m.data.Favorites {
		favs = append(favs, f)
	}
	sort.Slice(favs, func(i, j int) bool {
		return favs[i].PackageName < favs[j].PackageName
	})
	return favs
}

// FavoriteSet returns the marked packages as a lookup set
func (m *Manager) FavoriteSet() map[string]bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	set := make(map[string]bool, len(m.data.Favorites))
	for name := range m.data.Favorites {
		set[name] = true
	}
	return set
}

// SetLastSync records a sync summary
func (m *Manager) SetLastSync(summary SyncSummary) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data.LastSync = &summary
}

// LastSync returns the recorded sync summary, if any
func (m *Manager) LastSync() (SyncSummary, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.data.LastSync == nil {
		return SyncSummary{}, false
	}
	return *m.data.LastSync, true
}

package state

import (
	"sync"

	"github.com/TheMichaelB/remarksync/internal/models"
)

// MockStore provides a mock implementation for testing.
type MockStore struct {
	mu        sync.RWMutex
	snapshots map[string]*models.SyncSnapshot

	// Error injection
	LoadError error
	SaveError error
}

// NewMockStore creates a mock state store.
func NewMockStore() *MockStore {
	return &MockStore{
		snapshots: make(map[string]*models.SyncSnapshot),
	}
}

// Load loads the snapshot for a profile.
func (m *MockStore) Load(profile string) (*models.SyncSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.LoadError != nil {
		return nil, m.LoadError
	}

	if snapshot, ok := m.snapshots[profile]; ok {
		return copySnapshot(snapshot), nil
	}

	return nil, ErrStateNotFound
}

// Save saves the snapshot for a profile.
func (m *MockStore) Save(profile string, snapshot *models.SyncSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SaveError != nil {
		return m.SaveError
	}

	m.snapshots[profile] = copySnapshot(snapshot)
	return nil
}

// Reset removes the snapshot for a profile.
func (m *MockStore) Reset(profile string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.snapshots, profile)
	return nil
}

// List returns all profiles with stored state.
func (m *MockStore) List() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var profiles []string
	for profile := range m.snapshots {
		profiles = append(profiles, profile)
	}
	return profiles, nil
}

// Lock acquires an exclusive lock for a profile (no-op for mock).
func (m *MockStore) Lock(profile string) (UnlockFunc, error) {
	return func() {}, nil
}

// Migrate transfers state between stores (no-op for mock).
func (m *MockStore) Migrate(target Store) error {
	return nil
}

// Close closes the store (no-op for mock).
func (m *MockStore) Close() error {
	return nil
}

// Clear removes all snapshots.
func (m *MockStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = make(map[string]*models.SyncSnapshot)
}

func copySnapshot(snapshot *models.SyncSnapshot) *models.SyncSnapshot {
	out := *snapshot
	out.Files = make(map[string]models.FileRecord, len(snapshot.Files))
	for k, v := range snapshot.Files {
		out.Files[k] = v
	}
	return &out
}

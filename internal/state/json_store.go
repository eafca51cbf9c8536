package state

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/TheMichaelB/remarksync/internal/events"
	"github.com/TheMichaelB/remarksync/internal/models"
)

// JSONStore implements file-based snapshot storage, one file per
// profile.
type JSONStore struct {
	baseDir string
	logger  *events.Logger

	mu    sync.RWMutex
	locks map[string]*sync.Mutex
}

// NewJSONStore creates a JSON-based state store.
func NewJSONStore(baseDir string, logger *events.Logger) (*JSONStore, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	return &JSONStore{
		baseDir: baseDir,
		logger:  logger.WithField("component", "json_state_store"),
		locks:   make(map[string]*sync.Mutex),
	}, nil
}

// Load reads a snapshot from its JSON file.
func (s *JSONStore) Load(profile string) (*models.SyncSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	path := s.statePath(profile)

	s.logger.WithFields(map[string]interface{}{
		"profile": profile,
		"path":    path,
	}).Debug("Loading snapshot")

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, ErrStateNotFound
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var wrapper snapshotFile
	if err := json.Unmarshal(data, &wrapper); err != nil {
		if snapshot, err := s.loadBackup(profile); err == nil {
			s.logger.Warn("Loaded snapshot from backup due to corruption")
			return snapshot, nil
		}
		return nil, ErrStateCorrupt
	}

	// Verify checksum if present
	if wrapper.Checksum != "" {
		verification := snapshotFile{
			SyncSnapshot:  wrapper.SyncSnapshot,
			SchemaVersion: wrapper.SchemaVersion,
			CreatedAt:     wrapper.CreatedAt,
		}
		verifyData, _ := json.Marshal(verification)
		hash := sha256.Sum256(verifyData)
		calculated := hex.EncodeToString(hash[:])

		if calculated != wrapper.Checksum {
			s.logger.WithFields(map[string]interface{}{
				"expected": wrapper.Checksum,
				"actual":   calculated,
			}).Error("Snapshot checksum mismatch")

			if snapshot, err := s.loadBackup(profile); err == nil {
				return snapshot, nil
			}
			return nil, ErrStateCorrupt
		}
	}

	if wrapper.SchemaVersion != CurrentSchemaVersion {
		s.logger.WithField("version", wrapper.SchemaVersion).Warn("Snapshot schema version mismatch")
	}

	return wrapper.SyncSnapshot, nil
}

// Save writes a snapshot to its JSON file.
func (s *JSONStore) Save(profile string, snapshot *models.SyncSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.statePath(profile)

	s.logger.WithFields(map[string]interface{}{
		"profile": profile,
		"version": snapshot.Version,
		"files":   len(snapshot.Files),
	}).Debug("Saving snapshot")

	wrapper := snapshotFile{
		SyncSnapshot:  snapshot,
		SchemaVersion: CurrentSchemaVersion,
		CreatedAt:     time.Now(),
	}

	// Checksum covers everything but the checksum field itself.
	checksumData, err := json.Marshal(wrapper)
	if err != nil {
		return fmt.Errorf("marshal snapshot for checksum: %w", err)
	}

	hash := sha256.Sum256(checksumData)
	wrapper.Checksum = hex.EncodeToString(hash[:])

	jsonData, err := json.MarshalIndent(wrapper, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot with checksum: %w", err)
	}

	// Keep a backup of the previous version
	if _, err := os.Stat(path); err == nil {
		backupPath := path + ".backup"
		if err := s.copyFile(path, backupPath); err != nil {
			s.logger.WithError(err).Warn("Failed to create backup")
		}
	}

	// Write atomically
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, jsonData, 0600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if file, err := os.Open(tmpPath); err == nil {
		_ = file.Sync()
		file.Close()
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename state file: %w", err)
	}

	return nil
}

// Reset removes state for a profile.
func (s *JSONStore) Reset(profile string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.WithField("profile", profile).Info("Resetting snapshot")

	path := s.statePath(profile)
	_ = os.Remove(path)
	_ = os.Remove(path + ".backup")

	return nil
}

// List returns all profiles with state.
func (s *JSONStore) List() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read state directory: %w", err)
	}

	var profiles []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if filepath.Ext(name) == ".json" && !strings.HasSuffix(name, ".backup.json") {
			profiles = append(profiles, strings.TrimSuffix(name, ".json"))
		}
	}

	return profiles, nil
}

// Lock acquires a lock for a profile.
func (s *JSONStore) Lock(profile string) (UnlockFunc, error) {
	s.mu.Lock()
	lock, exists := s.locks[profile]
	if !exists {
		lock = &sync.Mutex{}
		s.locks[profile] = lock
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		lock.Lock()
		close(done)
	}()

	select {
	case <-done:
		return func() { lock.Unlock() }, nil
	case <-time.After(5 * time.Second):
		return nil, ErrStateLocked
	}
}

// Migrate transfers all snapshots to another store.
func (s *JSONStore) Migrate(target Store) error {
	profiles, err := s.List()
	if err != nil {
		return fmt.Errorf("list profiles: %w", err)
	}

	s.logger.WithField("count", len(profiles)).Info("Migrating snapshots")

	for _, profile := range profiles {
		snapshot, err := s.Load(profile)
		if err != nil {
			s.logger.WithError(err).WithField("profile", profile).Error("Failed to load snapshot")
			continue
		}

		if err := target.Save(profile, snapshot); err != nil {
			return fmt.Errorf("save profile %s: %w", profile, err)
		}

		s.logger.WithField("profile", profile).Debug("Migrated snapshot")
	}

	return nil
}

// Close releases resources.
func (s *JSONStore) Close() error {
	return nil
}

func (s *JSONStore) statePath(profile string) string {
	return filepath.Join(s.baseDir, profile+".json")
}

func (s *JSONStore) loadBackup(profile string) (*models.SyncSnapshot, error) {
	data, err := os.ReadFile(s.statePath(profile) + ".backup")
	if err != nil {
		return nil, err
	}

	var wrapper snapshotFile
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, err
	}

	return wrapper.SyncSnapshot, nil
}

func (s *JSONStore) copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

package state

import (
	"errors"
	"time"

	"github.com/TheMichaelB/remarksync/internal/models"
)

// Store manages sync snapshot persistence.
type Store interface {
	// Load retrieves the snapshot for a profile.
	Load(profile string) (*models.SyncSnapshot, error)

	// Save persists the snapshot for a profile.
	Save(profile string, snapshot *models.SyncSnapshot) error

	// Reset removes all state for a profile.
	Reset(profile string) error

	// List returns all known profile names.
	List() ([]string, error)

	// Lock acquires an exclusive lock for a profile.
	Lock(profile string) (UnlockFunc, error)

	// Migrate transfers state between stores.
	Migrate(target Store) error

	// Close releases resources.
	Close() error
}

// UnlockFunc releases a profile lock.
type UnlockFunc func()

// Errors
var (
	ErrStateNotFound = errors.New("state not found")
	ErrStateLocked   = errors.New("state is locked")
	ErrStateCorrupt  = errors.New("state file is corrupt")
)

// snapshotFile wraps the snapshot with store metadata.
type snapshotFile struct {
	*models.SyncSnapshot

	SchemaVersion int       `json:"schema_version"`
	CreatedAt     time.Time `json:"created_at"`
	Checksum      string    `json:"checksum,omitempty"`
}

// CurrentSchemaVersion for migrations.
const CurrentSchemaVersion = 1

package state

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/TheMichaelB/remarksync/internal/events"
	"github.com/TheMichaelB/remarksync/internal/models"
)

// SQLiteStore implements SQLite-based snapshot storage.
type SQLiteStore struct {
	db     *sql.DB
	logger *events.Logger

	mu    sync.RWMutex
	locks map[string]*sync.Mutex
}

// NewSQLiteStore creates a SQLite state store.
func NewSQLiteStore(dbPath string, logger *events.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := &SQLiteStore{
		db:     db,
		logger: logger.WithField("component", "sqlite_state_store"),
		locks:  make(map[string]*sync.Mutex),
	}

	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	return store, nil
}

// initialize creates tables and indexes.
func (s *SQLiteStore) initialize() error {
	schema := `
    CREATE TABLE IF NOT EXISTS sync_profiles (
        profile TEXT PRIMARY KEY,
        version INTEGER NOT NULL DEFAULT 0,
        last_sync_time TIMESTAMP,
        last_error TEXT,
        created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
        updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS sync_files (
        profile TEXT NOT NULL,
        path TEXT NOT NULL,
        size INTEGER NOT NULL DEFAULT 0,
        modified_time TIMESTAMP,
        checksum TEXT NOT NULL DEFAULT '',
        is_markdown INTEGER NOT NULL DEFAULT 0,
        updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
        PRIMARY KEY (profile, path),
        FOREIGN KEY (profile) REFERENCES sync_profiles(profile) ON DELETE CASCADE
    );

    CREATE INDEX IF NOT EXISTS idx_sync_files_profile ON sync_files(profile);

    CREATE TABLE IF NOT EXISTS schema_info (
        version INTEGER PRIMARY KEY
    );

    INSERT OR IGNORE INTO schema_info (version) VALUES (?);
    `

	if _, err := s.db.Exec(schema, CurrentSchemaVersion); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	if _, err := s.db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}

	return nil
}

// Load retrieves a snapshot from the database.
func (s *SQLiteStore) Load(profile string) (*models.SyncSnapshot, error) {
	s.logger.WithField("profile", profile).Debug("Loading snapshot from SQLite")

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	snapshot := models.NewSyncSnapshot()
	var lastSyncTime sql.NullTime
	var lastError sql.NullString

	err = tx.QueryRow(`
        SELECT version, last_sync_time, last_error
        FROM sync_profiles
        WHERE profile = ?
    `, profile).Scan(&snapshot.Version, &lastSyncTime, &lastError)

	if err == sql.ErrNoRows {
		return nil, ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query profile: %w", err)
	}

	if lastSyncTime.Valid {
		snapshot.LastSyncTime = lastSyncTime.Time
	}
	if lastError.Valid {
		snapshot.LastError = lastError.String
	}

	rows, err := tx.Query(`
        SELECT path, size, modified_time, checksum, is_markdown
        FROM sync_files
        WHERE profile = ?
    `, profile)
	if err != nil {
		return nil, fmt.Errorf("query files: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var record models.FileRecord
		var modTime sql.NullTime
		if err := rows.Scan(&record.Path, &record.Size, &modTime, &record.Checksum, &record.IsMarkdown); err != nil {
			return nil, fmt.Errorf("scan file row: %w", err)
		}
		if modTime.Valid {
			record.ModifiedTime = modTime.Time
		}
		snapshot.Files[record.Path] = record
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate files: %w", err)
	}

	return snapshot, nil
}

// Save persists a snapshot to the database.
func (s *SQLiteStore) Save(profile string, snapshot *models.SyncSnapshot) error {
	s.logger.WithFields(map[string]interface{}{
		"profile": profile,
		"version": snapshot.Version,
		"files":   len(snapshot.Files),
	}).Debug("Saving snapshot to SQLite")

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`
        INSERT INTO sync_profiles (profile, version, last_sync_time, last_error, updated_at)
        VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
        ON CONFLICT(profile) DO UPDATE SET
            version = excluded.version,
            last_sync_time = excluded.last_sync_time,
            last_error = excluded.last_error,
            updated_at = CURRENT_TIMESTAMP
    `, profile, snapshot.Version, snapshot.LastSyncTime, snapshot.LastError)

	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}

	_, err = tx.Exec("DELETE FROM sync_files WHERE profile = ?", profile)
	if err != nil {
		return fmt.Errorf("delete old files: %w", err)
	}

	stmt, err := tx.Prepare(`
        INSERT INTO sync_files (profile, path, size, modified_time, checksum, is_markdown)
        VALUES (?, ?, ?, ?, ?, ?)
    `)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for path, record := range snapshot.Files {
		if _, err := stmt.Exec(profile, path, record.Size, record.ModifiedTime, record.Checksum, record.IsMarkdown); err != nil {
			return fmt.Errorf("insert file %s: %w", path, err)
		}
	}

	return tx.Commit()
}

// Reset removes state for a profile.
func (s *SQLiteStore) Reset(profile string) error {
	s.logger.WithField("profile", profile).Info("Resetting snapshot in SQLite")

	_, err := s.db.Exec("DELETE FROM sync_profiles WHERE profile = ?", profile)
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}

	return nil
}

// List returns all profile names.
func (s *SQLiteStore) List() ([]string, error) {
	rows, err := s.db.Query("SELECT profile FROM sync_profiles ORDER BY profile")
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	var profiles []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, name)
	}

	return profiles, rows.Err()
}

// Lock acquires a lock for a profile.
func (s *SQLiteStore) Lock(profile string) (UnlockFunc, error) {
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
func (s *SQLiteStore) Migrate(target Store) error {
	profiles, err := s.List()
	if err != nil {
		return fmt.Errorf("list profiles: %w", err)
	}

	for _, profile := range profiles {
		snapshot, err := s.Load(profile)
		if err != nil {
			s.logger.WithError(err).WithField("profile", profile).Error("Failed to load snapshot")
			continue
		}

		if err := target.Save(profile, snapshot); err != nil {
			return fmt.Errorf("save profile %s: %w", profile, err)
		}
	}

	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

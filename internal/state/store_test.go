package state_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/remarksync/internal/events"
	"github.com/TheMichaelB/remarksync/internal/models"
	"github.com/TheMichaelB/remarksync/internal/state"
)

func TestJSONStore(t *testing.T) {
	tmpDir := t.TempDir()
	var buf bytes.Buffer
	logger := events.NewTestLogger(events.DebugLevel, "json", &buf)

	store, err := state.NewJSONStore(tmpDir, logger)
	require.NoError(t, err)
	defer store.Close()

	testStoreOperations(t, store)
}

func TestSQLiteStore(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "state.db")
	var buf bytes.Buffer
	logger := events.NewTestLogger(events.DebugLevel, "json", &buf)

	store, err := state.NewSQLiteStore(dbPath, logger)
	require.NoError(t, err)
	defer store.Close()

	testStoreOperations(t, store)
}

func testStoreOperations(t *testing.T, store state.Store) {
	profile := "test-profile"

	t.Run("load non-existent", func(t *testing.T) {
		_, err := store.Load(profile)
		assert.ErrorIs(t, err, state.ErrStateNotFound)
	})

	t.Run("save and load", func(t *testing.T) {
		now := time.Now().UTC().Truncate(time.Second)
		snapshot := &models.SyncSnapshot{
			Version:      42,
			LastSyncTime: now,
			Files: map[string]models.FileRecord{
				"notes/test.md": {
					Path:         "notes/test.md",
					Size:         128,
					ModifiedTime: now,
					Checksum:     "0cc175b9c0f1b6a831c399e269772661",
					IsMarkdown:   true,
				},
				"papers/intro.pdf": {
					Path:     "papers/intro.pdf",
					Size:     4096,
					Checksum: "92eb5ffee6ae2fec3ad71c777531578f",
				},
			},
		}

		err := store.Save(profile, snapshot)
		require.NoError(t, err)

		loaded, err := store.Load(profile)
		require.NoError(t, err)

		assert.Equal(t, snapshot.Version, loaded.Version)
		assert.Equal(t, snapshot.LastSyncTime.Unix(), loaded.LastSyncTime.Unix())
		require.Len(t, loaded.Files, 2)

		md := loaded.Files["notes/test.md"]
		assert.Equal(t, int64(128), md.Size)
		assert.Equal(t, "0cc175b9c0f1b6a831c399e269772661", md.Checksum)
		assert.True(t, md.IsMarkdown)

		pdf := loaded.Files["papers/intro.pdf"]
		assert.False(t, pdf.IsMarkdown)
	})

	t.Run("update existing", func(t *testing.T) {
		snap1 := models.NewSyncSnapshot()
		snap1.Version = 100
		snap1.AddFile("file1.md", models.FileRecord{Path: "file1.md", Checksum: "a"})
		require.NoError(t, store.Save(profile, snap1))

		snap2 := models.NewSyncSnapshot()
		snap2.Version = 101
		snap2.AddFile("file2.md", models.FileRecord{Path: "file2.md", Checksum: "b"})
		require.NoError(t, store.Save(profile, snap2))

		loaded, err := store.Load(profile)
		require.NoError(t, err)

		assert.Equal(t, 101, loaded.Version)
		require.Len(t, loaded.Files, 1)
		assert.Contains(t, loaded.Files, "file2.md")
	})

	t.Run("list profiles", func(t *testing.T) {
		other := models.NewSyncSnapshot()
		require.NoError(t, store.Save("second-profile", other))

		profiles, err := store.List()
		require.NoError(t, err)
		assert.Contains(t, profiles, profile)
		assert.Contains(t, profiles, "second-profile")
	})

	t.Run("reset", func(t *testing.T) {
		require.NoError(t, store.Reset(profile))

		_, err := store.Load(profile)
		assert.ErrorIs(t, err, state.ErrStateNotFound)
	})

	t.Run("lock and unlock", func(t *testing.T) {
		unlock, err := store.Lock(profile)
		require.NoError(t, err)
		unlock()

		unlock2, err := store.Lock(profile)
		require.NoError(t, err)
		unlock2()
	})
}

func TestJSONStoreCorruptFile(t *testing.T) {
	tmpDir := t.TempDir()
	var buf bytes.Buffer
	logger := events.NewTestLogger(events.DebugLevel, "json", &buf)

	store, err := state.NewJSONStore(tmpDir, logger)
	require.NoError(t, err)
	defer store.Close()

	snapshot := models.NewSyncSnapshot()
	snapshot.Version = 7
	snapshot.AddFile("a.md", models.FileRecord{Path: "a.md", Checksum: "x"})
	require.NoError(t, store.Save("vault", snapshot))

	// Saving again creates a backup of the first version.
	snapshot.Version = 8
	require.NoError(t, store.Save("vault", snapshot))

	// Corrupt the primary file; the backup should still load.
	path := filepath.Join(tmpDir, "vault.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	loaded, err := store.Load("vault")
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.Version)
}

func TestJSONStoreMigrate(t *testing.T) {
	tmpDir := t.TempDir()
	var buf bytes.Buffer
	logger := events.NewTestLogger(events.DebugLevel, "json", &buf)

	src, err := state.NewJSONStore(tmpDir, logger)
	require.NoError(t, err)
	defer src.Close()

	snapshot := models.NewSyncSnapshot()
	snapshot.Version = 3
	snapshot.AddFile("doc.md", models.FileRecord{Path: "doc.md", Checksum: "c"})
	require.NoError(t, src.Save("main", snapshot))

	dst := state.NewMockStore()
	require.NoError(t, src.Migrate(dst))

	loaded, err := dst.Load("main")
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Version)
	assert.Contains(t, loaded.Files, "doc.md")
}

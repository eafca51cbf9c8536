package storage_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/remarksync/internal/events"
	"github.com/TheMichaelB/remarksync/internal/storage"
)

func newTestStore(t *testing.T) *storage.LocalStore {
	t.Helper()

	var buf bytes.Buffer
	logger := events.NewTestLogger(events.DebugLevel, "json", &buf)

	store, err := storage.NewLocalStore(t.TempDir(), logger)
	require.NoError(t, err)
	return store
}

func TestLocalStoreWriteRead(t *testing.T) {
	store := newTestStore(t)

	data := []byte("# Farm Diary\n\nFed the chickens.\n")
	require.NoError(t, store.Write("notes/farm diary.md", data, 0644))

	read, err := store.Read("notes/farm diary.md")
	require.NoError(t, err)
	assert.Equal(t, data, read)

	info, err := store.Stat("notes/farm diary.md")
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), info.Size)
	assert.False(t, info.IsDir)
}

func TestLocalStoreAtomicWrite(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Write("a.md", []byte("v1"), 0644))
	require.NoError(t, store.Write("a.md", []byte("v2"), 0644))

	read, err := store.Read("a.md")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), read)

	// No temp files left behind
	entries, err := os.ReadDir(store.BaseDir())
	require.NoError(t, err)
	for _, entry := range entries {
		assert.False(t, strings.Contains(entry.Name(), ".tmp."), "leftover temp file: %s", entry.Name())
	}
}

func TestLocalStoreWriteStream(t *testing.T) {
	store := newTestStore(t)

	reader := strings.NewReader("streamed content")
	require.NoError(t, store.WriteStream("stream.md", reader, 0644))

	read, err := store.Read("stream.md")
	require.NoError(t, err)
	assert.Equal(t, "streamed content", string(read))
}

func TestLocalStorePathTraversal(t *testing.T) {
	store := newTestStore(t)

	err := store.Write("../escape.md", []byte("x"), 0644)
	assert.Error(t, err)

	_, err = store.Read("../../etc/passwd")
	assert.Error(t, err)
}

func TestLocalStoreDelete(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Write("sub/dir/note.md", []byte("x"), 0644))
	require.NoError(t, store.Delete("sub/dir/note.md"))

	exists, err := store.Exists("sub/dir/note.md")
	require.NoError(t, err)
	assert.False(t, exists)

	// Empty parents are cleaned up
	_, err = os.Stat(filepath.Join(store.BaseDir(), "sub"))
	assert.True(t, os.IsNotExist(err))

	// Deleting again is a no-op
	assert.NoError(t, store.Delete("sub/dir/note.md"))
}

func TestLocalStoreWalk(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Write("a.md", []byte("a"), 0644))
	require.NoError(t, store.Write("dir/b.md", []byte("b"), 0644))
	require.NoError(t, store.Write("dir/deep/c.txt", []byte("c"), 0644))

	files, err := store.Walk()
	require.NoError(t, err)
	require.Len(t, files, 3)

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	assert.Contains(t, paths, "a.md")
	assert.Contains(t, paths, "dir/b.md")
	assert.Contains(t, paths, "dir/deep/c.txt")
}

func TestLocalStoreSetModTime(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Write("t.md", []byte("x"), 0644))

	want := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	require.NoError(t, store.SetModTime("t.md", want))

	info, err := store.Stat("t.md")
	require.NoError(t, err)
	assert.Equal(t, want.Unix(), info.ModTime.Unix())
}

func TestLocalStoreMove(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Write("old.md", []byte("x"), 0644))
	require.NoError(t, store.Move("old.md", "renamed/new.md"))

	exists, err := store.Exists("old.md")
	require.NoError(t, err)
	assert.False(t, exists)

	read, err := store.Read("renamed/new.md")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), read)
}

func TestLocalStoreMaxFileSize(t *testing.T) {
	store := newTestStore(t)
	store.SetMaxFileSize(10)

	err := store.Write("big.md", bytes.Repeat([]byte("x"), 11), 0644)
	assert.Error(t, err)

	err = store.WriteStream("big-stream.md", bytes.NewReader(bytes.Repeat([]byte("x"), 11)), 0644)
	assert.Error(t, err)
}

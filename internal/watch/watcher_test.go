package watch_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/remarksync/internal/watch"
	"github.com/TheMichaelB/remarksync/test/testutil"
)

func startWatcher(t *testing.T, dir string, debounce time.Duration) *watch.Watcher {
	t.Helper()

	w, err := watch.New(dir, watch.Config{DebounceDelay: debounce}, testutil.NewTestLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = w.Run(ctx) }()

	return w
}

func waitForChange(t *testing.T, w *watch.Watcher, timeout time.Duration) watch.Change {
	t.Helper()
	select {
	case change := <-w.Changes():
		return change
	case <-time.After(timeout):
		t.Fatal("timed out waiting for change")
		return watch.Change{}
	}
}

func TestWatcherMissingDir(t *testing.T) {
	_, err := watch.New(filepath.Join(t.TempDir(), "absent"), watch.Config{}, testutil.NewTestLogger())
	assert.ErrorIs(t, err, watch.ErrDirNotExist)
}

func TestWatcherReportsWrite(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, dir, 0)

	path := filepath.Join(dir, "note.md")
	require.NoError(t, os.WriteFile(path, []byte("# hi\n"), 0644))

	change := waitForChange(t, w, 2*time.Second)
	assert.Equal(t, path, change.Path)
}

func TestWatcherDebounceCollapsesBurst(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, dir, 150*time.Millisecond)

	path := filepath.Join(dir, "draft.md")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte("revision\n"), 0644))
		time.Sleep(20 * time.Millisecond)
	}

	change := waitForChange(t, w, 2*time.Second)
	assert.Equal(t, path, change.Path)

	// The burst settled into one change, nothing else should arrive.
	select {
	case extra := <-w.Changes():
		t.Fatalf("unexpected extra change for %s", extra.Path)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherFollowsNewSubdirectory(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, dir, 0)

	sub := filepath.Join(dir, "notes")
	require.NoError(t, os.Mkdir(sub, 0755))

	// Give the watcher a moment to register the new directory.
	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(sub, "inner.md")
	require.NoError(t, os.WriteFile(path, []byte("deep\n"), 0644))

	deadline := time.After(2 * time.Second)
	for {
		select {
		case change := <-w.Changes():
			if change.Path == path {
				return
			}
		case <-deadline:
			t.Fatal("never saw change in new subdirectory")
		}
	}
}

func TestWatcherClose(t *testing.T) {
	dir := t.TempDir()
	w, err := watch.New(dir, watch.Config{}, testutil.NewTestLogger())
	require.NoError(t, err)

	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.Close(), watch.ErrWatcherClosed)
}

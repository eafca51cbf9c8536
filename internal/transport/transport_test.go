package transport_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/remarksync/internal/models"
	"github.com/TheMichaelB/remarksync/internal/transport"
)

func TestMockExecuteMD5Sum(t *testing.T) {
	mock := transport.NewMockTransport()
	mock.Files["/remote/a.md"] = []byte("alpha")
	mock.Files["/remote/b.md"] = []byte("beta")

	result, err := mock.Execute(context.Background(), "md5sum '/remote/a.md' '/remote/b.md'")
	require.NoError(t, err)
	assert.True(t, result.Success())
	assert.Contains(t, result.Stdout, models.ChecksumBytes([]byte("alpha"))+"  /remote/a.md")
	assert.Contains(t, result.Stdout, models.ChecksumBytes([]byte("beta"))+"  /remote/b.md")
}

func TestMockExecuteMD5SumMissingFile(t *testing.T) {
	mock := transport.NewMockTransport()

	result, err := mock.Execute(context.Background(), "md5sum '/remote/absent.md'")
	require.NoError(t, err)
	assert.False(t, result.Success())
	assert.Contains(t, result.Stderr, "absent.md")
}

func TestMockExecuteGlobDelete(t *testing.T) {
	mock := transport.NewMockTransport()
	mock.Files["/docs/abc.pdf"] = []byte("pdf")
	mock.Files["/docs/abc.metadata"] = []byte("{}")
	mock.Files["/docs/abcdef.pdf"] = []byte("other")

	result, err := mock.Execute(context.Background(), "rm -f /docs/abc.*")
	require.NoError(t, err)
	assert.True(t, result.Success())

	assert.NotContains(t, mock.Files, "/docs/abc.pdf")
	assert.NotContains(t, mock.Files, "/docs/abc.metadata")
	// The glob matches "abc." exactly, longer stems survive.
	assert.Contains(t, mock.Files, "/docs/abcdef.pdf")
}

func TestMockUploadDownload(t *testing.T) {
	mock := transport.NewMockTransport()
	dir := t.TempDir()

	local := filepath.Join(dir, "up.md")
	require.NoError(t, os.WriteFile(local, []byte("content"), 0644))
	require.NoError(t, mock.Upload(context.Background(), local, "/remote/up.md"))
	assert.Equal(t, []byte("content"), mock.Files["/remote/up.md"])
	require.Len(t, mock.Uploads, 1)
	assert.Equal(t, "/remote/up.md", mock.Uploads[0].RemotePath)

	dest := filepath.Join(dir, "nested", "down.md")
	require.NoError(t, mock.Download(context.Background(), "/remote/up.md", dest))
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))
}

func TestMockListTree(t *testing.T) {
	mock := transport.NewMockTransport()
	now := time.Now()
	mock.Files["/sync/b/two.md"] = []byte("2")
	mock.Files["/sync/a/one.md"] = []byte("1")
	mock.ModTimes["/sync/a/one.md"] = now

	entries, err := mock.ListTree(context.Background(), "/sync")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Sorted by relative path.
	assert.Equal(t, "a/one.md", entries[0].Path)
	assert.Equal(t, "b/two.md", entries[1].Path)
	assert.Equal(t, int64(1), entries[0].Size)
	assert.True(t, entries[0].ModTime.Equal(now))
}

func TestMockExists(t *testing.T) {
	mock := transport.NewMockTransport()
	mock.Files["/sync/notes/one.md"] = []byte("1")

	for path, want := range map[string]bool{
		"/sync/notes/one.md": true,
		"/sync/notes":        true, // directory prefix
		"/sync/other":        false,
	} {
		got, err := mock.Exists(context.Background(), path)
		require.NoError(t, err)
		assert.Equal(t, want, got, path)
	}
}

func TestMockErrorInjection(t *testing.T) {
	mock := transport.NewMockTransport()
	mock.ExecuteError = assert.AnError

	_, err := mock.Execute(context.Background(), "true")
	assert.ErrorIs(t, err, assert.AnError)
}

func TestCommandResultSuccess(t *testing.T) {
	ok := &transport.CommandResult{ExitCode: 0}
	assert.True(t, ok.Success())

	failed := &transport.CommandResult{ExitCode: 1}
	assert.False(t, failed.Success())
}

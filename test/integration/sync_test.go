//go:build integration
// +build integration

package integration_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/remarksync/internal/client"
	"github.com/TheMichaelB/remarksync/internal/config"
	"github.com/TheMichaelB/remarksync/internal/models"
	"github.com/TheMichaelB/remarksync/internal/transport"
	"github.com/TheMichaelB/remarksync/test/testutil"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Sync.LocalDir = filepath.Join(base, "notes")
	cfg.Sync.PDFOutputDir = filepath.Join(base, "pdf")
	cfg.Storage.DataDir = filepath.Join(base, "data")
	cfg.Storage.StateDir = filepath.Join(base, "state")
	cfg.Storage.TempDir = filepath.Join(base, "temp")
	cfg.Log.Level = "debug"
	cfg.Log.Format = "json"
	cfg.Log.File = filepath.Join(base, "test.log")

	require.NoError(t, os.MkdirAll(cfg.Sync.LocalDir, 0755))
	require.NoError(t, cfg.EnsureDirectories())
	return cfg
}

func TestFullSyncIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg := testConfig(t)
	mock := transport.NewMockTransport()

	c, err := client.NewWithTransport(cfg, mock, testutil.NewTestLogger())
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Local side: two markdown notes.
	for rel, content := range map[string]string{
		"notes/farm diary.md": testutil.SampleMarkdown["notes/farm diary.md"],
		"notes/recipes.md":    testutil.SampleMarkdown["notes/recipes.md"],
	} {
		testutil.WriteFile(t, cfg.Sync.LocalDir, rel, content, time.Now().Add(-time.Hour))
	}

	// Remote side: one file that only exists on the device.
	testutil.SeedRemoteFile(mock, cfg.Sync.RemoteDir, "journal.txt",
		testutil.SampleMarkdown["journal.txt"], time.Now().Add(-2*time.Hour))

	summary, err := c.Sync.Sync(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.TotalFiles)
	assert.Equal(t, 2, summary.Uploads)
	assert.Equal(t, 1, summary.Downloads)
	assert.Zero(t, summary.Errors)

	// Uploads landed under the remote sync directory.
	for _, rel := range []string{"notes/farm diary.md", "notes/recipes.md"} {
		_, ok := mock.Files[cfg.Sync.RemoteDir+"/"+rel]
		assert.True(t, ok, "missing remote copy of %s", rel)
	}

	// The remote-only file came down.
	local, err := os.ReadFile(filepath.Join(cfg.Sync.LocalDir, "journal.txt"))
	require.NoError(t, err)
	assert.Equal(t, testutil.SampleMarkdown["journal.txt"], string(local))

	// Markdown uploads were converted and registered as documents.
	listed, err := c.Docs.List(ctx)
	require.NoError(t, err)
	assert.Len(t, listed, 2)
	assert.Greater(t, mock.RestartCount, 0)

	// The snapshot recorded the run.
	snapshot, err := c.Sync.LastSnapshot()
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Equal(t, 1, snapshot.Version)
	assert.Len(t, snapshot.Files, 3)
	assert.Empty(t, snapshot.LastError)
}

func TestRepeatSyncIsIdempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg := testConfig(t)
	mock := transport.NewMockTransport()

	c, err := client.NewWithTransport(cfg, mock, testutil.NewTestLogger())
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	testutil.WriteFile(t, cfg.Sync.LocalDir, "notes/recipes.md",
		testutil.SampleMarkdown["notes/recipes.md"], time.Now().Add(-time.Hour))

	first, err := c.Sync.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Uploads)

	docsBefore, err := c.Docs.List(ctx)
	require.NoError(t, err)

	second, err := c.Sync.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, second.UpToDate)
	assert.Zero(t, second.Errors)

	// No duplicate document was registered for the same title.
	docsAfter, err := c.Docs.List(ctx)
	require.NoError(t, err)
	assert.Len(t, docsAfter, len(docsBefore))

	snapshot, err := c.Sync.LastSnapshot()
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Equal(t, 2, snapshot.Version)
}

func TestDocumentLifecycleIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg := testConfig(t)
	mock := transport.NewMockTransport()

	c, err := client.NewWithTransport(cfg, mock, testutil.NewTestLogger())
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()

	pdfPath := filepath.Join(t.TempDir(), "field notes.pdf")
	require.NoError(t, os.WriteFile(pdfPath, testutil.SamplePDF, 0644))

	id, created, err := c.Docs.AddIfNew(ctx, "Field Notes", pdfPath)
	require.NoError(t, err)
	assert.True(t, created)

	// Adding again under the same title is a no-op.
	again, created, err := c.Docs.AddIfNew(ctx, "Field Notes", pdfPath)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, id, again)

	require.NoError(t, c.Docs.Rename(ctx, id, "Field Notes 2026"))
	found, err := c.Docs.FindByTitle(ctx, "field notes 2026")
	require.NoError(t, err)
	assert.Equal(t, id, found)

	dest := filepath.Join(t.TempDir(), "out.pdf")
	require.NoError(t, c.Docs.Download(ctx, id, dest))
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, testutil.SamplePDF, data)

	require.NoError(t, c.Docs.Delete(ctx, id))
	_, err = c.Docs.FindByTitle(ctx, "Field Notes 2026")
	assert.ErrorIs(t, err, models.ErrDocumentNotFound)
}

package convert_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/remarksync/internal/config"
	"github.com/TheMichaelB/remarksync/internal/services/convert"
	"github.com/TheMichaelB/remarksync/test/testutil"
)

func newConverter(t *testing.T) *convert.Converter {
	t.Helper()
	cfg := config.DefaultConfig().Convert
	return convert.NewConverter(&cfg, testutil.NewTestLogger())
}

func TestConvert(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "pdf")

	mdPath := testutil.WriteFile(t, dir, "diary.md", testutil.SampleMarkdown["notes/farm diary.md"], time.Time{})

	conv := newConverter(t)
	outPath, err := conv.Convert(mdPath, outDir, "Farm Diary")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(outDir, "Farm Diary.pdf"), outPath)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.True(t, len(data) > 0)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestConvertTitleFallback(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name     string
		file     string
		content  string
		wantBase string
	}{
		{
			name:     "heading used when no title given",
			file:     "notes.md",
			content:  "# Week Fourteen\n\nRain all day.\n",
			wantBase: "Week Fourteen.pdf",
		},
		{
			name:     "file name used when no heading",
			file:     "scratch.md",
			content:  "just a line of text\n",
			wantBase: "scratch.pdf",
		},
		{
			name:     "unsafe characters replaced",
			file:     "paths.md",
			content:  "# a/b:c\n\nbody\n",
			wantBase: "a-b-c.pdf",
		},
	}

	conv := newConverter(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mdPath := testutil.WriteFile(t, dir, tt.file, tt.content, time.Time{})
			outPath, err := conv.Convert(mdPath, filepath.Join(dir, "out"), "")
			require.NoError(t, err)
			assert.Equal(t, tt.wantBase, filepath.Base(outPath))
		})
	}
}

func TestConvertMissingSource(t *testing.T) {
	conv := newConverter(t)
	_, err := conv.Convert(filepath.Join(t.TempDir(), "absent.md"), t.TempDir(), "")
	assert.Error(t, err)
}

func TestConvertRichContent(t *testing.T) {
	dir := t.TempDir()
	content := "# Recipes\n\n" +
		"author: B. Porter\n\n" +
		"A short intro paragraph that should wrap across the page width " +
		"when it grows long enough to exceed a single line.\n\n" +
		"## Ingredients\n\n" +
		"- flour\n- water\n- salt\n  - fine grain\n\n" +
		"1. mix\n2. rest\n3. bake\n\n" +
		"```\nknead 10m\nrest 1h\n```\n\n" +
		"> keep the starter warm\n\n" +
		"---\n\n" +
		"| step | time |\n|------|------|\n| mix  | 10m  |\n"

	mdPath := testutil.WriteFile(t, dir, "recipes.md", content, time.Time{})

	conv := newConverter(t)
	outPath, err := conv.Convert(mdPath, dir, "")
	require.NoError(t, err)
	assert.Equal(t, "Recipes.pdf", filepath.Base(outPath))
}

func TestConvertDir(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")

	testutil.WriteFile(t, dir, "one.md", "# One\n\nbody\n", time.Time{})
	testutil.WriteFile(t, dir, "nested/two.md", "# Two\n\nbody\n", time.Time{})
	testutil.WriteFile(t, dir, "skip.txt", "not markdown\n", time.Time{})

	conv := newConverter(t)
	outputs, err := conv.ConvertDir(dir, outDir)
	require.NoError(t, err)
	assert.Len(t, outputs, 2)

	for _, out := range outputs {
		_, statErr := os.Stat(out)
		assert.NoError(t, statErr)
	}
}

func TestExtractMetadata(t *testing.T) {
	source := []byte("# The Title\n\nauthor: Jo Smith\ndate: 2026-08-01\ntags: farm, diary\n\nbody text\n")

	meta := convert.ExtractMetadata(source)
	assert.Equal(t, "The Title", meta.Title)
	assert.Equal(t, "Jo Smith", meta.Author)
	assert.Equal(t, "2026-08-01", meta.Date)
	assert.Equal(t, []string{"farm", "diary"}, meta.Tags)
}


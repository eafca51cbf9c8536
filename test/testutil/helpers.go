package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"testing"
	"time"

	"github.com/TheMichaelB/remarksync/internal/events"
	"github.com/TheMichaelB/remarksync/internal/models"
	"github.com/TheMichaelB/remarksync/internal/transport"
)

// NewTestLogger creates a logger for testing.
func NewTestLogger() *events.Logger {
	var buf bytes.Buffer
	return events.NewTestLogger(events.DebugLevel, "json", &buf)
}

// WriteFile creates a file under dir with the given relative path,
// content, and modification time.
func WriteFile(t *testing.T, dir, rel, content string, modTime time.Time) string {
	t.Helper()

	full := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		t.Fatalf("mkdir for %s: %v", rel, err)
	}
	if err := os.WriteFile(full, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
	if !modTime.IsZero() {
		if err := os.Chtimes(full, modTime, modTime); err != nil {
			t.Fatalf("chtimes %s: %v", rel, err)
		}
	}
	return full
}

// SeedRemoteFile places a file on the mock device under the sync
// directory.
func SeedRemoteFile(mock *transport.MockTransport, remoteDir, rel, content string, modTime time.Time) {
	full := path.Join(remoteDir, rel)
	mock.Files[full] = []byte(content)
	mock.ModTimes[full] = modTime
}

// SeedDocument places a complete document triple on the mock device's
// xochitl store and returns its UUID.
func SeedDocument(t *testing.T, mock *transport.MockTransport, docDir, id, title string, fileType models.FileType, content []byte) {
	t.Helper()

	meta := models.NewDocumentMetadata(title)
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		t.Fatalf("marshal metadata: %v", err)
	}

	contentJSON, err := json.Marshal(models.DocumentContent{FileType: fileType})
	if err != nil {
		t.Fatalf("marshal content: %v", err)
	}

	mock.Files[path.Join(docDir, id+".metadata")] = metaJSON
	mock.Files[path.Join(docDir, id+".content")] = contentJSON
	mock.Files[path.Join(docDir, fmt.Sprintf("%s.%s", id, fileType))] = content
}

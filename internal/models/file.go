package models

import (
	"crypto/md5"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// MarkdownExtensions are the file suffixes treated as markdown sources.
var MarkdownExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".mdown":    true,
	".mkd":      true,
	".txt":      true,
}

// FileRecord is a snapshot of one file on one side of the sync. Records are
// immutable once created and replaced wholesale on the next scan.
type FileRecord struct {
	Path         string    `json:"path"` // relative to the sync root
	Size         int64     `json:"size"`
	ModifiedTime time.Time `json:"modified_time"`
	Checksum     string    `json:"checksum"`
	IsMarkdown   bool      `json:"is_markdown"`
}

// NormalizedPath returns the cleaned, forward-slash path.
func (f *FileRecord) NormalizedPath() string {
	return strings.ReplaceAll(filepath.Clean(f.Path), "\\", "/")
}

// IsMarkdownPath reports whether path has a markdown extension.
func IsMarkdownPath(path string) bool {
	return MarkdownExtensions[strings.ToLower(filepath.Ext(path))]
}

// ChecksumFile computes the MD5 digest of a file's full content. A file that
// cannot be read yields the empty string; that surfaces downstream as a
// checksum mismatch rather than an error here.
func ChecksumFile(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return ""
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ChecksumBytes computes the MD5 digest of data.
func ChecksumBytes(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

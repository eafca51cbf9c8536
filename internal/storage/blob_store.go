package storage

import (
	"io"
	"os"
	"time"
)

// BlobStore manages files under the local sync directory. Paths are
// relative to the store's base directory, forward-slash separated.
type BlobStore interface {
	// Write saves data to a file path.
	Write(path string, data []byte, mode os.FileMode) error

	// WriteStream saves data from a reader.
	WriteStream(path string, reader io.Reader, mode os.FileMode) error

	// Read retrieves file contents.
	Read(path string) ([]byte, error)

	// Delete removes a file.
	Delete(path string) error

	// Exists checks if a file exists.
	Exists(path string) (bool, error)

	// Stat returns file information.
	Stat(path string) (FileInfo, error)

	// EnsureDir creates a directory if it doesn't exist.
	EnsureDir(path string) error

	// Walk returns all regular files under the base directory.
	Walk() ([]FileInfo, error)

	// Move renames a file.
	Move(oldPath, newPath string) error

	// SetModTime updates file modification time.
	SetModTime(path string, modTime time.Time) error

	// AbsPath resolves a relative path against the base directory.
	AbsPath(path string) (string, error)
}

// FileInfo contains file metadata. Path is relative to the base
// directory.
type FileInfo struct {
	Path    string
	Size    int64
	Mode    os.FileMode
	ModTime time.Time
	IsDir   bool
}

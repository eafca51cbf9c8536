package storage

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// MockStore provides an in-memory implementation for testing.
type MockStore struct {
	mu    sync.RWMutex
	files map[string]*mockFile

	// Error injection
	WriteError error
	ReadError  error
}

type mockFile struct {
	data    []byte
	mode    os.FileMode
	modTime time.Time
}

// NewMockStore creates a mock blob store.
func NewMockStore() *MockStore {
	return &MockStore{
		files: make(map[string]*mockFile),
	}
}

// Write saves data to the in-memory map.
func (m *MockStore) Write(path string, data []byte, mode os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.WriteError != nil {
		return m.WriteError
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	m.files[path] = &mockFile{data: buf, mode: mode, modTime: time.Now()}
	return nil
}

// WriteStream saves data from a reader.
func (m *MockStore) WriteStream(path string, reader io.Reader, mode os.FileMode) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return err
	}
	return m.Write(path, buf.Bytes(), mode)
}

// Read retrieves file contents.
func (m *MockStore) Read(path string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.ReadError != nil {
		return nil, m.ReadError
	}

	file, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", path)
	}

	out := make([]byte, len(file.data))
	copy(out, file.data)
	return out, nil
}

// Delete removes a file.
func (m *MockStore) Delete(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.files, path)
	return nil
}

// Exists checks if a file exists.
func (m *MockStore) Exists(path string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.files[path]
	return ok, nil
}

// Stat returns file information.
func (m *MockStore) Stat(path string) (FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	file, ok := m.files[path]
	if !ok {
		return FileInfo{}, fmt.Errorf("stat file: %s: %w", path, os.ErrNotExist)
	}

	return FileInfo{
		Path:    path,
		Size:    int64(len(file.data)),
		Mode:    file.mode,
		ModTime: file.modTime,
	}, nil
}

// EnsureDir is a no-op for the mock.
func (m *MockStore) EnsureDir(path string) error {
	return nil
}

// Walk returns all files sorted by path.
func (m *MockStore) Walk() ([]FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var files []FileInfo
	for path, file := range m.files {
		files = append(files, FileInfo{
			Path:    path,
			Size:    int64(len(file.data)),
			Mode:    file.mode,
			ModTime: file.modTime,
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})
	return files, nil
}

// Move renames a file.
func (m *MockStore) Move(oldPath, newPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	file, ok := m.files[oldPath]
	if !ok {
		return fmt.Errorf("file not found: %s", oldPath)
	}

	m.files[newPath] = file
	delete(m.files, oldPath)
	return nil
}

// SetModTime updates a file's modification time.
func (m *MockStore) SetModTime(path string, modTime time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	file, ok := m.files[path]
	if !ok {
		return fmt.Errorf("file not found: %s", path)
	}

	file.modTime = modTime
	return nil
}

// AbsPath returns the path prefixed with a fake root.
func (m *MockStore) AbsPath(path string) (string, error) {
	if strings.Contains(path, "..") {
		return "", fmt.Errorf("invalid path: contains '..'")
	}
	return "/mock/" + strings.TrimPrefix(path, "/"), nil
}

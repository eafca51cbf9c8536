package transport

import (
	"context"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/TheMichaelB/remarksync/internal/models"
)

// MockTransport provides an in-memory implementation for testing. It
// simulates a flat device filesystem and interprets the handful of shell
// commands the services actually issue.
type MockTransport struct {
	mu sync.Mutex

	// Files maps device paths to content.
	Files map[string][]byte

	// ModTimes optionally fixes mtimes for ListTree entries.
	ModTimes map[string]time.Time

	// Error injection
	ExecuteError  error
	UploadError   error
	DownloadError error
	ReadError     error
	WriteError    error

	// CommandResults maps exact command strings to canned results,
	// consulted before the built-in interpreter.
	CommandResults map[string]*CommandResult

	// Request tracking
	ExecutedCommands []string
	Uploads          []TransferRequest
	Downloads        []TransferRequest

	// RestartCount counts xochitl restarts issued through Execute.
	RestartCount int

	closed bool
}

// TransferRequest tracks a single Upload or Download call.
type TransferRequest struct {
	LocalPath  string
	RemotePath string
}

// NewMockTransport creates a mock transport with an empty filesystem.
func NewMockTransport() *MockTransport {
	return &MockTransport{
		Files:            make(map[string][]byte),
		ModTimes:         make(map[string]time.Time),
		CommandResults:   make(map[string]*CommandResult),
		ExecutedCommands: []string{},
	}
}

// Execute records the command and interprets the subset of shell the
// services depend on: rm -f <prefix>.*, systemctl restart xochitl, and
// md5sum over one or more files.
func (m *MockTransport) Execute(ctx context.Context, command string) (*CommandResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ExecutedCommands = append(m.ExecutedCommands, command)

	if m.ExecuteError != nil {
		return nil, m.ExecuteError
	}

	if res, ok := m.CommandResults[command]; ok {
		res.Command = command
		return res, nil
	}

	switch {
	case command == "systemctl restart xochitl":
		m.RestartCount++
		return &CommandResult{Command: command, ExitCode: 0}, nil

	case strings.HasPrefix(command, "rm -f "):
		arg := strings.TrimPrefix(command, "rm -f ")
		arg = strings.Trim(arg, "'\"")
		if prefix, ok := strings.CutSuffix(arg, ".*"); ok {
			for p := range m.Files {
				if strings.HasPrefix(p, prefix+".") {
					delete(m.Files, p)
				}
			}
		} else {
			delete(m.Files, arg)
		}
		return &CommandResult{Command: command, ExitCode: 0}, nil

	case strings.HasPrefix(command, "md5sum "):
		return m.runMD5Sum(command), nil
	}

	return &CommandResult{Command: command, ExitCode: 0}, nil
}

func (m *MockTransport) runMD5Sum(command string) *CommandResult {
	var out strings.Builder
	var stderr strings.Builder
	exit := 0

	for _, arg := range strings.Fields(command)[1:] {
		arg = strings.Trim(arg, "'\"")
		data, ok := m.Files[arg]
		if !ok {
			fmt.Fprintf(&stderr, "md5sum: %s: No such file or directory\n", arg)
			exit = 1
			continue
		}
		fmt.Fprintf(&out, "%s  %s\n", models.ChecksumBytes(data), arg)
	}

	return &CommandResult{
		Command:  command,
		ExitCode: exit,
		Stdout:   out.String(),
		Stderr:   stderr.String(),
	}
}

// Upload copies a local file into the in-memory filesystem.
func (m *MockTransport) Upload(ctx context.Context, localPath, remotePath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Uploads = append(m.Uploads, TransferRequest{LocalPath: localPath, RemotePath: remotePath})

	if m.UploadError != nil {
		return m.UploadError
	}

	data, err := os.ReadFile(localPath)
	if err != nil {
		return &models.TransportError{Op: "upload", Path: localPath, Err: err}
	}
	m.Files[remotePath] = data
	return nil
}

// Download copies an in-memory file to a local path.
func (m *MockTransport) Download(ctx context.Context, remotePath, localPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Downloads = append(m.Downloads, TransferRequest{LocalPath: localPath, RemotePath: remotePath})

	if m.DownloadError != nil {
		return m.DownloadError
	}

	data, ok := m.Files[remotePath]
	if !ok {
		return &models.TransportError{Op: "download", Path: remotePath, Err: os.ErrNotExist}
	}
	if err := os.MkdirAll(path.Dir(localPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(localPath, data, 0o644)
}

// ReadFile returns the content of an in-memory file.
func (m *MockTransport) ReadFile(ctx context.Context, remotePath string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ReadError != nil {
		return nil, m.ReadError
	}

	data, ok := m.Files[remotePath]
	if !ok {
		return nil, &models.TransportError{Op: "read", Path: remotePath, Err: os.ErrNotExist}
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// WriteFile replaces the content of an in-memory file.
func (m *MockTransport) WriteFile(ctx context.Context, remotePath string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.WriteError != nil {
		return m.WriteError
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	m.Files[remotePath] = buf
	return nil
}

// Exists checks whether a path exists as a file or as a directory prefix
// of another file.
func (m *MockTransport) Exists(ctx context.Context, remotePath string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.Files[remotePath]; ok {
		return true, nil
	}
	prefix := strings.TrimSuffix(remotePath, "/") + "/"
	for p := range m.Files {
		if strings.HasPrefix(p, prefix) {
			return true, nil
		}
	}
	return false, nil
}

// ListDir returns the sorted entry names directly under a directory.
func (m *MockTransport) ListDir(ctx context.Context, remotePath string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prefix := strings.TrimSuffix(remotePath, "/") + "/"
	seen := make(map[string]bool)
	for p := range m.Files {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		rest := strings.TrimPrefix(p, prefix)
		name, _, _ := strings.Cut(rest, "/")
		seen[name] = true
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// ListTree returns all files under a directory, paths relative to it.
func (m *MockTransport) ListTree(ctx context.Context, remotePath string) ([]RemoteEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prefix := strings.TrimSuffix(remotePath, "/") + "/"
	var entries []RemoteEntry
	for p, data := range m.Files {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		entries = append(entries, RemoteEntry{
			Path:    strings.TrimPrefix(p, prefix),
			Size:    int64(len(data)),
			ModTime: m.ModTimes[p],
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})
	return entries, nil
}

// Close marks the transport closed.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockTransport) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

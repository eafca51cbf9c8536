package transport

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Transport abstracts command execution and file transfer against the
// device. A single persistent session backs all operations; callers must
// not issue concurrent operations on one instance.
type Transport interface {
	// Execute runs a command on the device and waits for it to finish.
	Execute(ctx context.Context, command string) (*CommandResult, error)

	// Upload copies a local file to the device, creating parent
	// directories as needed.
	Upload(ctx context.Context, localPath, remotePath string) error

	// Download copies a device file to a local path.
	Download(ctx context.Context, remotePath, localPath string) error

	// ReadFile returns the content of a device file.
	ReadFile(ctx context.Context, remotePath string) ([]byte, error)

	// WriteFile replaces the content of a device file.
	WriteFile(ctx context.Context, remotePath string, data []byte) error

	// Exists checks whether a device path exists.
	Exists(ctx context.Context, remotePath string) (bool, error)

	// ListDir returns the entry names of a device directory.
	ListDir(ctx context.Context, remotePath string) ([]string, error)

	// ListTree walks a device directory recursively and returns all
	// regular files beneath it.
	ListTree(ctx context.Context, remotePath string) ([]RemoteEntry, error)

	// Close tears down the session.
	Close() error
}

// CommandResult holds the outcome of a remote command.
type CommandResult struct {
	Command  string
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Success reports whether the command exited zero.
func (r *CommandResult) Success() bool {
	return r.ExitCode == 0
}

// Output returns combined stdout/stderr, trimmed.
func (r *CommandResult) Output() string {
	return strings.TrimSpace(r.Stdout + "\n" + r.Stderr)
}

func (r *CommandResult) String() string {
	return fmt.Sprintf("command %q exit=%d", r.Command, r.ExitCode)
}

// RemoteEntry describes one regular file found by ListTree. Path is
// relative to the walked root, forward-slash separated.
type RemoteEntry struct {
	Path    string
	Size    int64
	ModTime time.Time
}

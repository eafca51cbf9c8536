package models

import (
	"errors"
	"fmt"
)

// Sentinel errors
var (
	ErrNotConnected        = errors.New("not connected to device")
	ErrDocumentNotFound    = errors.New("document not found")
	ErrDocumentNotCreated  = errors.New("document not created")
	ErrEmptyTitle          = errors.New("title cannot be empty")
	ErrEmptyUUID           = errors.New("document UUID cannot be empty")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrSyncInProgress      = errors.New("sync already in progress")
	ErrInvalidConfig       = errors.New("invalid configuration")
	ErrConversionFailed    = errors.New("markdown conversion failed")
)

// TransportError wraps a failure in the SSH/SFTP layer.
type TransportError struct {
	Op   string // "execute", "upload", "download", ...
	Path string
	Err  error
}

func (e *TransportError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("transport %s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// CommandError reports a remote command that exited non-zero.
type CommandError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("remote command %q exited %d: %s", e.Command, e.ExitCode, e.Stderr)
}

// MetadataError reports unreadable or malformed on-device metadata.
type MetadataError struct {
	UUID   string
	Reason string
	Err    error
}

func (e *MetadataError) Error() string {
	if e.UUID != "" {
		return fmt.Sprintf("document %s: %s: %v", e.UUID, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *MetadataError) Unwrap() error {
	return e.Err
}

// SyncError provides detailed sync failure information.
type SyncError struct {
	Phase string
	Path  string
	Err   error
}

func (e *SyncError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("sync %s: %s: %v", e.Phase, e.Path, e.Err)
	}
	return fmt.Sprintf("sync %s: %v", e.Phase, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

package models

import "time"

// SyncSnapshot records the reconciled file set as of the last completed
// sync for one profile, for status reporting and change detection
// between runs.
type SyncSnapshot struct {
	Version      int                   `json:"version"`
	LastSyncTime time.Time             `json:"last_sync_time"`
	Files        map[string]FileRecord `json:"files"`
	LastError    string                `json:"last_error,omitempty"`
}

// NewSyncSnapshot creates an empty snapshot.
func NewSyncSnapshot() *SyncSnapshot {
	return &SyncSnapshot{
		Version: 0,
		Files:   make(map[string]FileRecord),
	}
}

// AddFile records a file in the snapshot.
func (s *SyncSnapshot) AddFile(path string, record FileRecord) {
	if s.Files == nil {
		s.Files = make(map[string]FileRecord)
	}
	s.Files[path] = record
}

// RemoveFile drops a file from the snapshot.
func (s *SyncSnapshot) RemoveFile(path string) {
	delete(s.Files, path)
}

package models

import "time"

// FileStatus describes one file's synchronization state.
type FileStatus string

const (
	StatusUnknown        FileStatus = "unknown"
	StatusUpToDate       FileStatus = "up_to_date"
	StatusModifiedLocal  FileStatus = "modified_local"
	StatusModifiedRemote FileStatus = "modified_remote"
	StatusNewLocal       FileStatus = "new_local"
	StatusNewRemote      FileStatus = "new_remote"
	StatusDeletedLocal   FileStatus = "deleted_local"
	StatusDeletedRemote  FileStatus = "deleted_remote"
	StatusConflict       FileStatus = "conflict"
	StatusError          FileStatus = "error"
)

// SyncOperation is the action a sync item requires.
type SyncOperation string

const (
	OpUpload       SyncOperation = "upload"
	OpDownload     SyncOperation = "download"
	OpDeleteLocal  SyncOperation = "delete_local"
	OpDeleteRemote SyncOperation = "delete_remote"
	OpConvertPDF   SyncOperation = "convert_pdf"
	OpSkip         SyncOperation = "skip"
)

// SyncItem is one file's reconciliation record for a single scan cycle. At
// least one of Local and Remote is set. Status and Operation are derived
// together from the two records and change only via MarkItemCompleted.
type SyncItem struct {
	Path         string        `json:"path"`
	Local        *FileRecord   `json:"local,omitempty"`
	Remote       *FileRecord   `json:"remote,omitempty"`
	Status       FileStatus    `json:"status"`
	Operation    SyncOperation `json:"operation"`
	ErrorMessage string        `json:"error_message,omitempty"`
}

// IsMarkdown reports whether either side of the item is a markdown file.
func (i *SyncItem) IsMarkdown() bool {
	if i.Local != nil {
		return i.Local.IsMarkdown
	}
	if i.Remote != nil {
		return i.Remote.IsMarkdown
	}
	return false
}

// Size returns the item's byte size, preferring the local record.
func (i *SyncItem) Size() int64 {
	if i.Local != nil {
		return i.Local.Size
	}
	if i.Remote != nil {
		return i.Remote.Size
	}
	return 0
}

// NeedsSync reports whether the item still requires an action.
func (i *SyncItem) NeedsSync() bool {
	return i.Status != StatusUpToDate && i.Status != StatusError
}

// SyncProgress aggregates counters for one sync run. Counters advance only
// through successful completions; failed items never count as processed.
type SyncProgress struct {
	TotalItems     int       `json:"total_items"`
	ProcessedItems int       `json:"processed_items"`
	CurrentItem    string    `json:"current_item,omitempty"`
	BytesTotal     int64     `json:"bytes_total"`
	BytesProcessed int64     `json:"bytes_processed"`
	StartTime      time.Time `json:"start_time,omitzero"`
}

// Percentage returns item progress as a percentage.
func (p *SyncProgress) Percentage() float64 {
	if p.TotalItems > 0 {
		return float64(p.ProcessedItems) / float64(p.TotalItems) * 100.0
	}
	return 0
}

// BytesPercentage returns byte progress as a percentage.
func (p *SyncProgress) BytesPercentage() float64 {
	if p.BytesTotal > 0 {
		return float64(p.BytesProcessed) / float64(p.BytesTotal) * 100.0
	}
	return 0
}

// Elapsed returns time since the run started, zero before StartSync.
func (p *SyncProgress) Elapsed() time.Duration {
	if p.StartTime.IsZero() {
		return 0
	}
	return time.Since(p.StartTime)
}

// EstimatedRemaining projects the remaining duration from the observed
// per-item rate. Returns false until at least one item has completed.
func (p *SyncProgress) EstimatedRemaining() (time.Duration, bool) {
	if p.ProcessedItems == 0 || p.TotalItems <= p.ProcessedItems {
		return 0, false
	}
	elapsed := p.Elapsed()
	if elapsed <= 0 {
		return 0, false
	}
	rate := float64(p.ProcessedItems) / elapsed.Seconds()
	remaining := float64(p.TotalItems-p.ProcessedItems) / rate
	return time.Duration(remaining * float64(time.Second)), true
}

// SyncSummary counts plan entries by outcome.
type SyncSummary struct {
	UpToDate   int `json:"up_to_date"`
	Uploads    int `json:"uploads"`
	Downloads  int `json:"downloads"`
	Conflicts  int `json:"conflicts"`
	Errors     int `json:"errors"`
	TotalFiles int `json:"total_files"`
}

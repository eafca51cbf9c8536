package sync

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/TheMichaelB/remarksync/internal/events"
	"github.com/TheMichaelB/remarksync/internal/models"
)

// State owns the local and remote file universes and the reconciliation
// plan derived from them. Items are rebuilt wholesale on every
// AnalyzeDifferences call and mutated only through MarkItemCompleted.
type State struct {
	ignorePatterns []string
	logger         *events.Logger

	localFiles  map[string]*models.FileRecord
	remoteFiles map[string]*models.FileRecord

	items map[string]*models.SyncItem
	order []string

	progress     models.SyncProgress
	lastScanTime time.Time
}

// NewState creates an empty reconciliation state.
func NewState(ignorePatterns []string, logger *events.Logger) *State {
	return &State{
		ignorePatterns: ignorePatterns,
		logger:         logger.WithField("component", "sync_state"),
		localFiles:     make(map[string]*models.FileRecord),
		remoteFiles:    make(map[string]*models.FileRecord),
		items:          make(map[string]*models.SyncItem),
	}
}

// ScanLocal walks root and replaces the local file universe with every
// non-ignored regular file found. A missing root leaves the universe
// empty; unreadable files are skipped. The walk only reads.
func (s *State) ScanLocal(root string) {
	files := make(map[string]*models.FileRecord)

	if _, err := os.Stat(root); err != nil {
		s.logger.WithField("root", root).Warn("Local directory missing, treating as empty")
		s.localFiles = files
		return
	}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		name := d.Name()
		if path != root && s.shouldIgnore(name) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		relPath := filepath.ToSlash(rel)

		files[relPath] = &models.FileRecord{
			Path:         relPath,
			Size:         info.Size(),
			ModifiedTime: info.ModTime(),
			Checksum:     models.ChecksumFile(path),
			IsMarkdown:   models.IsMarkdownPath(name),
		}
		return nil
	})
	if err != nil {
		s.logger.WithError(err).Warn("Local scan ended early")
	}

	s.logger.WithField("files", len(files)).Debug("Scanned local directory")
	s.localFiles = files
}

// IngestRemote replaces the remote file universe with the given listing,
// applying the same ignore filter used for local scans.
func (s *State) IngestRemote(listing map[string]models.FileRecord) {
	files := make(map[string]*models.FileRecord)

	for path, record := range listing {
		if s.pathIgnored(path) {
			continue
		}
		r := record
		if r.Path == "" {
			r.Path = path
		}
		r.IsMarkdown = models.IsMarkdownPath(path)
		files[path] = &r
	}

	s.logger.WithField("files", len(files)).Debug("Ingested remote listing")
	s.remoteFiles = files
}

// AnalyzeDifferences rebuilds the plan for the union of local and remote
// paths and recomputes progress totals. Totals count only items whose
// operation is not skip.
func (s *State) AnalyzeDifferences() []*models.SyncItem {
	paths := make(map[string]bool, len(s.localFiles)+len(s.remoteFiles))
	for path := range s.localFiles {
		paths[path] = true
	}
	for path := range s.remoteFiles {
		paths[path] = true
	}

	sorted := make([]string, 0, len(paths))
	for path := range paths {
		sorted = append(sorted, path)
	}
	sort.Strings(sorted)

	s.items = make(map[string]*models.SyncItem, len(sorted))
	s.order = sorted

	totalItems := 0
	var totalBytes int64

	for _, path := range sorted {
		local := s.localFiles[path]
		remote := s.remoteFiles[path]

		status, op := deriveItem(local, remote)

		item := &models.SyncItem{
			Path:      path,
			Local:     local,
			Remote:    remote,
			Status:    status,
			Operation: op,
		}
		s.items[path] = item

		if op != models.OpSkip {
			totalItems++
			totalBytes += item.Size()
		}
	}

	s.progress.TotalItems = totalItems
	s.progress.BytesTotal = totalBytes
	s.progress.ProcessedItems = 0
	s.progress.BytesProcessed = 0
	s.progress.CurrentItem = ""

	s.logger.WithFields(map[string]interface{}{
		"items":   len(s.items),
		"pending": totalItems,
	}).Debug("Analyzed differences")

	return s.Items()
}

// deriveItem applies the reconciliation table to one (local, remote)
// pair. Equal timestamps with differing checksums yield a conflict so
// neither side's changes are discarded.
func deriveItem(local, remote *models.FileRecord) (models.FileStatus, models.SyncOperation) {
	switch {
	case local != nil && remote != nil:
		if local.Checksum == remote.Checksum {
			return models.StatusUpToDate, models.OpSkip
		}
		if local.ModifiedTime.After(remote.ModifiedTime) {
			return models.StatusModifiedLocal, models.OpUpload
		}
		if remote.ModifiedTime.After(local.ModifiedTime) {
			return models.StatusModifiedRemote, models.OpDownload
		}
		return models.StatusConflict, models.OpSkip

	case local != nil:
		return models.StatusNewLocal, models.OpUpload

	default:
		return models.StatusNewRemote, models.OpDownload
	}
}

// MarkItemCompleted records the outcome of one item's transfer. Success
// advances the progress counters; failure records the message and leaves
// them untouched. An unknown path is a no-op since the caller may race a
// fresh scan.
func (s *State) MarkItemCompleted(path string, success bool, errMsg string) {
	item, ok := s.items[path]
	if !ok {
		return
	}

	if success {
		item.Status = models.StatusUpToDate
		item.Operation = models.OpSkip
		item.ErrorMessage = ""
		s.progress.ProcessedItems++
		s.progress.BytesProcessed += item.Size()
		return
	}

	item.Status = models.StatusError
	item.ErrorMessage = errMsg
}

// ItemsByOperation returns plan entries with the given operation in the
// order of the last analysis.
func (s *State) ItemsByOperation(op models.SyncOperation) []*models.SyncItem {
	var out []*models.SyncItem
	for _, path := range s.order {
		if item := s.items[path]; item.Operation == op {
			out = append(out, item)
		}
	}
	return out
}

// Items returns all plan entries in the order of the last analysis.
func (s *State) Items() []*models.SyncItem {
	out := make([]*models.SyncItem, 0, len(s.order))
	for _, path := range s.order {
		out = append(out, s.items[path])
	}
	return out
}

// Item returns one plan entry, or nil.
func (s *State) Item(path string) *models.SyncItem {
	return s.items[path]
}

// StartSync resets processed counters and stamps the run's start time.
// Pure bookkeeping, no I/O.
func (s *State) StartSync() {
	s.progress.StartTime = time.Now()
	s.progress.ProcessedItems = 0
	s.progress.BytesProcessed = 0
	s.progress.CurrentItem = ""
}

// FinishSync stamps the last scan time.
func (s *State) FinishSync() {
	s.lastScanTime = time.Now()
}

// LastScanTime returns when the last run finished, zero before the
// first FinishSync.
func (s *State) LastScanTime() time.Time {
	return s.lastScanTime
}

// SetCurrentItem records the path currently transferring.
func (s *State) SetCurrentItem(path string) {
	s.progress.CurrentItem = path
}

// Progress returns a copy of the current progress counters.
func (s *State) Progress() models.SyncProgress {
	return s.progress
}

// Summary counts plan entries by outcome.
func (s *State) Summary() models.SyncSummary {
	summary := models.SyncSummary{TotalFiles: len(s.items)}
	for _, item := range s.items {
		switch item.Status {
		case models.StatusUpToDate:
			summary.UpToDate++
		case models.StatusConflict:
			summary.Conflicts++
		case models.StatusError:
			summary.Errors++
		}
		switch item.Operation {
		case models.OpUpload:
			summary.Uploads++
		case models.OpDownload:
			summary.Downloads++
		}
	}
	return summary
}

// LocalFiles returns the current local universe.
func (s *State) LocalFiles() map[string]*models.FileRecord {
	return s.localFiles
}

// RemoteFiles returns the current remote universe.
func (s *State) RemoteFiles() map[string]*models.FileRecord {
	return s.remoteFiles
}

// pathIgnored checks every component of a relative path against the
// ignore patterns.
func (s *State) pathIgnored(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if s.shouldIgnore(part) {
			return true
		}
	}
	return false
}

// shouldIgnore matches one path component against the configured
// patterns: leading '*' is a suffix match, leading '.' a prefix match,
// anything else an exact literal.
func (s *State) shouldIgnore(name string) bool {
	for _, pattern := range s.ignorePatterns {
		switch {
		case strings.HasPrefix(pattern, "*"):
			if strings.HasSuffix(name, pattern[1:]) {
				return true
			}
		case strings.HasPrefix(pattern, "."):
			if strings.HasPrefix(name, strings.TrimSuffix(pattern, "*")) {
				return true
			}
		default:
			if name == pattern {
				return true
			}
		}
	}
	return false
}

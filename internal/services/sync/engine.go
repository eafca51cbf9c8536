package sync

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	gosync "sync"
	"time"

	"github.com/TheMichaelB/remarksync/internal/events"
	"github.com/TheMichaelB/remarksync/internal/models"
	"github.com/TheMichaelB/remarksync/internal/storage"
	"github.com/TheMichaelB/remarksync/internal/transport"
)

// Converter turns a markdown file into a PDF and returns the output
// path.
type Converter interface {
	Convert(mdPath, outDir, title string) (string, error)
}

// DocumentAdder places a converted document into the device library if
// no document with the same title exists yet. It returns the document's
// UUID either way.
type DocumentAdder interface {
	AddIfNew(ctx context.Context, title, localPath string) (string, bool, error)
}

// Engine executes a reconciliation plan item by item. Transfers run one
// at a time; the device does not tolerate concurrent SFTP streams well.
type Engine struct {
	transport transport.Transport
	storage   storage.BlobStore
	converter Converter
	docs      DocumentAdder
	logger    *events.Logger

	remoteDir    string
	convertToPDF bool
	pdfOutDir    string

	events       chan Event
	eventsClosed bool

	mu       gosync.Mutex
	syncing  bool
	cancelFn context.CancelFunc
}

// Event represents a sync event.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Item      *models.SyncItem
	Error     error
	Progress  models.SyncProgress
}

// EventType defines sync event types.
type EventType string

const (
	EventStarted      EventType = "started"
	EventItemStarted  EventType = "item_started"
	EventItemComplete EventType = "item_complete"
	EventItemError    EventType = "item_error"
	EventCompleted    EventType = "completed"
	EventFailed       EventType = "failed"
)

// EngineConfig contains engine configuration.
type EngineConfig struct {
	RemoteDir    string
	ConvertToPDF bool
	PDFOutputDir string
}

// NewEngine creates a sync engine.
func NewEngine(
	transport transport.Transport,
	blobs storage.BlobStore,
	converter Converter,
	docs DocumentAdder,
	cfg *EngineConfig,
	logger *events.Logger,
) *Engine {
	return &Engine{
		transport:    transport,
		storage:      blobs,
		converter:    converter,
		docs:         docs,
		logger:       logger.WithField("component", "sync_engine"),
		remoteDir:    cfg.RemoteDir,
		convertToPDF: cfg.ConvertToPDF,
		pdfOutDir:    cfg.PDFOutputDir,
		events:       make(chan Event, 100),
	}
}

// Events returns the event channel. It is closed when a run finishes.
func (e *Engine) Events() <-chan Event {
	return e.events
}

// Run executes the plan held by st: uploads first, then downloads.
// Per-item failures are recorded on the item and do not abort the run.
func (e *Engine) Run(ctx context.Context, st *State) error {
	e.mu.Lock()
	if e.syncing {
		e.mu.Unlock()
		return models.ErrSyncInProgress
	}
	e.syncing = true

	if e.eventsClosed {
		e.events = make(chan Event, 100)
		e.eventsClosed = false
	}

	ctx, cancel := context.WithCancel(ctx)
	e.cancelFn = cancel
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.syncing = false
		e.cancelFn = nil
		if !e.eventsClosed {
			close(e.events)
			e.eventsClosed = true
		}
		e.mu.Unlock()
	}()

	st.StartSync()

	e.logger.WithFields(map[string]interface{}{
		"uploads":   len(st.ItemsByOperation(models.OpUpload)),
		"downloads": len(st.ItemsByOperation(models.OpDownload)),
	}).Info("Starting sync run")

	e.emitEvent(Event{Type: EventStarted, Timestamp: time.Now(), Progress: st.Progress()})

	for _, item := range st.ItemsByOperation(models.OpUpload) {
		if err := ctx.Err(); err != nil {
			e.emitEvent(Event{Type: EventFailed, Timestamp: time.Now(), Error: err})
			return err
		}
		e.processItem(ctx, st, item, e.uploadItem)
	}

	for _, item := range st.ItemsByOperation(models.OpDownload) {
		if err := ctx.Err(); err != nil {
			e.emitEvent(Event{Type: EventFailed, Timestamp: time.Now(), Error: err})
			return err
		}
		e.processItem(ctx, st, item, e.downloadItem)
	}

	st.FinishSync()

	progress := st.Progress()
	e.emitEvent(Event{Type: EventCompleted, Timestamp: time.Now(), Progress: progress})

	e.logger.WithFields(map[string]interface{}{
		"processed": progress.ProcessedItems,
		"total":     progress.TotalItems,
		"duration":  progress.Elapsed(),
	}).Info("Sync run completed")

	return nil
}

// Cancel stops an ongoing run.
func (e *Engine) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cancelFn != nil {
		e.logger.Info("Cancelling sync")
		e.cancelFn()
	}
}

func (e *Engine) processItem(ctx context.Context, st *State, item *models.SyncItem, fn func(context.Context, *models.SyncItem) error) {
	st.SetCurrentItem(item.Path)
	e.emitEvent(Event{Type: EventItemStarted, Timestamp: time.Now(), Item: item, Progress: st.Progress()})

	if err := fn(ctx, item); err != nil {
		e.logger.WithError(err).WithField("path", item.Path).Error("Item failed")
		st.MarkItemCompleted(item.Path, false, err.Error())
		e.emitEvent(Event{Type: EventItemError, Timestamp: time.Now(), Item: item, Error: err, Progress: st.Progress()})
		return
	}

	st.MarkItemCompleted(item.Path, true, "")
	e.emitEvent(Event{Type: EventItemComplete, Timestamp: time.Now(), Item: item, Progress: st.Progress()})
}

// uploadItem mirrors a local file to the device sync directory and, for
// markdown sources, converts it and places the PDF into the library.
func (e *Engine) uploadItem(ctx context.Context, item *models.SyncItem) error {
	localPath, err := e.storage.AbsPath(item.Path)
	if err != nil {
		return fmt.Errorf("resolve local path: %w", err)
	}

	remotePath := path.Join(e.remoteDir, item.Path)
	if err := e.transport.Upload(ctx, localPath, remotePath); err != nil {
		return fmt.Errorf("upload %s: %w", item.Path, err)
	}

	if e.convertToPDF && item.IsMarkdown() {
		title := documentTitle(item.Path)

		pdfPath, err := e.converter.Convert(localPath, e.pdfOutDir, title)
		if err != nil {
			return fmt.Errorf("convert %s: %w", item.Path, err)
		}

		id, created, err := e.docs.AddIfNew(ctx, title, pdfPath)
		if err != nil {
			return fmt.Errorf("add document %q: %w", title, err)
		}
		if created {
			e.logger.WithFields(map[string]interface{}{
				"title": title,
				"uuid":  id,
			}).Info("Placed document on device")
		}
	}

	return nil
}

// downloadItem copies a device file into the local tree and restores
// its remote modification time so the next diff sees both sides equal.
func (e *Engine) downloadItem(ctx context.Context, item *models.SyncItem) error {
	remotePath := path.Join(e.remoteDir, item.Path)

	data, err := e.transport.ReadFile(ctx, remotePath)
	if err != nil {
		return fmt.Errorf("read %s: %w", item.Path, err)
	}

	if err := e.storage.Write(item.Path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", item.Path, err)
	}

	if item.Remote != nil && !item.Remote.ModifiedTime.IsZero() {
		if err := e.storage.SetModTime(item.Path, item.Remote.ModifiedTime); err != nil {
			e.logger.WithError(err).WithField("path", item.Path).Warn("Failed to restore mod time")
		}
	}

	return nil
}

func (e *Engine) emitEvent(event Event) {
	select {
	case e.events <- event:
	default:
		// Drop if nobody is listening
	}
}

// documentTitle derives a library title from a relative path.
func documentTitle(relPath string) string {
	base := filepath.Base(relPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

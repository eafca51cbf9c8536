package sync

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/TheMichaelB/remarksync/internal/events"
	"github.com/TheMichaelB/remarksync/internal/models"
	"github.com/TheMichaelB/remarksync/internal/state"
	"github.com/TheMichaelB/remarksync/internal/storage"
	"github.com/TheMichaelB/remarksync/internal/transport"
)

// md5Batch bounds how many paths one remote md5sum invocation covers so
// the command line stays well under the shell limit.
const md5Batch = 32

// Service provides high-level sync operations: scanning both sides,
// building the plan, running it, and persisting the result snapshot.
type Service struct {
	transport transport.Transport
	state     *State
	engine    *Engine
	snapshots state.Store
	logger    *events.Logger

	profile   string
	localDir  string
	remoteDir string
}

// NewService creates a sync service.
func NewService(
	transport transport.Transport,
	blobs storage.BlobStore,
	converter Converter,
	docs DocumentAdder,
	snapshots state.Store,
	profile string,
	localDir string,
	ignorePatterns []string,
	engineCfg *EngineConfig,
	logger *events.Logger,
) *Service {
	return &Service{
		transport: transport,
		state:     NewState(ignorePatterns, logger),
		engine:    NewEngine(transport, blobs, converter, docs, engineCfg, logger),
		snapshots: snapshots,
		logger:    logger.WithField("service", "sync"),
		profile:   profile,
		localDir:  localDir,
		remoteDir: engineCfg.RemoteDir,
	}
}

// Scan refreshes both file universes and rebuilds the plan.
func (s *Service) Scan(ctx context.Context) ([]*models.SyncItem, error) {
	s.state.ScanLocal(s.localDir)

	listing, err := s.scanRemote(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan remote: %w", err)
	}
	s.state.IngestRemote(listing)

	return s.state.AnalyzeDifferences(), nil
}

// Sync scans, runs the plan, and persists the resulting snapshot.
func (s *Service) Sync(ctx context.Context) (models.SyncSummary, error) {
	unlock, err := s.snapshots.Lock(s.profile)
	if err != nil {
		return models.SyncSummary{}, fmt.Errorf("lock profile: %w", err)
	}
	defer unlock()

	if _, err := s.Scan(ctx); err != nil {
		return models.SyncSummary{}, err
	}

	runErr := s.engine.Run(ctx, s.state)

	summary := s.state.Summary()

	snapshot := s.buildSnapshot(runErr)
	if err := s.snapshots.Save(s.profile, snapshot); err != nil {
		s.logger.WithError(err).Warn("Failed to persist snapshot")
	}

	if runErr != nil {
		return summary, runErr
	}
	return summary, nil
}

// Plan returns the current plan entries.
func (s *Service) Plan() []*models.SyncItem {
	return s.state.Items()
}

// Summary returns the plan summary.
func (s *Service) Summary() models.SyncSummary {
	return s.state.Summary()
}

// Progress returns a copy of the current progress counters.
func (s *Service) Progress() models.SyncProgress {
	return s.state.Progress()
}

// Events returns the engine's event channel.
func (s *Service) Events() <-chan Event {
	return s.engine.Events()
}

// Cancel stops an ongoing run.
func (s *Service) Cancel() {
	s.engine.Cancel()
}

// LastSnapshot loads the persisted snapshot, nil if none exists yet.
func (s *Service) LastSnapshot() (*models.SyncSnapshot, error) {
	snapshot, err := s.snapshots.Load(s.profile)
	if errors.Is(err, state.ErrStateNotFound) {
		return nil, nil
	}
	return snapshot, err
}

// scanRemote walks the device sync directory over SFTP and fills in
// checksums with batched md5sum invocations. A missing directory yields
// an empty listing.
func (s *Service) scanRemote(ctx context.Context) (map[string]models.FileRecord, error) {
	exists, err := s.transport.Exists(ctx, s.remoteDir)
	if err != nil {
		return nil, err
	}
	if !exists {
		s.logger.WithField("dir", s.remoteDir).Debug("Remote directory missing, treating as empty")
		return map[string]models.FileRecord{}, nil
	}

	entries, err := s.transport.ListTree(ctx, s.remoteDir)
	if err != nil {
		return nil, err
	}

	listing := make(map[string]models.FileRecord, len(entries))
	for _, entry := range entries {
		listing[entry.Path] = models.FileRecord{
			Path:         entry.Path,
			Size:         entry.Size,
			ModifiedTime: entry.ModTime,
		}
	}

	if err := s.fillChecksums(ctx, listing); err != nil {
		return nil, err
	}

	return listing, nil
}

// fillChecksums runs md5sum over the listing in batches and writes the
// digests back. Files the command cannot read keep an empty checksum.
func (s *Service) fillChecksums(ctx context.Context, listing map[string]models.FileRecord) error {
	paths := make([]string, 0, len(listing))
	for p := range listing {
		paths = append(paths, p)
	}

	for start := 0; start < len(paths); start += md5Batch {
		end := start + md5Batch
		if end > len(paths) {
			end = len(paths)
		}

		var cmd strings.Builder
		cmd.WriteString("md5sum")
		for _, p := range paths[start:end] {
			cmd.WriteString(" ")
			cmd.WriteString(shellQuote(path.Join(s.remoteDir, p)))
		}

		result, err := s.transport.Execute(ctx, cmd.String())
		if err != nil {
			return fmt.Errorf("remote checksum: %w", err)
		}

		for _, line := range strings.Split(result.Stdout, "\n") {
			digest, file, ok := strings.Cut(strings.TrimSpace(line), " ")
			if !ok {
				continue
			}
			file = strings.TrimSpace(file)

			rel := strings.TrimPrefix(file, strings.TrimSuffix(s.remoteDir, "/")+"/")
			if record, ok := listing[rel]; ok {
				record.Checksum = digest
				listing[rel] = record
			}
		}

		if !result.Success() {
			s.logger.WithField("stderr", result.Stderr).Warn("Some remote files could not be checksummed")
		}
	}

	return nil
}

// buildSnapshot captures the reconciled state after a run.
func (s *Service) buildSnapshot(runErr error) *models.SyncSnapshot {
	var previousVersion int
	if prev, err := s.snapshots.Load(s.profile); err == nil {
		previousVersion = prev.Version
	}

	snapshot := models.NewSyncSnapshot()
	snapshot.Version = previousVersion + 1
	snapshot.LastSyncTime = time.Now()
	if runErr != nil {
		snapshot.LastError = runErr.Error()
	}

	for _, item := range s.state.Items() {
		if item.Status != models.StatusUpToDate {
			continue
		}
		if item.Local != nil {
			snapshot.AddFile(item.Path, *item.Local)
		} else if item.Remote != nil {
			snapshot.AddFile(item.Path, *item.Remote)
		}
	}

	return snapshot
}

// shellQuote wraps a path in single quotes for the device shell.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

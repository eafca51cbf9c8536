package docs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/TheMichaelB/remarksync/internal/events"
	"github.com/TheMichaelB/remarksync/internal/models"
	"github.com/TheMichaelB/remarksync/internal/transport"
)

// Service presents the device's flat, UUID-addressed document store as
// a title-indexed interface. Operations are idempotent on title through
// AddIfNew.
type Service struct {
	transport transport.Transport
	logger    *events.Logger

	docDir string
}

// NewService creates a document store adapter rooted at docDir, the
// device's xochitl data directory.
func NewService(transport transport.Transport, docDir string, logger *events.Logger) *Service {
	return &Service{
		transport: transport,
		logger:    logger.WithField("service", "docs"),
		docDir:    docDir,
	}
}

// FindByTitle searches stored document titles with a case-insensitive
// substring match and returns the first hit in listing order. Extra
// matches are logged, not raised.
func (s *Service) FindByTitle(ctx context.Context, title string) (string, error) {
	if title == "" {
		return "", models.ErrEmptyTitle
	}

	documents, err := s.List(ctx)
	if err != nil {
		return "", fmt.Errorf("list documents: %w", err)
	}

	needle := normalizeTitle(title)

	var found string
	for _, doc := range documents {
		if !strings.Contains(normalizeTitle(doc.Title), needle) {
			continue
		}
		if found == "" {
			found = doc.ID
			continue
		}
		s.logger.WithFields(map[string]interface{}{
			"title":    title,
			"uuid":     doc.ID,
			"selected": found,
		}).Warn("Multiple documents match title, keeping first")
	}

	if found == "" {
		return "", models.ErrDocumentNotFound
	}
	return found, nil
}

// Create uploads localFile as a new document with the given title and
// type, writes both companion records, and reloads the device index.
// Any step failing aborts the create; already-written artifacts are
// left in place.
func (s *Service) Create(ctx context.Context, localFile, title string, fileType models.FileType) (string, error) {
	if title == "" {
		return "", models.ErrEmptyTitle
	}

	id := uuid.New().String()

	s.logger.WithFields(map[string]interface{}{
		"title": title,
		"uuid":  id,
		"type":  fileType,
	}).Info("Creating document")

	contentPath := path.Join(s.docDir, fmt.Sprintf("%s.%s", id, fileType))
	if err := s.transport.Upload(ctx, localFile, contentPath); err != nil {
		return "", fmt.Errorf("upload content: %w", err)
	}

	metaJSON, err := json.Marshal(models.NewDocumentMetadata(title))
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	if err := s.transport.WriteFile(ctx, s.metadataPath(id), metaJSON); err != nil {
		return "", fmt.Errorf("write metadata: %w", err)
	}

	contentJSON, err := json.Marshal(models.DocumentContent{FileType: fileType})
	if err != nil {
		return "", fmt.Errorf("encode content record: %w", err)
	}
	if err := s.transport.WriteFile(ctx, s.contentPath(id), contentJSON); err != nil {
		return "", fmt.Errorf("write content record: %w", err)
	}

	if err := s.reloadIndex(ctx); err != nil {
		return "", err
	}

	return id, nil
}

// AddIfNew creates a document for localFile unless one with the same
// title already exists. It returns the document's UUID and whether a
// create happened.
func (s *Service) AddIfNew(ctx context.Context, title, localFile string) (string, bool, error) {
	id, err := s.FindByTitle(ctx, title)
	if err == nil {
		s.logger.WithFields(map[string]interface{}{
			"title": title,
			"uuid":  id,
		}).Debug("Document already on device")
		return id, false, nil
	}
	if !errors.Is(err, models.ErrDocumentNotFound) {
		return "", false, err
	}

	fileType, err := models.ParseFileType(filepath.Ext(localFile))
	if err != nil {
		return "", false, err
	}

	id, err = s.Create(ctx, localFile, title, fileType)
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

// Delete removes every artifact sharing the UUID prefix and reloads the
// index.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return models.ErrEmptyUUID
	}

	s.logger.WithField("uuid", id).Info("Deleting document")

	// The glob must reach the device shell unquoted.
	command := fmt.Sprintf("rm -f %s.*", path.Join(s.docDir, id))
	result, err := s.transport.Execute(ctx, command)
	if err != nil {
		return fmt.Errorf("delete artifacts: %w", err)
	}
	if !result.Success() {
		return &models.CommandError{Command: command, ExitCode: result.ExitCode, Stderr: result.Stderr}
	}

	return s.reloadIndex(ctx)
}

// Rename rewrites only the visible-name field of the document's
// metadata, then reloads the index.
func (s *Service) Rename(ctx context.Context, id, newTitle string) error {
	if id == "" {
		return models.ErrEmptyUUID
	}
	if newTitle == "" {
		return models.ErrEmptyTitle
	}

	data, err := s.transport.ReadFile(ctx, s.metadataPath(id))
	if err != nil {
		return fmt.Errorf("read metadata: %w", err)
	}

	meta, err := models.ParseDocumentMetadata(data)
	if err != nil {
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"uuid": id,
		"from": meta.VisibleName,
		"to":   newTitle,
	}).Info("Renaming document")

	meta.VisibleName = newTitle

	updated, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := s.transport.WriteFile(ctx, s.metadataPath(id), updated); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}

	return s.reloadIndex(ctx)
}

// List enumerates all metadata records on the device. Malformed entries
// are skipped with a warning.
func (s *Service) List(ctx context.Context) ([]models.RemoteDocument, error) {
	names, err := s.transport.ListDir(ctx, s.docDir)
	if err != nil {
		return nil, fmt.Errorf("list document dir: %w", err)
	}

	var documents []models.RemoteDocument
	for _, name := range names {
		id, ok := strings.CutSuffix(name, ".metadata")
		if !ok {
			continue
		}

		doc, err := s.DocumentInfo(ctx, id)
		if err != nil {
			s.logger.WithError(err).WithField("uuid", id).Warn("Skipping unreadable document")
			continue
		}
		documents = append(documents, doc)
	}

	return documents, nil
}

// DocumentInfo resolves one UUID into a document descriptor.
func (s *Service) DocumentInfo(ctx context.Context, id string) (models.RemoteDocument, error) {
	if id == "" {
		return models.RemoteDocument{}, models.ErrEmptyUUID
	}

	metaData, err := s.transport.ReadFile(ctx, s.metadataPath(id))
	if err != nil {
		return models.RemoteDocument{}, &models.MetadataError{UUID: id, Reason: "read metadata", Err: err}
	}

	meta, err := models.ParseDocumentMetadata(metaData)
	if err != nil {
		return models.RemoteDocument{}, err
	}

	doc := models.RemoteDocument{
		ID:     id,
		Title:  meta.VisibleName,
		Parent: meta.Parent,
		Type:   meta.Type,
	}

	// The content record is optional for listing purposes.
	if contentData, err := s.transport.ReadFile(ctx, s.contentPath(id)); err == nil {
		if content, err := models.ParseDocumentContent(contentData); err == nil {
			doc.FileType = content.FileType
		}
	}

	return doc, nil
}

// Download resolves the document's file type and copies its content
// artifact to destination.
func (s *Service) Download(ctx context.Context, id, destination string) error {
	if id == "" {
		return models.ErrEmptyUUID
	}

	contentData, err := s.transport.ReadFile(ctx, s.contentPath(id))
	if err != nil {
		return &models.MetadataError{UUID: id, Reason: "read content record", Err: err}
	}

	content, err := models.ParseDocumentContent(contentData)
	if err != nil {
		return err
	}

	remotePath := path.Join(s.docDir, fmt.Sprintf("%s.%s", id, content.FileType))

	s.logger.WithFields(map[string]interface{}{
		"uuid": id,
		"dest": destination,
	}).Info("Downloading document")

	if err := s.transport.Download(ctx, remotePath, destination); err != nil {
		return fmt.Errorf("download content: %w", err)
	}
	return nil
}

// LastRead returns the document whose metadata was touched most
// recently. The device rewrites a document's metadata when it is
// opened.
func (s *Service) LastRead(ctx context.Context) (models.RemoteDocument, error) {
	entries, err := s.transport.ListTree(ctx, s.docDir)
	if err != nil {
		return models.RemoteDocument{}, fmt.Errorf("list document dir: %w", err)
	}

	var latest string
	var latestAt int64
	for _, entry := range entries {
		id, ok := strings.CutSuffix(entry.Path, ".metadata")
		if !ok || strings.Contains(id, "/") {
			continue
		}
		if latest == "" || entry.ModTime.Unix() > latestAt {
			latest = id
			latestAt = entry.ModTime.Unix()
		}
	}

	if latest == "" {
		return models.RemoteDocument{}, models.ErrDocumentNotFound
	}

	return s.DocumentInfo(ctx, latest)
}

// LastPage returns the number of pages recorded for the document
// matching title. The pagedata record holds one line per page.
func (s *Service) LastPage(ctx context.Context, title string) (int, error) {
	id, err := s.FindByTitle(ctx, title)
	if err != nil {
		return 0, err
	}

	data, err := s.transport.ReadFile(ctx, path.Join(s.docDir, id+".pagedata"))
	if err != nil {
		return 0, &models.MetadataError{UUID: id, Reason: "read pagedata", Err: err}
	}

	pages := 0
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) != "" {
			pages++
		}
	}
	return pages, nil
}

// reloadIndex restarts the device's document manager so mutations
// become visible.
func (s *Service) reloadIndex(ctx context.Context) error {
	result, err := s.transport.Execute(ctx, "systemctl restart xochitl")
	if err != nil {
		return fmt.Errorf("reload index: %w", err)
	}
	if !result.Success() {
		return &models.CommandError{Command: result.Command, ExitCode: result.ExitCode, Stderr: result.Stderr}
	}
	return nil
}

func (s *Service) metadataPath(id string) string {
	return path.Join(s.docDir, id+".metadata")
}

func (s *Service) contentPath(id string) string {
	return path.Join(s.docDir, id+".content")
}

// normalizeTitle lowercases after Unicode NFC normalization so visually
// identical titles compare equal.
func normalizeTitle(title string) string {
	return strings.ToLower(norm.NFC.String(title))
}

package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FileType tags a document's content format on the device.
type FileType string

const (
	FileTypePDF  FileType = "pdf"
	FileTypeEPUB FileType = "epub"
)

// ParseFileType validates a file extension against the supported set.
func ParseFileType(ext string) (FileType, error) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "pdf":
		return FileTypePDF, nil
	case "epub":
		return FileTypeEPUB, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFileType, ext)
	}
}

// RemoteDocument describes one UUID-addressed document on the device.
type RemoteDocument struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Parent   string   `json:"parent"`
	Type     string   `json:"type"`
	FileType FileType `json:"file_type"`
}

// DocumentMetadata is the on-device <uuid>.metadata record. The device only
// reads these three fields; documents always live at the root.
type DocumentMetadata struct {
	Parent      string `json:"parent"`
	Type        string `json:"type"`
	VisibleName string `json:"visibleName"`
}

// DocumentContent is the on-device <uuid>.content record.
type DocumentContent struct {
	FileType FileType `json:"fileType"`
}

// DocumentTypeTag is the metadata type marker for regular documents.
const DocumentTypeTag = "DocumentType"

// NewDocumentMetadata builds the metadata record for a root-level document.
func NewDocumentMetadata(title string) DocumentMetadata {
	return DocumentMetadata{
		Parent:      "",
		Type:        DocumentTypeTag,
		VisibleName: title,
	}
}

// ParseDocumentMetadata decodes a metadata record, returning a typed error
// on malformed input rather than a zero-valued record.
func ParseDocumentMetadata(data []byte) (DocumentMetadata, error) {
	var meta DocumentMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return DocumentMetadata{}, &MetadataError{Reason: "parse metadata", Err: err}
	}
	return meta, nil
}

// ParseDocumentContent decodes a content record.
func ParseDocumentContent(data []byte) (DocumentContent, error) {
	var content DocumentContent
	if err := json.Unmarshal(data, &content); err != nil {
		return DocumentContent{}, &MetadataError{Reason: "parse content", Err: err}
	}
	return content, nil
}

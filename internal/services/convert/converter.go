package convert

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"github.com/TheMichaelB/remarksync/internal/config"
	"github.com/TheMichaelB/remarksync/internal/events"
	"github.com/TheMichaelB/remarksync/internal/models"
)

// Converter renders markdown files into PDFs suitable for the device.
type Converter struct {
	cfg    *config.ConvertConfig
	md     goldmark.Markdown
	logger *events.Logger
}

// NewConverter creates a converter with the given rendering options.
func NewConverter(cfg *config.ConvertConfig, logger *events.Logger) *Converter {
	var exts []goldmark.Option
	if cfg.EnableTables {
		exts = append(exts, goldmark.WithExtensions(extension.GFM))
	}
	if cfg.EnableFootnotes {
		exts = append(exts, goldmark.WithExtensions(extension.Footnote))
	}

	return &Converter{
		cfg:    cfg,
		md:     goldmark.New(exts...),
		logger: logger.WithField("service", "convert"),
	}
}

// Convert renders mdPath into a PDF under outDir. The title names the
// output file and appears as the PDF's title; when empty it falls back
// to metadata extracted from the source, then the file name.
func (c *Converter) Convert(mdPath, outDir, title string) (string, error) {
	source, err := os.ReadFile(mdPath)
	if err != nil {
		return "", fmt.Errorf("read markdown: %w", err)
	}

	meta := ExtractMetadata(source)
	if title == "" {
		title = meta.Title
	}
	if title == "" {
		base := filepath.Base(mdPath)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	c.logger.WithFields(map[string]interface{}{
		"source": mdPath,
		"title":  title,
	}).Debug("Converting markdown")

	doc := c.md.Parser().Parse(text.NewReader(source))

	renderer := newPDFRenderer(c.cfg, title, meta)
	if err := renderer.render(doc, source); err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrConversionFailed, err)
	}

	outPath := filepath.Join(outDir, sanitizeFileName(title)+".pdf")
	if err := renderer.write(outPath); err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrConversionFailed, err)
	}

	return outPath, nil
}

// ConvertDir converts every markdown file under dir, returning the
// generated PDF paths. Files that fail are logged and skipped.
func (c *Converter) ConvertDir(dir, outDir string) ([]string, error) {
	var outputs []string

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || !models.IsMarkdownPath(d.Name()) {
			return nil
		}

		out, err := c.Convert(path, outDir, "")
		if err != nil {
			c.logger.WithError(err).WithField("path", path).Warn("Skipping unconvertible file")
			return nil
		}
		outputs = append(outputs, out)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}

	return outputs, nil
}

// sanitizeFileName strips characters that are unsafe in file names.
func sanitizeFileName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '-'
		default:
			return r
		}
	}, name)
}

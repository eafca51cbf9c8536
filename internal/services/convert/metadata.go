package convert

import (
	"bufio"
	"bytes"
	"strings"
)

// DocMetadata holds fields extracted from a markdown source: the first
// heading and any author/date/tags lines near the top of the document.
type DocMetadata struct {
	Title  string
	Author string
	Date   string
	Tags   []string
}

// metadataScanLimit bounds how many leading lines are inspected for
// key: value metadata.
const metadataScanLimit = 20

// ExtractMetadata scans the top of a markdown document for a title and
// simple key: value metadata lines.
func ExtractMetadata(source []byte) DocMetadata {
	var meta DocMetadata

	scanner := bufio.NewScanner(bytes.NewReader(source))
	line := 0
	for scanner.Scan() && line < metadataScanLimit {
		line++
		raw := strings.TrimSpace(scanner.Text())

		if meta.Title == "" && strings.HasPrefix(raw, "# ") {
			meta.Title = strings.TrimSpace(strings.TrimPrefix(raw, "# "))
			continue
		}

		lower := strings.ToLower(raw)
		switch {
		case strings.HasPrefix(lower, "author:"):
			meta.Author = strings.TrimSpace(raw[len("author:"):])
		case strings.HasPrefix(lower, "date:"):
			meta.Date = strings.TrimSpace(raw[len("date:"):])
		case strings.HasPrefix(lower, "tags:"):
			for _, tag := range strings.Split(raw[len("tags:"):], ",") {
				if tag = strings.TrimSpace(tag); tag != "" {
					meta.Tags = append(meta.Tags, tag)
				}
			}
		}
	}

	return meta
}

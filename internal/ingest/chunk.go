package ingest

import (
	"fmt"
	"strings"

	"github.com/nimbusflow/support-agent/internal/knowledge"
)

// maxChunkSize bounds one passage in bytes. Sections larger than this are
// split on paragraph boundaries.
const maxChunkSize = 1200

// Chunk splits a document into passages along second-level headings. The
// preamble before the first section becomes its own passage.
func Chunk(source, content string) []knowledge.Document {
	now := stamp()

	var docs []knowledge.Document
	add := func(section, text string) {
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		for _, part := range splitBySize(text) {
			docs = append(docs, knowledge.Document{
				ID:        chunkID(source, len(docs)),
				Content:   part,
				Source:    source,
				Section:   section,
				CreatedAt: now,
			})
		}
	}

	section := ""
	var buf strings.Builder
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if heading, ok := strings.CutPrefix(trimmed, "## "); ok {
			add(section, buf.String())
			buf.Reset()
			section = strings.TrimSpace(heading)
			continue
		}
		// The top-level title is carried in the source label already.
		if strings.HasPrefix(trimmed, "# ") && buf.Len() == 0 && section == "" {
			continue
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	add(section, buf.String())

	return docs
}

// splitBySize breaks oversized text on paragraph boundaries.
func splitBySize(text string) []string {
	if len(text) <= maxChunkSize {
		return []string{text}
	}

	var parts []string
	var buf strings.Builder
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if buf.Len() > 0 && buf.Len()+len(para)+2 > maxChunkSize {
			parts = append(parts, strings.TrimSpace(buf.String()))
			buf.Reset()
		}
		if buf.Len() > 0 {
			buf.WriteString("\n\n")
		}
		buf.WriteString(para)
	}
	if buf.Len() > 0 {
		parts = append(parts, strings.TrimSpace(buf.String()))
	}
	return parts
}

// chunkID builds a stable passage identifier from the source and position.
func chunkID(source string, index int) string {
	slug := strings.ToLower(source)
	slug = strings.NewReplacer(" ", "-", "/", "-", "'", "").Replace(slug)
	return fmt.Sprintf("%s-%03d", slug, index)
}

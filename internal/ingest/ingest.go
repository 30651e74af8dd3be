// Package ingest loads documentation files and indexes them into the
// knowledge store. Markdown files are split along headings so retrieved
// passages stay topically focused.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nimbusflow/support-agent/internal/knowledge"
	"github.com/nimbusflow/support-agent/internal/log"
)

// Store is the indexing surface the ingester needs. Satisfied by
// knowledge.Store.
type Store interface {
	Replace(ctx context.Context, source string, docs []knowledge.Document) error
}

// Ingester indexes documentation directories.
type Ingester struct {
	store  Store
	logger log.Logger
}

// New creates an ingester.
func New(store Store, logger log.Logger) *Ingester {
	return &Ingester{store: store, logger: logger}
}

// Run indexes every markdown and text file in dir. Each file replaces its
// previous passages, so re-running after edits keeps the index current.
func (i *Ingester) Run(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading docs directory %q: %w", dir, err)
	}

	indexed := 0
	for _, entry := range entries {
		if entry.IsDir() || !isDocFile(entry.Name()) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %q: %w", path, err)
		}

		source := sourceTitle(entry.Name(), string(raw))
		docs := Chunk(source, string(raw))
		if len(docs) == 0 {
			i.logger.Warn("skipping empty document", "file", entry.Name())
			continue
		}

		if err := i.store.Replace(ctx, source, docs); err != nil {
			return fmt.Errorf("indexing %q: %w", entry.Name(), err)
		}

		i.logger.Info("indexed document",
			"file", entry.Name(),
			"source", source,
			"chunks", len(docs),
		)
		indexed++
	}

	if indexed == 0 {
		return fmt.Errorf("no documents found in %q", dir)
	}
	return nil
}

// isDocFile reports whether the file is an indexable document.
func isDocFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md", ".markdown", ".txt":
		return true
	default:
		return false
	}
}

// sourceTitle derives the human-readable source label: the document's top
// heading when present, otherwise the filename with separators spaced out.
func sourceTitle(filename, content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if title, ok := strings.CutPrefix(line, "# "); ok {
			return strings.TrimSpace(title)
		}
		if line != "" {
			break
		}
	}

	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	words := strings.Fields(base)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// stamp is factored out so tests can pin document timestamps.
var stamp = time.Now

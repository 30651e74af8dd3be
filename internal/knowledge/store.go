package knowledge

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/nimbusflow/support-agent/internal/log"
)

// Querier defines the database operations the store needs. The interface is
// defined here, by the consumer, so tests can substitute a fake and the pgx
// implementation stays swappable.
type Querier interface {
	// UpsertDocument inserts or updates a passage.
	UpsertDocument(ctx context.Context, doc Document, embedding pgvector.Vector) error

	// SearchDocuments returns the closest passages by cosine distance.
	SearchDocuments(ctx context.Context, embedding pgvector.Vector, limit int) ([]Result, error)

	// CountDocuments returns the number of indexed passages.
	CountDocuments(ctx context.Context) (int64, error)

	// DeleteBySource removes all passages from one source document.
	DeleteBySource(ctx context.Context, source string) error
}

// Embedder turns texts into vectors. Satisfied by llm.Gateway.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Store manages documentation passages with vector search.
// It is safe for concurrent use.
type Store struct {
	queries  Querier
	embedder Embedder
	logger   log.Logger
}

// New creates a knowledge store.
func New(querier Querier, embedder Embedder, logger log.Logger) *Store {
	return &Store{
		queries:  querier,
		embedder: embedder,
		logger:   logger,
	}
}

// Add embeds and upserts one passage.
func (s *Store) Add(ctx context.Context, doc Document) error {
	vectors, err := s.embedder.Embed(ctx, []string{doc.Content})
	if err != nil {
		return fmt.Errorf("embedding document %q: %w", doc.ID, err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return fmt.Errorf("empty embedding returned for document %q", doc.ID)
	}

	if err := s.queries.UpsertDocument(ctx, doc, pgvector.NewVector(vectors[0])); err != nil {
		return fmt.Errorf("upserting document %q: %w", doc.ID, err)
	}
	return nil
}

// AddBatch embeds and upserts passages in one embedding call.
func (s *Store) AddBatch(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Content
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding %d documents: %w", len(docs), err)
	}
	if len(vectors) != len(docs) {
		return fmt.Errorf("got %d embeddings for %d documents", len(vectors), len(docs))
	}

	for i, doc := range docs {
		if err := s.queries.UpsertDocument(ctx, doc, pgvector.NewVector(vectors[i])); err != nil {
			return fmt.Errorf("upserting document %q: %w", doc.ID, err)
		}
	}

	s.logger.Debug("indexed documents", "count", len(docs))
	return nil
}

// Search embeds the query and returns the closest passages with a score of
// at least minScore, best first.
func (s *Store) Search(ctx context.Context, query string, topK int, minScore float64) ([]Result, error) {
	if topK <= 0 {
		topK = 4
	}

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("empty embedding returned for query")
	}

	results, err := s.queries.SearchDocuments(ctx, pgvector.NewVector(vectors[0]), topK)
	if err != nil {
		return nil, fmt.Errorf("searching documents: %w", err)
	}

	filtered := results[:0]
	for _, r := range results {
		if r.Score >= minScore {
			filtered = append(filtered, r)
		}
	}

	s.logger.Debug("knowledge search",
		"candidates", len(results),
		"kept", len(filtered),
		"min_score", minScore,
	)
	return filtered, nil
}

// Count returns the number of indexed passages.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.queries.CountDocuments(ctx)
}

// Replace re-indexes one source document: its old passages are removed and
// the new ones inserted.
func (s *Store) Replace(ctx context.Context, source string, docs []Document) error {
	if err := s.queries.DeleteBySource(ctx, source); err != nil {
		return fmt.Errorf("deleting passages for %q: %w", source, err)
	}
	return s.AddBatch(ctx, docs)
}

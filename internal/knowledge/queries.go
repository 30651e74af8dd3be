package knowledge

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PGQuerier implements Querier on a pgx connection pool.
type PGQuerier struct {
	pool *pgxpool.Pool
}

// NewPGQuerier creates a Querier backed by PostgreSQL.
func NewPGQuerier(pool *pgxpool.Pool) *PGQuerier {
	return &PGQuerier{pool: pool}
}

const upsertDocumentSQL = `
INSERT INTO documents (id, content, source, section, embedding, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
    content = EXCLUDED.content,
    source = EXCLUDED.source,
    section = EXCLUDED.section,
    embedding = EXCLUDED.embedding,
    created_at = EXCLUDED.created_at`

// UpsertDocument inserts or updates a passage.
func (q *PGQuerier) UpsertDocument(ctx context.Context, doc Document, embedding pgvector.Vector) error {
	createdAt := pgtype.Timestamptz{Time: doc.CreatedAt, Valid: !doc.CreatedAt.IsZero()}
	_, err := q.pool.Exec(ctx, upsertDocumentSQL,
		doc.ID, doc.Content, doc.Source, doc.Section, embedding, createdAt)
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

const searchDocumentsSQL = `
SELECT id, content, source, section, 1 - (embedding <=> $1) AS score
FROM documents
ORDER BY embedding <=> $1
LIMIT $2`

// SearchDocuments returns the closest passages by cosine distance.
func (q *PGQuerier) SearchDocuments(ctx context.Context, embedding pgvector.Vector, limit int) ([]Result, error) {
	rows, err := q.pool.Query(ctx, searchDocumentsSQL, embedding, limit)
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.Document.ID, &r.Document.Content, &r.Document.Source,
			&r.Document.Section, &r.Score); err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search rows: %w", err)
	}
	return results, nil
}

// CountDocuments returns the number of indexed passages.
func (q *PGQuerier) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	err := q.pool.QueryRow(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return count, nil
}

// DeleteBySource removes all passages from one source document.
func (q *PGQuerier) DeleteBySource(ctx context.Context, source string) error {
	_, err := q.pool.Exec(ctx, `DELETE FROM documents WHERE source = $1`, source)
	if err != nil {
		return fmt.Errorf("delete documents by source: %w", err)
	}
	return nil
}

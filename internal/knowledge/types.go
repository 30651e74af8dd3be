// Package knowledge stores and retrieves documentation passages with vector
// search over PostgreSQL and pgvector. Passages are embedded at index time;
// queries are embedded at request time and matched by cosine similarity.
package knowledge

import "time"

// Document is one indexed documentation passage.
type Document struct {
	ID        string    // Unique identifier, stable across re-indexing
	Content   string    // Passage text
	Source    string    // Human-readable provenance, e.g. "Refund Policy"
	Section   string    // Heading path within the source document
	CreatedAt time.Time // Index timestamp
}

// Result is one retrieval hit with its similarity score.
type Result struct {
	Document Document
	Score    float64 // Cosine similarity in [0, 1]
}

// Relevance bands used when formatting retrieved context for the model.
const (
	relevanceHigh   = 0.75
	relevanceMedium = 0.55
)

// RelevanceBand maps a similarity score to a coarse label.
func RelevanceBand(score float64) string {
	switch {
	case score >= relevanceHigh:
		return "High"
	case score >= relevanceMedium:
		return "Medium"
	default:
		return "Low"
	}
}

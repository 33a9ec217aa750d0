// Package vectorindex declares the VectorIndex capability contract
// implemented by every vector-backend adapter (memory, qdrant, postgres,
// redis, azureaisearch, opensearch).
package vectorindex

import (
	"context"

	"github.com/paymentops/rag-runbooks/internal/domain"
)

// VectorIndex persists (chunk, embedding) records and answers
// cosine-similarity queries. Implementations normalize whatever the
// underlying backend reports (distance or similarity) so callers always see
// "higher score is more similar".
type VectorIndex interface {
	// Initialize idempotently creates the backing collection/index,
	// configured for cosine distance and the given vector dimension.
	Initialize(ctx context.Context, dimension int) error

	// Upsert inserts or replaces chunks by ID. Empty input is a no-op.
	// Any chunk missing an embedding fails the whole batch with
	// domain.ErrInvalidChunk.
	Upsert(ctx context.Context, chunks []domain.Chunk) error

	// Search returns up to topK chunks ordered by descending similarity.
	// If minScore is non-nil, results scoring strictly below it are
	// dropped.
	Search(ctx context.Context, queryVector []float32, topK int, minScore *float64) ([]domain.RetrievedChunk, error)

	// ListDocuments aggregates stored chunks by documentId.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// GetDocument returns the document with the given ID, or
	// (domain.Document{}, false, nil) if it does not exist.
	GetDocument(ctx context.Context, id string) (domain.Document, bool, error)

	// GetDocumentChunks returns a document's chunks ordered by index
	// ascending, with embeddings stripped.
	GetDocumentChunks(ctx context.Context, id string) ([]domain.Chunk, error)
}

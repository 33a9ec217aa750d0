// Package retrieve embeds a query and returns the most similar chunks from
// a VectorIndex, optionally filtered by a minimum similarity score.
package retrieve

import (
	"context"
	"fmt"

	"github.com/paymentops/rag-runbooks/internal/domain"
	"github.com/paymentops/rag-runbooks/internal/embedding"
	"github.com/paymentops/rag-runbooks/internal/vectorindex"
)

// Retriever embeds queries and searches a vector index for similar chunks.
type Retriever struct {
	embedder      embedding.Embedder
	index         vectorindex.VectorIndex
	minSimilarity *float64
}

// New returns a Retriever. minSimilarity is an optional score floor applied
// to every search; pass nil for no floor.
func New(embedder embedding.Embedder, index vectorindex.VectorIndex, minSimilarity *float64) *Retriever {
	return &Retriever{embedder: embedder, index: index, minSimilarity: minSimilarity}
}

// Retrieve embeds query and returns up to topK similar chunks in descending
// similarity order. An empty result is a valid outcome.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]domain.RetrievedChunk, error) {
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("retrieve embed query: %w", err)
	}

	results, err := r.index.Search(ctx, vector, topK, r.minSimilarity)
	if err != nil {
		return nil, fmt.Errorf("retrieve search: %w", err)
	}
	return results, nil
}

package retrieve

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/paymentops/rag-runbooks/internal/domain"
	"github.com/paymentops/rag-runbooks/internal/vectorindex/memory"
)

type fakeEmbedder struct {
	vectors map[string][]float32
}

func (f *fakeEmbedder) Name() string     { return "fake" }
func (f *fakeEmbedder) Dimension() int   { return 2 }
func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return f.vectors[text], nil
}
func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vectors[t]
	}
	return out, nil
}

func TestRetrieve_ReturnsOrderedResults(t *testing.T) {
	ctx := context.Background()
	idx := memory.New()
	require.NoError(t, idx.Initialize(ctx, 2))
	require.NoError(t, idx.Upsert(ctx, []domain.Chunk{
		{ID: "c1", DocumentID: "d1", DocumentName: "auth.md", Index: 0, Text: "low", Snippet: "low", Hash: "h1", Embedding: []float32{1, 0}, CreatedUtc: time.Now()},
		{ID: "c2", DocumentID: "d1", DocumentName: "auth.md", Index: 1, Text: "high", Snippet: "high", Hash: "h2", Embedding: []float32{0, 1}, CreatedUtc: time.Now()},
	}))

	embedder := &fakeEmbedder{vectors: map[string][]float32{"query": {0, 1}}}
	r := New(embedder, idx, nil)

	results, err := r.Retrieve(ctx, "query", 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "c2", results[0].Chunk.ID)
}

func TestRetrieve_EmptyIndexReturnsEmpty(t *testing.T) {
	ctx := context.Background()
	idx := memory.New()
	require.NoError(t, idx.Initialize(ctx, 2))

	embedder := &fakeEmbedder{vectors: map[string][]float32{"query": {0, 1}}}
	r := New(embedder, idx, nil)

	results, err := r.Retrieve(ctx, "query", 5)
	require.NoError(t, err)
	require.Empty(t, results)
}

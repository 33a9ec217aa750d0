package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/paymentops/rag-runbooks/internal/domain"
)

func chunkWith(id, docID, docName string, index int, text string, embedding []float32) domain.Chunk {
	return domain.Chunk{
		ID:           id,
		DocumentID:   docID,
		DocumentName: docName,
		Index:        index,
		Text:         text,
		Snippet:      text,
		Hash:         "hash-" + id,
		Embedding:    embedding,
		CreatedUtc:   time.Now(),
	}
}

func TestUpsert_RejectsChunkWithoutEmbedding(t *testing.T) {
	idx := New()
	ctx := context.Background()
	require.NoError(t, idx.Initialize(ctx, 3))

	err := idx.Upsert(ctx, []domain.Chunk{chunkWith("c1", "d1", "d1.md", 0, "text", nil)})
	require.ErrorIs(t, err, domain.ErrInvalidChunk)
}

func TestUpsert_EmptyIsNoOp(t *testing.T) {
	idx := New()
	ctx := context.Background()
	require.NoError(t, idx.Initialize(ctx, 3))
	require.NoError(t, idx.Upsert(ctx, nil))
}

func TestSearch_OrdersByDescendingSimilarity(t *testing.T) {
	idx := New()
	ctx := context.Background()
	require.NoError(t, idx.Initialize(ctx, 3))

	require.NoError(t, idx.Upsert(ctx, []domain.Chunk{
		chunkWith("c1", "d1", "d1.md", 0, "low", []float32{1, 0, 0}),
		chunkWith("c2", "d1", "d1.md", 1, "high", []float32{0, 1, 0}),
	}))

	results, err := idx.Search(ctx, []float32{0, 1, 0}, 5, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "c2", results[0].Chunk.ID)
	require.Greater(t, results[0].Score, results[1].Score)
	require.Nil(t, results[0].Chunk.Embedding)
}

func TestSearch_AppliesMinScoreFloor(t *testing.T) {
	idx := New()
	ctx := context.Background()
	require.NoError(t, idx.Initialize(ctx, 2))

	require.NoError(t, idx.Upsert(ctx, []domain.Chunk{
		chunkWith("c1", "d1", "d1.md", 0, "orthogonal", []float32{1, 0}),
		chunkWith("c2", "d1", "d1.md", 1, "match", []float32{0, 1}),
	}))

	floor := 0.5
	results, err := idx.Search(ctx, []float32{0, 1}, 5, &floor)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "c2", results[0].Chunk.ID)
}

func TestSearch_TopKLimitsResults(t *testing.T) {
	idx := New()
	ctx := context.Background()
	require.NoError(t, idx.Initialize(ctx, 2))

	require.NoError(t, idx.Upsert(ctx, []domain.Chunk{
		chunkWith("c1", "d1", "d1.md", 0, "a", []float32{1, 0}),
		chunkWith("c2", "d1", "d1.md", 1, "b", []float32{0.9, 0.1}),
		chunkWith("c3", "d1", "d1.md", 2, "c", []float32{0.8, 0.2}),
	}))

	results, err := idx.Search(ctx, []float32{1, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
}

func TestListDocuments_AggregatesByDocumentID(t *testing.T) {
	idx := New()
	ctx := context.Background()
	require.NoError(t, idx.Initialize(ctx, 2))

	older := time.Now().Add(-time.Hour)
	newer := time.Now()
	c1 := chunkWith("c1", "d1", "d1.md", 0, "hello", []float32{1, 0})
	c1.CreatedUtc = newer
	c2 := chunkWith("c2", "d1", "d1.md", 1, "world!", []float32{0, 1})
	c2.CreatedUtc = older

	require.NoError(t, idx.Upsert(ctx, []domain.Chunk{c1, c2}))

	docs, err := idx.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, "d1", docs[0].ID)
	require.Equal(t, 2, docs[0].ChunkCount)
	require.Equal(t, len("hello")+len("world!"), docs[0].TotalSizeBytes)
	require.True(t, docs[0].CreatedUtc.Equal(older))
}

func TestGetDocumentChunks_OrderedByIndexWithoutEmbeddings(t *testing.T) {
	idx := New()
	ctx := context.Background()
	require.NoError(t, idx.Initialize(ctx, 2))

	require.NoError(t, idx.Upsert(ctx, []domain.Chunk{
		chunkWith("c2", "d1", "d1.md", 1, "second", []float32{0, 1}),
		chunkWith("c1", "d1", "d1.md", 0, "first", []float32{1, 0}),
	}))

	chunks, err := idx.GetDocumentChunks(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	require.Equal(t, 0, chunks[0].Index)
	require.Equal(t, 1, chunks[1].Index)
	require.Nil(t, chunks[0].Embedding)
}

func TestGetDocument_MissingReturnsFalse(t *testing.T) {
	idx := New()
	ctx := context.Background()
	require.NoError(t, idx.Initialize(ctx, 2))

	_, found, err := idx.GetDocument(ctx, "missing")
	require.NoError(t, err)
	require.False(t, found)
}

package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/paymentops/rag-runbooks/internal/chunker"
	"github.com/paymentops/rag-runbooks/internal/vectorindex/memory"
)

type constantEmbedder struct{ dim int }

func (c *constantEmbedder) Name() string   { return "constant" }
func (c *constantEmbedder) Dimension() int { return c.dim }
func (c *constantEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return make([]float32, c.dim), nil
}
func (c *constantEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, c.dim)
	}
	return out, nil
}

func newTestIngestor(t *testing.T) (*Ingestor, *memory.Index) {
	t.Helper()
	ch, err := chunker.New(chunker.Config{ChunkSize: 100, Overlap: 10, MaxChunksPerDocument: 100})
	require.NoError(t, err)

	idx := memory.New()
	require.NoError(t, idx.Initialize(context.Background(), 4))

	embedder := &constantEmbedder{dim: 4}
	in := New(ch, embedder, idx, Config{EmbeddingBatchSize: 2, VectorStoreBatchSize: 1}, nil)
	return in, idx
}

func TestIngestText_StoresAllChunks(t *testing.T) {
	in, idx := newTestIngestor(t)
	ctx := context.Background()

	text := "Check the processor dashboard first. Then check the retry queue depth. Finally check alerting."
	doc, err := in.IngestText(ctx, "auth.md", text, "")
	require.NoError(t, err)
	require.Equal(t, "auth.md", doc.Name)
	require.Greater(t, doc.ChunkCount, 0)

	chunks, err := idx.GetDocumentChunks(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, chunks, doc.ChunkCount)
	for i, c := range chunks {
		require.Equal(t, i, c.Index)
	}
}

func TestIngestText_EmptyTextFails(t *testing.T) {
	in, _ := newTestIngestor(t)
	_, err := in.IngestText(context.Background(), "empty.md", "   \n\t  ", "")
	require.Error(t, err)
}

func TestIngestFiles_SkipsOversizeAndMissing(t *testing.T) {
	in, _ := newTestIngestor(t)
	in.cfg.MaxFileSizeBytes = 10

	dir := t.TempDir()
	small := filepath.Join(dir, "small.md")
	require.NoError(t, os.WriteFile(small, []byte("hi"), 0o644))
	large := filepath.Join(dir, "large.md")
	require.NoError(t, os.WriteFile(large, []byte("this file is definitely too large"), 0o644))
	missing := filepath.Join(dir, "missing.md")

	docs := in.IngestFiles(context.Background(), []string{small, large, missing})
	require.Len(t, docs, 1)
	require.Equal(t, "small.md", docs[0].Name)
}

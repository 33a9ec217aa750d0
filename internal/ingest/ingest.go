// Package ingest orchestrates chunk → embed → upsert for whole documents
// and directories of files, with bounded batching at each stage.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/paymentops/rag-runbooks/internal/chunker"
	"github.com/paymentops/rag-runbooks/internal/domain"
	"github.com/paymentops/rag-runbooks/internal/embedding"
	"github.com/paymentops/rag-runbooks/internal/vectorindex"
)

// Config configures batching and file-ingest limits.
type Config struct {
	EmbeddingBatchSize   int
	VectorStoreBatchSize int
	MaxFileSizeBytes     int64
	AllowedExtensions    map[string]struct{}
}

// Ingestor chunks, embeds, and upserts documents into a VectorIndex.
type Ingestor struct {
	chunker  *chunker.Chunker
	embedder embedding.Embedder
	index    vectorindex.VectorIndex
	cfg      Config
	logger   *zap.Logger
}

// New returns an Ingestor.
func New(chunker *chunker.Chunker, embedder embedding.Embedder, index vectorindex.VectorIndex, cfg Config, logger *zap.Logger) *Ingestor {
	if cfg.EmbeddingBatchSize <= 0 {
		cfg.EmbeddingBatchSize = 100
	}
	if cfg.VectorStoreBatchSize <= 0 {
		cfg.VectorStoreBatchSize = 50
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingestor{chunker: chunker, embedder: embedder, index: index, cfg: cfg, logger: logger}
}

// IngestText chunks, embeds, and upserts a single document's text.
func (in *Ingestor) IngestText(ctx context.Context, docName, text, sourcePath string) (domain.Document, error) {
	documentID := uuid.NewString()
	createdUtc := time.Now().UTC()

	chunks, err := in.chunker.Chunk(documentID, docName, text, createdUtc)
	if err != nil {
		return domain.Document{}, fmt.Errorf("ingest chunk %q: %w", docName, err)
	}
	if len(chunks) == 0 {
		return domain.Document{}, fmt.Errorf("ingest %q: %w", docName, domain.ErrEmptyDocument)
	}

	stored := 0
	for start := 0; start < len(chunks); start += in.cfg.EmbeddingBatchSize {
		end := min(start+in.cfg.EmbeddingBatchSize, len(chunks))
		group := chunks[start:end]

		texts := make([]string, len(group))
		for i, c := range group {
			texts[i] = c.Text
		}
		vectors, err := in.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return domain.Document{}, fmt.Errorf("ingest embed %q batch [%d:%d]: %w", docName, start, end, err)
		}
		for i := range group {
			group[i].Embedding = vectors[i]
		}

		for vsStart := 0; vsStart < len(group); vsStart += in.cfg.VectorStoreBatchSize {
			vsEnd := min(vsStart+in.cfg.VectorStoreBatchSize, len(group))
			if err := in.index.Upsert(ctx, group[vsStart:vsEnd]); err != nil {
				return domain.Document{}, fmt.Errorf("ingest upsert %q batch [%d:%d]: %w", docName, vsStart, vsEnd, err)
			}
			stored += vsEnd - vsStart
		}
	}

	in.logger.Info("ingested document",
		zap.String("doc_name", docName),
		zap.String("document_id", documentID),
		zap.Int("chunk_count", stored),
	)

	return domain.Document{
		ID:             documentID,
		Name:           docName,
		SourcePath:     sourcePath,
		CreatedUtc:     createdUtc,
		ChunkCount:     stored,
		TotalSizeBytes: len(text),
	}, nil
}

// IngestFiles ingests each path in paths, skipping (with a warning) files
// that are missing, too large, or of a disallowed extension. It continues
// on per-file failure and returns the documents successfully ingested.
func (in *Ingestor) IngestFiles(ctx context.Context, paths []string) []domain.Document {
	var docs []domain.Document
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			in.logger.Warn("ingest file: stat failed", zap.String("path", path), zap.Error(err))
			continue
		}
		if info.IsDir() {
			continue
		}
		if in.cfg.MaxFileSizeBytes > 0 && info.Size() > in.cfg.MaxFileSizeBytes {
			in.logger.Warn("ingest file: too large", zap.String("path", path), zap.Int64("size", info.Size()))
			continue
		}
		if len(in.cfg.AllowedExtensions) > 0 {
			ext := filepath.Ext(path)
			if _, ok := in.cfg.AllowedExtensions[ext]; !ok {
				in.logger.Warn("ingest file: disallowed extension", zap.String("path", path), zap.String("ext", ext))
				continue
			}
		}

		data, err := os.ReadFile(path)
		if err != nil {
			in.logger.Warn("ingest file: read failed", zap.String("path", path), zap.Error(err))
			continue
		}

		doc, err := in.IngestText(ctx, filepath.Base(path), string(data), path)
		if err != nil {
			in.logger.Warn("ingest file: failed", zap.String("path", path), zap.Error(err))
			continue
		}
		docs = append(docs, doc)
	}
	return docs
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Command server wires configuration, provider construction, the RAG
// pipeline, and the HTTP entry point together and starts listening.
package main

import (
	"context"
	"flag"
	"log"

	"go.uber.org/zap"

	"github.com/paymentops/rag-runbooks/internal/answer"
	"github.com/paymentops/rag-runbooks/internal/chunker"
	"github.com/paymentops/rag-runbooks/internal/config"
	"github.com/paymentops/rag-runbooks/internal/guardrail"
	"github.com/paymentops/rag-runbooks/internal/httpapi"
	"github.com/paymentops/rag-runbooks/internal/ingest"
	"github.com/paymentops/rag-runbooks/internal/providers"
	"github.com/paymentops/rag-runbooks/internal/retrieve"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "config.yaml", "path to YAML config file")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	ctx := context.Background()

	embedder, err := providers.BuildEmbedder(ctx, cfg.Embedder)
	if err != nil {
		logger.Fatal("failed to build embedder", zap.Error(err))
	}

	chatModel, err := providers.BuildChatModel(ctx, cfg.ChatModel)
	if err != nil {
		logger.Fatal("failed to build chat model", zap.Error(err))
	}

	vectorIndex, err := providers.BuildVectorIndex(ctx, cfg.VectorIndex, logger)
	if err != nil {
		logger.Fatal("failed to build vector index", zap.Error(err))
	}
	if err := vectorIndex.Initialize(ctx, cfg.VectorIndex.Dimension); err != nil {
		logger.Fatal("failed to initialize vector index", zap.Error(err))
	}

	textChunker, err := chunker.New(chunker.Config{
		ChunkSize:            cfg.Chunker.ChunkSize,
		Overlap:              cfg.Chunker.Overlap,
		MaxChunksPerDocument: cfg.Chunker.MaxChunksPerDocument,
	})
	if err != nil {
		logger.Fatal("failed to build chunker", zap.Error(err))
	}

	allowedExt := make(map[string]struct{}, len(cfg.Ingest.AllowedExtensions))
	for _, ext := range cfg.Ingest.AllowedExtensions {
		allowedExt[ext] = struct{}{}
	}
	ingestor := ingest.New(textChunker, embedder, vectorIndex, ingest.Config{
		EmbeddingBatchSize:   cfg.Ingest.EmbeddingBatchSize,
		VectorStoreBatchSize: cfg.Ingest.VectorStoreBatchSize,
		MaxFileSizeBytes:     cfg.Ingest.MaxFileSizeBytes,
		AllowedExtensions:    allowedExt,
	}, logger)

	retriever := retrieve.New(embedder, vectorIndex, cfg.Answer.MinSimilarityScore)
	answerer := answer.New(guardrail.New(), retriever, chatModel, answer.Config{
		MaxQuestionLength: cfg.Answer.MaxQuestionLength,
		TopK:              cfg.Answer.TopK,
	}, logger)

	if cfg.Ingest.WatchDirectory != "" {
		go watchDirectory(ctx, cfg.Ingest.WatchDirectory, ingestor, logger)
	}

	server := httpapi.New(ingestor, answerer, vectorIndex, logger)
	logger.Info("starting server", zap.String("addr", cfg.HTTP.Addr))
	if err := server.Router().Run(cfg.HTTP.Addr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

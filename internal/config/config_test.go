package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTP.Addr)
	require.Equal(t, "openai", cfg.Embedder.Type)
	require.Equal(t, "memory", cfg.VectorIndex.Type)
	require.Equal(t, 1000, cfg.Chunker.ChunkSize)
	require.Equal(t, 1536, cfg.VectorIndex.Dimension)
}

func TestSaveThenLoad_RoundTripsExplicitValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	original := &AppConfig{
		HTTP:        HTTPConfig{Addr: ":9090"},
		Embedder:    EmbedderConfig{Type: "google", Google: &GoogleConfig{APIKeyEnv: "GOOGLE_API_KEY", Model: "text-embedding-004"}},
		ChatModel:   ChatModelConfig{Type: "anthropic", Anthropic: &AnthropicConfig{APIKeyEnv: "ANTHROPIC_API_KEY"}},
		VectorIndex: VectorIndexConfig{Type: "qdrant", Qdrant: &QdrantConfig{URL: "http://localhost:6333", Collection: "runbooks"}},
	}
	require.NoError(t, Save(path, original))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9090", loaded.HTTP.Addr)
	require.Equal(t, "google", loaded.Embedder.Type)
	require.Equal(t, "text-embedding-004", loaded.Embedder.Google.Model)
	require.Equal(t, "anthropic", loaded.ChatModel.Type)
	require.Equal(t, "qdrant", loaded.VectorIndex.Type)
	require.Equal(t, "runbooks", loaded.VectorIndex.Qdrant.Collection)
	// Untouched tunables still pick up defaults on load.
	require.Equal(t, 1000, loaded.Chunker.ChunkSize)
}

func TestApplyDefaults_DoesNotOverrideExplicitValues(t *testing.T) {
	cfg := &AppConfig{Chunker: ChunkerConfig{ChunkSize: 500, Overlap: 50, MaxChunksPerDocument: 10}}
	applyDefaults(cfg)
	require.Equal(t, 500, cfg.Chunker.ChunkSize)
	require.Equal(t, 50, cfg.Chunker.Overlap)
	require.Equal(t, 10, cfg.Chunker.MaxChunksPerDocument)
}

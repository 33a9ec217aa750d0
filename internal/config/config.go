// Package config loads the YAML configuration that selects and parameterizes
// every pluggable provider (vector backend, embedder, chat model) plus the
// core pipeline tunables (chunking, batching, limits).
package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ChunkerConfig configures the deterministic text-windowing chunker.
type ChunkerConfig struct {
	ChunkSize            int `yaml:"chunk_size"`
	Overlap              int `yaml:"overlap"`
	MaxChunksPerDocument int `yaml:"max_chunks_per_document"`
}

// IngestConfig configures batching and file-ingest limits.
type IngestConfig struct {
	EmbeddingBatchSize   int      `yaml:"embedding_batch_size"`
	VectorStoreBatchSize int      `yaml:"vector_store_batch_size"`
	MaxFileSizeBytes     int64    `yaml:"max_file_size_bytes"`
	AllowedExtensions    []string `yaml:"allowed_extensions"`
	WatchDirectory       string   `yaml:"watch_directory"`
}

// AnswerConfig configures the ask pipeline's question and retrieval limits.
type AnswerConfig struct {
	MaxQuestionLength  int      `yaml:"max_question_length"`
	TopK               int      `yaml:"top_k"`
	MinSimilarityScore *float64 `yaml:"min_similarity_score"`
}

// OpenAIConfig configures an OpenAI-compatible REST provider.
type OpenAIConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// GoogleConfig configures the Gemini provider.
type GoogleConfig struct {
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
}

// AzureOpenAIConfig configures a Microsoft Azure OpenAI deployment.
type AzureOpenAIConfig struct {
	Endpoint     string `yaml:"endpoint"`
	APIKeyEnv    string `yaml:"api_key_env"`
	DeploymentID string `yaml:"deployment_id"`
}

// BedrockConfig configures an Amazon Bedrock provider.
type BedrockConfig struct {
	Region  string `yaml:"region"`
	ModelID string `yaml:"model_id"`
}

// AnthropicConfig configures the Anthropic chat-only provider.
type AnthropicConfig struct {
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
	MaxTokens int64  `yaml:"max_tokens"`
}

// MistralConfig configures the Mistral REST provider.
type MistralConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// EmbedderConfig selects and configures the embedder implementation. Type
// is one of: openai, google, azureopenai, bedrock, mistral.
type EmbedderConfig struct {
	Type        string             `yaml:"type"`
	OpenAI      *OpenAIConfig      `yaml:"openai,omitempty"`
	Google      *GoogleConfig      `yaml:"google,omitempty"`
	AzureOpenAI *AzureOpenAIConfig `yaml:"azureopenai,omitempty"`
	Bedrock     *BedrockConfig     `yaml:"bedrock,omitempty"`
	Mistral     *MistralConfig     `yaml:"mistral,omitempty"`
}

// ChatModelConfig selects and configures the chat model implementation.
// Type is one of: openai, google, azureopenai, bedrock, anthropic, mistral.
type ChatModelConfig struct {
	Type        string             `yaml:"type"`
	OpenAI      *OpenAIConfig      `yaml:"openai,omitempty"`
	Google      *GoogleConfig      `yaml:"google,omitempty"`
	AzureOpenAI *AzureOpenAIConfig `yaml:"azureopenai,omitempty"`
	Bedrock     *BedrockConfig     `yaml:"bedrock,omitempty"`
	Anthropic   *AnthropicConfig   `yaml:"anthropic,omitempty"`
	Mistral     *MistralConfig     `yaml:"mistral,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector index.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// PostgresConfig contains connection details for a pgvector-backed index.
type PostgresConfig struct {
	DSNEnv      string `yaml:"dsn_env"`
	Table       string `yaml:"table"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// RedisConfig contains connection details for a RediSearch-backed index.
type RedisConfig struct {
	Addr        string `yaml:"addr"`
	PasswordEnv string `yaml:"password_env"`
	DB          int    `yaml:"db"`
	IndexName   string `yaml:"index_name"`
	KeyPrefix   string `yaml:"key_prefix"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// AzureAISearchConfig contains connection details for an Azure AI Search index.
type AzureAISearchConfig struct {
	Endpoint  string `yaml:"endpoint"`
	APIKeyEnv string `yaml:"api_key_env"`
	Index     string `yaml:"index"`
}

// OpenSearchConfig contains connection details for an OpenSearch cluster.
type OpenSearchConfig struct {
	Addresses   []string `yaml:"addresses"`
	Username    string   `yaml:"username"`
	PasswordEnv string   `yaml:"password_env"`
	Index       string   `yaml:"index"`
}

// VectorIndexConfig selects and configures the vector backend. Type is one
// of: memory, qdrant, postgres, redis, azureaisearch, opensearch.
type VectorIndexConfig struct {
	Type          string               `yaml:"type"`
	Dimension     int                  `yaml:"dimension"`
	Qdrant        *QdrantConfig        `yaml:"qdrant,omitempty"`
	Postgres      *PostgresConfig      `yaml:"postgres,omitempty"`
	Redis         *RedisConfig         `yaml:"redis,omitempty"`
	AzureAISearch *AzureAISearchConfig `yaml:"azureaisearch,omitempty"`
	OpenSearch    *OpenSearchConfig    `yaml:"opensearch,omitempty"`
}

// HTTPConfig configures the HTTP entry point.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	Ingest      IngestConfig      `yaml:"ingest"`
	Answer      AnswerConfig      `yaml:"answer"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	ChatModel   ChatModelConfig   `yaml:"chat_model"`
	VectorIndex VectorIndexConfig `yaml:"vector_index"`
}

// Load reads a config from path and applies core tunable defaults. If the
// file does not exist, returns an all-defaults configuration.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault loads .env secrets (if present) then reads ./config.yaml,
// falling back to an all-defaults configuration if it is absent.
func LoadDefault() (*AppConfig, error) {
	_ = godotenv.Load()
	return Load("config.yaml")
}

// Save writes cfg to path, creating parent directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Embedder:    EmbedderConfig{Type: "openai"},
		ChatModel:   ChatModelConfig{Type: "openai"},
		VectorIndex: VectorIndexConfig{Type: "memory"},
	}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *AppConfig) {
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.Chunker.ChunkSize == 0 {
		cfg.Chunker.ChunkSize = 1000
	}
	if cfg.Chunker.Overlap == 0 {
		cfg.Chunker.Overlap = 150
	}
	if cfg.Chunker.MaxChunksPerDocument == 0 {
		cfg.Chunker.MaxChunksPerDocument = 5000
	}
	if cfg.Ingest.EmbeddingBatchSize == 0 {
		cfg.Ingest.EmbeddingBatchSize = 100
	}
	if cfg.Ingest.VectorStoreBatchSize == 0 {
		cfg.Ingest.VectorStoreBatchSize = 50
	}
	if cfg.Ingest.MaxFileSizeBytes == 0 {
		cfg.Ingest.MaxFileSizeBytes = 10 * 1024 * 1024
	}
	if cfg.Answer.MaxQuestionLength == 0 {
		cfg.Answer.MaxQuestionLength = 2000
	}
	if cfg.Answer.TopK == 0 {
		cfg.Answer.TopK = 5
	}
	if cfg.VectorIndex.Dimension == 0 {
		cfg.VectorIndex.Dimension = 1536
	}
}

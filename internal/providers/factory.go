// Package providers constructs Embedder, ChatModel, and VectorIndex
// implementations from configuration, selecting the concrete adapter by a
// type tag and failing fast on unknown tags or missing capabilities.
package providers

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/paymentops/rag-runbooks/internal/chatmodel"
	chatanthropic "github.com/paymentops/rag-runbooks/internal/chatmodel/anthropic"
	chatazureopenai "github.com/paymentops/rag-runbooks/internal/chatmodel/azureopenai"
	chatbedrock "github.com/paymentops/rag-runbooks/internal/chatmodel/bedrock"
	chatgoogle "github.com/paymentops/rag-runbooks/internal/chatmodel/google"
	chatmistral "github.com/paymentops/rag-runbooks/internal/chatmodel/mistral"
	chatopenai "github.com/paymentops/rag-runbooks/internal/chatmodel/openai"

	"github.com/paymentops/rag-runbooks/internal/config"

	"github.com/paymentops/rag-runbooks/internal/embedding"
	embedazureopenai "github.com/paymentops/rag-runbooks/internal/embedding/azureopenai"
	embedbedrock "github.com/paymentops/rag-runbooks/internal/embedding/bedrock"
	embedgoogle "github.com/paymentops/rag-runbooks/internal/embedding/google"
	embedmistral "github.com/paymentops/rag-runbooks/internal/embedding/mistral"
	embedopenai "github.com/paymentops/rag-runbooks/internal/embedding/openai"

	"github.com/paymentops/rag-runbooks/internal/vectorindex"
	"github.com/paymentops/rag-runbooks/internal/vectorindex/azureaisearch"
	"github.com/paymentops/rag-runbooks/internal/vectorindex/memory"
	"github.com/paymentops/rag-runbooks/internal/vectorindex/opensearch"
	"github.com/paymentops/rag-runbooks/internal/vectorindex/postgres"
	"github.com/paymentops/rag-runbooks/internal/vectorindex/qdrant"
	"github.com/paymentops/rag-runbooks/internal/vectorindex/redis"
)

// BuildEmbedder constructs the Embedder named by cfg.Type. Anthropic has no
// embeddings endpoint and is rejected here rather than at first call.
func BuildEmbedder(ctx context.Context, cfg config.EmbedderConfig) (embedding.Embedder, error) {
	switch cfg.Type {
	case "openai":
		c := cfg.OpenAI
		if c == nil {
			c = &config.OpenAIConfig{}
		}
		return embedopenai.New(embedopenai.Config{
			BaseURL: c.BaseURL,
			APIKey:  envOrEmpty(c.APIKeyEnv),
			Model:   c.Model,
			Timeout: time.Duration(c.TimeoutSecs) * time.Second,
		})
	case "google":
		c := cfg.Google
		if c == nil {
			c = &config.GoogleConfig{}
		}
		return embedgoogle.New(ctx, embedgoogle.Config{
			APIKey: envOrEmpty(c.APIKeyEnv),
			Model:  c.Model,
		})
	case "azureopenai":
		c := cfg.AzureOpenAI
		if c == nil {
			c = &config.AzureOpenAIConfig{}
		}
		return embedazureopenai.New(embedazureopenai.Config{
			Endpoint:     c.Endpoint,
			APIKey:       envOrEmpty(c.APIKeyEnv),
			DeploymentID: c.DeploymentID,
		})
	case "bedrock":
		c := cfg.Bedrock
		if c == nil {
			c = &config.BedrockConfig{}
		}
		return embedbedrock.New(ctx, embedbedrock.Config{Region: c.Region, ModelID: c.ModelID})
	case "mistral":
		c := cfg.Mistral
		if c == nil {
			c = &config.MistralConfig{}
		}
		return embedmistral.New(embedmistral.Config{
			BaseURL: c.BaseURL,
			APIKey:  envOrEmpty(c.APIKeyEnv),
			Model:   c.Model,
			Timeout: time.Duration(c.TimeoutSecs) * time.Second,
		})
	case "anthropic":
		return nil, fmt.Errorf("providers: anthropic has no embeddings endpoint; choose a different embedder type")
	default:
		return nil, fmt.Errorf("providers: unknown embedder type %q", cfg.Type)
	}
}

// BuildChatModel constructs the ChatModel named by cfg.Type.
func BuildChatModel(ctx context.Context, cfg config.ChatModelConfig) (chatmodel.ChatModel, error) {
	switch cfg.Type {
	case "openai":
		c := cfg.OpenAI
		if c == nil {
			c = &config.OpenAIConfig{}
		}
		return chatopenai.New(chatopenai.Config{
			BaseURL: c.BaseURL,
			APIKey:  envOrEmpty(c.APIKeyEnv),
			Model:   c.Model,
			Timeout: time.Duration(c.TimeoutSecs) * time.Second,
		})
	case "google":
		c := cfg.Google
		if c == nil {
			c = &config.GoogleConfig{}
		}
		return chatgoogle.New(ctx, chatgoogle.Config{
			APIKey: envOrEmpty(c.APIKeyEnv),
			Model:  c.Model,
		})
	case "azureopenai":
		c := cfg.AzureOpenAI
		if c == nil {
			c = &config.AzureOpenAIConfig{}
		}
		return chatazureopenai.New(chatazureopenai.Config{
			Endpoint:     c.Endpoint,
			APIKey:       envOrEmpty(c.APIKeyEnv),
			DeploymentID: c.DeploymentID,
		})
	case "bedrock":
		c := cfg.Bedrock
		if c == nil {
			c = &config.BedrockConfig{}
		}
		return chatbedrock.New(ctx, chatbedrock.Config{Region: c.Region, ModelID: c.ModelID})
	case "anthropic":
		c := cfg.Anthropic
		if c == nil {
			c = &config.AnthropicConfig{}
		}
		return chatanthropic.New(chatanthropic.Config{
			APIKey:    envOrEmpty(c.APIKeyEnv),
			Model:     c.Model,
			MaxTokens: c.MaxTokens,
		})
	case "mistral":
		c := cfg.Mistral
		if c == nil {
			c = &config.MistralConfig{}
		}
		return chatmistral.New(chatmistral.Config{
			BaseURL: c.BaseURL,
			APIKey:  envOrEmpty(c.APIKeyEnv),
			Model:   c.Model,
			Timeout: time.Duration(c.TimeoutSecs) * time.Second,
		})
	default:
		return nil, fmt.Errorf("providers: unknown chat model type %q", cfg.Type)
	}
}

// BuildVectorIndex constructs the VectorIndex named by cfg.Type.
func BuildVectorIndex(ctx context.Context, cfg config.VectorIndexConfig, logger *zap.Logger) (vectorindex.VectorIndex, error) {
	switch cfg.Type {
	case "memory", "":
		return memory.New(), nil
	case "qdrant":
		c := cfg.Qdrant
		if c == nil {
			c = &config.QdrantConfig{}
		}
		return qdrant.New(qdrant.Config{
			URL:        c.URL,
			APIKey:     envOrEmpty(c.APIKeyEnv),
			Collection: c.Collection,
			Timeout:    time.Duration(c.TimeoutSecs) * time.Second,
		}, logger), nil
	case "postgres":
		c := cfg.Postgres
		if c == nil {
			c = &config.PostgresConfig{}
		}
		return postgres.New(ctx, postgres.Config{
			DSN:     envOrEmpty(c.DSNEnv),
			Table:   c.Table,
			Timeout: time.Duration(c.TimeoutSecs) * time.Second,
		})
	case "redis":
		c := cfg.Redis
		if c == nil {
			c = &config.RedisConfig{}
		}
		return redis.New(redis.Config{
			Addr:      c.Addr,
			Password:  envOrEmpty(c.PasswordEnv),
			DB:        c.DB,
			IndexName: c.IndexName,
			KeyPrefix: c.KeyPrefix,
			Timeout:   time.Duration(c.TimeoutSecs) * time.Second,
		}), nil
	case "azureaisearch":
		c := cfg.AzureAISearch
		if c == nil {
			c = &config.AzureAISearchConfig{}
		}
		return azureaisearch.New(azureaisearch.Config{
			Endpoint: c.Endpoint,
			APIKey:   envOrEmpty(c.APIKeyEnv),
			Index:    c.Index,
		}), nil
	case "opensearch":
		c := cfg.OpenSearch
		if c == nil {
			c = &config.OpenSearchConfig{}
		}
		return opensearch.New(opensearch.Config{
			Addresses: c.Addresses,
			Username:  c.Username,
			Password:  envOrEmpty(c.PasswordEnv),
			Index:     c.Index,
		})
	default:
		return nil, fmt.Errorf("providers: unknown vector index type %q", cfg.Type)
	}
}

func envOrEmpty(key string) string {
	if key == "" {
		return ""
	}
	return os.Getenv(key)
}

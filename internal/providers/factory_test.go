package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/paymentops/rag-runbooks/internal/config"
	"github.com/paymentops/rag-runbooks/internal/domain"
)

func TestBuildEmbedder_AnthropicIsRejected(t *testing.T) {
	_, err := BuildEmbedder(context.Background(), config.EmbedderConfig{Type: "anthropic"})
	require.Error(t, err)
}

func TestBuildEmbedder_UnknownTypeIsRejected(t *testing.T) {
	_, err := BuildEmbedder(context.Background(), config.EmbedderConfig{Type: "not-a-real-provider"})
	require.Error(t, err)
}

func TestBuildEmbedder_OpenAIRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY_TEST_UNSET", "")
	_, err := BuildEmbedder(context.Background(), config.EmbedderConfig{
		Type:   "openai",
		OpenAI: &config.OpenAIConfig{APIKeyEnv: "OPENAI_API_KEY_TEST_UNSET"},
	})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestBuildChatModel_UnknownTypeIsRejected(t *testing.T) {
	_, err := BuildChatModel(context.Background(), config.ChatModelConfig{Type: "not-a-real-provider"})
	require.Error(t, err)
}

func TestBuildChatModel_AnthropicRequiresAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY_TEST_UNSET", "")
	_, err := BuildChatModel(context.Background(), config.ChatModelConfig{
		Type:      "anthropic",
		Anthropic: &config.AnthropicConfig{APIKeyEnv: "ANTHROPIC_API_KEY_TEST_UNSET"},
	})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestBuildVectorIndex_MemoryIsTheDefault(t *testing.T) {
	idx, err := BuildVectorIndex(context.Background(), config.VectorIndexConfig{}, nil)
	require.NoError(t, err)
	require.NoError(t, idx.Initialize(context.Background(), 4))
}

func TestBuildVectorIndex_UnknownTypeIsRejected(t *testing.T) {
	_, err := BuildVectorIndex(context.Background(), config.VectorIndexConfig{Type: "not-a-real-backend"}, nil)
	require.Error(t, err)
}

// Package azureopenai implements the embedding.Embedder contract against an
// Azure OpenAI deployment via github.com/Azure/azure-sdk-for-go/sdk/ai/azopenai.
package azureopenai

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/ai/azopenai"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"

	"github.com/paymentops/rag-runbooks/internal/domain"
)

// Config configures the Azure OpenAI client.
type Config struct {
	Endpoint     string
	APIKey       string
	DeploymentID string
}

// Client is an Azure-OpenAI-backed Embedder.
type Client struct {
	client       *azopenai.Client
	deploymentID string
	dimension    int
}

// New creates an Azure OpenAI embeddings client.
func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" || cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: azureopenai embedder requires an endpoint and API key", domain.ErrInvalidInput)
	}
	cred := azcore.NewKeyCredential(cfg.APIKey)
	client, err := azopenai.NewClientWithKeyCredential(cfg.Endpoint, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: azureopenai client init: %v", domain.ErrUpstreamModelError, err)
	}
	return &Client{client: client, deploymentID: cfg.DeploymentID}, nil
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "azureopenai" }

// Dimension returns the dimensionality of the produced embedding vectors.
func (c *Client) Dimension() int { return c.dimension }

// Embed returns an embedding vector for a single text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch returns embedding vectors for a batch of texts.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := c.client.GetEmbeddings(ctx, azopenai.EmbeddingsOptions{
		DeploymentName: to.Ptr(c.deploymentID),
		Input:          texts,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: azureopenai embeddings: %v", domain.ErrUpstreamModelError, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: azureopenai returned %d embeddings for %d inputs", domain.ErrUpstreamModelInvalid, len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		idx := int(*d.Index)
		if idx < 0 || idx >= len(vectors) {
			continue
		}
		vec := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float32(v)
		}
		vectors[idx] = vec
	}
	if len(vectors[0]) > 0 {
		c.dimension = len(vectors[0])
	}
	return vectors, nil
}

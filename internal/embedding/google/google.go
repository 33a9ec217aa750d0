// Package google implements the embedding.Embedder contract against
// Google's Gemini embedding API via google.golang.org/genai.
package google

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/paymentops/rag-runbooks/internal/domain"
)

// Config configures the Gemini embedding client.
type Config struct {
	APIKey string
	Model  string
}

// Client is a Gemini-backed Embedder.
type Client struct {
	client    *genai.Client
	model     string
	dimension int
}

// New creates a Gemini embedding client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: google embedder requires an API key", domain.ErrInvalidInput)
	}
	model := cfg.Model
	if model == "" {
		model = "text-embedding-004"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: google client init: %v", domain.ErrUpstreamModelError, err)
	}
	return &Client{client: client, model: model}, nil
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "google" }

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
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}
	resp, err := c.client.Models.EmbedContent(ctx, c.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: google embed content: %v", domain.ErrUpstreamModelError, err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: google returned %d embeddings for %d inputs", domain.ErrUpstreamModelInvalid, len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for i, e := range resp.Embeddings {
		vectors[i] = e.Values
	}
	if len(vectors[0]) > 0 {
		c.dimension = len(vectors[0])
	}
	return vectors, nil
}

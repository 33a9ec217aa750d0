// Package mistral implements the embedding.Embedder contract against the
// Mistral embeddings REST endpoint using a plain net/http client, matching
// the request/response shape documented by Mistral's OpenAI-compatible API.
package mistral

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/paymentops/rag-runbooks/internal/domain"
)

// Config configures the Mistral embeddings client.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client is a Mistral embeddings client.
type Client struct {
	baseURL   string
	apiKey    string
	model     string
	client    *http.Client
	dimension int
}

// New creates a Mistral embeddings client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: mistral embedder requires an API key", domain.ErrInvalidInput)
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.mistral.ai/v1"
	}
	model := cfg.Model
	if model == "" {
		model = "mistral-embed"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{baseURL: baseURL, apiKey: cfg.APIKey, model: model, client: &http.Client{Timeout: timeout}}, nil
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "mistral" }

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

// EmbedBatch returns embedding vectors for a batch of texts in one request.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	type reqBody struct {
		Model string   `json:"model"`
		Input []string `json:"input"`
	}
	data, _ := json.Marshal(reqBody{Model: c.model, Input: texts})

	url := fmt.Sprintf("%s/embeddings", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: mistral embeddings: %v", domain.ErrUpstreamModelError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: mistral embeddings failed: %s: %s", domain.ErrUpstreamModelError, resp.Status, string(payload))
	}

	var out struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: mistral embeddings decode: %v", domain.ErrUpstreamModelInvalid, err)
	}
	if len(out.Data) != len(texts) {
		return nil, fmt.Errorf("%w: mistral returned %d embeddings for %d inputs", domain.ErrUpstreamModelInvalid, len(out.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for _, d := range out.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			continue
		}
		vectors[d.Index] = d.Embedding
	}
	if len(vectors[0]) > 0 {
		c.dimension = len(vectors[0])
	}
	return vectors, nil
}

// Package bedrock implements the embedding.Embedder contract against Amazon
// Bedrock's Titan Embeddings model, invoked via
// github.com/aws/aws-sdk-go-v2/service/bedrockruntime InvokeModel with a
// JSON request/response body.
package bedrock

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/paymentops/rag-runbooks/internal/domain"
)

// Config configures the Bedrock embeddings client.
type Config struct {
	Region  string
	ModelID string
}

// Client is a Bedrock-backed Embedder. Bedrock's Titan Embeddings model
// invokes one text at a time; EmbedBatch loops sequentially.
type Client struct {
	client    *bedrockruntime.Client
	modelID   string
	dimension int
}

// New creates a Bedrock embeddings client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	modelID := cfg.ModelID
	if modelID == "" {
		modelID = "amazon.titan-embed-text-v2:0"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("%w: bedrock config load: %v", domain.ErrUpstreamModelError, err)
	}
	return &Client{client: bedrockruntime.NewFromConfig(awsCfg), modelID: modelID}, nil
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "bedrock" }

// Dimension returns the dimensionality of the produced embedding vectors.
func (c *Client) Dimension() int { return c.dimension }

// Embed returns an embedding vector for a single text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	type request struct {
		InputText string `json:"inputText"`
	}
	type response struct {
		Embedding []float32 `json:"embedding"`
	}

	body, _ := json.Marshal(request{InputText: text})
	out, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     &c.modelID,
		Body:        body,
		ContentType: strPtr("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: bedrock invoke model: %v", domain.ErrUpstreamModelError, err)
	}

	var resp response
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return nil, fmt.Errorf("%w: bedrock embed decode: %v", domain.ErrUpstreamModelInvalid, err)
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("%w: bedrock returned an empty embedding", domain.ErrUpstreamModelInvalid)
	}
	c.dimension = len(resp.Embedding)
	return resp.Embedding, nil
}

// EmbedBatch returns embedding vectors for a batch of texts. Titan
// Embeddings has no native batch endpoint, so requests are issued
// sequentially.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := c.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		vectors[i] = v
	}
	return vectors, nil
}

func strPtr(s string) *string { return &s }

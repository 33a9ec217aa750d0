// Package embedding declares the Embedder capability contract implemented
// by every model-provider adapter (openai, google, azureopenai, bedrock,
// mistral).
package embedding

import "context"

// Embedder converts text into fixed-dimensional float vectors. All vectors
// produced by one Embedder within a process lifetime share the same
// dimension, matching the configured VectorIndex dimension.
type Embedder interface {
	// Name identifies the provider, e.g. "openai".
	Name() string
	// Dimension returns the vector length this embedder produces. May be 0
	// until the first successful call for providers that infer it from the
	// response shape.
	Dimension() int
	// Embed embeds a single text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch embeds texts in input order, returning exactly one vector
	// per input. Providers with no native batch endpoint loop internally.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

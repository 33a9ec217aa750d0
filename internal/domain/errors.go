package domain

import "errors"

// Sentinel errors classify failures across the pipeline. Adapters wrap these
// with fmt.Errorf("...: %w", ErrX) so callers can classify failures with
// errors.Is regardless of which provider raised them.
var (
	// ErrInvalidInput covers missing/blank input, unsupported file
	// extensions, and oversize payloads rejected before any upstream call.
	ErrInvalidInput = errors.New("invalid input")

	// ErrChunkExplosion is raised when chunking a document would exceed
	// maxChunksPerDocument.
	ErrChunkExplosion = errors.New("chunk explosion: maxChunksPerDocument exceeded")

	// ErrEmptyDocument is raised when chunking yields zero chunks.
	ErrEmptyDocument = errors.New("document produced no chunks")

	// ErrInvalidChunk is raised when Upsert receives a chunk without an
	// embedding.
	ErrInvalidChunk = errors.New("chunk missing embedding")

	// ErrUpstreamTimeout is raised by the chat model adapters when the
	// request context is done during the call, whether its deadline passed
	// or it was cancelled. Embedders and vector indexes do not raise it.
	ErrUpstreamTimeout = errors.New("upstream call timed out")

	// ErrUpstreamModelError is a transient model-provider failure.
	ErrUpstreamModelError = errors.New("upstream model error")

	// ErrUpstreamModelInvalid is a non-retriable auth/shape failure from a
	// model provider.
	ErrUpstreamModelInvalid = errors.New("upstream model invalid")

	// ErrUpstreamVectorError is a transient vector-backend failure.
	ErrUpstreamVectorError = errors.New("upstream vector backend error")
)

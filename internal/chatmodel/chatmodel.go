// Package chatmodel declares the ChatModel capability contract implemented
// by every model-provider adapter (openai, google, azureopenai, bedrock,
// anthropic, mistral).
package chatmodel

import "context"

// Message is one turn of a chat completion request.
type Message struct {
	Role    string // "system", "user" or "assistant"
	Content string
}

// Request is a low-temperature, non-streaming chat completion request.
type Request struct {
	Messages    []Message
	Temperature float64
}

// Response is a chat completion result.
type Response struct {
	Text       string
	TokensUsed *int
}

// ChatModel invokes a language model to synthesize a grounded answer.
type ChatModel interface {
	// Name identifies the provider, e.g. "anthropic".
	Name() string
	// Complete runs one non-streaming chat completion.
	Complete(ctx context.Context, req Request) (Response, error)
}

// Package anthropic implements the chatmodel.ChatModel contract against the
// Anthropic Messages API via github.com/anthropics/anthropic-sdk-go.
// Anthropic has no embeddings endpoint; this package is chat-only, and the
// provider factory refuses to construct an Anthropic embedder.
package anthropic

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/paymentops/rag-runbooks/internal/chatmodel"
	"github.com/paymentops/rag-runbooks/internal/domain"
)

// Config configures the Anthropic chat client.
type Config struct {
	APIKey    string
	Model     string
	MaxTokens int64
}

// Client is an Anthropic-backed ChatModel.
type Client struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// New creates an Anthropic chat client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: anthropic chat model requires an API key", domain.ErrInvalidInput)
	}
	model := cfg.Model
	if model == "" {
		model = string(anthropic.ModelClaude3_5HaikuLatest)
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}
	client := anthropic.NewClient(option.WithAPIKey(cfg.APIKey))
	return &Client{client: client, model: anthropic.Model(model), maxTokens: maxTokens}, nil
}

// Name returns the identifier of this chat model implementation.
func (c *Client) Name() string { return "anthropic" }

// Complete sends the conversation to the Messages API and returns the
// model's reply. System messages are concatenated into the top-level
// system parameter; Anthropic has no per-turn system role.
func (c *Client) Complete(ctx context.Context, req chatmodel.Request) (chatmodel.Response, error) {
	var system string
	var messages []anthropic.MessageParam
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
		case "assistant":
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages:  messages,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return chatmodel.Response{}, fmt.Errorf("%w: anthropic messages: %v", domain.ErrUpstreamTimeout, ctxErr)
		}
		return chatmodel.Response{}, fmt.Errorf("%w: anthropic messages: %v", domain.ErrUpstreamModelError, err)
	}
	if len(resp.Content) == 0 {
		return chatmodel.Response{}, fmt.Errorf("%w: anthropic returned no content blocks", domain.ErrUpstreamModelInvalid)
	}

	var text string
	for _, block := range resp.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text += tb.Text
		}
	}
	if text == "" {
		return chatmodel.Response{}, fmt.Errorf("%w: anthropic returned no text content", domain.ErrUpstreamModelInvalid)
	}

	tokens := int(resp.Usage.InputTokens + resp.Usage.OutputTokens)
	return chatmodel.Response{Text: text, TokensUsed: &tokens}, nil
}

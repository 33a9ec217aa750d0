// Package google implements the chatmodel.ChatModel contract against
// Google's Gemini generative model API via google.golang.org/genai.
package google

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/paymentops/rag-runbooks/internal/chatmodel"
	"github.com/paymentops/rag-runbooks/internal/domain"
)

// Config configures the Gemini chat client.
type Config struct {
	APIKey string
	Model  string
}

// Client is a Gemini-backed ChatModel.
type Client struct {
	client *genai.Client
	model  string
}

// New creates a Gemini chat client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: google chat model requires an API key", domain.ErrInvalidInput)
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-1.5-flash"
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

// Name returns the identifier of this chat model implementation.
func (c *Client) Name() string { return "google" }

// Complete sends the conversation to Gemini and returns its reply. System
// messages are concatenated as a leading instruction; there is no
// server-side conversation state between calls.
func (c *Client) Complete(ctx context.Context, req chatmodel.Request) (chatmodel.Response, error) {
	var systemParts []string
	var contents []*genai.Content
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			systemParts = append(systemParts, m.Content)
		case "assistant":
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	var cfg *genai.GenerateContentConfig
	if len(systemParts) > 0 {
		instruction := ""
		for i, p := range systemParts {
			if i > 0 {
				instruction += "\n\n"
			}
			instruction += p
		}
		cfg = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(instruction, genai.RoleUser),
			Temperature:       genai.Ptr(float32(req.Temperature)),
		}
	} else {
		cfg = &genai.GenerateContentConfig{Temperature: genai.Ptr(float32(req.Temperature))}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return chatmodel.Response{}, fmt.Errorf("%w: google generate content: %v", domain.ErrUpstreamTimeout, ctxErr)
		}
		return chatmodel.Response{}, fmt.Errorf("%w: google generate content: %v", domain.ErrUpstreamModelError, err)
	}

	text := resp.Text()
	if text == "" {
		return chatmodel.Response{}, fmt.Errorf("%w: google returned an empty response", domain.ErrUpstreamModelInvalid)
	}

	var tokens *int
	if resp.UsageMetadata != nil {
		total := int(resp.UsageMetadata.TotalTokenCount)
		tokens = &total
	}
	return chatmodel.Response{Text: text, TokensUsed: tokens}, nil
}

// Package openai implements the chatmodel.ChatModel contract against the
// OpenAI (and OpenAI-compatible) chat completions endpoint.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/paymentops/rag-runbooks/internal/chatmodel"
	"github.com/paymentops/rag-runbooks/internal/domain"
)

// Config configures the OpenAI-compatible chat client.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client is an OpenAI-compatible chat completions client.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// New creates a chat client using the provided configuration.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openai chat model requires an API key", domain.ErrInvalidInput)
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// Name returns the identifier of this chat model implementation.
func (c *Client) Name() string { return "openai" }

// Complete sends the conversation to the chat completions endpoint and
// returns the model's reply.
func (c *Client) Complete(ctx context.Context, req chatmodel.Request) (chatmodel.Response, error) {
	type message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	type reqBody struct {
		Model       string    `json:"model"`
		Messages    []message `json:"messages"`
		Temperature float64   `json:"temperature"`
	}

	messages := make([]message, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = message{Role: m.Role, Content: m.Content}
	}
	body := reqBody{Model: c.model, Messages: messages, Temperature: req.Temperature}
	data, _ := json.Marshal(body)

	url := fmt.Sprintf("%s/chat/completions", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return chatmodel.Response{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return chatmodel.Response{}, fmt.Errorf("%w: openai chat: %v", domain.ErrUpstreamTimeout, ctxErr)
		}
		return chatmodel.Response{}, fmt.Errorf("%w: openai chat: %v", domain.ErrUpstreamModelError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(resp.Body)
		return chatmodel.Response{}, fmt.Errorf("%w: openai chat failed: %s: %s", domain.ErrUpstreamModelError, resp.Status, string(payload))
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			TotalTokens int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return chatmodel.Response{}, fmt.Errorf("%w: openai chat decode: %v", domain.ErrUpstreamModelInvalid, err)
	}
	if len(out.Choices) == 0 {
		return chatmodel.Response{}, fmt.Errorf("%w: openai chat returned no choices", domain.ErrUpstreamModelInvalid)
	}

	tokens := out.Usage.TotalTokens
	return chatmodel.Response{Text: out.Choices[0].Message.Content, TokensUsed: &tokens}, nil
}

// Package azureopenai implements the chatmodel.ChatModel contract against an
// Azure OpenAI chat deployment via
// github.com/Azure/azure-sdk-for-go/sdk/ai/azopenai.
package azureopenai

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/ai/azopenai"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"

	"github.com/paymentops/rag-runbooks/internal/chatmodel"
	"github.com/paymentops/rag-runbooks/internal/domain"
)

// Config configures the Azure OpenAI chat client.
type Config struct {
	Endpoint     string
	APIKey       string
	DeploymentID string
}

// Client is an Azure-OpenAI-backed ChatModel.
type Client struct {
	client       *azopenai.Client
	deploymentID string
}

// New creates an Azure OpenAI chat client.
func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" || cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: azureopenai chat model requires an endpoint and API key", domain.ErrInvalidInput)
	}
	cred := azcore.NewKeyCredential(cfg.APIKey)
	client, err := azopenai.NewClientWithKeyCredential(cfg.Endpoint, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: azureopenai client init: %v", domain.ErrUpstreamModelError, err)
	}
	return &Client{client: client, deploymentID: cfg.DeploymentID}, nil
}

// Name returns the identifier of this chat model implementation.
func (c *Client) Name() string { return "azureopenai" }

// Complete sends the conversation to the Azure OpenAI chat deployment and
// returns its reply.
func (c *Client) Complete(ctx context.Context, req chatmodel.Request) (chatmodel.Response, error) {
	messages := make([]azopenai.ChatRequestMessageClassification, len(req.Messages))
	for i, m := range req.Messages {
		switch m.Role {
		case "system":
			messages[i] = &azopenai.ChatRequestSystemMessage{Content: to.Ptr(m.Content)}
		case "assistant":
			messages[i] = &azopenai.ChatRequestAssistantMessage{Content: to.Ptr(m.Content)}
		default:
			messages[i] = &azopenai.ChatRequestUserMessage{Content: azopenai.NewChatRequestUserMessageContent(m.Content)}
		}
	}

	resp, err := c.client.GetChatCompletions(ctx, azopenai.ChatCompletionsOptions{
		DeploymentName: to.Ptr(c.deploymentID),
		Messages:       messages,
		Temperature:    to.Ptr(float32(req.Temperature)),
	}, nil)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return chatmodel.Response{}, fmt.Errorf("%w: azureopenai chat: %v", domain.ErrUpstreamTimeout, ctxErr)
		}
		return chatmodel.Response{}, fmt.Errorf("%w: azureopenai chat: %v", domain.ErrUpstreamModelError, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message == nil || resp.Choices[0].Message.Content == nil {
		return chatmodel.Response{}, fmt.Errorf("%w: azureopenai chat returned no choices", domain.ErrUpstreamModelInvalid)
	}

	var tokens *int
	if resp.Usage != nil {
		total := int(*resp.Usage.TotalTokens)
		tokens = &total
	}
	return chatmodel.Response{Text: *resp.Choices[0].Message.Content, TokensUsed: tokens}, nil
}

// Package bedrock implements the chatmodel.ChatModel contract against
// Amazon Bedrock's Converse API via
// github.com/aws/aws-sdk-go-v2/service/bedrockruntime, which normalizes the
// message-turn shape across the models Bedrock hosts.
package bedrock

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/paymentops/rag-runbooks/internal/chatmodel"
	"github.com/paymentops/rag-runbooks/internal/domain"
)

// Config configures the Bedrock chat client.
type Config struct {
	Region  string
	ModelID string
}

// Client is a Bedrock-backed ChatModel using the Converse API.
type Client struct {
	client  *bedrockruntime.Client
	modelID string
}

// New creates a Bedrock chat client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	modelID := cfg.ModelID
	if modelID == "" {
		modelID = "anthropic.claude-3-haiku-20240307-v1:0"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("%w: bedrock config load: %v", domain.ErrUpstreamModelError, err)
	}
	return &Client{client: bedrockruntime.NewFromConfig(awsCfg), modelID: modelID}, nil
}

// Name returns the identifier of this chat model implementation.
func (c *Client) Name() string { return "bedrock" }

// Complete sends the conversation to Bedrock's Converse API and returns the
// model's reply.
func (c *Client) Complete(ctx context.Context, req chatmodel.Request) (chatmodel.Response, error) {
	var system []types.SystemContentBlock
	var messages []types.Message
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			system = append(system, &types.SystemContentBlockMemberText{Value: m.Content})
		case "assistant":
			messages = append(messages, types.Message{
				Role:    types.ConversationRoleAssistant,
				Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: m.Content}},
			})
		default:
			messages = append(messages, types.Message{
				Role:    types.ConversationRoleUser,
				Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: m.Content}},
			})
		}
	}

	temp := float32(req.Temperature)
	out, err := c.client.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId:         &c.modelID,
		Messages:        messages,
		System:          system,
		InferenceConfig: &types.InferenceConfiguration{Temperature: &temp},
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return chatmodel.Response{}, fmt.Errorf("%w: bedrock converse: %v", domain.ErrUpstreamTimeout, ctxErr)
		}
		return chatmodel.Response{}, fmt.Errorf("%w: bedrock converse: %v", domain.ErrUpstreamModelError, err)
	}

	output, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok || len(output.Value.Content) == 0 {
		return chatmodel.Response{}, fmt.Errorf("%w: bedrock converse returned no content", domain.ErrUpstreamModelInvalid)
	}
	block, ok := output.Value.Content[0].(*types.ContentBlockMemberText)
	if !ok {
		return chatmodel.Response{}, fmt.Errorf("%w: bedrock converse returned a non-text block", domain.ErrUpstreamModelInvalid)
	}

	var tokens *int
	if out.Usage != nil && out.Usage.TotalTokens != nil {
		total := int(*out.Usage.TotalTokens)
		tokens = &total
	}
	return chatmodel.Response{Text: block.Value, TokensUsed: tokens}, nil
}

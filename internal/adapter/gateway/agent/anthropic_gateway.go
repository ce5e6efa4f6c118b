package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/YoshitsuguKoike/deequery/internal/application/port/output"
)

// DefaultAnthropicModel is used when no model is configured
const DefaultAnthropicModel = "claude-sonnet-4-5"

// MessagesClient captures the subset of the Anthropic SDK client used by
// the gateway
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// AnthropicGateway implements AgentGateway over the Anthropic Messages API
type AnthropicGateway struct {
	messages  MessagesClient
	model     string
	maxTokens int
}

// NewAnthropicGateway creates a gateway from an API key
func NewAnthropicGateway(apiKey, model, baseURL string) *AnthropicGateway {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := sdk.NewClient(opts...)
	return NewAnthropicGatewayWithClient(&client.Messages, model)
}

// NewAnthropicGatewayWithClient creates a gateway over an existing client
func NewAnthropicGatewayWithClient(messages MessagesClient, model string) *AnthropicGateway {
	if model == "" {
		model = DefaultAnthropicModel
	}
	return &AnthropicGateway{messages: messages, model: model, maxTokens: 1024}
}

// Execute sends one message and returns the concatenated text blocks
func (g *AnthropicGateway) Execute(ctx context.Context, req output.AgentRequest) (*output.AgentResponse, error) {
	start := time.Now()

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = g.maxTokens
	}
	params := sdk.MessageNewParams{
		MaxTokens: int64(maxTokens),
		Model:     sdk.Model(g.model),
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(req.Prompt))},
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature > 0 {
		params.Temperature = sdk.Float(req.Temperature)
	}

	msg, err := g.messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic messages call failed: %w", err)
	}
	if msg == nil {
		return nil, errors.New("anthropic returned no message")
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return &output.AgentResponse{
		Output:     text.String(),
		Duration:   time.Since(start),
		TokensUsed: int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		AgentType:  "anthropic",
		Metadata: map[string]string{
			"model":         g.model,
			"stop_reason":   string(msg.StopReason),
			"input_tokens":  fmt.Sprintf("%d", msg.Usage.InputTokens),
			"output_tokens": fmt.Sprintf("%d", msg.Usage.OutputTokens),
		},
	}, nil
}

// GetCapability returns the gateway's capabilities
func (g *AnthropicGateway) GetCapability() output.AgentCapability {
	return output.AgentCapability{
		SupportsSystemPrompt: true,
		MaxPromptSize:        400000,
		ConcurrentTasks:      4,
		AgentType:            "anthropic",
		Model:                g.model,
	}
}

// HealthCheck sends a minimal request
func (g *AnthropicGateway) HealthCheck(ctx context.Context) error {
	_, err := g.Execute(ctx, output.AgentRequest{Prompt: "ping", MaxTokens: 1, Timeout: 10 * time.Second})
	if err != nil {
		return fmt.Errorf("anthropic health check failed: %w", err)
	}
	return nil
}

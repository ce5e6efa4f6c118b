package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/YoshitsuguKoike/deequery/internal/application/port/output"
)

// DefaultOpenAIModel is used when no model is configured
const DefaultOpenAIModel = openai.GPT4

// ChatClient captures the subset of the OpenAI client used by the gateway
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIGateway implements AgentGateway over the Chat Completions API
type OpenAIGateway struct {
	chat  ChatClient
	model string
}

// NewOpenAIGateway creates a gateway from an API key. A non-empty
// baseURL targets an OpenAI-compatible server.
func NewOpenAIGateway(apiKey, model, baseURL string) *OpenAIGateway {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return NewOpenAIGatewayWithClient(openai.NewClientWithConfig(cfg), model)
}

// NewOpenAIGatewayWithClient creates a gateway over an existing client
func NewOpenAIGatewayWithClient(chat ChatClient, model string) *OpenAIGateway {
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIGateway{chat: chat, model: model}
}

// Execute sends the system and user messages and returns the first choice
func (g *OpenAIGateway) Execute(ctx context.Context, req output.AgentRequest) (*output.AgentResponse, error) {
	start := time.Now()

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	request := openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    messages,
		Temperature: float32(req.Temperature),
	}
	if req.MaxTokens > 0 {
		request.MaxTokens = req.MaxTokens
	}

	resp, err := g.chat.CreateChatCompletion(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai returned no choices")
	}

	return &output.AgentResponse{
		Output:     resp.Choices[0].Message.Content,
		Duration:   time.Since(start),
		TokensUsed: resp.Usage.TotalTokens,
		AgentType:  "openai",
		Metadata: map[string]string{
			"model":         g.model,
			"finish_reason": string(resp.Choices[0].FinishReason),
		},
	}, nil
}

// GetCapability returns the gateway's capabilities
func (g *OpenAIGateway) GetCapability() output.AgentCapability {
	return output.AgentCapability{
		SupportsSystemPrompt: true,
		MaxPromptSize:        100000,
		ConcurrentTasks:      4,
		AgentType:            "openai",
		Model:                g.model,
	}
}

// HealthCheck sends a minimal request
func (g *OpenAIGateway) HealthCheck(ctx context.Context) error {
	_, err := g.Execute(ctx, output.AgentRequest{Prompt: "ping", MaxTokens: 1, Timeout: 10 * time.Second})
	if err != nil {
		return fmt.Errorf("openai health check failed: %w", err)
	}
	return nil
}

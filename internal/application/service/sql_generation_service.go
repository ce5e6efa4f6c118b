package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/YoshitsuguKoike/deequery/internal/app"
	"github.com/YoshitsuguKoike/deequery/internal/application/dto"
	"github.com/YoshitsuguKoike/deequery/internal/application/port/output"
)

// ErrNoStatement is returned when the model reply contains no SQL
var ErrNoStatement = errors.New("model reply contained no SQL statement")

// SQLGenerationConfig tunes generation requests
type SQLGenerationConfig struct {
	Timeout     time.Duration // per call, 0 leaves the deadline to ctx
	MaxTokens   int
	Temperature float64
}

// SQLGenerationService turns a request and its history into one candidate
// statement using an agent backend
type SQLGenerationService struct {
	gateway output.AgentGateway
	pool    *AgentPool
	prompts *PromptBuilderService
	config  SQLGenerationConfig
}

// NewSQLGenerationService creates a generation service. A nil pool
// disables concurrency limiting.
func NewSQLGenerationService(
	gateway output.AgentGateway,
	pool *AgentPool,
	prompts *PromptBuilderService,
	config SQLGenerationConfig,
) *SQLGenerationService {
	if prompts == nil {
		prompts = NewPromptBuilderService()
	}
	return &SQLGenerationService{
		gateway: gateway,
		pool:    pool,
		prompts: prompts,
		config:  config,
	}
}

var _ output.SQLGenerator = (*SQLGenerationService)(nil)

// Generate asks the agent for the next candidate statement
func (s *SQLGenerationService) Generate(ctx context.Context, req dto.GenerateRequest) (string, error) {
	capability := s.gateway.GetCapability()
	agent := capability.AgentType

	if s.pool != nil {
		if err := s.pool.Acquire(ctx, agent); err != nil {
			return "", fmt.Errorf("wait for %s slot: %w", agent, err)
		}
		defer s.pool.Release(agent)
	}

	prompt := s.prompts.Build(req)
	for _, w := range prompt.Warnings {
		app.GetLogger().Warn("prompt: %s", w)
	}

	agentReq := output.AgentRequest{
		System:      prompt.System,
		Prompt:      prompt.Content,
		Timeout:     s.config.Timeout,
		MaxTokens:   s.config.MaxTokens,
		Temperature: s.config.Temperature,
		Context: map[string]string{
			"attempt":  fmt.Sprintf("%d", len(req.HistoryStatements)+1),
			"question": req.Request,
		},
	}
	if !capability.SupportsSystemPrompt {
		agentReq.System = ""
		agentReq.Prompt = prompt.System + "\n\n" + prompt.Content
	}
	if capability.MaxPromptSize > 0 && len(agentReq.System)+len(agentReq.Prompt) > capability.MaxPromptSize {
		return "", fmt.Errorf("prompt of %d bytes exceeds %s limit of %d",
			len(agentReq.System)+len(agentReq.Prompt), agent, capability.MaxPromptSize)
	}

	resp, err := s.gateway.Execute(ctx, agentReq)
	if err != nil {
		return "", fmt.Errorf("%s generation failed: %w", agent, err)
	}

	app.GetLogger().Debug("%s replied in %v (%d tokens)", agent, resp.Duration, resp.TokensUsed)

	statement := ExtractStatement(resp.Output)
	if statement == "" {
		return "", ErrNoStatement
	}
	return statement, nil
}

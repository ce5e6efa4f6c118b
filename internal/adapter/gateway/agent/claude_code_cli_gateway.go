package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/YoshitsuguKoike/deequery/internal/application/port/output"
	"github.com/YoshitsuguKoike/deequery/internal/interface/external/claudecli"
)

// claudeRunner is the part of claudecli.Runner the gateway uses
type claudeRunner interface {
	RunWithOptions(ctx context.Context, prompt string, opts *claudecli.RunOptions, extraArgs ...string) (*claudecli.ClaudeResponse, error)
	Version(ctx context.Context) (string, error)
}

// ClaudeCodeCLIGateway implements AgentGateway using Claude Code CLI
// This executes `claude -p --output-format json "prompt"` with every
// workspace-changing tool disabled
type ClaudeCodeCLIGateway struct {
	runner claudeRunner
	model  string
}

// NewClaudeCodeCLIGateway creates a new Claude Code CLI gateway
func NewClaudeCodeCLIGateway(bin, model string, timeout time.Duration) *ClaudeCodeCLIGateway {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &ClaudeCodeCLIGateway{
		runner: claudecli.Runner{
			Bin:     bin,
			Timeout: timeout,
			Model:   model,
		},
		model: model,
	}
}

// Execute runs Claude Code CLI with the given request
func (g *ClaudeCodeCLIGateway) Execute(ctx context.Context, req output.AgentRequest) (*output.AgentResponse, error) {
	start := time.Now()

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	// The CLI has no separate system prompt in print mode
	prompt := req.Prompt
	if req.System != "" {
		prompt = req.System + "\n\n" + req.Prompt
	}

	result, err := g.runner.RunWithOptions(ctx, prompt, claudecli.TextOnly)
	if err != nil {
		return nil, fmt.Errorf("claude CLI execution failed: %w", err)
	}

	return &output.AgentResponse{
		Output:     result.Result,
		ExitCode:   0,
		Duration:   time.Since(start),
		TokensUsed: 0, // CLI doesn't provide token count
		AgentType:  "claude-code-cli",
		Metadata: map[string]string{
			"session_id": result.SessionID,
			"cost_usd":   fmt.Sprintf("%.4f", result.TotalCost),
		},
	}, nil
}

// GetCapability returns Claude Code CLI's capabilities
func (g *ClaudeCodeCLIGateway) GetCapability() output.AgentCapability {
	return output.AgentCapability{
		SupportsSystemPrompt: false,
		MaxPromptSize:        200000,
		ConcurrentTasks:      1, // CLI runs one at a time
		AgentType:            "claude-code-cli",
		Model:                g.model,
	}
}

// HealthCheck verifies if claude CLI is available
func (g *ClaudeCodeCLIGateway) HealthCheck(ctx context.Context) error {
	if _, err := g.runner.Version(ctx); err != nil {
		return fmt.Errorf("claude CLI health check failed: %w", err)
	}
	return nil
}

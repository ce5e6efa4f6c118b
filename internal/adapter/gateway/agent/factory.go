package agent

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/afero"

	"github.com/YoshitsuguKoike/deequery/internal/application/port/output"
)

// Supported agent types
const (
	TypeOpenAI        = "openai"
	TypeAnthropic     = "anthropic"
	TypeClaudeCodeCLI = "claude-code-cli"
	TypeScripted      = "scripted"
)

// Config selects and configures a gateway
type Config struct {
	Type       string
	Model      string
	APIKey     string // falls back to OPENAI_API_KEY / ANTHROPIC_API_KEY
	BaseURL    string
	ClaudeBin  string
	Timeout    time.Duration
	ScriptPath string
	Fs         afero.Fs // used to read ScriptPath, defaults to the OS filesystem
}

// NewAgentGateway creates an agent gateway based on agent type
// Note: User is responsible for ensuring the agent is available (e.g., claude CLI installed)
func NewAgentGateway(cfg Config) (output.AgentGateway, error) {
	switch cfg.Type {
	case TypeOpenAI:
		key := firstNonEmpty(cfg.APIKey, os.Getenv("OPENAI_API_KEY"))
		if key == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set for %s", TypeOpenAI)
		}
		return NewOpenAIGateway(key, cfg.Model, cfg.BaseURL), nil

	case TypeAnthropic:
		key := firstNonEmpty(cfg.APIKey, os.Getenv("ANTHROPIC_API_KEY"))
		if key == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable not set for %s", TypeAnthropic)
		}
		return NewAnthropicGateway(key, cfg.Model, cfg.BaseURL), nil

	case TypeClaudeCodeCLI:
		// CLI version (assumes `claude` command is available)
		return NewClaudeCodeCLIGateway(cfg.ClaudeBin, cfg.Model, cfg.Timeout), nil

	case TypeScripted:
		if cfg.ScriptPath == "" {
			return nil, fmt.Errorf("agent type %s requires a script path", TypeScripted)
		}
		fs := cfg.Fs
		if fs == nil {
			fs = afero.NewOsFs()
		}
		return LoadScriptedGateway(fs, cfg.ScriptPath)

	default:
		return nil, fmt.Errorf("unknown agent type: %s (supported: %s, %s, %s, %s)",
			cfg.Type, TypeOpenAI, TypeAnthropic, TypeClaudeCodeCLI, TypeScripted)
	}
}

// GetAvailableAgents returns the agent types usable in this environment
func GetAvailableAgents() []string {
	var agents []string
	if os.Getenv("OPENAI_API_KEY") != "" {
		agents = append(agents, TypeOpenAI)
	}
	if os.Getenv("ANTHROPIC_API_KEY") != "" {
		agents = append(agents, TypeAnthropic)
	}
	// These need no credentials
	return append(agents, TypeClaudeCodeCLI, TypeScripted)
}

// GetDefaultAgent returns the default agent type to use
func GetDefaultAgent() string {
	return TypeOpenAI
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

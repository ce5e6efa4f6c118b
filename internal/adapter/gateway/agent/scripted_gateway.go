package agent

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/YoshitsuguKoike/deequery/internal/application/port/output"
)

// Script is the YAML document replayed by ScriptedGateway.
//
//	replies:
//	  - SELECT * FROM custmers
//	  - SELECT * FROM customers
//	questions:
//	  "How many orders?":
//	    - SELECT COUNT(*) FROM orders
type Script struct {
	Replies   []string            `yaml:"replies"`
	Questions map[string][]string `yaml:"questions"`
}

// ScriptedGateway answers from a fixed script instead of a model. Reply n
// is returned for attempt n; attempts past the end repeat the last reply.
// Useful for demos and reproducible runs without network access.
type ScriptedGateway struct {
	script Script
}

// NewScriptedGateway creates a gateway over an in-memory script
func NewScriptedGateway(script Script) (*ScriptedGateway, error) {
	if len(script.Replies) == 0 && len(script.Questions) == 0 {
		return nil, errors.New("script has no replies")
	}
	return &ScriptedGateway{script: script}, nil
}

// LoadScriptedGateway reads a script file from fs
func LoadScriptedGateway(fs afero.Fs, path string) (*ScriptedGateway, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script %s: %w", path, err)
	}
	var script Script
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("failed to parse script %s: %w", path, err)
	}
	return NewScriptedGateway(script)
}

// Execute returns the scripted reply for the request's attempt
func (g *ScriptedGateway) Execute(ctx context.Context, req output.AgentRequest) (*output.AgentResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	replies := g.script.Replies
	if q, ok := g.script.Questions[req.Context["question"]]; ok && len(q) > 0 {
		replies = q
	}
	if len(replies) == 0 {
		return nil, fmt.Errorf("no scripted reply for %q", req.Context["question"])
	}

	idx := 0
	if n, err := strconv.Atoi(req.Context["attempt"]); err == nil && n > 1 {
		idx = n - 1
	}
	if idx >= len(replies) {
		idx = len(replies) - 1
	}

	return &output.AgentResponse{
		Output:    replies[idx],
		Duration:  time.Duration(0),
		AgentType: "scripted",
		Metadata:  map[string]string{"reply_index": strconv.Itoa(idx)},
	}, nil
}

// GetCapability returns the scripted gateway's capabilities
func (g *ScriptedGateway) GetCapability() output.AgentCapability {
	return output.AgentCapability{
		SupportsSystemPrompt: true,
		MaxPromptSize:        1 << 20,
		ConcurrentTasks:      8,
		AgentType:            "scripted",
	}
}

// HealthCheck always succeeds
func (g *ScriptedGateway) HealthCheck(ctx context.Context) error {
	return nil
}

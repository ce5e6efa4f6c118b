package claudecli

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Runner invokes the claude CLI in print mode
type Runner struct {
	Bin     string
	Timeout time.Duration
	Model   string // empty uses the CLI default
}

// ClaudeResponse represents the JSON response from claude
type ClaudeResponse struct {
	Type       string  `json:"type"`
	Subtype    string  `json:"subtype"`
	IsError    bool    `json:"is_error"`
	DurationMs int     `json:"duration_ms"`
	Result     string  `json:"result"`
	SessionID  string  `json:"session_id"`
	TotalCost  float64 `json:"total_cost_usd"`
	UUID       string  `json:"uuid"`
}

// RunOptions contains options for Claude Code execution
type RunOptions struct {
	AllowedTools    []string // Tools to allow (e.g., "Read")
	DisallowedTools []string // Tools to disallow
}

// TextOnly disables every tool that could touch the workspace, so the
// CLI only answers with text
var TextOnly = &RunOptions{
	DisallowedTools: []string{"Bash", "Edit", "Write", "NotebookEdit", "WebFetch", "WebSearch"},
}

func (r Runner) Run(ctx context.Context, prompt string, extraArgs ...string) (string, error) {
	resp, err := r.RunWithOptions(ctx, prompt, nil, extraArgs...)
	if err != nil {
		return "", err
	}
	return resp.Result, nil
}

// RunWithOptions runs one prompt and returns the parsed response. Output
// that is not JSON is returned verbatim as the result.
func (r Runner) RunWithOptions(ctx context.Context, prompt string, opts *RunOptions, extraArgs ...string) (*ClaudeResponse, error) {
	args := r.args(opts, extraArgs...)
	args = append(args, prompt)

	cctx := ctx
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(cctx, r.bin(), args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if cctx.Err() != nil {
			return nil, fmt.Errorf("claude execution failed: %w", cctx.Err())
		}
		return nil, fmt.Errorf("claude execution failed: %w (output: %s)", err, strings.TrimSpace(string(out)))
	}

	var response ClaudeResponse
	if err := json.Unmarshal(out, &response); err != nil {
		return &ClaudeResponse{Type: "raw", Result: string(out)}, nil
	}
	if response.IsError {
		return nil, fmt.Errorf("claude returned error: %s", response.Result)
	}
	return &response, nil
}

func (r Runner) args(opts *RunOptions, extraArgs ...string) []string {
	args := []string{"-p", "--output-format", "json"}
	if r.Model != "" {
		args = append(args, "--model", r.Model)
	}
	if opts != nil {
		if len(opts.AllowedTools) > 0 {
			args = append(args, "--allowed-tools", strings.Join(opts.AllowedTools, ","))
		}
		if len(opts.DisallowedTools) > 0 {
			args = append(args, "--disallowed-tools", strings.Join(opts.DisallowedTools, ","))
		}
	}
	return append(args, extraArgs...)
}

func (r Runner) bin() string {
	if r.Bin == "" {
		return "claude"
	}
	return r.Bin
}

// Version returns the CLI version string
func (r Runner) Version(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, r.bin(), "--version").Output()
	if err != nil {
		return "", fmt.Errorf("claude --version failed: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

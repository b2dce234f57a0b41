package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/Veraticus/sift/internal/common"
)

// claudeCodeClient shells out to the Claude Code CLI in print mode.
type claudeCodeClient struct {
	cliPath string
	model   string
	timeout time.Duration
}

// claudeCodeResponse is the CLI's --output-format json envelope.
type claudeCodeResponse struct {
	Result    string  `json:"result"`
	Type      string  `json:"type"`
	SessionID string  `json:"session_id"`
	TotalCost float64 `json:"total_cost_usd"`
	IsError   bool    `json:"is_error"`
}

func newClaudeCodeClient(cfg Config) (Client, error) {
	cliPath := cfg.ClaudeCodePath
	if cliPath == "" {
		cliPath = "claude"
	}
	if _, err := exec.LookPath(cliPath); err != nil {
		return nil, fmt.Errorf("%w: claude CLI not found at %s", common.ErrMissingConfig, cliPath)
	}

	model := cfg.Model
	if model == "" || strings.HasPrefix(model, "claude-") {
		// API model ids are not accepted by the CLI.
		model = "haiku"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &claudeCodeClient{cliPath: cliPath, model: model, timeout: timeout}, nil
}

func (c *claudeCodeClient) Complete(ctx context.Context, req Request) (string, error) {
	prompt := req.Prompt
	if req.System != "" {
		prompt = req.System + "\n\n" + req.Prompt
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	// #nosec G204 - cliPath comes from configuration
	cmd := exec.CommandContext(ctx, c.cliPath,
		"-p", prompt,
		"--output-format", "json",
		"--model", c.model,
		"--max-turns", "1",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("claude code error: %s", msg)
		}
		return "", fmt.Errorf("failed to execute claude: %w", err)
	}

	var resp claudeCodeResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return strings.TrimSpace(stdout.String()), nil
	}
	if resp.IsError {
		return "", fmt.Errorf("claude code reported an error: %s", resp.Result)
	}
	if resp.Result == "" {
		return "", fmt.Errorf("%w: empty response from claude code", common.ErrMalformedResponse)
	}
	return resp.Result, nil
}

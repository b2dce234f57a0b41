package llm

import (
	"context"
	"time"
)

// Client sends one prompt to a language model and returns its text reply.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Request is a single completion request.
type Request struct {
	System    string
	Prompt    string
	MaxTokens int
}

// Config selects and tunes a provider client.
type Config struct {
	Provider       string
	APIKey         string
	Model          string
	BaseURL        string
	ClaudeCodePath string
	MaxRetries     int
	RetryDelay     time.Duration
	CacheTTL       time.Duration
	Timeout        time.Duration
	RateLimit      int
	MaxTokens      int
}

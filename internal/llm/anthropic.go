package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/Veraticus/sift/internal/common"
	"github.com/Veraticus/sift/internal/service"
)

const (
	defaultAnthropicModel = "claude-3-5-haiku-latest"
	defaultMaxTokens      = 1024
)

// anthropicClient calls the Messages API through the official SDK. Retries
// are driven by common.WithRetry rather than the SDK's own loop.
type anthropicClient struct {
	client    anthropic.Client
	limiter   *rateLimiter
	model     anthropic.Model
	retry     service.RetryOptions
	maxTokens int
}

func newAnthropicClient(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: anthropic API key is required", common.ErrMissingConfig)
	}

	model := cfg.Model
	if model == "" {
		model = defaultAnthropicModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &anthropicClient{
		client:    anthropic.NewClient(opts...),
		limiter:   newRateLimiter(cfg.RateLimit),
		model:     anthropic.Model(model),
		maxTokens: maxTokens,
		retry: service.RetryOptions{
			MaxAttempts:  cfg.MaxRetries + 1,
			InitialDelay: cfg.RetryDelay,
			MaxDelay:     30 * time.Second,
			Multiplier:   2,
		},
	}, nil
}

func (c *anthropicClient) Complete(ctx context.Context, req Request) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	var reply string
	err := common.WithRetry(ctx, func() error {
		if err := c.limiter.wait(ctx); err != nil {
			return err
		}

		message, err := c.client.Messages.New(ctx, params)
		if err != nil {
			if isRetryableAPIError(err) {
				return &common.RetryableError{Err: err, Retryable: true}
			}
			return err
		}

		if len(message.Content) == 0 {
			return fmt.Errorf("%w: no content blocks", common.ErrMalformedResponse)
		}
		block := message.Content[0]
		if block.Type != "text" {
			return fmt.Errorf("%w: first block is %s, not text", common.ErrMalformedResponse, block.Type)
		}
		reply = block.Text
		return nil
	}, c.retry)
	if err != nil {
		return "", fmt.Errorf("anthropic request failed: %w", err)
	}
	return reply, nil
}

// isRetryableAPIError reports whether err is a rate limit, server error or
// network timeout.
func isRetryableAPIError(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

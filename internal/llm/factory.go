package llm

import (
	"fmt"
	"strings"
)

// NewClient builds the provider client named by cfg.Provider, wrapped in a
// response cache when cfg.CacheTTL is positive.
func NewClient(cfg Config) (Client, error) {
	var (
		client Client
		err    error
	)
	switch strings.ToLower(cfg.Provider) {
	case "anthropic", "":
		client, err = newAnthropicClient(cfg)
	case "claudecode":
		client, err = newClaudeCodeClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if cfg.CacheTTL > 0 {
		client = newCachingClient(client, cfg.CacheTTL)
	}
	return client, nil
}

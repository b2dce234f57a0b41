package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/sift/internal/common"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		wantErr error
		name    string
		cfg     Config
		cached  bool
	}{
		{name: "anthropic default provider", cfg: Config{APIKey: "sk-test"}},
		{name: "anthropic cached", cfg: Config{Provider: "Anthropic", APIKey: "sk-test", CacheTTL: time.Minute}, cached: true},
		{name: "anthropic without key", cfg: Config{Provider: "anthropic"}, wantErr: common.ErrMissingConfig},
		{name: "claude code missing binary", cfg: Config{Provider: "claudecode", ClaudeCodePath: "/nonexistent/claude"}, wantErr: common.ErrMissingConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.cfg)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			_, isCached := client.(*cachingClient)
			assert.Equal(t, tt.cached, isCached)
		})
	}

	_, err := NewClient(Config{Provider: "openai"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported LLM provider")
}

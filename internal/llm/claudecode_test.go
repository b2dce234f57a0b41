package llm

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCLI writes an executable shell script that prints body and exits.
func fakeCLI(t *testing.T, body string, exitCode int) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	path := filepath.Join(t.TempDir(), "claude")
	script := "#!/bin/sh\ncat <<'JSON'\n" + body + "\nJSON\nexit " + strconv.Itoa(exitCode) + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestClaudeCodeClient(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr string
		exit    int
	}{
		{
			name: "json envelope",
			body: `{"type":"result","result":"{\"action\":\"skip\"}","is_error":false}`,
			want: `{"action":"skip"}`,
		},
		{
			name: "plain text output",
			body: "  just text  ",
			want: "just text",
		},
		{
			name:    "error envelope",
			body:    `{"type":"result","result":"credit exhausted","is_error":true}`,
			wantErr: "credit exhausted",
		},
		{
			name:    "empty result",
			body:    `{"type":"result","result":""}`,
			wantErr: "empty response",
		},
		{
			name:    "non-zero exit",
			body:    "",
			exit:    2,
			wantErr: "failed to execute claude",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := newClaudeCodeClient(Config{ClaudeCodePath: fakeCLI(t, tt.body, tt.exit)})
			require.NoError(t, err)

			got, err := client.Complete(context.Background(), Request{System: "sys", Prompt: "classify"})
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClaudeCodeClient_ModelMapping(t *testing.T) {
	path := fakeCLI(t, "{}", 0)

	c, err := newClaudeCodeClient(Config{ClaudeCodePath: path, Model: "claude-3-5-haiku-latest"})
	require.NoError(t, err)
	assert.Equal(t, "haiku", c.(*claudeCodeClient).model)

	c, err = newClaudeCodeClient(Config{ClaudeCodePath: path, Model: "sonnet"})
	require.NoError(t, err)
	assert.Equal(t, "sonnet", c.(*claudeCodeClient).model)
}

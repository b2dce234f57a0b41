package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const messageReply = `{
	"id": "msg_01",
	"type": "message",
	"role": "assistant",
	"model": "claude-3-5-haiku-latest",
	"content": [{"type": "text", "text": "{\"action\": \"skip\"}"}],
	"stop_reason": "end_turn",
	"usage": {"input_tokens": 10, "output_tokens": 5}
}`

func apiError(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"boom"}}`))
}

func newTestAnthropic(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := newAnthropicClient(Config{
		APIKey:     "sk-test",
		BaseURL:    srv.URL,
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
		RateLimit:  1000,
	})
	require.NoError(t, err)
	return client
}

func TestAnthropicClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	var body map[string]any

	client := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1/messages") {
			http.NotFound(w, r)
			return
		}
		if calls.Add(1) == 1 {
			apiError(w, http.StatusInternalServerError)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(messageReply))
	})

	got, err := client.Complete(context.Background(), Request{System: "be brief", Prompt: "classify", MaxTokens: 77})
	require.NoError(t, err)
	assert.JSONEq(t, `{"action": "skip"}`, got)
	assert.Equal(t, int32(2), calls.Load())

	assert.Equal(t, "claude-3-5-haiku-latest", body["model"])
	assert.InDelta(t, 77, body["max_tokens"], 0)
	assert.Contains(t, body, "system")
}

func TestAnthropicClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestAnthropic(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		apiError(w, http.StatusBadRequest)
	})

	_, err := client.Complete(context.Background(), Request{Prompt: "classify"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic request failed")
	assert.Equal(t, int32(1), calls.Load())
}

func TestAnthropicClient_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	client := newTestAnthropic(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		apiError(w, http.StatusTooManyRequests)
	})

	_, err := client.Complete(context.Background(), Request{Prompt: "classify"})
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

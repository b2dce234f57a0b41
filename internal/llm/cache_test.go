package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingClient struct {
	err   error
	calls int
}

func (c *countingClient) Complete(_ context.Context, req Request) (string, error) {
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	return "reply to " + req.Prompt, nil
}

func TestCachingClient(t *testing.T) {
	ctx := context.Background()
	inner := &countingClient{}
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := newCachingClient(inner, time.Minute)
	c.now = clock.now

	req := Request{System: "sys", Prompt: "a", MaxTokens: 100}

	got, err := c.Complete(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "reply to a", got)

	got, err = c.Complete(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "reply to a", got)
	assert.Equal(t, 1, inner.calls)

	_, err = c.Complete(ctx, Request{System: "sys", Prompt: "a", MaxTokens: 200})
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls, "token budget is part of the key")

	clock.advance(2 * time.Minute)
	_, err = c.Complete(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 3, inner.calls, "expired entries are refetched")
	assert.Equal(t, 2, c.size())
}

func TestCachingClient_ErrorsAreNotCached(t *testing.T) {
	inner := &countingClient{err: errors.New("overloaded")}
	c := newCachingClient(inner, time.Minute)

	for range 2 {
		_, err := c.Complete(context.Background(), Request{Prompt: "x"})
		require.Error(t, err)
	}
	assert.Equal(t, 2, inner.calls)
	assert.Zero(t, c.size())
}

func TestCacheKey(t *testing.T) {
	a := cacheKey(Request{System: "ab", Prompt: "c"})
	b := cacheKey(Request{System: "a", Prompt: "bc"})
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, cacheKey(Request{System: "ab", Prompt: "c"}))
}

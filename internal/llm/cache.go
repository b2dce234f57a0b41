package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"sync"
	"time"
)

const maxCacheEntries = 512

type cacheEntry struct {
	expiry time.Time
	reply  string
}

// cachingClient memoizes replies to identical requests for a fixed TTL.
type cachingClient struct {
	next    Client
	entries map[string]cacheEntry
	now     func() time.Time
	ttl     time.Duration
	mu      sync.Mutex
}

func newCachingClient(next Client, ttl time.Duration) *cachingClient {
	return &cachingClient{
		next:    next,
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *cachingClient) Complete(ctx context.Context, req Request) (string, error) {
	key := cacheKey(req)
	if reply, ok := c.get(key); ok {
		return reply, nil
	}

	reply, err := c.next.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	c.set(key, reply)
	return reply, nil
}

func (c *cachingClient) get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if c.now().After(entry.expiry) {
		delete(c.entries, key)
		return "", false
	}
	return entry.reply, true
}

func (c *cachingClient) set(key, reply string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if len(c.entries) >= maxCacheEntries {
		for k, e := range c.entries {
			if now.After(e.expiry) {
				delete(c.entries, k)
			}
		}
	}
	if len(c.entries) >= maxCacheEntries {
		return
	}
	c.entries[key] = cacheEntry{reply: reply, expiry: now.Add(c.ttl)}
}

func (c *cachingClient) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func cacheKey(req Request) string {
	h := sha256.New()
	h.Write([]byte(req.System))
	h.Write([]byte{0})
	h.Write([]byte(req.Prompt))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(req.MaxTokens)))
	return hex.EncodeToString(h.Sum(nil))
}

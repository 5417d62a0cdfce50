// Package ai provides completion wrappers and response utilities shared by
// all model-backed tasks.
package ai

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	obsctx "github.com/fairyhunter13/ai-interview-coach/internal/observability"
)

type cacheEntry struct {
	text     string
	storedAt time.Time
}

// ResponseCache holds completion texts for a fixed TTL. Eviction is FIFO
// by insertion: once capacity is reached the oldest inserted entry is
// dropped, however recently it was read. Safe for concurrent use.
type ResponseCache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	now      func() time.Time
	m        map[string]cacheEntry
	ord      []string
}

// NewResponseCache creates a cache of the given capacity and TTL.
func NewResponseCache(capacity int, ttl time.Duration) *ResponseCache {
	return &ResponseCache{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		m:        make(map[string]cacheEntry, capacity),
		ord:      make([]string, 0, capacity),
	}
}

// Get returns a live entry. Expired entries are removed on access.
func (c *ResponseCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[key]
	if !ok {
		return "", false
	}
	if c.now().Sub(e.storedAt) > c.ttl {
		c.remove(key)
		return "", false
	}
	return e.text, true
}

// Put stores text under key. Overwriting keeps the key's insertion slot.
func (c *ResponseCache) Put(key, text string) {
	if c.capacity <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.m[key]; exists {
		c.m[key] = cacheEntry{text: text, storedAt: c.now()}
		return
	}
	if len(c.ord) >= c.capacity {
		oldest := c.ord[0]
		c.ord = c.ord[1:]
		delete(c.m, oldest)
	}
	c.m[key] = cacheEntry{text: text, storedAt: c.now()}
	c.ord = append(c.ord, key)
}

// Len reports the number of stored entries, expired ones included.
func (c *ResponseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}

func (c *ResponseCache) remove(key string) {
	delete(c.m, key)
	for i, k := range c.ord {
		if k == key {
			c.ord = append(c.ord[:i], c.ord[i+1:]...)
			return
		}
	}
}

// KeyFor derives the cache key from the exact request tuple.
func KeyFor(req domain.CompletionRequest) string {
	b, _ := json.Marshal(struct {
		Messages    []domain.Message `json:"m"`
		Temperature float64          `json:"t"`
		MaxTokens   int              `json:"n"`
	}{req.Messages, req.Temperature, req.MaxTokens})
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

type cachedCompleter struct {
	base  domain.Completer
	cache *ResponseCache
}

// NewCachedCompleter wraps base so identical requests within the cache TTL
// are answered without a network call. Only successful texts are cached.
// If cache is nil, base is returned unmodified.
func NewCachedCompleter(base domain.Completer, cache *ResponseCache) domain.Completer {
	if cache == nil || base == nil {
		return base
	}
	return &cachedCompleter{base: base, cache: cache}
}

func (c *cachedCompleter) Complete(ctx domain.Context, req domain.CompletionRequest) (string, error) {
	key := KeyFor(req)
	if text, ok := c.cache.Get(key); ok {
		observability.CacheLookup(true)
		obsctx.LoggerFromContext(ctx).Debug("completion cache hit", slog.String("key", key[:12]))
		return text, nil
	}
	observability.CacheLookup(false)
	text, err := c.base.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	c.cache.Put(key, text)
	return text, nil
}

package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

type countingCompleter struct {
	calls int
	err   error
}

func (c *countingCompleter) Complete(_ domain.Context, req domain.CompletionRequest) (string, error) {
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	return fmt.Sprintf("reply-%d-%s", c.calls, req.Messages[len(req.Messages)-1].Content), nil
}

func req(content string, temp float64, maxTokens int) domain.CompletionRequest {
	return domain.CompletionRequest{
		Messages:    []domain.Message{{Role: "system", Content: "sys"}, {Role: "user", Content: content}},
		Temperature: temp,
		MaxTokens:   maxTokens,
	}
}

func TestCachedCompleter_SecondIdenticalCallIsCached(t *testing.T) {
	base := &countingCompleter{}
	c := NewCachedCompleter(base, NewResponseCache(50, 5*time.Minute))
	ctx := context.Background()

	first, err := c.Complete(ctx, req("hi", 0.3, 800))
	require.NoError(t, err)
	second, err := c.Complete(ctx, req("hi", 0.3, 800))
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, base.calls)
}

func TestCachedCompleter_KeyCoversWholeTuple(t *testing.T) {
	base := &countingCompleter{}
	c := NewCachedCompleter(base, NewResponseCache(50, 5*time.Minute))
	ctx := context.Background()
	for _, r := range []domain.CompletionRequest{
		req("hi", 0.3, 800),
		req("hi", 0.7, 800),
		req("hi", 0.3, 500),
		req("hello", 0.3, 800),
	} {
		_, err := c.Complete(ctx, r)
		require.NoError(t, err)
	}
	assert.Equal(t, 4, base.calls)
}

func TestCachedCompleter_ErrorsNotCached(t *testing.T) {
	base := &countingCompleter{err: errors.New("boom")}
	c := NewCachedCompleter(base, NewResponseCache(50, 5*time.Minute))
	_, err := c.Complete(context.Background(), req("hi", 0.3, 800))
	require.Error(t, err)
	base.err = nil
	_, err = c.Complete(context.Background(), req("hi", 0.3, 800))
	require.NoError(t, err)
	assert.Equal(t, 2, base.calls)
}

func TestNewCachedCompleter_NilCachePassthrough(t *testing.T) {
	base := &countingCompleter{}
	assert.Same(t, domain.Completer(base), NewCachedCompleter(base, nil))
}

func TestResponseCache_TTL(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewResponseCache(50, 5*time.Minute)
	c.now = func() time.Time { return now }
	c.Put("k", "v")

	now = now.Add(5 * time.Minute)
	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	now = now.Add(time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestResponseCache_FIFOEviction(t *testing.T) {
	c := NewResponseCache(3, time.Hour)
	c.Put("a", "1")
	c.Put("b", "2")
	c.Put("c", "3")
	// Reading "a" does not protect it: eviction is by insertion order.
	_, ok := c.Get("a")
	require.True(t, ok)
	c.Put("d", "4")

	_, ok = c.Get("a")
	assert.False(t, ok)
	for _, k := range []string{"b", "c", "d"} {
		_, ok := c.Get(k)
		assert.True(t, ok, k)
	}
	assert.Equal(t, 3, c.Len())
}

func TestResponseCache_CapacityNeverExceeded(t *testing.T) {
	c := NewResponseCache(50, time.Hour)
	for i := 0; i < 120; i++ {
		c.Put(fmt.Sprintf("k%d", i), "v")
		assert.LessOrEqual(t, c.Len(), 50)
	}
	_, ok := c.Get("k69")
	assert.False(t, ok)
	_, ok = c.Get("k70")
	assert.True(t, ok)
}

func TestResponseCache_OverwriteKeepsSlot(t *testing.T) {
	c := NewResponseCache(2, time.Hour)
	c.Put("a", "1")
	c.Put("b", "2")
	c.Put("a", "1b")
	c.Put("c", "3")
	_, ok := c.Get("a")
	assert.False(t, ok)
	v, ok := c.Get("b")
	assert.True(t, ok)
	assert.Equal(t, "2", v)
}

func TestKeyFor_Stable(t *testing.T) {
	assert.Equal(t, KeyFor(req("x", 0.3, 10)), KeyFor(req("x", 0.3, 10)))
	assert.NotEqual(t, KeyFor(req("x", 0.3, 10)), KeyFor(req("x", 0.30001, 10)))
}

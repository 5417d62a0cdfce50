package ratelimiter

import (
	"log/slog"
	"time"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	obsctx "github.com/fairyhunter13/ai-interview-coach/internal/observability"
)

// CompletionKey is the bucket shared by all completion calls.
const CompletionKey = "completion"

const minWait = 10 * time.Millisecond

type limitedCompleter struct {
	base    domain.Completer
	limiter Limiter
	key     string
}

// NewLimitedCompleter wraps base so each completion first takes a token from
// key's bucket, waiting for a refill when the bucket is empty. Limiter
// errors let the call through.
func NewLimitedCompleter(base domain.Completer, l Limiter, key string) domain.Completer {
	if l == nil || base == nil {
		return base
	}
	return &limitedCompleter{base: base, limiter: l, key: key}
}

func (c *limitedCompleter) Complete(ctx domain.Context, req domain.CompletionRequest) (string, error) {
	for {
		allowed, wait, err := c.limiter.Allow(ctx, c.key, 1)
		if err != nil {
			obsctx.LoggerFromContext(ctx).Warn("rate limiter unavailable", slog.Any("error", err))
			break
		}
		if allowed {
			break
		}
		if wait < minWait {
			wait = minWait
		}
		obsctx.LoggerFromContext(ctx).Debug("completion throttled", slog.Duration("wait", wait))
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return "", ctx.Err()
		case <-t.C:
		}
	}
	return c.base.Complete(ctx, req)
}

package config

import (
	"time"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// GetRetryPolicy returns the completion retry schedule. In test
// environments the waits are shortened so suites stay fast.
func (c Config) GetRetryPolicy() domain.RetryPolicy {
	p := domain.RetryPolicy{
		Attempts:       c.LLMMaxRetries,
		InitialDelay:   c.LLMBackoffInitial,
		Multiplier:     c.LLMBackoffMultiple,
		AttemptTimeout: c.LLMTimeout,
	}
	if p.Multiplier <= 0 {
		p.Multiplier = 2
	}
	if c.IsTest() {
		p.InitialDelay = 10 * time.Millisecond
		p.AttemptTimeout = 2 * time.Second
	}
	return p
}

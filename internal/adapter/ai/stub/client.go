// Package stub provides a deterministic, scripted completer for tests and
// offline development.
package stub

import (
	"errors"
	"strings"
	"sync"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// Reply is one scripted answer: Text on success, or Err.
type Reply struct {
	Text string
	Err  error
}

// Rule answers any request with a message containing Match.
type Rule struct {
	Match string
	Reply Reply
}

// Completer replays scripted replies. Queued replies are consumed first in
// order; then Func, when set; then the first matching rule; otherwise
// Default.
type Completer struct {
	mu       sync.Mutex
	queue    []Reply
	rules    []Rule
	Func     func(domain.CompletionRequest) Reply
	Default  Reply
	requests []domain.CompletionRequest
}

// ErrNoScript is returned when nothing is scripted for a request.
var ErrNoScript = errors.New("stub: no scripted reply")

// New creates a completer answering every unmatched request with ErrNoScript.
func New() *Completer {
	return &Completer{Default: Reply{Err: ErrNoScript}}
}

// Enqueue appends one-shot replies.
func (c *Completer) Enqueue(replies ...Reply) *Completer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue = append(c.queue, replies...)
	return c
}

// EnqueueText appends one-shot successful replies.
func (c *Completer) EnqueueText(texts ...string) *Completer {
	for _, t := range texts {
		c.Enqueue(Reply{Text: t})
	}
	return c
}

// On registers a standing rule.
func (c *Completer) On(match string, r Reply) *Completer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rules = append(c.rules, Rule{Match: match, Reply: r})
	return c
}

// Complete implements domain.Completer.
func (c *Completer) Complete(_ domain.Context, req domain.CompletionRequest) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	if len(c.queue) > 0 {
		r := c.queue[0]
		c.queue = c.queue[1:]
		return r.Text, r.Err
	}
	if c.Func != nil {
		r := c.Func(req)
		return r.Text, r.Err
	}
	for _, rule := range c.rules {
		for _, m := range req.Messages {
			if strings.Contains(m.Content, rule.Match) {
				return rule.Reply.Text, rule.Reply.Err
			}
		}
	}
	return c.Default.Text, c.Default.Err
}

// Requests returns every request seen so far.
func (c *Completer) Requests() []domain.CompletionRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.CompletionRequest(nil), c.requests...)
}

// Calls is the number of requests seen so far.
func (c *Completer) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

// LastUserMessage returns the user content of the latest request.
func (c *Completer) LastUserMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.requests) == 0 {
		return ""
	}
	return lastUser(c.requests[len(c.requests)-1].Messages)
}

func lastUser(msgs []domain.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == "user" {
			return msgs[i].Content
		}
	}
	return ""
}

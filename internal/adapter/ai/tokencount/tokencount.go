// Package tokencount estimates prompt sizes for chat completion requests.
//
// Encodings come from tiktoken-go with its offline BPE loader, so counting
// never touches the network. Models without a tiktoken mapping (DeepSeek
// among them) are counted with cl100k_base, which is close enough for the
// prompt-size histogram.
package tokencount

import (
	"log/slog"
	"strings"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

const fallbackEncoding = "cl100k_base"

// Counter provides thread-safe token counting with per-model encoding cache.
type Counter struct {
	mu            sync.RWMutex
	encodingCache map[string]*tiktoken.Tiktoken
}

// NewCounter creates a new token counter instance.
func NewCounter() *Counter {
	return &Counter{encodingCache: make(map[string]*tiktoken.Tiktoken)}
}

// DefaultCounter is a global token counter instance.
var DefaultCounter = NewCounter()

func (c *Counter) encodingFor(model string) (*tiktoken.Tiktoken, error) {
	model = strings.ToLower(strings.TrimSpace(model))

	c.mu.RLock()
	enc, ok := c.encodingCache[model]
	c.mu.RUnlock()
	if ok {
		return enc, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if enc, ok := c.encodingCache[model]; ok {
		return enc, nil
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		slog.Debug("no tiktoken mapping for model, using fallback encoding",
			slog.String("model", model),
			slog.String("encoding", fallbackEncoding))
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return nil, err
		}
	}
	c.encodingCache[model] = enc
	return enc, nil
}

// CountTokens counts the tokens of text under model's encoding.
func (c *Counter) CountTokens(text, model string) (int, error) {
	enc, err := c.encodingFor(model)
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}

// CountMessages counts a chat request the way OpenAI-compatible APIs bill
// it: 3 tokens of framing per message plus role and content, and 3 tokens
// priming the assistant reply.
func (c *Counter) CountMessages(msgs []domain.Message, model string) (int, error) {
	enc, err := c.encodingFor(model)
	if err != nil {
		return 0, err
	}
	const perMessage = 3
	n := 3
	for _, m := range msgs {
		n += perMessage
		n += len(enc.Encode(m.Role, nil, nil))
		n += len(enc.Encode(m.Content, nil, nil))
	}
	return n, nil
}

// Estimate counts msgs and falls back to ~4 bytes per token when no
// encoding is available.
func (c *Counter) Estimate(msgs []domain.Message, model string) int {
	n, err := c.CountMessages(msgs, model)
	if err == nil {
		return n
	}
	slog.Warn("token count failed, using estimate", slog.String("model", model), slog.Any("error", err))
	total := 0
	for _, m := range msgs {
		total += len(m.Role) + len(m.Content)
	}
	return total / 4
}

// Package real implements the completion client for an OpenAI-compatible
// chat completions API (DeepSeek by default).
package real

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/ai/tokencount"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-coach/internal/config"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	obsctx "github.com/fairyhunter13/ai-interview-coach/internal/observability"
)

const provider = "deepseek"

// Client implements domain.Completer. Credentials are resolved on every
// call, so a key saved through the settings API takes effect immediately.
type Client struct {
	creds   domain.CredentialSource
	model   string
	policy  domain.RetryPolicy
	hc      *http.Client
	counter *tokencount.Counter
	timer   backoff.Timer
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. Per-attempt timeouts are applied
// through the request context, not the client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// WithTimer replaces the timer used for waits between attempts.
func WithTimer(t backoff.Timer) Option {
	return func(c *Client) { c.timer = t }
}

// WithRetryPolicy overrides the retry schedule taken from config.
func WithRetryPolicy(p domain.RetryPolicy) Option {
	return func(c *Client) { c.policy = p }
}

// New constructs a completion client.
func New(cfg config.Config, creds domain.CredentialSource, opts ...Option) *Client {
	c := &Client{
		creds:   creds,
		model:   cfg.LLMModel,
		policy:  cfg.GetRetryPolicy(),
		hc:      &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		counter: tokencount.DefaultCounter,
	}
	for _, o := range opts {
		o(c)
	}
	if c.policy.Attempts < 1 {
		c.policy.Attempts = 1
	}
	return c
}

type chatRequest struct {
	Model       string           `json:"model"`
	Messages    []domain.Message `json:"messages"`
	Temperature float64          `json:"temperature"`
	MaxTokens   int              `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = c.policy.InitialDelay
	expo.Multiplier = c.policy.Multiplier
	expo.RandomizationFactor = 0
	expo.MaxInterval = c.policy.Delay(c.policy.Attempts)
	expo.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(expo, uint64(c.policy.Attempts-1)), ctx)
}

// Complete sends one chat completion and returns the assistant text. Every
// failed attempt is retried on the policy schedule; the last attempt's
// error is returned as *domain.APIError or *domain.TransportError.
func (c *Client) Complete(ctx domain.Context, req domain.CompletionRequest) (string, error) {
	ctx, span := otel.Tracer("ai.real").Start(ctx, "completion.Complete")
	defer span.End()
	span.SetAttributes(
		attribute.String("ai.provider", provider),
		attribute.String("ai.model", c.model),
		attribute.Float64("ai.temperature", req.Temperature),
		attribute.Int("ai.max_tokens", req.MaxTokens),
	)
	lg := obsctx.LoggerFromContext(ctx)

	creds, err := c.creds.Credentials(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "credentials")
		return "", err
	}
	if strings.TrimSpace(creds.APIKey) == "" {
		observability.ObserveCompletion(provider, "not_configured", 0)
		span.SetStatus(codes.Error, "not configured")
		return "", fmt.Errorf("%w: api key is not set", domain.ErrNotConfigured)
	}
	endpoint := strings.TrimRight(creds.BaseURL, "/") + "/chat/completions"

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("op=completion.Complete: %w", err)
	}
	promptTokens := c.counter.Estimate(req.Messages, c.model)
	observability.AIPromptTokens.Observe(float64(promptTokens))

	var text string
	attempt := 0
	op := func() error {
		attempt++
		start := time.Now()
		out, err := c.attempt(ctx, endpoint, creds.APIKey, body)
		observability.ObserveCompletion(provider, outcomeOf(err), time.Since(start))
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		text = out
		return nil
	}
	notify := func(err error, wait time.Duration) {
		lg.Warn("completion attempt failed, retrying",
			slog.String("provider", provider),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", c.policy.Attempts),
			slog.Duration("wait", wait),
			slog.Any("error", err))
	}
	if err := backoff.RetryNotifyWithTimer(op, c.newBackOff(ctx), notify, c.timer); err != nil {
		lg.Error("completion failed",
			slog.String("provider", provider),
			slog.Int("attempts", attempt),
			slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		return "", err
	}
	lg.Debug("completion ok",
		slog.String("provider", provider),
		slog.Int("attempts", attempt),
		slog.Int("prompt_tokens", promptTokens),
		slog.Int("reply_bytes", len(text)))
	return text, nil
}

func (c *Client) attempt(ctx context.Context, endpoint, apiKey string, body []byte) (string, error) {
	actx, cancel := context.WithTimeout(ctx, c.policy.AttemptTimeout)
	defer cancel()

	r, err := http.NewRequestWithContext(actx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", backoff.Permanent(&domain.TransportError{Err: err})
	}
	r.Header.Set("Authorization", "Bearer "+apiKey)
	r.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(r)
	if err != nil {
		return "", &domain.TransportError{Err: err, Timeout: isTimeout(actx, err)}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", &domain.TransportError{Err: err, Timeout: isTimeout(actx, err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &domain.APIError{StatusCode: resp.StatusCode, Message: apiMessage(resp.StatusCode, raw)}
	}
	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", &domain.APIError{StatusCode: resp.StatusCode, Message: "malformed completion body: " + err.Error()}
	}
	if len(out.Choices) == 0 {
		return "", &domain.APIError{StatusCode: resp.StatusCode, Message: "completion returned no choices"}
	}
	return out.Choices[0].Message.Content, nil
}

func apiMessage(status int, raw []byte) string {
	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err == nil && eb.Error.Message != "" {
		return eb.Error.Message
	}
	snippet := strings.TrimSpace(string(raw))
	if len(snippet) > 256 {
		snippet = snippet[:256]
	}
	if snippet != "" {
		return snippet
	}
	return http.StatusText(status)
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func outcomeOf(err error) string {
	var apiErr *domain.APIError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &apiErr):
		return "api_error"
	case errors.Is(err, domain.ErrUpstreamTimeout):
		return "timeout"
	default:
		return "transport_error"
	}
}

// Package app wires configuration, storage, the completion client and the
// HTTP surface into a runnable handler.
package app

import (
	"log/slog"
	"net/http"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/ai"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/ai/real"
	httpserver "github.com/fairyhunter13/ai-interview-coach/internal/adapter/httpserver"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/textextractor/tika"
	"github.com/fairyhunter13/ai-interview-coach/internal/config"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	"github.com/fairyhunter13/ai-interview-coach/internal/service/ratelimiter"
	"github.com/fairyhunter13/ai-interview-coach/internal/usecase"
)

// App is the assembled service.
type App struct {
	Handler http.Handler
	Server  *httpserver.Server
}

// Build wires the services over stores. When llm is nil the DeepSeek client
// is used, reading credentials through the settings service.
func Build(cfg config.Config, stores Stores, llm domain.Completer) (*App, error) {
	positions, err := config.LoadPositionCatalog(cfg.PositionsFile)
	if err != nil {
		return nil, err
	}

	settings := usecase.NewSettingsService(stores.Settings, domain.Credentials{APIKey: cfg.LLMAPIKey, BaseURL: cfg.LLMBaseURL})
	base := llm
	if base == nil {
		client := real.New(cfg, settings)
		base = client
		if cfg.LLMRateLimitPerMin > 0 && stores.Redis != nil {
			lim := ratelimiter.NewRedisLuaLimiter(stores.Redis, cfg.RedisPrefix, map[string]ratelimiter.BucketConfig{
				ratelimiter.CompletionKey: ratelimiter.NewBucketConfigFromPerMinute(cfg.LLMRateLimitPerMin),
			})
			base = ratelimiter.NewLimitedCompleter(client, lim, ratelimiter.CompletionKey)
			slog.Info("completion rate limit enabled", slog.Int("per_minute", cfg.LLMRateLimitPerMin))
		}
	}
	// Connection tests must not be answered from the cache.
	settings.Probe = base

	var cache *ai.ResponseCache
	if cfg.LLMCacheSize > 0 {
		cache = ai.NewResponseCache(cfg.LLMCacheSize, cfg.LLMCacheTTL)
	}
	assistant := usecase.NewAssistant(ai.NewCachedCompleter(base, cache), positions)

	var (
		extractor domain.TextExtractor
		tikaPing  Pinger
	)
	if cfg.TikaURL != "" {
		tk := tika.New(cfg.TikaURL)
		extractor, tikaPing = tk, tk
	} else {
		slog.Warn("TIKA_URL not set; only .txt résumés can be uploaded")
	}

	resumes := usecase.NewResumeService(stores.Resumes, extractor, assistant)
	interviews := usecase.NewInterviewService(stores.Interviews, stores.Resumes, assistant, cfg.MinAnswerLength)
	storeCheck, tikaCheck := BuildReadinessChecks(stores.Ping, tikaPing)

	srv := httpserver.NewServer(cfg, resumes, interviews, settings, assistant, storeCheck, tikaCheck)
	return &App{Handler: BuildRouter(cfg, srv), Server: srv}, nil
}

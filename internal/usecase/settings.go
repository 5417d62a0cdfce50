package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// Settings is the public view of the completion settings; the key itself
// is never echoed back.
type Settings struct {
	Configured bool   `json:"configured"`
	BaseURL    string `json:"base_url"`
	Source     string `json:"source"`
}

// ConnectionResult reports a connection test.
type ConnectionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// SettingsService stores runtime completion credentials and resolves them
// for the completion client. Stored values override the environment.
type SettingsService struct {
	Repo     domain.SettingsRepository
	Defaults domain.Credentials
	// Probe is used for connection tests. It must not be cached, so each
	// test reaches the endpoint with the current credentials.
	Probe domain.Completer
}

// NewSettingsService constructs a SettingsService.
func NewSettingsService(repo domain.SettingsRepository, defaults domain.Credentials) SettingsService {
	return SettingsService{Repo: repo, Defaults: defaults}
}

// Credentials implements domain.CredentialSource.
func (s SettingsService) Credentials(ctx context.Context) (domain.Credentials, error) {
	creds := s.Defaults
	key, err := s.lookup(ctx, domain.SettingAPIKey)
	if err != nil {
		return domain.Credentials{}, err
	}
	if key != "" {
		creds.APIKey = key
	}
	base, err := s.lookup(ctx, domain.SettingBaseURL)
	if err != nil {
		return domain.Credentials{}, err
	}
	if base != "" {
		creds.BaseURL = base
	}
	return creds, nil
}

func (s SettingsService) lookup(ctx context.Context, key string) (string, error) {
	v, err := s.Repo.GetSetting(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("op=settings.Credentials: %w", err)
	}
	return strings.TrimSpace(v), nil
}

// Update stores the key and base URL. An empty base URL leaves the stored
// one unchanged; the URL must be absolute http(s).
func (s SettingsService) Update(ctx context.Context, apiKey, baseURL string) (Settings, error) {
	apiKey = strings.TrimSpace(apiKey)
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if apiKey == "" {
		return Settings{}, fmt.Errorf("%w: api key required", domain.ErrInvalidArgument)
	}
	if baseURL != "" && !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return Settings{}, fmt.Errorf("%w: base url must start with http:// or https://", domain.ErrInvalidArgument)
	}
	if err := s.Repo.PutSetting(ctx, domain.SettingAPIKey, apiKey); err != nil {
		return Settings{}, fmt.Errorf("op=settings.Update: %w", err)
	}
	if baseURL != "" {
		if err := s.Repo.PutSetting(ctx, domain.SettingBaseURL, baseURL); err != nil {
			return Settings{}, fmt.Errorf("op=settings.Update: %w", err)
		}
	}
	return s.Get(ctx)
}

// Get reports whether a key is configured and which base URL is in use.
func (s SettingsService) Get(ctx context.Context) (Settings, error) {
	stored, err := s.lookup(ctx, domain.SettingAPIKey)
	if err != nil {
		return Settings{}, err
	}
	creds, err := s.Credentials(ctx)
	if err != nil {
		return Settings{}, err
	}
	out := Settings{Configured: creds.APIKey != "", BaseURL: creds.BaseURL, Source: "none"}
	switch {
	case stored != "":
		out.Source = "settings"
	case s.Defaults.APIKey != "":
		out.Source = "environment"
	}
	return out, nil
}

// TestConnection sends a one-line greeting and reports the outcome.
func (s SettingsService) TestConnection(ctx context.Context) ConnectionResult {
	_, err := s.Probe.Complete(ctx, domain.CompletionRequest{
		Messages:    []domain.Message{{Role: "user", Content: "Hello"}},
		Temperature: 0.7,
		MaxTokens:   50,
	})
	if err != nil {
		return ConnectionResult{Success: false, Message: err.Error()}
	}
	return ConnectionResult{Success: true, Message: "API connection succeeded"}
}

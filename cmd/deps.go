package cmd

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/job-alert/internal/agent"
	"github.com/spigell/job-alert/internal/ai"
	"github.com/spigell/job-alert/internal/ai/gemini"
	"github.com/spigell/job-alert/internal/ai/groq"
	"github.com/spigell/job-alert/internal/cache"
	"github.com/spigell/job-alert/internal/logger"
	"github.com/spigell/job-alert/internal/notify"
	"github.com/spigell/job-alert/internal/runner"
	"github.com/spigell/job-alert/internal/secrets"
	"github.com/spigell/job-alert/internal/sources"
)

func provider(cfg *LLMConfig) string {
	p := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if p == "" {
		return agent.ProviderGroq
	}
	return p
}

var apiKeyEnv = map[string]string{
	agent.ProviderGroq:   "GROQ_API_KEY",
	agent.ProviderGemini: "GEMINI_API_KEY",
}

// resolveAPIKey reads the key of the selected provider: key file first, then the provider
// environment variable, then the inline value.
func resolveAPIKey(cfg *LLMConfig) (string, error) {
	p := provider(cfg)
	return secrets.Load(secrets.Source{
		Name:  p + " api key",
		File:  cfg.APIKeyFile,
		Env:   apiKeyEnv[p],
		Value: cfg.APIKey,
	})
}

func resolveSMTPPassword(cfg *SMTPConfig) string {
	password, err := secrets.Load(secrets.Source{
		Name:  "smtp password",
		File:  cfg.PasswordFile,
		Env:   "EMAIL_PASS",
		Value: cfg.Password,
	})
	if err != nil {
		return ""
	}
	return password
}

// validateSettings is fatal for a run before anything is fetched.
func validateSettings(config *Config, dryRun, requireRecipient bool) error {
	apiKey, _ := resolveAPIKey(config.LLM)
	return agent.ValidateSettings(agent.Settings{
		Provider:     config.LLM.Provider,
		APIKey:       apiKey,
		SMTPUser:     config.SMTP.User,
		SMTPPassword: resolveSMTPPassword(config.SMTP),
		Recipient:    config.SMTP.To,
	}, dryRun, requireRecipient)
}

func newGenerator(ctx context.Context, cfg *LLMConfig, log *zap.Logger) (ai.Generator, error) {
	apiKey, err := resolveAPIKey(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w (set llm.api-key-file, llm.api-key or the provider env variable)", err)
	}

	switch p := provider(cfg); p {
	case agent.ProviderGroq:
		return groq.NewClient(groq.Config{
			APIKey:  apiKey,
			URL:     cfg.APIURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		})
	case agent.ProviderGemini:
		genLogger := logger.WithCommonFields(log, gemini.Provider, cfg.Model).
			With(zap.Int("ai_retry_attempts", cfg.MaxRetries))
		return gemini.NewGenerator(ctx, gemini.Config{
			APIKey:     apiKey,
			Model:      cfg.Model,
			MaxRetries: cfg.MaxRetries,
		}, genLogger)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}

func newShortlister(ctx context.Context, cfg *LLMConfig, log *zap.Logger) (*ai.Shortlister, error) {
	generator, err := newGenerator(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	aiLogger := logger.WithCommonFields(log, provider(cfg), generator.Model())
	return ai.NewShortlister(generator, aiLogger, cfg.MaxLogLength), nil
}

// senderFactory builds SMTP senders sharing the account settings. An empty recipient falls back
// to smtp.to.
func senderFactory(cfg *SMTPConfig) runner.SenderFactory {
	return func(to string) (notify.Sender, error) {
		return notify.NewSMTP(notify.SMTPConfig{
			Host:     cfg.Host,
			Port:     cfg.Port,
			User:     cfg.User,
			Password: resolveSMTPPassword(cfg),
			To:       firstNonEmpty(to, cfg.To),
		})
	}
}

func sourcesConfig(cfg *SourcesConfig) sources.Config {
	return sources.Config{
		RemoteOKURL:         cfg.RemoteOKURL,
		RemotiveURL:         cfg.RemotiveURL,
		Timeout:             cfg.Timeout,
		CompaniesFile:       cfg.CompaniesFile,
		ValidationCacheFile: cfg.ValidationCacheFile,
	}
}

// newFetcher returns the source fetcher, shared through redis when storage.redis-url is set.
// The returned func releases the redis connection.
func newFetcher(ctx context.Context, config *Config, log *zap.Logger) (agent.Fetcher, func()) {
	fetcher := sources.NewFetcher(sourcesConfig(config.Sources), log)

	redisURL := strings.TrimSpace(config.Storage.RedisURL)
	if redisURL == "" {
		return fetcher, func() {}
	}

	rdb, err := cache.New(ctx, redisURL, config.Storage.CacheTTL, log)
	if err != nil {
		log.Warn("redis is not available, fetching without the shared cache", zap.Error(err))
		return fetcher, func() {}
	}
	return rdb.Wrap(fetcher), func() {
		if err := rdb.Close(); err != nil {
			log.Warn("closing redis", zap.Error(err))
		}
	}
}

func pipelineOptions(cfg *PipelineConfig) agent.Options {
	return agent.Options{
		MaxPerCompany:  cfg.MaxPerCompany,
		GroupThreshold: cfg.GroupThreshold,
		CarryoverDays:  cfg.CarryoverDays,
		CarryoverCap:   cfg.CarryoverCap,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

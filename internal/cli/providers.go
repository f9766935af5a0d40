package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/eshaffer321/receipt-reconciler/internal/adapters/currency"
	"github.com/eshaffer321/receipt-reconciler/internal/adapters/llm"
	"github.com/eshaffer321/receipt-reconciler/internal/application/service"
	"github.com/eshaffer321/receipt-reconciler/internal/domain/advisor"
	"github.com/eshaffer321/receipt-reconciler/internal/domain/reconciler"
	"github.com/eshaffer321/receipt-reconciler/internal/infrastructure/config"
	"github.com/eshaffer321/receipt-reconciler/internal/infrastructure/storage"
)

// NewEngine creates the reconciliation engine from matching config. An
// unknown mode is an error.
func NewEngine(cfg *config.Config, logger *slog.Logger) (*reconciler.Engine, error) {
	mode, err := reconciler.ParseMatchMode(cfg.Matching.Mode)
	if err != nil {
		return nil, fmt.Errorf("invalid matching config: %w", err)
	}
	return reconciler.NewEngine(reconciler.Config{
		NameThreshold: cfg.Matching.NameThreshold,
		DateThreshold: cfg.Matching.DateThreshold,
		Mode:          mode,
	}, logger.With("system", "engine")), nil
}

// NewAdvisor creates the recommendation advisor. Without an API key the
// advisor has no client and only answers the all-clear case. The returned
// close func releases the provider client.
func NewAdvisor(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*advisor.Advisor, func(), error) {
	logger = logger.With("system", "advisor")
	advCfg := advisor.Config{
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
	}

	envKey := "OPENAI_API_KEY"
	if cfg.LLM.Provider == llm.ProviderGemini {
		envKey = "GEMINI_API_KEY"
	}
	apiKey := cfg.GetAPIKey(cfg.LLM.APIKey, envKey)
	if apiKey == "" {
		logger.Debug("no API key configured, recommendations disabled", "provider", cfg.LLM.Provider)
		return advisor.New(nil, advCfg, logger), func() {}, nil
	}

	client, err := llm.New(ctx, llm.Config{
		Provider:    cfg.LLM.Provider,
		APIKey:      apiKey,
		Model:       cfg.LLM.Model,
		BaseURL:     cfg.LLM.BaseURL,
		Temperature: cfg.LLM.Temperature,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create %s client: %w", cfg.LLM.Provider, err)
	}

	closeFn := func() {}
	if c, ok := client.(io.Closer); ok {
		closeFn = func() { _ = c.Close() }
	}
	return advisor.New(client, advCfg, logger).WithCache(advisor.NewMemoryCache()), closeFn, nil
}

// NewConverter creates the exchange-rate client
func NewConverter(cfg *config.Config, logger *slog.Logger) *currency.Client {
	return currency.NewClient(currency.Config{
		BaseURL:   cfg.Currency.BaseURL,
		AccessKey: cfg.GetAPIKey(cfg.Currency.AccessKey, "EXCHANGE_RATE_KEY"),
		Timeout:   15 * time.Second,
		RetryMax:  cfg.Currency.RetryMax,
	}, logger.With("system", "currency"))
}

// NewSessionService wires the session service over an open store
func NewSessionService(ctx context.Context, cfg *config.Config, store storage.Repository, logger *slog.Logger) (*service.SessionService, func(), error) {
	engine, err := NewEngine(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	adv, closeAdvisor, err := NewAdvisor(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	svc := service.NewSessionService(store, engine, adv, logger.With("system", "session")).
		WithConverter(NewConverter(cfg, logger)).
		WithProvider(cfg.LLM.Provider)

	return svc, closeAdvisor, nil
}

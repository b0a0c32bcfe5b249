package main

import (
	"context"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/brandlens/brandlens-cli/internal/analysis"
	"github.com/brandlens/brandlens-cli/internal/model"
	"github.com/brandlens/brandlens-cli/internal/provider"
	"github.com/brandlens/brandlens-cli/internal/resilience"
	"github.com/brandlens/brandlens-cli/internal/store"
	anthropicpkg "github.com/brandlens/brandlens-cli/pkg/anthropic"
	"github.com/brandlens/brandlens-cli/pkg/chatapi"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "brandlens.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// buildRunConfig assembles a validated run configuration from file/env
// config. Generation goes to the chat API when one is configured, to
// Anthropic otherwise; analysis always runs on Anthropic.
func buildRunConfig() (*model.RunConfiguration, error) {
	generationModel := cfg.Anthropic.SonnetModel
	if cfg.ChatAPI.Key != "" {
		generationModel = cfg.ChatAPI.Model
	}

	return model.NewRunConfiguration(model.RunConfigurationParams{
		TargetBrands:     cfg.Brands.Targets,
		CompetitorBrands: cfg.Brands.Competitors,
		PriorityDomains:  cfg.Brands.PriorityDomains,
		GenerationModel:  generationModel,
		AnalysisModel:    cfg.Anthropic.HaikuModel,
		Locale:           cfg.Analysis.Locale,
		Concurrency:      cfg.Analysis.Concurrency,
		MaxRetries:       cfg.Analysis.MaxRetries,
		CallTimeout:      cfg.Analysis.CallTimeout(),
		CacheEnabled:     cfg.Cache.Enabled,
		CacheTTL:         cfg.Cache.TTL(),
	})
}

// buildEngine wires provider clients, shared guards, and the response cache
// into an analysis engine.
func buildEngine(st store.Store) (*analysis.Engine, error) {
	if cfg.Anthropic.Key == "" {
		return nil, eris.New("anthropic API key is required (BRANDLENS_ANTHROPIC_KEY)")
	}

	opts := []provider.Option{
		provider.WithCircuitBreaker(resilience.NewCircuitBreaker(5, 0)),
	}
	if cfg.Analysis.RateLimitRPS > 0 {
		opts = append(opts, provider.WithRateLimiter(
			rate.NewLimiter(rate.Limit(cfg.Analysis.RateLimitRPS), 1)))
	}

	anthropicClient := provider.NewAnthropic(anthropicpkg.NewClient(cfg.Anthropic.Key), opts...)

	generation := anthropicClient
	if cfg.ChatAPI.Key != "" {
		generation = provider.NewChatCompletion("chatapi",
			chatapi.NewClient(cfg.ChatAPI.Key, cfg.ChatAPI.BaseURL), opts...)
	}

	var cache analysis.Cache
	if cfg.Cache.Enabled {
		cache = st
	}

	return analysis.NewEngine(analysis.NewAnalyzer(generation, anthropicClient, cache)), nil
}

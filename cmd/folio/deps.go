package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	folio "github.com/rindra/folio"
	"github.com/rindra/folio/internal/config"
	"github.com/rindra/folio/observer"
	"github.com/rindra/folio/provider/openaicompat"
	"github.com/rindra/folio/store/postgres"
	"github.com/rindra/folio/store/sqlite"
)

// mustLoadConfig loads and validates configuration, exits on error.
func mustLoadConfig() config.Config {
	cfg := config.Load(configPath)
	if err := cfg.Validate(); err != nil {
		exitWithError(ExitConfigError, "invalid config: %v", err)
	}
	return cfg
}

// mustOpenStore builds the configured store backend and initializes its
// schema. The caller is responsible for calling Close() on the returned store.
func mustOpenStore(ctx context.Context, cfg config.Config) folio.Store {
	var store folio.Store
	switch cfg.Store.Backend {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Store.PostgresURL)
		if err != nil {
			exitWithError(ExitConfigError, "connecting to postgres: %v", err)
		}
		store = postgres.New(pool, postgres.WithEmbeddingDimension(cfg.Embedding.Dimensions))
	default:
		store = sqlite.New(cfg.Store.Path)
	}
	if err := store.Init(ctx); err != nil {
		exitWithError(ExitError, "initializing store: %v", err)
	}
	return store
}

// buildProviders constructs the chat and embedding providers with retry
// middleware, wrapped with OTEL instrumentation when the observer is enabled.
// The returned shutdown function flushes telemetry and must be called on exit.
func buildProviders(ctx context.Context, cfg config.Config) (folio.Provider, folio.EmbeddingProvider, func(context.Context) error) {
	provider := folio.Provider(openaicompat.NewProvider(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.BaseURL))
	embedding := folio.EmbeddingProvider(openaicompat.NewEmbedding(
		cfg.Embedding.APIKey, cfg.Embedding.Model, cfg.Embedding.BaseURL,
		openaicompat.WithDimensions(cfg.Embedding.Dimensions),
	))

	shutdown := func(context.Context) error { return nil }
	if cfg.Observer.Enabled {
		pricing := make(map[string]observer.ModelPricing, len(cfg.Observer.Pricing))
		for model, p := range cfg.Observer.Pricing {
			pricing[model] = observer.ModelPricing{InputPerMillion: p.Input, OutputPerMillion: p.Output}
		}
		inst, stop, err := observer.Init(ctx, pricing)
		if err != nil {
			exitWithError(ExitError, "initializing observer: %v", err)
		}
		provider = observer.WrapProvider(provider, cfg.LLM.Model, inst)
		embedding = observer.WrapEmbedding(embedding, cfg.Embedding.Model, inst)
		shutdown = stop
	}

	provider = folio.WithRetry(provider)
	embedding = folio.WithEmbeddingRetry(embedding)
	return provider, embedding, shutdown
}

// outputJSON writes v as indented JSON to stdout, exits on encoding failure.
func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		exitWithError(ExitError, "encoding JSON: %v", err)
	}
}

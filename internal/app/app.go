// Package app assembles the configured backends into a running service.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/paarshan4800/fin-advisor/internal/cache"
	cachedynamo "github.com/paarshan4800/fin-advisor/internal/cache/dynamo"
	cachegcs "github.com/paarshan4800/fin-advisor/internal/cache/gcs"
	cachemem "github.com/paarshan4800/fin-advisor/internal/cache/memory"
	cacheredis "github.com/paarshan4800/fin-advisor/internal/cache/redis"
	"github.com/paarshan4800/fin-advisor/internal/config"
	"github.com/paarshan4800/fin-advisor/internal/ledger"
	ledgerbq "github.com/paarshan4800/fin-advisor/internal/ledger/bigquery"
	ledgermem "github.com/paarshan4800/fin-advisor/internal/ledger/memory"
	ledgermongo "github.com/paarshan4800/fin-advisor/internal/ledger/mongo"
	"github.com/paarshan4800/fin-advisor/internal/llm"
	"github.com/paarshan4800/fin-advisor/internal/pipeline"
	"github.com/paarshan4800/fin-advisor/internal/seed"
	"github.com/paarshan4800/fin-advisor/internal/session"
)

// App holds the shared collaborators of the API server and the CLI.
type App struct {
	Config       config.Config
	LLM          llm.Provider
	Ledger       ledger.Store
	Cache        cache.Store
	Sessions     *session.Memory
	Orchestrator *pipeline.Orchestrator
	Log          zerolog.Logger
}

// New connects every backend named by cfg. A nil provider is replaced by a
// Gemini client. On error everything opened so far is closed.
func New(ctx context.Context, cfg config.Config, provider llm.Provider, log zerolog.Logger) (*App, error) {
	a := &App{Config: cfg, LLM: provider, Log: log}

	if a.LLM == nil {
		g, err := llm.NewGemini(ctx, llm.Config{
			Model:    cfg.LLM.Model,
			APIKey:   cfg.LLM.APIKey,
			Project:  cfg.LLM.Project,
			Location: cfg.LLM.Location,
			VertexAI: cfg.LLM.VertexAI,
		})
		if err != nil {
			return nil, fmt.Errorf("New: %w", err)
		}
		a.LLM = g
	}

	var err error
	if a.Ledger, err = NewLedger(ctx, cfg.Ledger, log); err != nil {
		return nil, fmt.Errorf("New: %w", err)
	}
	if a.Cache, err = NewCache(ctx, cfg.Cache); err != nil {
		a.Ledger.Close()
		return nil, fmt.Errorf("New: %w", err)
	}

	a.Sessions = session.NewMemory(cfg.Agent.MemoryHistory)
	a.Orchestrator = pipeline.NewOrchestrator(pipeline.Deps{
		LLM:    a.LLM,
		Ledger: a.Ledger,
		Cache:  a.Cache,
		Memory: a.Sessions,
	}, PipelineOptions(cfg), log)

	log.Info().
		Str("ledger", cfg.Ledger.Backend).
		Str("cache", cfg.Cache.Backend).
		Str("namespace", cfg.Cache.Namespace).
		Msg("application initialized")
	return a, nil
}

// Close releases the ledger and cache connections.
func (a *App) Close() error {
	var errs []error
	if a.Cache != nil {
		errs = append(errs, a.Cache.Close())
	}
	if a.Ledger != nil {
		errs = append(errs, a.Ledger.Close())
	}
	return errors.Join(errs...)
}

// PipelineOptions maps the query and agent settings onto the pipeline.
func PipelineOptions(cfg config.Config) pipeline.Options {
	return pipeline.Options{
		MaxIterations: cfg.Agent.MaxIterations,
		MaxBuckets:    cfg.Agent.MaxBuckets,
		SampleSize:    cfg.Query.SampleSize,
		MaxCachedRows: cfg.Query.MaxCachedRows,
		FallbackRows:  cfg.Agent.FallbackRows,
		CacheTTL:      time.Duration(cfg.Cache.TTLSeconds) * time.Second,
	}
}

// NewLedger opens the configured ledger. The memory backend is filled with
// cfg.SeedSize generated transactions.
func NewLedger(ctx context.Context, cfg config.LedgerConfig, log zerolog.Logger) (ledger.Store, error) {
	switch cfg.Backend {
	case config.LedgerBigQuery:
		store, err := ledgerbq.NewStore(ctx, ledgerbq.Config{
			ProjectID: cfg.Project,
			Dataset:   cfg.Dataset,
			Table:     cfg.Table,
		})
		if err != nil {
			return nil, fmt.Errorf("NewLedger: %w", err)
		}
		return store, nil
	case config.LedgerMongo:
		store, err := ledgermongo.NewStore(ctx, ledgermongo.Config{
			URI:        cfg.Mongo.URI,
			Database:   cfg.Mongo.Database,
			Collection: cfg.Mongo.Collection,
		})
		if err != nil {
			return nil, fmt.Errorf("NewLedger: %w", err)
		}
		return store, nil
	case config.LedgerMemory:
		store := ledgermem.NewStore()
		if cfg.SeedSize <= 0 {
			return store, nil
		}
		gen := seed.DefaultConfig()
		gen.Transactions = cfg.SeedSize
		data := seed.NewGenerator(gen).Generate()
		if _, err := seed.NewLoader(store, 0, 0, log).Load(ctx, data.Transactions); err != nil {
			return nil, fmt.Errorf("NewLedger: seed: %w", err)
		}
		for _, u := range data.Users {
			log.Debug().Str("user_id", u.ID).Str("name", u.Name).Msg("seeded user")
		}
		return store, nil
	}
	return nil, fmt.Errorf("NewLedger: unknown backend %q", cfg.Backend)
}

// NewCache opens the configured cache and scopes it to cfg.Namespace.
func NewCache(ctx context.Context, cfg config.CacheConfig) (cache.Store, error) {
	var store cache.Store
	switch cfg.Backend {
	case config.CacheMemory:
		store = cachemem.NewStore()
	case config.CacheRedis:
		s, err := cacheredis.NewStore(ctx, cacheredis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("NewCache: %w", err)
		}
		store = s
	case config.CacheDynamo:
		s, err := cachedynamo.NewStore(ctx, cachedynamo.Config{
			Region:    cfg.Dynamo.Region,
			TableName: cfg.Dynamo.Table,
			Endpoint:  cfg.Dynamo.Endpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("NewCache: %w", err)
		}
		store = s
	case config.CacheGCS:
		s, err := cachegcs.NewStore(ctx, cachegcs.Config{
			Bucket: cfg.GCS.Bucket,
			Prefix: cfg.GCS.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("NewCache: %w", err)
		}
		store = s
	default:
		return nil, fmt.Errorf("NewCache: unknown backend %q", cfg.Backend)
	}
	return cache.WithNamespace(store, cfg.Namespace), nil
}

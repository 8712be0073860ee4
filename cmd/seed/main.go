package main

import (
	"context"
	"flag"
	"time"

	"github.com/paarshan4800/fin-advisor/internal/app"
	"github.com/paarshan4800/fin-advisor/internal/config"
	"github.com/paarshan4800/fin-advisor/internal/logger"
	"github.com/paarshan4800/fin-advisor/internal/seed"
)

// schemaEnsurer is implemented by ledgers that need a table or index first.
type schemaEnsurer interface {
	EnsureTable(ctx context.Context) error
}

type indexEnsurer interface {
	EnsureIndexes(ctx context.Context) error
}

func main() {
	defaults := seed.DefaultConfig()
	var (
		configPath   = flag.String("config", "", "Path to a config file")
		users        = flag.Int("users", defaults.Users, "Number of account holders")
		merchants    = flag.Int("merchants", defaults.Merchants, "Number of merchants")
		transactions = flag.Int("transactions", defaults.Transactions, "Number of transactions")
		randSeed     = flag.Int64("seed", defaults.Seed, "Random seed; equal seeds give equal ledgers")
		batch        = flag.Int("batch", 5000, "Transactions per insert")
		workers      = flag.Int("workers", 4, "Concurrent inserts")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := logger.New("info", false)
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := logger.New(cfg.Log.Level, cfg.Log.JSON)
	if cfg.Ledger.Backend == config.LedgerMemory {
		log.Fatal().Msg("Seeding needs a persistent ledger: set LEDGER_BACKEND to bigquery or mongo")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	store, err := app.NewLedger(ctx, cfg.Ledger, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger")
	}
	defer store.Close()

	switch s := store.(type) {
	case schemaEnsurer:
		err = s.EnsureTable(ctx)
	case indexEnsurer:
		err = s.EnsureIndexes(ctx)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to prepare ledger")
	}

	data := seed.NewGenerator(seed.Config{
		Users:        *users,
		Merchants:    *merchants,
		Transactions: *transactions,
		Seed:         *randSeed,
	}).Generate()

	start := time.Now()
	n, err := seed.NewLoader(store, *batch, *workers, log).Load(ctx, data.Transactions)
	if err != nil {
		log.Fatal().Err(err).Int("inserted", n).Msg("Seeding failed")
	}

	for _, u := range data.Users {
		log.Info().Str("user_id", u.ID).Str("name", u.Name).Msg("Seeded account holder")
	}
	log.Info().
		Int("transactions", n).
		Int("users", len(data.Users)).
		Int("merchants", len(data.Merchants)).
		Dur("duration", time.Since(start)).
		Msg("Seeding completed")
}

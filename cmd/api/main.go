package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/paarshan4800/fin-advisor/internal/api/handlers"
	"github.com/paarshan4800/fin-advisor/internal/app"
	"github.com/paarshan4800/fin-advisor/internal/config"
	"github.com/paarshan4800/fin-advisor/internal/logger"
)

func main() {
	configPath := flag.String("config", "", "Path to a config file (yaml, toml or json)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := logger.New("info", false)
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := logger.New(cfg.Log.Level, cfg.Log.JSON)

	ctx := context.Background()
	a, err := app.New(ctx, cfg, nil, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer a.Close()

	if cfg.Auth.JWTSecret == "" {
		log.Warn().Msg("No JWT secret configured - trusting the X-User-ID header")
	}

	server := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: handlers.NewRouter(handlers.RouterConfig{
			Agent:     a.Orchestrator,
			Sessions:  a.Sessions,
			Ledger:    a.Ledger,
			JWTSecret: cfg.Auth.JWTSecret,
			RateLimit: cfg.Server.RateLimit,
			RateBurst: cfg.Server.RateBurst,
		}, log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownSeconds)*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

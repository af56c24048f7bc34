package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"trade-alert-relay/internal/brokerage"
	"trade-alert-relay/internal/config"
	"trade-alert-relay/internal/database"
	"trade-alert-relay/internal/logger"
	"trade-alert-relay/internal/relay"
	"trade-alert-relay/internal/restclient"
	"trade-alert-relay/internal/social"
)

// app holds the components shared by every subcommand.
type app struct {
	cfg   config.Config
	log   *zap.Logger
	relay *relay.Relay
}

// newApp loads and validates the configuration and wires the relay. Errors
// before the logger exists go to stderr.
func newApp(dir string) (*app, error) {
	cfg, err := config.LoadConfig(dir)
	if err != nil {
		return nil, fmt.Errorf("could not load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		return nil, fmt.Errorf("could not initialize logger: %w", err)
	}
	log.Info("Configuration loaded", zap.Bool("dry_run", cfg.DryRun))

	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	brokerRest := restclient.New(cfg.Brokerage.BaseURL, &cfg.HTTP, nil, log.Named("brokerage-http"))
	tokens := brokerage.NewTokenProvider(brokerRest, &cfg.Brokerage, log)
	broker := brokerage.NewClient(brokerRest, log)

	socialClient := social.NewClient(&cfg.Social, &cfg.HTTP, log)
	poster := social.NewPoster(socialClient, social.NewThreadIndex(db, log), cfg.Social.PageSize, cfg.DryRun, log)

	return &app{
		cfg:   cfg,
		log:   log,
		relay: relay.NewRelay(log, cfg.Brokerage.AccountID, tokens, broker, poster),
	}, nil
}

// loadApp reports setup errors on stderr and returns nil.
func loadApp() *app {
	a, err := newApp(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return nil
	}
	return a
}

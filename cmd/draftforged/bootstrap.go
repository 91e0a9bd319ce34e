package main

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"

	"draftforge/internal/config"
	"draftforge/internal/daemon"
	"draftforge/internal/logging"
	"draftforge/internal/runs"
)

func run(ctx context.Context) error {
	_ = godotenv.Load()

	cfg, _, _, err := config.Load("")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	store, err := runs.Open(cfg)
	if err != nil {
		return fmt.Errorf("open run store: %w", err)
	}

	d, err := daemon.New(cfg, store, logger)
	if err != nil {
		store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info("draftforged shutting down")
	return nil
}

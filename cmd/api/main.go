package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/IEEE-ISSATM-SB/PhoneCare/internal/infra/app"
	"github.com/IEEE-ISSATM-SB/PhoneCare/internal/infra/config"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("phonecare-auth: %v", err)
	}
}

func run() error {
	// Optional .env for local development; real deployments set the
	// PHONECARE_* variables directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init application: %w", err)
	}

	return application.Run(ctx)
}

package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"school_asset_server/config"
	"school_asset_server/internal/app"
	"school_asset_server/pkg/colors"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	colors.Init(colors.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	})
	if err := config.InitializeTimezone(cfg.Server.Timezone); err != nil {
		log.Printf("Timezone %q unavailable, using UTC: %v", cfg.Server.Timezone, err)
	}

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		log.Printf("HTTP server stopped: %v", err)
	}
}

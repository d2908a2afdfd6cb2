package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"school_asset_server/config"
	"school_asset_server/internal/app"
	"school_asset_server/pkg/colors"

	"github.com/joho/godotenv"
)

func main() {
	colors.PrintBanner()

	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		colors.PrintWarning("No .env file found, using system environment variables")
	} else {
		colors.PrintSuccess("Environment configuration loaded from .env file")
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
		colors.PrintWarning("Timezone %q unavailable, using UTC: %v", cfg.Server.Timezone, err)
	}

	colors.PrintHeader("SCHOOL ASSET SERVER INITIALIZATION")
	application, err := app.New(cfg)
	if err != nil {
		colors.PrintError("Failed to initialize: %v", err)
		os.Exit(1)
	}
	defer application.Close()

	printEndpoints()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		colors.PrintShutdown()
	}()

	if err := application.Run(ctx); err != nil {
		colors.PrintError("Server stopped: %v", err)
		application.Close()
		os.Exit(1)
	}
}

func printEndpoints() {
	colors.PrintSubHeader("Workspace")
	colors.PrintEndpoint("GET", "/health", "Health check endpoint")
	colors.PrintEndpoint("GET", "/api/v1/config", "Current backend status")
	colors.PrintEndpoint("PUT", "/api/v1/config", "Select a backend for this browser")
	colors.PrintEndpoint("DELETE", "/api/v1/config", "Forget the backend selection")

	colors.PrintSubHeader("Inventory")
	colors.PrintEndpoint("GET", "/api/v1/devices", "List devices with placements")
	colors.PrintEndpoint("POST", "/api/v1/devices/bulk", "Bulk register devices")
	colors.PrintEndpoint("POST", "/api/v1/devices/import", "Import header-keyed rows")
	colors.PrintEndpoint("PATCH", "/api/v1/devices/:id", "Update a device")
	colors.PrintEndpoint("PUT", "/api/v1/devices/:id/distribution", "Distribute a device across locations")
	colors.PrintEndpoint("GET", "/api/v1/instances", "List every placement")

	colors.PrintSubHeader("Locations & maps")
	colors.PrintEndpoint("GET", "/api/v1/locations", "List locations")
	colors.PrintEndpoint("PUT", "/api/v1/locations/:id/name", "Rename a location everywhere")
	colors.PrintEndpoint("GET", "/api/v1/maps/:mapId", "Load a floor map")
	colors.PrintEndpoint("PUT", "/api/v1/maps/:mapId", "Save a floor map")
	colors.PrintEndpoint("POST", "/api/v1/maps/:mapId/detected-zones", "Merge detected zones")

	colors.PrintSubHeader("Records")
	colors.PrintEndpoint("GET", "/api/v1/software", "Software titles")
	colors.PrintEndpoint("GET", "/api/v1/accounts", "Service accounts")
	colors.PrintEndpoint("GET", "/api/v1/loans", "Device loans")

	colors.PrintSubHeader("WebSocket Connection")
	colors.PrintEndpoint("GET", "/api/v1/ws", "Change notices for the current workspace")
}

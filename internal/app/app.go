// Package app wires configuration, the tenant registry and the HTTP server
// together for the binaries under cmd/ and the root main.
package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"school_asset_server/config"
	"school_asset_server/internal/db"
	apphttp "school_asset_server/internal/http"
	"school_asset_server/internal/tenant"
	"school_asset_server/pkg/colors"
)

const shutdownTimeout = 10 * time.Second

// App holds the long-lived pieces of a running server
type App struct {
	Config    *config.Config
	Registry  *tenant.Registry
	Resolver  *tenant.Resolver
	Directory *db.TenantDirectory
	Server    *apphttp.Server
}

// DefaultTenant converts the deployment's default backend settings into a
// tenant config, or nil when none is configured.
func DefaultTenant(cfg *config.Config) *tenant.Config {
	d := cfg.DefaultTenant
	if d.DBType == "" {
		return nil
	}
	return &tenant.Config{
		DBType: d.DBType,
		Sheet:  tenant.SheetConfig{SpreadsheetID: d.SpreadsheetID},
		Firebase: tenant.FirebaseConfig{
			APIKey:        d.APIKey,
			ProjectID:     d.ProjectID,
			AuthDomain:    d.AuthDomain,
			StorageBucket: d.StorageBucket,
		},
	}
}

// OpenDirectory connects the tenant directory when a DSN is configured
func OpenDirectory(cfg *config.Config) (*db.TenantDirectory, error) {
	if cfg.Database.DSN == "" {
		return nil, nil
	}
	if err := db.Initialize(cfg.Database.DSN); err != nil {
		return nil, err
	}
	return db.NewTenantDirectory(db.GetDB()), nil
}

// New builds the registry, resolver and HTTP server from cfg
func New(cfg *config.Config) (*App, error) {
	if !cfg.HasGoogleCredentials() {
		colors.PrintWarning("No Google credentials configured, using application default credentials")
	}
	registry := tenant.NewRegistry(tenant.NewGoogleFactory(cfg.ClientOptions()...))

	directory, err := OpenDirectory(cfg)
	if err != nil {
		return nil, fmt.Errorf("tenant directory: %w", err)
	}
	var dir tenant.Directory
	if directory != nil {
		dir = directory
		colors.PrintSuccess("Tenant directory connected")
	} else {
		colors.PrintInfo("No database DSN, tenant ids in %s are ignored", cfg.Server.TenantHeader)
	}

	fallback := DefaultTenant(cfg)
	if fallback != nil {
		if err := fallback.Validate(); err != nil {
			return nil, fmt.Errorf("default tenant: %w", err)
		}
		colors.PrintInfo("Default backend: %s", fallback.Key())
	}

	secret := cfg.Server.CookieSecret
	if secret == "" {
		secret, err = randomSecret()
		if err != nil {
			return nil, err
		}
		colors.PrintWarning("server.cookie_secret is empty; workspace cookies will not survive a restart")
	}

	resolver := tenant.NewResolver(registry, dir, fallback)
	server := apphttp.NewServer(apphttp.Options{
		Address:      cfg.Server.Address,
		Port:         cfg.Server.HTTPPort,
		Registry:     registry,
		Resolver:     resolver,
		Codec:        tenant.NewCodec(secret),
		CookieName:   cfg.Server.CookieName,
		TenantHeader: cfg.Server.TenantHeader,
		SecureCookie: cfg.Server.SecureCookie,
		LogHTTP:      cfg.Server.LogHTTP,
		TLSCertFile:  cfg.Server.TLSCertFile,
		TLSKeyFile:   cfg.Server.TLSKeyFile,
	})

	return &App{
		Config:    cfg,
		Registry:  registry,
		Resolver:  resolver,
		Directory: directory,
		Server:    server,
	}, nil
}

// Run serves until ctx is cancelled, then shuts the server down
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := a.Server.Start(); err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.Server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Close releases the tenant directory connection
func (a *App) Close() {
	if a.Directory != nil {
		if err := db.Close(); err != nil {
			colors.PrintWarning("Closing database: %v", err)
		}
	}
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate cookie secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

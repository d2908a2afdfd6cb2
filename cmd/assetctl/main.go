// Command assetctl administers tenants and backends of the asset server.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"school_asset_server/config"
	"school_asset_server/internal/app"
	"school_asset_server/internal/db"
	"school_asset_server/internal/tenant"
	"school_asset_server/pkg/colors"
)

var (
	configFile string
	cfg        *config.Config
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "assetctl",
		Short:        "Administer tenants and backends of the school asset server",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to configuration (default: CONFIG_FILE or ./config.yaml)")

	cobra.OnInitialize(func() {
		_ = godotenv.Load()
		if configFile != "" {
			os.Setenv("CONFIG_FILE", configFile)
		}
		var err error
		cfg, err = config.Load()
		if err != nil {
			log.Fatalf("Failed to read config: %v", err)
		}
		colors.Init(colors.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
		if err := config.InitializeTimezone(cfg.Server.Timezone); err != nil {
			colors.PrintWarning("Timezone %q unavailable, using UTC", cfg.Server.Timezone)
		}
	})

	rootCmd.AddCommand(newSealCmd(), newTenantCmd(), newCheckCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// backendFlags collects a tenant config from command-line flags
type backendFlags struct {
	dbType        string
	spreadsheetID string
	projectID     string
	apiKey        string
	authDomain    string
	storageBucket string
}

func (f *backendFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.dbType, "db-type", "", "Backend type: sheets, firebase or memory")
	cmd.Flags().StringVar(&f.spreadsheetID, "spreadsheet-id", "", "Google spreadsheet id (sheets)")
	cmd.Flags().StringVar(&f.projectID, "project-id", "", "Firebase project id (firebase)")
	cmd.Flags().StringVar(&f.apiKey, "api-key", "", "Firebase web API key")
	cmd.Flags().StringVar(&f.authDomain, "auth-domain", "", "Firebase auth domain")
	cmd.Flags().StringVar(&f.storageBucket, "storage-bucket", "", "Firebase storage bucket")
}

func (f *backendFlags) config() tenant.Config {
	return tenant.Config{
		DBType: f.dbType,
		Sheet:  tenant.SheetConfig{SpreadsheetID: f.spreadsheetID},
		Firebase: tenant.FirebaseConfig{
			APIKey:        f.apiKey,
			ProjectID:     f.projectID,
			AuthDomain:    f.authDomain,
			StorageBucket: f.storageBucket,
		},
	}
}

func newSealCmd() *cobra.Command {
	var flags backendFlags
	cmd := &cobra.Command{
		Use:   "seal",
		Short: "Print a sealed workspace cookie value for a backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Server.CookieSecret == "" {
				return fmt.Errorf("server.cookie_secret must be set to seal cookies")
			}
			c := flags.config()
			if err := c.Validate(); err != nil {
				return err
			}
			sealed, err := tenant.NewCodec(cfg.Server.CookieSecret).Seal(c)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", cfg.Server.CookieName, sealed)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newTenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Manage the tenant directory",
	}

	var flags backendFlags
	var name string
	add := &cobra.Command{
		Use:   "add <id>",
		Short: "Register or replace a tenant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := flags.config()
			if err := c.Validate(); err != nil {
				return err
			}
			dir, err := openDirectory()
			if err != nil {
				return err
			}
			if err := dir.Save(cmd.Context(), c.ToTenant(args[0], name)); err != nil {
				return err
			}
			colors.PrintSuccess("Tenant %s -> %s", args[0], c.Key())
			return nil
		},
	}
	flags.register(add)
	add.Flags().StringVar(&name, "name", "", "Display name of the tenant")

	list := &cobra.Command{
		Use:   "list",
		Short: "List registered tenants",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := openDirectory()
			if err != nil {
				return err
			}
			tenants, err := dir.List(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tBACKEND\tUPDATED")
			for _, t := range tenants {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.ID, t.Name, tenant.FromTenant(&t).Key(), t.UpdatedAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}

	remove := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a tenant from the directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := openDirectory()
			if err != nil {
				return err
			}
			return dir.Delete(cmd.Context(), args[0])
		},
	}

	cmd.AddCommand(add, list, remove)
	return cmd
}

func newCheckCmd() *cobra.Command {
	var flags backendFlags
	var tenantID string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Open a backend and read its devices and locations",
		RunE: func(cmd *cobra.Command, args []string) error {
			var c *tenant.Config
			switch {
			case tenantID != "":
				dir, err := openDirectory()
				if err != nil {
					return err
				}
				t, err := dir.Lookup(cmd.Context(), tenantID)
				if err != nil {
					return err
				}
				if t == nil {
					return fmt.Errorf("%w: %s", tenant.ErrUnknownTenant, tenantID)
				}
				fromDir := tenant.FromTenant(t)
				c = &fromDir
			case flags.dbType != "":
				fromFlags := flags.config()
				c = &fromFlags
			default:
				c = app.DefaultTenant(cfg)
			}
			if c == nil {
				return fmt.Errorf("nothing to check: pass --tenant, --db-type or configure default_tenant")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			registry := tenant.NewRegistry(tenant.NewGoogleFactory(cfg.ClientOptions()...))
			store, err := registry.Get(ctx, *c)
			if err != nil {
				return err
			}
			devices, err := store.ListDevices(ctx)
			if err != nil {
				return fmt.Errorf("read devices: %w", err)
			}
			locations, err := store.ListLocations(ctx)
			if err != nil {
				return fmt.Errorf("read locations: %w", err)
			}
			colors.PrintSuccess("%s (%s): %d devices, %d locations", c.Key(), store.Backend(), len(devices), len(locations))
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&tenantID, "tenant", "", "Check a tenant from the directory")
	return cmd
}

func openDirectory() (*db.TenantDirectory, error) {
	dir, err := app.OpenDirectory(cfg)
	if err != nil {
		return nil, err
	}
	if dir == nil {
		return nil, fmt.Errorf("database.dsn is not configured")
	}
	return dir, nil
}

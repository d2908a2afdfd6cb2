package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the application configuration, read from environment variables
// and an optional config.yaml.
type Config struct {
	Server struct {
		Address      string `mapstructure:"address"`
		HTTPPort     string `mapstructure:"http_port"`
		CookieName   string `mapstructure:"cookie_name"`
		CookieSecret string `mapstructure:"cookie_secret"`
		TenantHeader string `mapstructure:"tenant_header"`
		Timezone     string `mapstructure:"timezone"`
		SecureCookie bool   `mapstructure:"secure_cookie"`
		LogHTTP      bool   `mapstructure:"log_http"`
		TLSCertFile  string `mapstructure:"tls_cert_file"`
		TLSKeyFile   string `mapstructure:"tls_key_file"`
	} `mapstructure:"server"`

	Google struct {
		CredentialsFile string `mapstructure:"credentials_file"`
		CredentialsJSON string `mapstructure:"credentials_json"`
	} `mapstructure:"google"`

	Database struct {
		// DSN of the tenant directory. Empty disables override tenant ids.
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"database"`

	Logging struct {
		Level      string `mapstructure:"level"`
		Format     string `mapstructure:"format"`
		File       string `mapstructure:"file"`
		MaxSizeMB  int    `mapstructure:"max_size_mb"`
		MaxBackups int    `mapstructure:"max_backups"`
	} `mapstructure:"logs"`

	// DefaultTenant is the deployment-wide backend used when a request
	// carries no config. Empty DBType disables it.
	DefaultTenant struct {
		DBType        string `mapstructure:"db_type"`
		SpreadsheetID string `mapstructure:"spreadsheet_id"`
		ProjectID     string `mapstructure:"project_id"`
		APIKey        string `mapstructure:"api_key"`
		AuthDomain    string `mapstructure:"auth_domain"`
		StorageBucket string `mapstructure:"storage_bucket"`
	} `mapstructure:"default_tenant"`
}

// Load reads the configuration from env and file with defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.address", "0.0.0.0")
	v.SetDefault("server.http_port", "8080")
	v.SetDefault("server.cookie_name", "asset_db")
	v.SetDefault("server.cookie_secret", "")
	v.SetDefault("server.tenant_header", "X-Tenant-ID")
	v.SetDefault("server.timezone", "Asia/Tokyo")
	v.SetDefault("server.secure_cookie", false)
	v.SetDefault("server.log_http", false)
	v.SetDefault("server.tls_cert_file", "")
	v.SetDefault("server.tls_key_file", "")

	v.SetDefault("google.credentials_file", "")
	v.SetDefault("google.credentials_json", "")

	v.SetDefault("database.dsn", "")

	v.SetDefault("logs.level", "info")
	v.SetDefault("logs.format", "text")
	v.SetDefault("logs.file", "")
	v.SetDefault("logs.max_size_mb", 50)
	v.SetDefault("logs.max_backups", 5)

	v.SetDefault("default_tenant.db_type", "")
	v.SetDefault("default_tenant.spreadsheet_id", "")
	v.SetDefault("default_tenant.project_id", "")
	v.SetDefault("default_tenant.api_key", "")
	v.SetDefault("default_tenant.auth_domain", "")
	v.SetDefault("default_tenant.storage_bucket", "")

	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			v.AddConfigPath(filepath.Join(xdg, "school-asset-server"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return nil, fmt.Errorf("config read error: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(c *Config) error {
	if strings.TrimSpace(c.Server.HTTPPort) == "" {
		return errors.New("server.http_port must not be empty")
	}
	if strings.TrimSpace(c.Server.CookieName) == "" {
		return errors.New("server.cookie_name must not be empty")
	}
	if (c.Server.TLSCertFile == "") != (c.Server.TLSKeyFile == "") {
		return errors.New("server.tls_cert_file and server.tls_key_file must be set together")
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logs.format must be text or json, got %q", c.Logging.Format)
	}
	return nil
}

// HasGoogleCredentials reports whether explicit service account credentials
// were configured. Without them the Google clients fall back to application
// default credentials.
func (c *Config) HasGoogleCredentials() bool {
	return c.Google.CredentialsFile != "" || c.Google.CredentialsJSON != ""
}

// Package config provides configuration management using Viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Geodatabase GeodatabaseConfig `mapstructure:"geodatabase"`
	Query       QueryConfig       `mapstructure:"query"`
	Export      ExportConfig      `mapstructure:"export"`
	Server      ServerConfig      `mapstructure:"server"`
	TLS         TLSConfig         `mapstructure:"tls"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// GeodatabaseConfig holds the geodatabase source configuration.
type GeodatabaseConfig struct {
	Path     string        `mapstructure:"path"`   // Geodatabase opened on start, local path or remote key
	Source   string        `mapstructure:"source"` // local, s3, azure, http
	CacheDir string        `mapstructure:"cache_dir"`
	Watch    bool          `mapstructure:"watch"` // Reload the catalog when the file changes
	Debounce time.Duration `mapstructure:"debounce"`
	S3       S3Config      `mapstructure:"s3"`
	Azure    AzureConfig   `mapstructure:"azure"`
	HTTP     HTTPConfig    `mapstructure:"http"`
}

// S3Config holds AWS S3 configuration.
type S3Config struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Prefix          string `mapstructure:"prefix"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

// AzureConfig holds Azure Blob Storage configuration.
type AzureConfig struct {
	Container        string `mapstructure:"container"`
	AccountName      string `mapstructure:"account_name"`
	AccountKey       string `mapstructure:"account_key"`
	ConnectionString string `mapstructure:"connection_string"`
	Prefix           string `mapstructure:"prefix"`
}

// HTTPConfig holds HTTP download configuration.
type HTTPConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	IndexFile string        `mapstructure:"index_file"` // default: index.txt
	Timeout   time.Duration `mapstructure:"timeout"`
	Username  string        `mapstructure:"username"`
	Password  string        `mapstructure:"password"`
}

// QueryConfig holds query execution configuration.
type QueryConfig struct {
	Dialect         string        `mapstructure:"dialect"` // SQLITE, OGRSQL
	IncludeGeometry bool          `mapstructure:"include_geometry"`
	ChunkSize       int           `mapstructure:"chunk_size"`
	DisplayWidth    int           `mapstructure:"display_width"`
	Reconcile       string        `mapstructure:"reconcile"` // cache, replay
	Timeout         time.Duration `mapstructure:"timeout"`
}

// ExportConfig holds export configuration.
type ExportConfig struct {
	TempDir     string `mapstructure:"temp_dir"`
	InlineLimit int    `mapstructure:"inline_limit"` // Markdown rows returned inline
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	FrontendEnabled bool          `mapstructure:"frontend_enabled"`
	CORS            CORSConfig    `mapstructure:"cors"`
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"` // e.g., ["https://example.com", "*.sub.domain.tld"]
}

// Enabled returns true if CORS is configured with at least one allowed origin.
func (c *CORSConfig) Enabled() bool {
	return len(c.AllowedOrigins) > 0
}

// TLSConfig holds TLS/CertMagic configuration.
type TLSConfig struct {
	Enabled  bool         `mapstructure:"enabled"`
	Domains  []string     `mapstructure:"domains"`
	Email    string       `mapstructure:"email"`
	CacheDir string       `mapstructure:"cache_dir"`
	Staging  bool         `mapstructure:"staging"` // Use Let's Encrypt staging
	DNS      TLSDNSConfig `mapstructure:"dns"`
}

// TLSDNSConfig holds Azure DNS settings for DNS-01 challenges.
type TLSDNSConfig struct {
	SubscriptionID    string `mapstructure:"subscription_id"`
	ResourceGroupName string `mapstructure:"resource_group_name"`
	ClientID          string `mapstructure:"client_id"`
}

// MetricsConfig holds Prometheus metrics configuration.
type MetricsConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Path     string `mapstructure:"path"`
	Textfile string `mapstructure:"textfile"` // Written after one-shot commands when set
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, text
}

// Defaults sets the default configuration values.
func Defaults() {
	// Geodatabase defaults
	viper.SetDefault("geodatabase.source", "local")
	viper.SetDefault("geodatabase.cache_dir", filepath.Join(os.TempDir(), "gdbee-cache"))
	viper.SetDefault("geodatabase.watch", false)
	viper.SetDefault("geodatabase.debounce", 500*time.Millisecond)
	viper.SetDefault("geodatabase.http.index_file", "index.txt")
	viper.SetDefault("geodatabase.http.timeout", 5*time.Minute)

	// Query defaults
	viper.SetDefault("query.dialect", "SQLITE")
	viper.SetDefault("query.include_geometry", true)
	viper.SetDefault("query.chunk_size", 200)
	viper.SetDefault("query.display_width", 60)
	viper.SetDefault("query.reconcile", "cache")
	viper.SetDefault("query.timeout", 30*time.Second)

	// Export defaults
	viper.SetDefault("export.temp_dir", os.TempDir())
	viper.SetDefault("export.inline_limit", 1000)

	// Server defaults
	viper.SetDefault("server.host", "127.0.0.1")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 5*time.Minute)
	viper.SetDefault("server.shutdown_timeout", 10*time.Second)
	viper.SetDefault("server.frontend_enabled", true)
	viper.SetDefault("server.cors.allowed_origins", []string{})

	// TLS defaults
	viper.SetDefault("tls.enabled", false)
	viper.SetDefault("tls.cache_dir", "./.certmagic")
	viper.SetDefault("tls.staging", false)

	// Metrics defaults
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")
	viper.SetDefault("metrics.textfile", "")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
}

// Load loads configuration from environment and config file.
func Load(configPath string) (*Config, error) {
	Defaults()

	// Environment variable binding
	viper.SetEnvPrefix("GDBEE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Config file
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
		if home, err := os.UserConfigDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, "gdbee"))
		}
	}

	// Try to read config file (not required)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.TLS.Enabled {
		if len(c.TLS.Domains) == 0 {
			return fmt.Errorf("TLS enabled but no domains specified")
		}
		if c.TLS.Email == "" {
			return fmt.Errorf("TLS enabled but no email specified")
		}
	}

	switch strings.ToUpper(c.Query.Dialect) {
	case "SQLITE", "OGRSQL":
	default:
		return fmt.Errorf("unknown query dialect: %s", c.Query.Dialect)
	}

	if c.Query.ChunkSize < 1 {
		return fmt.Errorf("invalid query chunk size: %d", c.Query.ChunkSize)
	}

	if c.Query.DisplayWidth < 1 {
		return fmt.Errorf("invalid query display width: %d", c.Query.DisplayWidth)
	}

	switch c.Query.Reconcile {
	case "cache", "replay":
	default:
		return fmt.Errorf("unknown reconcile strategy: %s", c.Query.Reconcile)
	}

	if c.Export.InlineLimit < 0 {
		return fmt.Errorf("invalid export inline limit: %d", c.Export.InlineLimit)
	}

	switch c.Geodatabase.Source {
	case "local":
	case "s3":
		if c.Geodatabase.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket is required")
		}
		if c.Geodatabase.S3.Region == "" {
			return fmt.Errorf("S3 region is required")
		}
	case "azure":
		if c.Geodatabase.Azure.Container == "" {
			return fmt.Errorf("azure container is required")
		}
		if c.Geodatabase.Azure.AccountName == "" && c.Geodatabase.Azure.ConnectionString == "" {
			return fmt.Errorf("azure account name or connection string is required")
		}
	case "http":
		if c.Geodatabase.HTTP.BaseURL == "" {
			return fmt.Errorf("HTTP base URL is required")
		}
	default:
		return fmt.Errorf("unknown geodatabase source: %s", c.Geodatabase.Source)
	}

	if c.Geodatabase.Source != "local" && c.Geodatabase.CacheDir == "" {
		return fmt.Errorf("cache directory is required for remote sources")
	}

	return nil
}

// Address returns the server address string.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

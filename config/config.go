package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/hempies/catalogsync/internal/domain"
)

// Category match modes
const (
	CategoryMatchExact     = "exact"
	CategoryMatchSubstring = "substring"
)

// Stock modes
const (
	StockModeAny = "any"
	StockModeSum = "sum"
)

// Vendor resolution sources
const (
	VendorSourceVariation = "variation"
	VendorSourceItem      = "item"
	VendorSourceNone      = "none"
)

// Disposal policies for destination rows missing from the current keep set
const (
	DisposalDelete     = "delete"
	DisposalDeactivate = "deactivate"
)

// Vendor detail columns
const (
	VendorDetailNone          = "none"
	VendorDetailAddress       = "address"
	VendorDetailAccountNumber = "account_number"
	VendorDetailNote          = "note"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Square   SquareConfig
	Airtable AirtableConfig
	Sync     SyncConfig
	Cache    CacheConfig
	Notify   NotifyConfig
	Metrics  MetricsConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Environment     string        `mapstructure:"environment"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// SquareConfig holds Square API configuration
type SquareConfig struct {
	AccessToken       string        `mapstructure:"access_token"`
	BaseURL           string        `mapstructure:"base_url"`
	APIVersion        string        `mapstructure:"api_version"`
	LocationIDs       []string      `mapstructure:"location_ids"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
}

// AirtableConfig holds Airtable API configuration
type AirtableConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	BaseID            string        `mapstructure:"base_id"`
	BaseURL           string        `mapstructure:"base_url"`
	ProductsTable     string        `mapstructure:"products_table"`
	VendorsTable      string        `mapstructure:"vendors_table"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
}

// SyncConfig holds the per-deployment reconciliation policies
type SyncConfig struct {
	ExcludedCategories []string `mapstructure:"excluded_categories"`
	CategoryMatch      string   `mapstructure:"category_match"`
	StockMode          string   `mapstructure:"stock_mode"`
	VendorSource       string   `mapstructure:"vendor_source"`
	DisposalPolicy     string   `mapstructure:"disposal_policy"`
	VendorDetail       string   `mapstructure:"vendor_detail"`
	SyncVendors        bool     `mapstructure:"sync_vendors"`
	Schedule           string   `mapstructure:"schedule"`
	RunOnStart         bool     `mapstructure:"run_on_start"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	CategoryTTL time.Duration `mapstructure:"category_ttl"`
}

// NotifyConfig holds e-mail notification settings. An empty recipient disables mail.
type NotifyConfig struct {
	Recipient string        `mapstructure:"recipient"`
	SMTPHost  string        `mapstructure:"smtp_host"`
	SMTPPort  int           `mapstructure:"smtp_port"`
	Username  string        `mapstructure:"username"`
	Password  string        `mapstructure:"password"`
	From      string        `mapstructure:"from"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// MetricsConfig toggles the prometheus endpoint
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load loads configuration from a .env file, environment variables and config files
func Load() (*Config, error) {
	// A missing .env file is fine; real environment variables take precedence
	_ = godotenv.Load()

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/catalogsync/")

	// Environment variable settings
	v.SetEnvPrefix("CATALOGSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Lists coming from the environment arrive as one comma separated string
	config.Sync.ExcludedCategories = splitList(config.Sync.ExcludedCategories)
	config.Square.LocationIDs = splitList(config.Square.LocationIDs)
	config.Server.AllowedOrigins = splitList(config.Server.AllowedOrigins)

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:*"})
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("log.level", "info")

	// Square defaults
	v.SetDefault("square.access_token", "")
	v.SetDefault("square.base_url", "https://connect.squareup.com/v2")
	v.SetDefault("square.api_version", "2023-09-25")
	v.SetDefault("square.location_ids", []string{"LXNA062VNG2T2"})
	v.SetDefault("square.timeout", "30s")
	v.SetDefault("square.requests_per_second", 10)

	// Airtable defaults
	v.SetDefault("airtable.api_key", "")
	v.SetDefault("airtable.base_id", "")
	v.SetDefault("airtable.base_url", "https://api.airtable.com/v0")
	v.SetDefault("airtable.products_table", "Products")
	v.SetDefault("airtable.vendors_table", "Vendors")
	v.SetDefault("airtable.timeout", "30s")
	v.SetDefault("airtable.requests_per_second", 5)

	// Sync defaults
	v.SetDefault("sync.excluded_categories", []string{"Pet Products", "Accessories", "Crystals", "Apparel", "Party"})
	v.SetDefault("sync.category_match", CategoryMatchExact)
	v.SetDefault("sync.stock_mode", StockModeAny)
	v.SetDefault("sync.vendor_source", VendorSourceVariation)
	v.SetDefault("sync.disposal_policy", DisposalDelete)
	v.SetDefault("sync.vendor_detail", VendorDetailNone)
	v.SetDefault("sync.sync_vendors", true)
	v.SetDefault("sync.schedule", "0 3 * * 1") // Mondays 03:00
	v.SetDefault("sync.run_on_start", false)

	v.SetDefault("cache.category_ttl", "15m")

	// Notification defaults
	v.SetDefault("notify.recipient", "")
	v.SetDefault("notify.smtp_host", "")
	v.SetDefault("notify.smtp_port", 587)
	v.SetDefault("notify.username", "")
	v.SetDefault("notify.password", "")
	v.SetDefault("notify.from", "")
	v.SetDefault("notify.timeout", "30s")

	v.SetDefault("metrics.enabled", true)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Square.AccessToken == "" {
		return fmt.Errorf("Square access token is required (set CATALOGSYNC_SQUARE_ACCESS_TOKEN)")
	}

	if config.Airtable.APIKey == "" || config.Airtable.BaseID == "" {
		return fmt.Errorf("Airtable credentials are required (set CATALOGSYNC_AIRTABLE_API_KEY and CATALOGSYNC_AIRTABLE_BASE_ID)")
	}

	if len(config.Square.LocationIDs) == 0 {
		return fmt.Errorf("at least one Square location id is required")
	}

	if err := oneOf("sync.category_match", config.Sync.CategoryMatch, CategoryMatchExact, CategoryMatchSubstring); err != nil {
		return err
	}
	if err := oneOf("sync.stock_mode", config.Sync.StockMode, StockModeAny, StockModeSum); err != nil {
		return err
	}
	if err := oneOf("sync.vendor_source", config.Sync.VendorSource, VendorSourceVariation, VendorSourceItem, VendorSourceNone); err != nil {
		return err
	}
	if err := oneOf("sync.disposal_policy", config.Sync.DisposalPolicy, DisposalDelete, DisposalDeactivate); err != nil {
		return err
	}
	if err := oneOf("sync.vendor_detail", config.Sync.VendorDetail,
		VendorDetailNone, VendorDetailAddress, VendorDetailAccountNumber, VendorDetailNote); err != nil {
		return err
	}

	if config.Notify.Recipient != "" && config.Notify.SMTPHost == "" {
		return fmt.Errorf("SMTP host is required when a notification recipient is set")
	}

	return nil
}

func oneOf(key, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %s, got: %q", key, strings.Join(allowed, "|"), value)
}

// splitList flattens comma separated entries and drops blanks
func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

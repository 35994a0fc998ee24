package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	WooCommerce WooCommerceConfig `yaml:"woocommerce" mapstructure:"woocommerce"`
	Segwik      SegwikConfig      `yaml:"segwik" mapstructure:"segwik"`
	Salesforce  SalesforceConfig  `yaml:"salesforce" mapstructure:"salesforce"`
	Notion      NotionConfig      `yaml:"notion" mapstructure:"notion"`
	ClientList  ClientListConfig  `yaml:"client_list" mapstructure:"client_list"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Persona     PersonaConfig     `yaml:"persona" mapstructure:"persona"`
	Reconcile   ReconcileConfig   `yaml:"reconcile" mapstructure:"reconcile"`
	Migrate     MigrateConfig     `yaml:"migrate" mapstructure:"migrate"`
	Retry       RetryConfig       `yaml:"retry" mapstructure:"retry"`
	Circuit     CircuitConfig     `yaml:"circuit" mapstructure:"circuit"`
	Ledger      LedgerConfig      `yaml:"ledger" mapstructure:"ledger"`
	Report      ReportConfig      `yaml:"report" mapstructure:"report"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// WooCommerceConfig holds store REST credentials. The WordPress application
// password is only needed to list users.
type WooCommerceConfig struct {
	URL            string  `yaml:"url" mapstructure:"url"`
	ConsumerKey    string  `yaml:"consumer_key" mapstructure:"consumer_key"`
	ConsumerSecret string  `yaml:"consumer_secret" mapstructure:"consumer_secret"`
	WPUsername     string  `yaml:"wp_username" mapstructure:"wp_username"`
	WPPassword     string  `yaml:"wp_password" mapstructure:"wp_password"`
	RateLimit      float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	PerPage        int     `yaml:"per_page" mapstructure:"per_page"`
}

// SegwikConfig holds Segwik CRM settings.
type SegwikConfig struct {
	Token     string  `yaml:"token" mapstructure:"token"`
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// SalesforceConfig holds Salesforce JWT auth settings.
type SalesforceConfig struct {
	LoginURL  string  `yaml:"login_url" mapstructure:"login_url"`
	Username  string  `yaml:"username" mapstructure:"username"`
	ClientID  string  `yaml:"client_id" mapstructure:"client_id"`
	KeyPath   string  `yaml:"key_path" mapstructure:"key_path"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// NotionConfig locates the Notion client database.
type NotionConfig struct {
	Token         string `yaml:"token" mapstructure:"token"`
	ClientDB      string `yaml:"client_db" mapstructure:"client_db"`
	NameProperty  string `yaml:"name_property" mapstructure:"name_property"`
	EmailProperty string `yaml:"email_property" mapstructure:"email_property"`
	AliasProperty string `yaml:"alias_property" mapstructure:"alias_property"`
}

// ClientListConfig locates the client list spreadsheet.
type ClientListConfig struct {
	Source      string `yaml:"source" mapstructure:"source"`
	Sheet       string `yaml:"sheet" mapstructure:"sheet"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// CacheConfig configures the snapshot cache.
type CacheConfig struct {
	Dir      string `yaml:"dir" mapstructure:"dir"`
	Backend  string `yaml:"backend" mapstructure:"backend"`
	TTLHours int    `yaml:"ttl_hours" mapstructure:"ttl_hours"`
}

// TTL returns the snapshot TTL.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// PersonaConfig points at an optional role-to-persona override file.
type PersonaConfig struct {
	TablePath string `yaml:"table_path" mapstructure:"table_path"`
}

// ReconcileConfig configures author reconciliation.
type ReconcileConfig struct {
	// Sources is the reference priority; the first is the primary source.
	Sources []string `yaml:"sources" mapstructure:"sources"`
}

// MigrateConfig configures the migration engine.
type MigrateConfig struct {
	Target      string `yaml:"target" mapstructure:"target"`
	Concurrency int    `yaml:"concurrency" mapstructure:"concurrency"`
}

// RetryConfig configures transport retries.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// CircuitConfig configures the engine's circuit breaker.
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
}

// LedgerConfig configures run ledger output.
type LedgerConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// ReportConfig configures author report output.
type ReportConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Targets.
const (
	TargetSegwik     = "segwik"
	TargetSalesforce = "salesforce"
)

// Cache backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// EnvFiles are loaded before the environment is read. A file never
// overrides a variable that is already set, so .env.local wins over .env.
var EnvFiles = []string{".env.local", ".env"}

// Load reads configuration from env files, config.yaml and the environment.
func Load() (*Config, error) {
	for _, f := range EnvFiles {
		_ = godotenv.Load(f)
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("MIGRATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Secrets default to "" so their env vars are picked up by Unmarshal.
	v.SetDefault("woocommerce.url", "")
	v.SetDefault("woocommerce.consumer_key", "")
	v.SetDefault("woocommerce.consumer_secret", "")
	v.SetDefault("woocommerce.wp_username", "")
	v.SetDefault("woocommerce.wp_password", "")
	v.SetDefault("woocommerce.rate_limit", 5.0)
	v.SetDefault("woocommerce.per_page", 100)
	v.SetDefault("segwik.token", "")
	v.SetDefault("segwik.base_url", "https://api.segwik.com/api/v2")
	v.SetDefault("segwik.rate_limit", 5.0)
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("salesforce.username", "")
	v.SetDefault("salesforce.client_id", "")
	v.SetDefault("salesforce.key_path", "")
	v.SetDefault("salesforce.rate_limit", 10.0)
	v.SetDefault("notion.token", "")
	v.SetDefault("notion.client_db", "")
	v.SetDefault("notion.name_property", "Name")
	v.SetDefault("notion.email_property", "Email")
	v.SetDefault("notion.alias_property", "")
	v.SetDefault("client_list.source", "")
	v.SetDefault("client_list.sheet", "")
	v.SetDefault("client_list.timeout_secs", 60)
	v.SetDefault("cache.dir", ".cache")
	v.SetDefault("cache.backend", BackendFile)
	v.SetDefault("cache.ttl_hours", 24)
	v.SetDefault("persona.table_path", "")
	v.SetDefault("reconcile.sources", []string{"wp_users", "client_list"})
	v.SetDefault("migrate.target", TargetSegwik)
	v.SetDefault("migrate.concurrency", 1)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 500)
	v.SetDefault("retry.max_backoff_ms", 30000)
	v.SetDefault("circuit.failure_threshold", 5)
	v.SetDefault("ledger.dir", "ledgers")
	v.SetDefault("report.dir", "reports")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validation modes.
const (
	// ModeStore needs WooCommerce REST credentials.
	ModeStore = "store"
	// ModeWordPress needs the WordPress application password.
	ModeWordPress = "wordpress"
	// ModeTarget needs credentials for the configured migrate.target.
	ModeTarget = "target"
	// ModeNotion needs the Notion token and client database.
	ModeNotion = "notion"
)

// Validate checks that the settings a mode depends on are present. All
// problems are reported at once.
func (c *Config) Validate(mode string) error {
	var errs []string
	require := func(val, key string) {
		if strings.TrimSpace(val) == "" {
			errs = append(errs, key+" is required")
		}
	}

	switch mode {
	case ModeStore:
		require(c.WooCommerce.URL, "woocommerce.url")
		require(c.WooCommerce.ConsumerKey, "woocommerce.consumer_key")
		require(c.WooCommerce.ConsumerSecret, "woocommerce.consumer_secret")
		if c.WooCommerce.PerPage < 1 || c.WooCommerce.PerPage > 100 {
			errs = append(errs, "woocommerce.per_page must be between 1 and 100")
		}
	case ModeWordPress:
		require(c.WooCommerce.URL, "woocommerce.url")
		require(c.WooCommerce.WPUsername, "woocommerce.wp_username")
		require(c.WooCommerce.WPPassword, "woocommerce.wp_password")
	case ModeTarget:
		switch c.Migrate.Target {
		case TargetSegwik:
			require(c.Segwik.Token, "segwik.token")
		case TargetSalesforce:
			require(c.Salesforce.Username, "salesforce.username")
			require(c.Salesforce.ClientID, "salesforce.client_id")
			require(c.Salesforce.KeyPath, "salesforce.key_path")
		default:
			errs = append(errs, fmt.Sprintf("migrate.target must be %s or %s, got %q", TargetSegwik, TargetSalesforce, c.Migrate.Target))
		}
		if c.Migrate.Concurrency < 1 || c.Migrate.Concurrency > 20 {
			errs = append(errs, "migrate.concurrency must be between 1 and 20")
		}
	case ModeNotion:
		require(c.Notion.Token, "notion.token")
		require(c.Notion.ClientDB, "notion.client_db")
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

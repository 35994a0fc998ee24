package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 100, cfg.WooCommerce.PerPage)
	assert.InDelta(t, 5.0, cfg.WooCommerce.RateLimit, 0.001)
	assert.Equal(t, "https://api.segwik.com/api/v2", cfg.Segwik.BaseURL)
	assert.Equal(t, "https://login.salesforce.com", cfg.Salesforce.LoginURL)
	assert.Equal(t, "Name", cfg.Notion.NameProperty)
	assert.Equal(t, ".cache", cfg.Cache.Dir)
	assert.Equal(t, BackendFile, cfg.Cache.Backend)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL())
	assert.Equal(t, []string{"wp_users", "client_list"}, cfg.Reconcile.Sources)
	assert.Equal(t, TargetSegwik, cfg.Migrate.Target)
	assert.Equal(t, 1, cfg.Migrate.Concurrency)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 5, cfg.Circuit.FailureThreshold)
	assert.Equal(t, "ledgers", cfg.Ledger.Dir)
	assert.Equal(t, "reports", cfg.Report.Dir)
	assert.Empty(t, cfg.Segwik.Token)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
  format: console
cache:
  backend: sqlite
  ttl_hours: 6
reconcile:
  sources: [wp_users, notion_clients, client_list]
migrate:
  target: salesforce
  concurrency: 4
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, BackendSQLite, cfg.Cache.Backend)
	assert.Equal(t, 6*time.Hour, cfg.Cache.TTL())
	assert.Equal(t, []string{"wp_users", "notion_clients", "client_list"}, cfg.Reconcile.Sources)
	assert.Equal(t, TargetSalesforce, cfg.Migrate.Target)
	assert.Equal(t, 4, cfg.Migrate.Concurrency)
	// Defaults still apply for unset values
	assert.Equal(t, "ledgers", cfg.Ledger.Dir)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
migrate:
  target: salesforce
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("MIGRATE_LOG_LEVEL", "warn")
	t.Setenv("MIGRATE_MIGRATE_TARGET", "segwik")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, TargetSegwik, cfg.Migrate.Target)
}

func TestLoadSecretsFromEnv(t *testing.T) {
	chdirTemp(t)

	t.Setenv("MIGRATE_SEGWIK_TOKEN", "seg-tok")
	t.Setenv("MIGRATE_WOOCOMMERCE_CONSUMER_KEY", "ck_123")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "seg-tok", cfg.Segwik.Token)
	assert.Equal(t, "ck_123", cfg.WooCommerce.ConsumerKey)
}

func TestLoadEnvFiles(t *testing.T) {
	dir := chdirTemp(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("MIGRATE_NOTION_TOKEN=from-env\nMIGRATE_CLIENT_LIST_SOURCE=clients.csv\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.local"),
		[]byte("MIGRATE_NOTION_TOKEN=from-local\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("MIGRATE_NOTION_TOKEN")       //nolint:errcheck
		os.Unsetenv("MIGRATE_CLIENT_LIST_SOURCE") //nolint:errcheck
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-local", cfg.Notion.Token)
	assert.Equal(t, "clients.csv", cfg.ClientList.Source)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with the non-secret defaults populated.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.WooCommerce.PerPage = 100
	cfg.Migrate.Target = TargetSegwik
	cfg.Migrate.Concurrency = 1
	return cfg
}

func TestValidateStore(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate(ModeStore)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "woocommerce.url is required")
	assert.Contains(t, err.Error(), "woocommerce.consumer_key is required")
	assert.Contains(t, err.Error(), "woocommerce.consumer_secret is required")

	cfg.WooCommerce.URL = "https://shop.example.com"
	cfg.WooCommerce.ConsumerKey = "ck"
	cfg.WooCommerce.ConsumerSecret = "cs"
	assert.NoError(t, cfg.Validate(ModeStore))

	cfg.WooCommerce.PerPage = 500
	err = cfg.Validate(ModeStore)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "per_page must be between 1 and 100")
}

func TestValidateWordPress(t *testing.T) {
	cfg := validDefaults()
	cfg.WooCommerce.URL = "https://shop.example.com"
	err := cfg.Validate(ModeWordPress)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "woocommerce.wp_password is required")
	assert.NotContains(t, err.Error(), "woocommerce.url")
}

func TestValidateTarget(t *testing.T) {
	t.Run("segwik", func(t *testing.T) {
		cfg := validDefaults()
		err := cfg.Validate(ModeTarget)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "segwik.token is required")

		cfg.Segwik.Token = "tok"
		assert.NoError(t, cfg.Validate(ModeTarget))
	})

	t.Run("salesforce", func(t *testing.T) {
		cfg := validDefaults()
		cfg.Migrate.Target = TargetSalesforce
		cfg.Salesforce.Username = "ops@example.com"
		err := cfg.Validate(ModeTarget)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "salesforce.client_id is required")
		assert.Contains(t, err.Error(), "salesforce.key_path is required")
		assert.NotContains(t, err.Error(), "segwik")
	})

	t.Run("unknown target", func(t *testing.T) {
		cfg := validDefaults()
		cfg.Migrate.Target = "hubspot"
		err := cfg.Validate(ModeTarget)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `got "hubspot"`)
	})

	t.Run("concurrency bounds", func(t *testing.T) {
		cfg := validDefaults()
		cfg.Segwik.Token = "tok"
		cfg.Migrate.Concurrency = 0
		err := cfg.Validate(ModeTarget)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "migrate.concurrency must be between 1 and 20")

		cfg.Migrate.Concurrency = 20
		assert.NoError(t, cfg.Validate(ModeTarget))
	})
}

func TestValidateNotion(t *testing.T) {
	cfg := validDefaults()
	cfg.Notion.Token = "ntn"
	err := cfg.Validate(ModeNotion)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notion.client_db is required")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.Store.Driver)
	assert.Equal(t, "data", cfg.Store.DataDir)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 3009, cfg.Server.Port)
	assert.Equal(t, "suplook-team-2024", cfg.Server.AuthKey)
	assert.Equal(t, "suplook-admin-2024", cfg.Server.AdminKey)
	assert.Equal(t, "claude-sonnet-4-20250514", cfg.Anthropic.VisionModel)
	assert.Equal(t, 1500, cfg.Anthropic.MaxTokens)
	assert.Equal(t, "https://api.yelp.com/v3", cfg.Yelp.BaseURL)
	assert.Equal(t, "https://r.jina.ai", cfg.Jina.BaseURL)
	assert.Equal(t, "https://s.jina.ai", cfg.Jina.SearchBaseURL)
	assert.Equal(t, 10, cfg.Photo.RequestTimeoutSecs)
	assert.Equal(t, 500, cfg.Photo.SourceDelayMs)
	assert.Equal(t, 300, cfg.Photo.PlacesDelayMs)
	assert.Equal(t, 15, cfg.Photo.ImageTimeoutSecs)
	assert.Equal(t, 10, cfg.Photo.MaxPhotos)
	assert.Equal(t, 3, cfg.Photo.MinPhotosBeforeTopUp)
	assert.Equal(t, "Philadelphia", cfg.Photo.DefaultCity)
	assert.Equal(t, 500, cfg.Pipeline.LeadDelayMs)
	assert.Equal(t, 10, cfg.Pipeline.DefaultBatchSize)
	assert.Equal(t, 200, cfg.Discovery.ZipDelayMs)
	assert.Equal(t, "catalog.json", cfg.Catalog.Path)
	assert.Equal(t, "https://login.salesforce.com", cfg.Salesforce.LoginURL)
	assert.InDelta(t, 5.0, cfg.Salesforce.RequestsPerSecond, 0.001)

	assert.NoError(t, cfg.Validate())
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
  format: console
server:
  port: 9090
photo:
  max_photos: 6
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 6, cfg.Photo.MaxPhotos)
	// Defaults still apply for unset values
	assert.Equal(t, 500, cfg.Photo.SourceDelayMs)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("SUPLOOK_STORE_DRIVER", "postgres")
	t.Setenv("SUPLOOK_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SUPLOOK_YELP_KEY=yelp-from-dotenv\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("SUPLOOK_YELP_KEY") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "yelp-from-dotenv", cfg.Yelp.Key)
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

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "json"
	cfg.Photo.RequestTimeoutSecs = 10
	cfg.Photo.ImageTimeoutSecs = 15
	cfg.Photo.SourceDelayMs = 500
	cfg.Photo.PlacesDelayMs = 300
	cfg.Photo.MaxPhotos = 10
	cfg.Discovery.ZipDelayMs = 200
	cfg.Discovery.DetailsDelayMs = 200
	cfg.Pipeline.DefaultBatchSize = 10
	cfg.Pipeline.MaxBatchSize = 100
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	assert.NoError(t, validDefaults().Validate())
}

func TestValidate_MissingCredentialsAllowed(t *testing.T) {
	cfg := validDefaults()
	cfg.Anthropic.Key = ""
	cfg.Google.Key = ""
	cfg.Yelp.Key = ""
	assert.NoError(t, cfg.Validate())
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mongo"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store driver")
}

func TestValidate_PostgresNeedsURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "postgres"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database_url")

	cfg.Store.DatabaseURL = "postgres://localhost/suplook"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_TimeoutOutOfRange(t *testing.T) {
	cfg := validDefaults()
	cfg.Photo.RequestTimeoutSecs = 60

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request_timeout_secs")
}

func TestValidate_DelayOutOfRange(t *testing.T) {
	cfg := validDefaults()
	cfg.Photo.SourceDelayMs = 50

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "photo.source_delay_ms")
}

func TestValidate_BatchSize(t *testing.T) {
	cfg := validDefaults()
	cfg.Pipeline.DefaultBatchSize = 500

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default_batch_size")
}

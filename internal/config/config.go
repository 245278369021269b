package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Google     GoogleConfig     `yaml:"google" mapstructure:"google"`
	Yelp       YelpConfig       `yaml:"yelp" mapstructure:"yelp"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	Photo      PhotoConfig      `yaml:"photo" mapstructure:"photo"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Discovery  DiscoveryConfig  `yaml:"discovery" mapstructure:"discovery"`
	Catalog    CatalogConfig    `yaml:"catalog" mapstructure:"catalog"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the lead and correction backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	DataDir     string `yaml:"data_dir" mapstructure:"data_dir"`
}

// AnthropicConfig holds vision model settings.
type AnthropicConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	VisionModel string `yaml:"vision_model" mapstructure:"vision_model"`
	MaxTokens   int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// GoogleConfig holds the Places API key.
type GoogleConfig struct {
	Key string `yaml:"key" mapstructure:"key"`
}

// YelpConfig holds Yelp Fusion settings.
type YelpConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// JinaConfig holds Jina reader and search settings.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
}

// PhotoConfig configures the photo hunt across sources.
type PhotoConfig struct {
	RequestTimeoutSecs   int    `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
	SourceDelayMs        int    `yaml:"source_delay_ms" mapstructure:"source_delay_ms"`
	PlacesDelayMs        int    `yaml:"places_delay_ms" mapstructure:"places_delay_ms"`
	ImageTimeoutSecs     int    `yaml:"image_timeout_secs" mapstructure:"image_timeout_secs"`
	MaxPhotos            int    `yaml:"max_photos" mapstructure:"max_photos"`
	MinPhotosBeforeTopUp int    `yaml:"min_photos_before_topup" mapstructure:"min_photos_before_topup"`
	CacheTTLMins         int    `yaml:"cache_ttl_mins" mapstructure:"cache_ttl_mins"`
	DefaultCity          string `yaml:"default_city" mapstructure:"default_city"`
}

// PipelineConfig configures batch enrichment.
type PipelineConfig struct {
	LeadDelayMs      int `yaml:"lead_delay_ms" mapstructure:"lead_delay_ms"`
	DefaultBatchSize int `yaml:"default_batch_size" mapstructure:"default_batch_size"`
	MaxBatchSize     int `yaml:"max_batch_size" mapstructure:"max_batch_size"`
}

// DiscoveryConfig configures zip-code restaurant discovery.
type DiscoveryConfig struct {
	ZipDelayMs     int `yaml:"zip_delay_ms" mapstructure:"zip_delay_ms"`
	DetailsDelayMs int `yaml:"details_delay_ms" mapstructure:"details_delay_ms"`
}

// CatalogConfig points at the product catalog document.
type CatalogConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the operator HTTP server.
type ServerConfig struct {
	Port     int    `yaml:"port" mapstructure:"port"`
	AuthKey  string `yaml:"auth_key" mapstructure:"auth_key"`
	AdminKey string `yaml:"admin_key" mapstructure:"admin_key"`
}

// SalesforceConfig holds Salesforce JWT auth settings.
type SalesforceConfig struct {
	ClientID string `yaml:"client_id" mapstructure:"client_id"`
	Username string `yaml:"username" mapstructure:"username"`
	KeyPath  string `yaml:"key_path" mapstructure:"key_path"`
	LoginURL string `yaml:"login_url" mapstructure:"login_url"`
	// RequestsPerSecond caps API calls; zero disables the limit.
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, config file, and environment.
func Load() (*Config, error) {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("SUPLOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("store.driver", "json")
	v.SetDefault("store.data_dir", "data")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 3009)
	v.SetDefault("server.auth_key", "suplook-team-2024")
	v.SetDefault("server.admin_key", "suplook-admin-2024")
	v.SetDefault("anthropic.vision_model", "claude-sonnet-4-20250514")
	v.SetDefault("anthropic.max_tokens", 1500)
	v.SetDefault("yelp.base_url", "https://api.yelp.com/v3")
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("photo.request_timeout_secs", 10)
	v.SetDefault("photo.source_delay_ms", 500)
	v.SetDefault("photo.places_delay_ms", 300)
	v.SetDefault("photo.image_timeout_secs", 15)
	v.SetDefault("photo.max_photos", 10)
	v.SetDefault("photo.min_photos_before_topup", 3)
	v.SetDefault("photo.cache_ttl_mins", 60)
	v.SetDefault("photo.default_city", "Philadelphia")
	v.SetDefault("pipeline.lead_delay_ms", 500)
	v.SetDefault("pipeline.default_batch_size", 10)
	v.SetDefault("pipeline.max_batch_size", 100)
	v.SetDefault("discovery.zip_delay_ms", 200)
	v.SetDefault("discovery.details_delay_ms", 200)
	v.SetDefault("catalog.path", "catalog.json")
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("salesforce.requests_per_second", 5)

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

// Validate rejects settings the pipeline cannot run safely with. Missing
// credentials are not errors; they disable the dependent source.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "json", "sqlite", "postgres":
	default:
		return eris.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
		return eris.New("config: store.database_url is required for postgres")
	}

	p := c.Photo
	if p.RequestTimeoutSecs < 8 || p.RequestTimeoutSecs > 15 {
		return eris.Errorf("config: photo.request_timeout_secs must be 8-15, got %d", p.RequestTimeoutSecs)
	}
	if p.ImageTimeoutSecs < 8 || p.ImageTimeoutSecs > 15 {
		return eris.Errorf("config: photo.image_timeout_secs must be 8-15, got %d", p.ImageTimeoutSecs)
	}
	for name, ms := range map[string]int{
		"photo.source_delay_ms":      p.SourceDelayMs,
		"photo.places_delay_ms":      p.PlacesDelayMs,
		"discovery.zip_delay_ms":     c.Discovery.ZipDelayMs,
		"discovery.details_delay_ms": c.Discovery.DetailsDelayMs,
	} {
		if ms < 200 || ms > 500 {
			return eris.Errorf("config: %s must be 200-500, got %d", name, ms)
		}
	}
	if p.MaxPhotos <= 0 {
		return eris.Errorf("config: photo.max_photos must be positive, got %d", p.MaxPhotos)
	}
	if c.Pipeline.DefaultBatchSize <= 0 || c.Pipeline.DefaultBatchSize > c.Pipeline.MaxBatchSize {
		return eris.Errorf("config: pipeline.default_batch_size must be 1-%d, got %d",
			c.Pipeline.MaxBatchSize, c.Pipeline.DefaultBatchSize)
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

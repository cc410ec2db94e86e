package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	Geocode GeocodeConfig `yaml:"geocode" mapstructure:"geocode"`
	Import  ImportConfig  `yaml:"import" mapstructure:"import"`
	Hunter  HunterConfig  `yaml:"hunter" mapstructure:"hunter"`
	Route   RouteConfig   `yaml:"route" mapstructure:"route"`

	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
}

// StoreConfig configures the permit database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	TimeoutSecs    int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// GeocodeConfig configures address geocoding for imports and custom route endpoints.
type GeocodeConfig struct {
	Enabled      bool    `yaml:"enabled" mapstructure:"enabled"`
	GoogleAPIKey string  `yaml:"google_api_key" mapstructure:"google_api_key"`
	RateLimit    float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	BatchSize    int     `yaml:"batch_size" mapstructure:"batch_size"`
	Concurrency  int     `yaml:"concurrency" mapstructure:"concurrency"`
	TimeoutSecs  int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts  int     `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// ImportConfig configures downloads of remote permit exports.
type ImportConfig struct {
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
}

// MonitoringConfig configures the background lead-pipeline checker.
type MonitoringConfig struct {
	Enabled           bool   `yaml:"enabled" mapstructure:"enabled"`
	CheckIntervalSecs int    `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	UnplacedThreshold int    `yaml:"unplaced_threshold" mapstructure:"unplaced_threshold"`
	StaleHotDays      int    `yaml:"stale_hot_days" mapstructure:"stale_hot_days"`
	WebhookURL        string `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// HunterConfig configures clustering and scoring.
type HunterConfig struct {
	ClusterRadiusDeg float64             `yaml:"cluster_radius_deg" mapstructure:"cluster_radius_deg"`
	MinClusterSize   int                 `yaml:"min_cluster_size" mapstructure:"min_cluster_size"`
	WeightsFile      string              `yaml:"weights_file" mapstructure:"weights_file"`
	Counties         map[string][]string `yaml:"counties" mapstructure:"counties"`
	Weights          WeightsConfig       `yaml:"weights" mapstructure:"weights"`
}

// WeightsConfig is the permit scoring weight table. Points are additive; the
// commercial multiplier scales the positive subtotal.
type WeightsConfig struct {
	Base                 float64 `yaml:"base" mapstructure:"base"`
	StatusHot            float64 `yaml:"status_hot" mapstructure:"status_hot"`
	StatusNew            float64 `yaml:"status_new" mapstructure:"status_new"`
	StatusNotVisited     float64 `yaml:"status_not_visited" mapstructure:"status_not_visited"`
	StatusContacted      float64 `yaml:"status_contacted" mapstructure:"status_contacted"`
	StatusVisited        float64 `yaml:"status_visited" mapstructure:"status_visited"`
	StatusCold           float64 `yaml:"status_cold" mapstructure:"status_cold"`
	ClusterWeight        float64 `yaml:"cluster_weight" mapstructure:"cluster_weight"`
	ClusterSaturation    int     `yaml:"cluster_saturation" mapstructure:"cluster_saturation"`
	RecencyWeight        float64 `yaml:"recency_weight" mapstructure:"recency_weight"`
	RecencyHalfLifeDays  float64 `yaml:"recency_half_life_days" mapstructure:"recency_half_life_days"`
	BuilderRepeatWeight  float64 `yaml:"builder_repeat_weight" mapstructure:"builder_repeat_weight"`
	BuilderRepeatCap     float64 `yaml:"builder_repeat_cap" mapstructure:"builder_repeat_cap"`
	ContactWeight        float64 `yaml:"contact_weight" mapstructure:"contact_weight"`
	CommercialMultiplier float64 `yaml:"commercial_multiplier" mapstructure:"commercial_multiplier"`
	HighThreshold        int     `yaml:"high_threshold" mapstructure:"high_threshold"`
	MediumThreshold      int     `yaml:"medium_threshold" mapstructure:"medium_threshold"`
}

// RouteConfig configures route duration estimates.
type RouteConfig struct {
	DwellMinutes     float64 `yaml:"dwell_minutes" mapstructure:"dwell_minutes"`
	AverageSpeedKPH  float64 `yaml:"average_speed_kph" mapstructure:"average_speed_kph"`
	MaxMinutes       int     `yaml:"max_minutes" mapstructure:"max_minutes"`
	DefaultAddress   string  `yaml:"default_address" mapstructure:"default_address"`
	DefaultLatitude  float64 `yaml:"default_latitude" mapstructure:"default_latitude"`
	DefaultLongitude float64 `yaml:"default_longitude" mapstructure:"default_longitude"`
}

// HasDefaultLocation reports whether a default business location is configured.
func (r RouteConfig) HasDefaultLocation() bool {
	return !(r.DefaultLatitude == 0 && r.DefaultLongitude == 0)
}

// Validate checks that required config fields are set for the given mode.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "serve", "recommend", "route", "import", "migrate":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, "store.driver must be sqlite or postgres")
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}
	if mode == "serve" && c.Server.Port <= 0 {
		errs = append(errs, "server.port must be > 0")
	}
	if c.Hunter.ClusterRadiusDeg <= 0 {
		errs = append(errs, "hunter.cluster_radius_deg must be > 0")
	}
	if c.Hunter.MinClusterSize < 2 {
		errs = append(errs, "hunter.min_cluster_size must be >= 2")
	}
	if c.Route.AverageSpeedKPH <= 0 {
		errs = append(errs, "route.average_speed_kph must be > 0")
	}
	if c.Route.DwellMinutes < 0 {
		errs = append(errs, "route.dwell_minutes must be >= 0")
	}
	if c.Route.MaxMinutes <= 0 {
		errs = append(errs, "route.max_minutes must be > 0")
	}
	if mode == "route" || mode == "serve" {
		// Routes start from the business location whenever the caller
		// has no usable position.
		if !c.Route.HasDefaultLocation() {
			errs = append(errs, "route.default_latitude and route.default_longitude are required")
		}
		if strings.TrimSpace(c.Route.DefaultAddress) == "" {
			errs = append(errs, "route.default_address is required")
		}
	}
	if mode == "import" && c.Geocode.Enabled && c.Geocode.BatchSize <= 0 {
		errs = append(errs, "geocode.batch_size must be > 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed for %s: %s", mode, strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from .env, config.yaml and the environment.
func Load() (*Config, error) {
	// .env is optional; existing environment variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("HUNTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "lead-hunter.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.timeout_secs", 30)
	v.SetDefault("geocode.enabled", true)
	v.SetDefault("geocode.rate_limit", 50)
	v.SetDefault("geocode.batch_size", 1000)
	v.SetDefault("geocode.concurrency", 4)
	v.SetDefault("geocode.timeout_secs", 30)
	v.SetDefault("geocode.max_attempts", 3)
	v.SetDefault("import.timeout_secs", 120)
	v.SetDefault("import.rate_limit", 5)
	v.SetDefault("import.user_agent", "lead-hunter/1.0")
	setHunterDefaults(v)
	v.SetDefault("monitoring.enabled", true)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.unplaced_threshold", 25)
	v.SetDefault("monitoring.stale_hot_days", 7)

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

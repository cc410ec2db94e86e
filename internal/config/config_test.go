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
	// Change to temp dir so no config.yaml or .env is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "lead-hunter.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.True(t, cfg.Geocode.Enabled)
	assert.InDelta(t, 50, cfg.Geocode.RateLimit, 0.001)
	assert.Equal(t, 3, cfg.Geocode.MaxAttempts)
	assert.InDelta(t, 0.01, cfg.Hunter.ClusterRadiusDeg, 1e-9)
	assert.Equal(t, 2, cfg.Hunter.MinClusterSize)
	assert.InDelta(t, 40, cfg.Hunter.Weights.StatusHot, 0.001)
	assert.InDelta(t, -25, cfg.Hunter.Weights.StatusCold, 0.001)
	assert.InDelta(t, 1.1, cfg.Hunter.Weights.CommercialMultiplier, 0.001)
	assert.Equal(t, 70, cfg.Hunter.Weights.HighThreshold)
	assert.Equal(t, 40, cfg.Hunter.Weights.MediumThreshold)
	assert.Equal(t, 5, cfg.Hunter.Weights.ClusterSaturation)
	assert.InDelta(t, 15, cfg.Route.DwellMinutes, 0.001)
	assert.InDelta(t, 40, cfg.Route.AverageSpeedKPH, 0.001)
	assert.Equal(t, 240, cfg.Route.MaxMinutes)
	assert.False(t, cfg.Route.HasDefaultLocation())
	assert.Equal(t, 120, cfg.Import.TimeoutSecs)
	assert.InDelta(t, 5, cfg.Import.RateLimit, 1e-9)
	assert.Equal(t, "lead-hunter/1.0", cfg.Import.UserAgent)
	assert.True(t, cfg.Monitoring.Enabled)
	assert.Equal(t, 300, cfg.Monitoring.CheckIntervalSecs)
	assert.Equal(t, 25, cfg.Monitoring.UnplacedThreshold)
	assert.Equal(t, 7, cfg.Monitoring.StaleHotDays)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/hunter
log:
  level: debug
  format: console
hunter:
  counties:
    suffolk: [Boston, Chelsea, Revere, Winthrop]
  weights:
    high_threshold: 75
route:
  default_address: 1 Office Park, Boston MA
  default_latitude: 42.35
  default_longitude: -71.05
  max_minutes: 300
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/hunter", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 75, cfg.Hunter.Weights.HighThreshold)
	assert.Equal(t, []string{"Boston", "Chelsea", "Revere", "Winthrop"}, cfg.Hunter.Counties["suffolk"])
	assert.Equal(t, "1 Office Park, Boston MA", cfg.Route.DefaultAddress)
	assert.True(t, cfg.Route.HasDefaultLocation())
	assert.Equal(t, 300, cfg.Route.MaxMinutes)
	// Defaults still apply for unset values
	assert.Equal(t, 40, cfg.Hunter.Weights.MediumThreshold)
	assert.InDelta(t, 15, cfg.Route.DwellMinutes, 0.001)
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

	t.Setenv("HUNTER_STORE_DRIVER", "postgres")
	t.Setenv("HUNTER_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("HUNTER_ROUTE_MAX_MINUTES=180\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("HUNTER_ROUTE_MAX_MINUTES") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 180, cfg.Route.MaxMinutes)
}

func TestLoadDotEnvDoesNotOverrideEnv(t *testing.T) {
	dir := chdirTemp(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("HUNTER_SERVER_PORT=1111\n"), 0644))
	t.Setenv("HUNTER_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
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
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "lead-hunter.db"
	cfg.Server.Port = 8080
	cfg.Geocode.Enabled = true
	cfg.Geocode.BatchSize = 1000
	cfg.Hunter.ClusterRadiusDeg = 0.01
	cfg.Hunter.MinClusterSize = 2
	cfg.Route.DwellMinutes = 15
	cfg.Route.AverageSpeedKPH = 40
	cfg.Route.MaxMinutes = 240
	cfg.Route.DefaultAddress = "1 Office Park, Boston MA"
	cfg.Route.DefaultLatitude = 42.35
	cfg.Route.DefaultLongitude = -71.05
	return cfg
}

func TestValidate_AllModesPass(t *testing.T) {
	cfg := validDefaults()
	for _, mode := range []string{"serve", "recommend", "route", "import", "migrate"} {
		assert.NoError(t, cfg.Validate(mode), mode)
	}
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name string
		mode string
		edit func(c *Config)
		want string
	}{
		{"bad driver", "recommend", func(c *Config) { c.Store.Driver = "mysql" }, "store.driver must be sqlite or postgres"},
		{"missing url", "recommend", func(c *Config) { c.Store.DatabaseURL = "" }, "store.database_url is required"},
		{"bad port", "serve", func(c *Config) { c.Server.Port = 0 }, "server.port must be > 0"},
		{"bad radius", "recommend", func(c *Config) { c.Hunter.ClusterRadiusDeg = 0 }, "cluster_radius_deg"},
		{"bad min size", "recommend", func(c *Config) { c.Hunter.MinClusterSize = 1 }, "min_cluster_size"},
		{"bad speed", "route", func(c *Config) { c.Route.AverageSpeedKPH = 0 }, "average_speed_kph"},
		{"negative dwell", "route", func(c *Config) { c.Route.DwellMinutes = -1 }, "dwell_minutes"},
		{"bad cap", "route", func(c *Config) { c.Route.MaxMinutes = 0 }, "max_minutes"},
		{"route needs default location", "route", func(c *Config) { c.Route.DefaultLatitude, c.Route.DefaultLongitude = 0, 0 }, "route.default_latitude"},
		{"serve needs default location", "serve", func(c *Config) { c.Route.DefaultLatitude, c.Route.DefaultLongitude = 0, 0 }, "route.default_latitude"},
		{"route needs default address", "route", func(c *Config) { c.Route.DefaultAddress = " " }, "route.default_address is required"},
		{"bad batch size", "import", func(c *Config) { c.Geocode.BatchSize = 0 }, "geocode.batch_size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			tt.edit(cfg)
			err := cfg.Validate(tt.mode)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_DefaultLocationOnlyForRouting(t *testing.T) {
	cfg := validDefaults()
	cfg.Route = DefaultRouteConfig()
	for _, mode := range []string{"recommend", "import", "migrate"} {
		assert.NoError(t, cfg.Validate(mode), mode)
	}
}

func TestLoad_RouteModeWithDefaultLocation(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Error(t, cfg.Validate("route"))

	t.Setenv("HUNTER_ROUTE_DEFAULT_ADDRESS", "1 Office Park, Boston MA")
	t.Setenv("HUNTER_ROUTE_DEFAULT_LATITUDE", "42.35")
	t.Setenv("HUNTER_ROUTE_DEFAULT_LONGITUDE", "-71.05")

	cfg, err = Load()
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate("route"))
	assert.NoError(t, cfg.Validate("serve"))
}

func TestLoad_DefaultsMatchDefaultStructs(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultHunterConfig(), cfg.Hunter)
	assert.Equal(t, DefaultRouteConfig(), cfg.Route)
}

func TestValidate_PortIgnoredOutsideServe(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0
	assert.NoError(t, cfg.Validate("recommend"))
}

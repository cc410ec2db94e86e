//go:build !integration

package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-hunter/internal/config"
	"github.com/sells-group/lead-hunter/internal/hunter"
	"github.com/sells-group/lead-hunter/internal/model"
	"github.com/sells-group/lead-hunter/internal/store"
)

var testNow = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

// testConfig returns a valid SQLite config rooted in a temp dir and installs
// it as the global cfg.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg = &config.Config{
		Store: config.StoreConfig{
			Driver:      "sqlite",
			DatabaseURL: filepath.Join(t.TempDir(), "test.db"),
		},
		Server: config.ServerConfig{Port: 8080, AllowedOrigins: []string{"*"}, TimeoutSecs: 5},
		Log:    config.LogConfig{Level: "info", Format: "json"},
		Hunter: hunter.DefaultHunterConfig(),
		Route:  hunter.DefaultRouteConfig(),
	}
	cfg.Route.DefaultAddress = "1 Office Park, Boston, MA"
	cfg.Route.DefaultLatitude = 42.35
	cfg.Route.DefaultLongitude = -71.05
	return cfg
}

func seedPermits(t *testing.T, dsn string, permits ...model.Permit) {
	t.Helper()
	st, err := store.NewSQLite(dsn)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	_, err = st.UpsertPermits(context.Background(), permits)
	require.NoError(t, err)
}

func testPermit(id string, status model.PermitStatus, lat, lng float64) model.Permit {
	return model.Permit{
		ID:          id,
		Latitude:    lat,
		Longitude:   lng,
		Address:     id + " Main St",
		City:        "Boston",
		State:       "MA",
		BuilderName: "Acme Builders",
		PermitType:  model.PermitResidential,
		Status:      status,
		CreatedAt:   testNow.AddDate(0, 0, -3),
	}
}

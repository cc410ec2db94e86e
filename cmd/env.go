package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-hunter/internal/hunter"
	"github.com/sells-group/lead-hunter/internal/monitoring"
	"github.com/sells-group/lead-hunter/internal/resilience"
	"github.com/sells-group/lead-hunter/internal/service"
	"github.com/sells-group/lead-hunter/internal/store"
	"github.com/sells-group/lead-hunter/pkg/geocode"
)

// initStore opens the configured permit store and migrates it.
func initStore(ctx context.Context) (store.PermitStore, error) {
	var (
		st  store.PermitStore
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite", "":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "lead-hunter.db"
		}
		st, err = store.NewSQLite(dsn)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

// initEngine builds the engine from config. The weights file has already
// been applied by the root command.
func initEngine() (*hunter.Engine, error) {
	engine, err := hunter.NewEngine(cfg.Hunter, cfg.Route)
	if err != nil {
		return nil, eris.Wrap(err, "init engine")
	}
	return engine, nil
}

// initGeocoder returns nil when geocoding is disabled.
func initGeocoder() geocode.Client {
	gc := cfg.Geocode
	if !gc.Enabled {
		return nil
	}

	timeout := time.Duration(gc.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	opts := []geocode.Option{
		geocode.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	if gc.RateLimit > 0 {
		opts = append(opts, geocode.WithRateLimit(gc.RateLimit))
	}
	if gc.GoogleAPIKey != "" {
		opts = append(opts, geocode.WithGoogleAPIKey(gc.GoogleAPIKey))
	}
	if gc.MaxAttempts > 0 {
		retry := resilience.DefaultRetryConfig()
		retry.MaxAttempts = gc.MaxAttempts
		opts = append(opts, geocode.WithRetry(retry))
	}
	return geocode.NewClient(opts...)
}

// appEnv holds the wired collaborators shared by most commands.
type appEnv struct {
	Store    store.PermitStore
	Engine   *hunter.Engine
	Geocoder geocode.Client
	Metrics  *monitoring.Metrics
	Service  *service.Service
}

// Close releases the store.
func (e *appEnv) Close() {
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("close store", zap.Error(err))
	}
}

// initEnv validates config for mode and wires store, engine, geocoder and service.
func initEnv(ctx context.Context, mode string, metrics *monitoring.Metrics) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	engine, err := initEngine()
	if err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	env := &appEnv{
		Store:    st,
		Engine:   engine,
		Geocoder: initGeocoder(),
		Metrics:  metrics,
	}

	opts := []service.Option{service.WithMetrics(metrics)}
	if env.Geocoder != nil {
		opts = append(opts, service.WithGeocoder(env.Geocoder))
	}
	env.Service = service.New(st, engine, opts...)
	return env, nil
}

//go:build !integration

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-hunter/internal/hunter"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"recommend", "clusters", "route", "import", "geocode", "migrate", "serve"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "lead-hunter", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestRecommendCommand_Flags(t *testing.T) {
	for _, name := range []string{"city", "county", "limit", "format", "output"} {
		assert.NotNil(t, recommendCmd.Flags().Lookup(name), "recommend should have --%s flag", name)
	}
	assert.Equal(t, "table", recommendCmd.Flags().Lookup("format").DefValue)
	assert.Equal(t, "0", recommendCmd.Flags().Lookup("limit").DefValue)
}

func TestRouteCommand_Flags(t *testing.T) {
	for _, name := range []string{"permits", "start", "start-address", "start-lat", "start-lng", "end", "end-address", "end-lat", "end-lng", "format"} {
		assert.NotNil(t, routeCmd.Flags().Lookup(name), "route should have --%s flag", name)
	}
	assert.Equal(t, "current_location", routeCmd.Flags().Lookup("start").DefValue)
	assert.Equal(t, "last_stop", routeCmd.Flags().Lookup("end").DefValue)
}

func TestImportCommand_Flags(t *testing.T) {
	flag := importCmd.Flags().Lookup("geocode")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
	assert.NoError(t, importCmd.Args(importCmd, []string{"permits.csv"}))
	assert.Error(t, importCmd.Args(importCmd, nil))
}

func TestGeocodeCommand_HasBackfill(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range geocodeCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["backfill"])
	assert.NotNil(t, geocodeBackfillCmd.Flags().Lookup("limit"))
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func setWeightsFlag(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, rootCmd.PersistentFlags().Set("weights", path))
	t.Cleanup(func() {
		f := rootCmd.PersistentFlags().Lookup("weights")
		_ = f.Value.Set("")
		f.Changed = false
	})
}

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	return dir
}

func TestRootPreRun_AppliesWeightsFlag(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "weights.yaml")
	require.NoError(t, os.WriteFile(path, []byte("high_threshold: 80\nstatus_hot: 45\n"), 0o644))
	setWeightsFlag(t, path)

	require.NoError(t, rootCmd.PersistentPreRunE(rootCmd, nil))
	assert.Equal(t, path, cfg.Hunter.WeightsFile)
	assert.Equal(t, 80, cfg.Hunter.Weights.HighThreshold)
	assert.InDelta(t, 45, cfg.Hunter.Weights.StatusHot, 1e-9)
	assert.InDelta(t, 10, cfg.Hunter.Weights.Base, 1e-9)
}

func TestRootPreRun_WeightsFromEnv(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "weights.yaml")
	require.NoError(t, os.WriteFile(path, []byte("medium_threshold: 35\n"), 0o644))
	t.Setenv("HUNTER_HUNTER_WEIGHTS_FILE", path)

	require.NoError(t, rootCmd.PersistentPreRunE(rootCmd, nil))
	assert.Equal(t, 35, cfg.Hunter.Weights.MediumThreshold)
}

func TestRootPreRun_RejectsInvalidWeights(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "weights.yaml")
	require.NoError(t, os.WriteFile(path, []byte("base: 60\n"), 0o644))
	setWeightsFlag(t, path)

	err := rootCmd.PersistentPreRunE(rootCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apply weights")
}

func TestRootPreRun_NoWeightsFile(t *testing.T) {
	chdirTemp(t)

	require.NoError(t, rootCmd.PersistentPreRunE(rootCmd, nil))
	assert.Empty(t, cfg.Hunter.WeightsFile)
	assert.Equal(t, hunter.DefaultWeights(), cfg.Hunter.Weights)
}
